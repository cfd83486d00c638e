package main

import (
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/menta2k/bin-go/internal/api"
	"github.com/menta2k/bin-go/internal/telemetry"
	"github.com/menta2k/bin-go/pkg/flight"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metrics := telemetry.NewProvider()
		bg, err := buildBinGo(cfg, metrics)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if servePort > 0 {
			port = servePort
		}

		tracker := flight.NewTracker(
			flight.WithRetention(cfg.Server.RequestRetention),
			flight.WithMaxFinished(cfg.Server.MaxTrackedRequests),
		)
		h := api.NewHandler(bg, tracker, metrics, cfg.Image.MaxUploadBytes)
		srv := api.NewServer(api.Config{
			Port:            port,
			Debug:           cfg.Server.Debug,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
			CORS: api.CORSConfig{
				AllowedOrigins:   cfg.Server.CORSOrigins,
				AllowCredentials: true,
			},
		}, zap.L(), metrics, func(r *gin.Engine) {
			api.RegisterRoutes(r, h, metrics)
		})

		zap.L().Info("bin-go starting",
			zap.String("vision_backend", cfg.Vision.Backend),
			zap.Bool("places_enabled", cfg.Places.APIKey != ""),
		)
		return srv.RunWithGracefulShutdown(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}
