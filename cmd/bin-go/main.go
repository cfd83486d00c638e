package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	bingo "github.com/menta2k/bin-go"
	"github.com/menta2k/bin-go/internal/config"
)

var (
	cfg        *config.Config
	configFile string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:     "bin-go",
	Short:   "Recycling, trash or compost?",
	Long:    "Classifies items into the recycling, trash or compost bin from a text description, a model label or a photo, and finds nearby donation sites.",
	Version: bingo.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFile(configFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := c.Validate(); err != nil {
			return eris.Wrap(err, "invalid config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yaml or ~/.config/bin-go/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
