package main

import (
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	bingo "github.com/menta2k/bin-go"
	"github.com/menta2k/bin-go/internal/config"
	"github.com/menta2k/bin-go/internal/telemetry"
	"github.com/menta2k/bin-go/pkg/client"
	"github.com/menta2k/bin-go/pkg/hosted"
	"github.com/menta2k/bin-go/pkg/llamacpp"
	"github.com/menta2k/bin-go/pkg/ollama"
	"github.com/menta2k/bin-go/pkg/places"
	"github.com/menta2k/bin-go/pkg/processing"
	"github.com/menta2k/bin-go/pkg/recognition"
	"github.com/menta2k/bin-go/pkg/types"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultLlamaCppURL = "http://localhost:8080"
	defaultLocalModel  = "openbmb/minicpm-v4.5"
)

// newVisionClient creates the configured backend; nil for BackendNone
func newVisionClient(vc config.VisionConfig) (client.VisionClient, error) {
	hc := &http.Client{Timeout: vc.Timeout}
	model := vc.Model
	if model == "" {
		model = defaultLocalModel
	}

	switch vc.Backend {
	case config.BackendNone, "":
		return nil, nil
	case config.BackendOllama:
		url := vc.URL
		if url == "" {
			url = defaultOllamaURL
		}
		c, err := ollama.NewClientWithHTTP(url, model, hc)
		if err != nil {
			return nil, eris.Wrap(err, "create ollama client")
		}
		return c, nil
	case config.BackendLlamaCpp:
		url := vc.URL
		if url == "" {
			url = defaultLlamaCppURL
		}
		c, err := llamacpp.NewClientWithHTTP(url, model, hc)
		if err != nil {
			return nil, eris.Wrap(err, "create llama.cpp client")
		}
		return c, nil
	case config.BackendHosted:
		opts := []hosted.Option{hosted.WithHTTPClient(hc)}
		if vc.URL != "" {
			opts = append(opts, hosted.WithBaseURL(vc.URL))
		}
		return hosted.NewClient(vc.APIKey, vc.Model, opts...), nil
	default:
		return nil, eris.Errorf("unknown vision backend %q", vc.Backend)
	}
}

// newFinder searches Google Places when a key is configured and otherwise
// answers with the static placeholder site
func newFinder(pc config.PlacesConfig, metrics *telemetry.Provider) places.SiteFinder {
	if pc.APIKey == "" {
		zap.L().Info("no places api key configured, using static donation sites")
		return places.StaticFinder{}
	}

	c := places.NewClient(pc.APIKey,
		places.WithBaseURL(pc.BaseURL),
		places.WithRateLimit(pc.RateLimit),
	)
	opts := []places.FinderOption{places.WithLogger(zap.L())}
	if metrics != nil {
		opts = append(opts, places.WithFailureHook(metrics.FailureHook(telemetry.CollaboratorPlaces)))
	}
	return places.NewFinder(c, places.FinderConfig{
		Keyword:      pc.Keyword,
		RadiusMeters: pc.RadiusMeters,
		MaxResults:   pc.MaxResults,
	}, opts...)
}

// buildBinGo wires every component from configuration. metrics may be nil.
func buildBinGo(c *config.Config, metrics *telemetry.Provider) (*bingo.BinGo, error) {
	vc, err := newVisionClient(c.Vision)
	if err != nil {
		return nil, err
	}

	recOpts := []recognition.Option{
		recognition.WithMinConfidence(c.Vision.MinConfidence),
		recognition.WithTimeout(c.Vision.Timeout),
		recognition.WithLogger(zap.L()),
	}
	if metrics != nil {
		record := metrics.FailureHook(telemetry.CollaboratorVision)
		recOpts = append(recOpts, recognition.WithFailureHook(func(err error) {
			if recognition.IsBackendError(err) {
				record(err)
			}
		}))
	}

	processor := processing.NewProcessorWithConfig(processing.Config{
		MinImageSize: c.Image.MinSize,
		MaxBytes:     c.Image.MaxUploadBytes,
		MaxPixels:    c.Image.MaxPixels,
	})

	return bingo.New(
		bingo.WithProcessor(processor),
		bingo.WithRecognizer(recognition.NewRecognizer(vc, recOpts...)),
		bingo.WithFinder(newFinder(c.Places, metrics)),
		bingo.WithImageOptions(types.ImageOptions{
			Format:  c.Vision.SendFormat,
			MaxDim:  c.Vision.SendSize,
			Quality: c.Vision.SendQuality,
		}),
	), nil
}
