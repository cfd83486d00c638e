package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Vision VisionConfig `yaml:"vision" mapstructure:"vision"`
	Places PlacesConfig `yaml:"places" mapstructure:"places"`
	Image  ImageConfig  `yaml:"image" mapstructure:"image"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port               int           `yaml:"port" mapstructure:"port"`
	Debug              bool          `yaml:"debug" mapstructure:"debug"`
	ReadTimeout        time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	CORSOrigins        []string      `yaml:"cors_origins" mapstructure:"cors_origins"`
	RequestRetention   time.Duration `yaml:"request_retention" mapstructure:"request_retention"`
	MaxTrackedRequests int           `yaml:"max_tracked_requests" mapstructure:"max_tracked_requests"`
}

// VisionConfig selects and configures the image recognition backend
type VisionConfig struct {
	Backend       string        `yaml:"backend" mapstructure:"backend"`
	URL           string        `yaml:"url" mapstructure:"url"`
	Model         string        `yaml:"model" mapstructure:"model"`
	APIKey        string        `yaml:"api_key" mapstructure:"api_key"`
	SendFormat    string        `yaml:"send_format" mapstructure:"send_format"`
	SendSize      int           `yaml:"send_size" mapstructure:"send_size"`
	SendQuality   int           `yaml:"send_quality" mapstructure:"send_quality"`
	MinConfidence float64       `yaml:"min_confidence" mapstructure:"min_confidence"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PlacesConfig configures the donation site search
type PlacesConfig struct {
	APIKey       string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	Keyword      string  `yaml:"keyword" mapstructure:"keyword"`
	MaxResults   int     `yaml:"max_results" mapstructure:"max_results"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ImageConfig holds limits for uploaded images
type ImageConfig struct {
	MinSize        int   `yaml:"min_size" mapstructure:"min_size"`
	MaxUploadBytes int64 `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
	MaxPixels      int64 `yaml:"max_pixels" mapstructure:"max_pixels"`
}

// LogConfig configures the global logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Vision backends
const (
	BackendNone     = "none"
	BackendHosted   = "hosted"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 150*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.request_retention", 10*time.Minute)
	v.SetDefault("server.max_tracked_requests", 10000)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:3001"})

	v.SetDefault("vision.backend", BackendNone)
	v.SetDefault("vision.url", "")
	v.SetDefault("vision.model", "")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.send_format", "jpg")
	v.SetDefault("vision.send_size", 1024)
	v.SetDefault("vision.send_quality", 85)
	v.SetDefault("vision.min_confidence", 0.2)
	v.SetDefault("vision.timeout", 120*time.Second)

	v.SetDefault("places.api_key", "")
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.radius_meters", 8000)
	v.SetDefault("places.keyword", "donation center")
	v.SetDefault("places.max_results", 10)
	v.SetDefault("places.rate_limit", 5)

	v.SetDefault("image.min_size", 32)
	v.SetDefault("image.max_upload_bytes", 10<<20)
	v.SetDefault("image.max_pixels", 40_000_000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Default returns a configuration with default values
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// Load reads config.yaml from the working directory or the user config
// directory, overlays BINGO_ environment variables and fills defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is like Load but reads the given file when path is not empty
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(GetConfigDir())
	}

	// Environment
	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return eris.New("server.port must be between 1 and 65535")
	}

	if c.Server.RequestRetention <= 0 {
		return eris.New("server.request_retention must be positive")
	}

	if c.Server.MaxTrackedRequests < 1 {
		return eris.New("server.max_tracked_requests must be positive")
	}

	switch c.Vision.Backend {
	case BackendNone, BackendOllama, BackendLlamaCpp:
	case BackendHosted:
		if c.Vision.APIKey == "" {
			return eris.New("vision.api_key is required for the hosted backend")
		}
		if c.Vision.Model == "" {
			return eris.New("vision.model is required for the hosted backend")
		}
	default:
		return eris.New("vision.backend must be one of none, hosted, ollama, llamacpp")
	}

	if f := strings.ToLower(c.Vision.SendFormat); f != "jpg" && f != "jpeg" && f != "png" {
		return eris.New("vision.send_format must be jpg or png")
	}

	if c.Vision.SendSize < 0 {
		return eris.New("vision.send_size cannot be negative")
	}

	if c.Vision.SendQuality < 1 || c.Vision.SendQuality > 100 {
		return eris.New("vision.send_quality must be between 1 and 100")
	}

	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		return eris.New("vision.min_confidence must be between 0 and 1")
	}

	if c.Places.RadiusMeters <= 0 || c.Places.RadiusMeters > 50000 {
		return eris.New("places.radius_meters must be between 0 and 50000")
	}

	if c.Places.MaxResults < 1 || c.Places.MaxResults > 20 {
		return eris.New("places.max_results must be between 1 and 20")
	}

	if c.Places.RateLimit < 0 {
		return eris.New("places.rate_limit cannot be negative")
	}

	if c.Image.MinSize < 1 {
		return eris.New("image.min_size must be positive")
	}

	if c.Image.MaxUploadBytes < 1 {
		return eris.New("image.max_upload_bytes must be positive")
	}

	if c.Image.MaxPixels < 1 {
		return eris.New("image.max_pixels must be positive")
	}

	if c.Log.Format != "json" && c.Log.Format != "console" {
		return eris.New("log.format must be json or console")
	}

	return nil
}

// GetConfigDir returns the per-user configuration directory
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "bin-go")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
