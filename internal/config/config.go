// Package config handles loading and validating the muryar configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration for the muryar service.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	Gemini     GeminiConfig     `mapstructure:"gemini"`
	Audio      AudioConfig      `mapstructure:"audio"`
	Sessions   SessionsConfig   `mapstructure:"sessions"`
	Objects    ObjectsConfig    `mapstructure:"objects"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// AppConfig holds application-wide naming.
type AppConfig struct {
	Name string `mapstructure:"name"` // prefix of downloadable file names
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// GeminiConfig holds the speech model settings.
type GeminiConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	Model             string        `mapstructure:"model"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`             // 0 disables the client timeout
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // 0 disables pacing
}

// AudioConfig describes the raw PCM returned by the model when the
// response does not state it.
type AudioConfig struct {
	SampleRate int `mapstructure:"sample_rate"`
	Channels   int `mapstructure:"channels"`
}

// SessionsConfig controls how long idle sessions are kept.
type SessionsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// ObjectsConfig controls how long generated audio stays downloadable.
type ObjectsConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// flagKeys maps command-line flags onto configuration keys.
var flagKeys = map[string]string{
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"http-port":   "transports.http.port",
	"grpc-port":   "transports.grpc.port",
	"health-port": "server.health_port",
	"api-key":     "gemini.api_key",
	"model":       "gemini.model",
}

// Flags returns the command-line flag set of the muryar binary.
func Flags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("muryar", pflag.ContinueOnError)
	flags.StringP("config", "c", "", "path to config file (e.g. configs/muryar.yaml)")
	flags.String("env-file", ".env", "optional dotenv file loaded before the environment is read")
	flags.Bool("version", false, "print version and exit")
	flags.Bool("list-voices", false, "list supported languages and voices and exit")
	flags.StringP("say", "t", "", "synthesize this text once and write a WAV file instead of serving")
	flags.StringP("language", "l", "", "language for --say (default Hausa)")
	flags.StringP("voice", "v", "", "voice for --say (default Algenib)")
	flags.StringP("output", "o", "", "output path for --say (default <app>-<language>-<voice>.wav)")
	flags.String("server", "", "gRPC address of a running muryar server used by --say (default: synthesize locally)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (json, text)")
	flags.Int("http-port", 0, "HTTP transport port")
	flags.Int("grpc-port", 0, "gRPC transport port")
	flags.Int("health-port", 0, "health check port")
	flags.String("api-key", "", "Gemini API key")
	flags.String("model", "", "Gemini speech model")
	return flags
}

// Load reads the configuration from flags, environment variables, an
// optional config file and defaults, in that order of precedence.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./muryar.yaml, ./configs/muryar.yaml, /etc/muryar/muryar.yaml.
// flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	envFile := ".env"
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
	}
	if err := loadEnvFile(envFile); err != nil {
		return nil, err
	}

	v := viper.New()

	// Defaults
	v.SetDefault("app.name", "muryar-ai")
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash-preview-tts")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.timeout", "5m")
	v.SetDefault("gemini.requests_per_minute", 0)
	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("sessions.ttl", "1h")
	v.SetDefault("objects.ttl", "2h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("muryar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/muryar")
	}

	// Environment variables: MURYAR_GEMINI_MODEL, MURYAR_TRANSPORTS_HTTP_PORT, etc.
	v.SetEnvPrefix("MURYAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional: env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in sensitive fields (e.g., "${GEMINI_API_KEY}")
	cfg.Gemini.APIKey = resolveEnvRef(cfg.Gemini.APIKey)
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside the pipeline.
// A missing API key is not a validation failure: it is reported per request.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name must not be empty"))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels <= 0 {
		errs = append(errs, fmt.Errorf("audio.channels must be positive, got %d", c.Audio.Channels))
	}
	if c.Gemini.Model == "" {
		errs = append(errs, errors.New("gemini.model must not be empty"))
	}
	if c.Gemini.Timeout < 0 {
		errs = append(errs, fmt.Errorf("gemini.timeout must not be negative, got %s", c.Gemini.Timeout))
	}
	if c.Gemini.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("gemini.requests_per_minute must not be negative, got %d", c.Gemini.RequestsPerMinute))
	}
	if c.Sessions.TTL <= 0 {
		errs = append(errs, fmt.Errorf("sessions.ttl must be positive, got %s", c.Sessions.TTL))
	}
	if c.Objects.TTL <= 0 {
		errs = append(errs, fmt.Errorf("objects.ttl must be positive, got %s", c.Objects.TTL))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// loadEnvFile loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	slog.Debug("loaded env file", "path", path)
	return nil
}

// resolveEnvRef replaces "${VAR_NAME}" with the value of VAR_NAME. An
// unresolved reference yields the empty string.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// NewLogger builds a slog logger writing to w according to cfg.
func NewLogger(cfg LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	slog.SetDefault(NewLogger(cfg, os.Stdout))
}
