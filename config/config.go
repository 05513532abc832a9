// Package config loads server configuration.
//
// Priority, lowest first: defaults, TOML file, .env file, STATEMENTVIZ_*
// environment variables, command-line flags (applied by the caller).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/phuslu/log"
	"github.com/robfig/cron/v3"
	"github.com/warp/statement-viz/viz"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STATEMENTVIZ_"

// Config is the server configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Storage StorageConfig `toml:"storage"`
	Data    DataConfig    `toml:"data"`
	Logging LoggingConfig `toml:"logging"`
	Viz     VizConfig     `toml:"viz"`
}

type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port" validate:"min=1,max=65535"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string `toml:"allowed_origins"`
}

// Duration reads "30s" style strings from TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type StorageConfig struct {
	Path string `toml:"path" validate:"required"` // SQLite file, or ":memory:"
}

type DataConfig struct {
	Dir            string   `toml:"dir"`             // company folders to import; empty disables import
	ImportOnStart  bool     `toml:"import_on_start"` // re-import Dir at startup
	ImportInterval Duration `toml:"import_interval"` // periodic re-import; 0 disables
	ImportSchedule string   `toml:"import_schedule"` // 5-field cron expression, wins over ImportInterval
	SeedScenario   string   `toml:"seed_scenario"`   // demo dataset loaded into an empty store
}

type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=trace debug info warn error"`
	Format string `toml:"format" validate:"oneof=json text"`
}

// VizConfig tunes the visualization heuristics.
type VizConfig struct {
	LabelShareThreshold float64 `toml:"label_share_threshold" validate:"gte=0,lte=100"` // percent
	BridgeTolerance     float64 `toml:"bridge_tolerance" validate:"gte=0"`
	ReconcileResidual   bool    `toml:"reconcile_residual"`
	ResidualLabel       string  `toml:"residual_label"`
}

// Options converts the section into builder options.
func (v VizConfig) Options() viz.Options {
	return viz.Options{
		LabelShareThreshold: v.LabelShareThreshold,
		BridgeTolerance:     v.BridgeTolerance,
		ReconcileResidual:   v.ReconcileResidual,
		ResidualLabel:       v.ResidualLabel,
	}
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// NewDefaultConfig returns the configuration used when nothing is set.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(30 * time.Second),
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:8080"},
		},
		Storage: StorageConfig{Path: "statements.db"},
		Data:    DataConfig{Dir: "data", ImportOnStart: true, SeedScenario: "sample"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Viz: VizConfig{
			LabelShareThreshold: viz.DefaultLabelShareThreshold,
			BridgeTolerance:     viz.DefaultBridgeTolerance,
			ResidualLabel:       viz.DefaultResidualLabel,
		},
	}
}

// Load builds the configuration from path (optional, may be empty) and
// envFile (optional; a missing file is not an error), then applies
// environment overrides and validates the result.
func Load(path, envFile string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv.Load never overrides variables already set in the process
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration with the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Data.ImportSchedule != "" {
		if _, err := cron.ParseStandard(c.Data.ImportSchedule); err != nil {
			return fmt.Errorf("invalid config: data.import_schedule: %w", err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("SERVER_HOST", &cfg.Server.Host)
	parse("SERVER_PORT", func(v string) (err error) {
		cfg.Server.Port, err = strconv.Atoi(v)
		return err
	})
	parse("SERVER_SHUTDOWN_TIMEOUT", func(v string) error {
		return cfg.Server.ShutdownTimeout.UnmarshalText([]byte(v))
	})
	parse("SERVER_ALLOWED_ORIGINS", func(v string) error {
		cfg.Server.AllowedOrigins = splitList(v)
		return nil
	})
	str("STORAGE_PATH", &cfg.Storage.Path)
	str("DATA_DIR", &cfg.Data.Dir)
	parse("DATA_IMPORT_ON_START", func(v string) (err error) {
		cfg.Data.ImportOnStart, err = strconv.ParseBool(v)
		return err
	})
	parse("DATA_IMPORT_INTERVAL", func(v string) error {
		return cfg.Data.ImportInterval.UnmarshalText([]byte(v))
	})
	str("DATA_IMPORT_SCHEDULE", &cfg.Data.ImportSchedule)
	str("DATA_SEED_SCENARIO", &cfg.Data.SeedScenario)
	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)
	parse("VIZ_LABEL_SHARE_THRESHOLD", func(v string) (err error) {
		cfg.Viz.LabelShareThreshold, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("VIZ_BRIDGE_TOLERANCE", func(v string) (err error) {
		cfg.Viz.BridgeTolerance, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("VIZ_RECONCILE_RESIDUAL", func(v string) (err error) {
		cfg.Viz.ReconcileResidual, err = strconv.ParseBool(v)
		return err
	})

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// =============================================================================
// LOGGING
// =============================================================================

// SetupLogging configures the global phuslu logger.
func (l LoggingConfig) SetupLogging() {
	logger := log.Logger{
		Level:  log.ParseLevel(l.Level),
		Caller: 0,
	}
	if l.Format == "text" {
		logger.Writer = &log.ConsoleWriter{ColorOutput: isTerminal(), QuoteString: true}
	} else {
		logger.Writer = &log.IOWriter{Writer: os.Stderr}
	}
	log.DefaultLogger = logger
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
