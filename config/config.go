// Package config - Application configuration from YAML, .env files and POSTURE_* environment variables.
package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-posture/analysis"
	"github.com/nvr-ai/go-posture/capture"
	"github.com/nvr-ai/go-posture/countdown"
	"github.com/nvr-ai/go-posture/display"
	"github.com/nvr-ai/go-posture/estimator"
	"github.com/nvr-ai/go-posture/logger"
	"github.com/nvr-ai/go-posture/monitor"
	"github.com/nvr-ai/go-posture/server"
	"github.com/nvr-ai/go-posture/training"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POSTURE_"

// Config is the complete application configuration.
type Config struct {
	Analysis  analysis.Config       `json:"analysis" yaml:"analysis"`
	Monitor   monitor.Config        `json:"monitor" yaml:"monitor"`
	Training  training.Config       `json:"training" yaml:"training"`
	Countdown countdown.Config      `json:"countdown" yaml:"countdown"`
	Camera    capture.CameraConfig  `json:"camera" yaml:"camera"`
	Estimator estimator.Config      `json:"estimator" yaml:"estimator"`
	Overlay   display.OverlayConfig `json:"overlay" yaml:"overlay"`
	Server    server.Config         `json:"server" yaml:"server"`
	Log       logger.Config         `json:"log" yaml:"log"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Analysis:  analysis.DefaultConfig(),
		Monitor:   monitor.DefaultConfig(),
		Training:  training.DefaultConfig(),
		Countdown: countdown.DefaultConfig(),
		Camera:    capture.DefaultCameraConfig(),
		Estimator: estimator.DefaultConfig(),
		Overlay:   display.DefaultOverlayConfig(),
		Server:    server.DefaultConfig(),
		Log:       logger.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, an optional YAML file, optional
// .env files and the process environment, in that order, then validates it.
//
// Arguments:
//   - path: YAML file path, empty to skip.
//   - envFiles: .env files to load; missing files are skipped.
//
// Returns:
//   - Config: The validated configuration.
//   - error: If a file cannot be parsed, an override is malformed or validation fails.
//
// @example
// cfg, err := config.Load("posture.yaml", ".env")
// if err != nil {
//     log.Fatal(err)
// }
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse %s", path)
		}
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return Config{}, errors.Wrapf(err, "load %s", file)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every section's constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type override struct {
	name  string
	apply func(cfg *Config, value string) error
}

var overrides = []override{
	{"CAMERA_DEVICE", func(c *Config, v string) error { return setInt(&c.Camera.DeviceID, v) }},
	{"CAMERA_WIDTH", func(c *Config, v string) error { return setInt(&c.Camera.Width, v) }},
	{"CAMERA_HEIGHT", func(c *Config, v string) error { return setInt(&c.Camera.Height, v) }},
	{"MODEL_PATH", func(c *Config, v string) error { c.Estimator.ModelPath = v; return nil }},
	{"ORT_LIBRARY", func(c *Config, v string) error { c.Estimator.LibraryPath = v; return nil }},
	{"MIN_CONFIDENCE", func(c *Config, v string) error { return setFloat32(&c.Analysis.MinConfidence, v) }},
	{"UPPER_THRESHOLD", func(c *Config, v string) error { return setFloat32(&c.Analysis.UpperThreshold, v) }},
	{"LOWER_THRESHOLD", func(c *Config, v string) error { return setFloat32(&c.Analysis.LowerThreshold, v) }},
	{"MONITOR_INTERVAL", func(c *Config, v string) error { return setDuration(&c.Monitor.Interval, v) }},
	{"ACQUIRE_TIMEOUT", func(c *Config, v string) error { return setDuration(&c.Monitor.AcquireTimeout, v) }},
	{"SETTLE_DELAY", func(c *Config, v string) error { return setDuration(&c.Training.SettleDelay, v) }},
	{"MIN_SCORE", func(c *Config, v string) error { return setFloat32(&c.Training.MinScore, v) }},
	{"SERVER_ENABLED", func(c *Config, v string) error { return setBool(&c.Server.Enabled, v) }},
	{"LISTEN", func(c *Config, v string) error { c.Server.Address = v; return nil }},
	{"LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"LOG_FILE", func(c *Config, v string) error { c.Log.FilePath = v; return nil }},
}

// applyEnv applies every POSTURE_* variable that lookup finds.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, o := range overrides {
		value, ok := lookup(EnvPrefix + o.name)
		if !ok {
			continue
		}
		if err := o.apply(cfg, value); err != nil {
			return errors.Wrapf(err, "%s%s", EnvPrefix, o.name)
		}
	}
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setFloat32(dst *float32, v string) error {
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return err
	}
	*dst = float32(f)
	return nil
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}
