// Package logger - zap logger with a rotated JSON file and a console stream.
package logger

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the log level and outputs.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	// FilePath enables a rotated JSON log file when set.
	FilePath string `json:"file_path" yaml:"file_path"`
	// Development switches the console to the human readable encoder.
	Development bool `json:"development" yaml:"development"`
	// MaxSizeMB is the size at which the file is rotated.
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `json:"max_backups" yaml:"max_backups" validate:"gte=0"`
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days" validate:"gte=0"`
}

// DefaultConfig logs info and above to the console only.
func DefaultConfig() Config {
	return Config{
		Level:       "info",
		Development: true,
		MaxSizeMB:   10,
		MaxBackups:  5,
		MaxAgeDays:  30,
	}
}

// New builds a logger writing to stderr and, when FilePath is set, to a rotated file.
//
// Arguments:
//   - config: Level and output settings.
//
// Returns:
//   - *zap.Logger: The logger; call Sync before exit.
//   - error: If the level is not recognised.
//
// @example
// log, err := logger.New(logger.DefaultConfig())
// if err != nil {
//     panic(err)
// }
// defer log.Sync()
func New(config Config) (*zap.Logger, error) {
	return build(config, zapcore.Lock(os.Stderr))
}

func build(config Config, console zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if config.Level != "" {
		parsed, err := zapcore.ParseLevel(config.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", config.Level)
		}
		level = parsed
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	jsonEncoder := zapcore.NewJSONEncoder(encoderConfig)

	consoleEncoder := jsonEncoder
	if config.Development {
		consoleEncoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	cores := []zapcore.Core{zapcore.NewCore(consoleEncoder, console, level)}

	if config.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(jsonEncoder, zapcore.AddSync(rotator), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}
