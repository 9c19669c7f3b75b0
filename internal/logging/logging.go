// Package logging builds the process-wide zap.Logger. It is constructed
// once at startup and threaded through every other package via constructor
// injection; nothing in this module reaches for a package-level global.
package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls sink selection and rotation. An empty File means log to
// stderr with the human-readable console encoder (development mode);
// a non-empty File routes JSON-encoded entries through lumberjack.
type Options struct {
	Level string // "debug", "info", "warn", "error"
	File  string
	// MaxSizeMB, MaxBackups, MaxAgeDays tune lumberjack rotation; zero
	// values fall back to 100 MB, 7 backups and 28 days.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a *zap.Logger per Options. Fields named "model", "method",
// and "batch_size" are the conventional per-call fields other packages
// attach via logger.With(...); this constructor does not add them itself.
func New(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
			return nil, err
		}
	}

	if opts.File == "" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		return cfg.Build()
	}

	rotator := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    orDefault(opts.MaxSizeMB, 100),
		MaxBackups: orDefault(opts.MaxBackups, 7),
		MaxAge:     orDefault(opts.MaxAgeDays, 28),
		Compress:   true,
	}
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(rotator), level)
	return zap.New(core, zap.AddCaller()), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
