package logging

import (
	"io"
	"os"

	"github.com/paramx/paramx/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. When a file is configured, output goes to
// stderr and to a rotated file.
func New(cfg config.LoggingConfig, file string) (*logrus.Logger, func() error, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(level)

	switch cfg.Format {
	case config.FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	closer := func() error { return nil }
	if file != "" {
		rotated := Rotated(file, cfg.Rotation)
		logger.SetOutput(io.MultiWriter(os.Stderr, rotated))
		closer = rotated.Close
	} else {
		logger.SetOutput(os.Stderr)
	}

	return logger, closer, nil
}

// Rotated returns a size rotated writer for path.
func Rotated(path string, rotation config.RotationConfig) *lumberjack.Logger {
	maxSize := rotation.MaxSizeMB
	if maxSize == 0 {
		maxSize = 100
	}
	maxBackups := rotation.MaxBackups
	if maxBackups == 0 {
		maxBackups = 3
	}
	maxAge := rotation.MaxAgeDays
	if maxAge == 0 {
		maxAge = 28
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     maxAge,
		Compress:   rotation.Compress,
	}
}
