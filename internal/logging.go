package internal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mama165/sdk-go/logs"
	"gopkg.in/natefinch/lumberjack.v2"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger logs to stdout, and also to a rotating JSON file when LOG_FILE is set.
// The returned closer releases the file.
func NewLogger(config Config) (*slog.Logger, io.Closer, error) {
	if config.LogFile == "" {
		return logs.GetLoggerFromString(config.LogLevel), nopCloser{}, nil
	}

	level, err := config.Level()
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o755); err != nil {
		return nil, nil, err
	}

	logWriter := &lumberjack.Logger{
		Filename:   config.LogFile,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}
	h := slog.NewJSONHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: level})
	return slog.New(h), logWriter, nil
}
