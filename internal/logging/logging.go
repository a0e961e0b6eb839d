package logging

import (
	"fmt" // Error wrapping
	"io"  // Writer fan-out
	"os"  // Stdout

	"github.com/sirupsen/logrus"       // Structured logging
	"gopkg.in/natefinch/lumberjack.v2" // Log file rotation
)

// Options controls the global logrus logger
type Options struct {
	Level string // logrus level name (debug, info, warn, error)
	File  string // Optional log file, rotated by size
	JSON  bool   // JSON output instead of text
}

// Setup configures the global logrus logger. The returned closer flushes the
// rotated log file if one was opened.
func Setup(opts Options) (io.Closer, error) {
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	logrus.SetLevel(level)

	if opts.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if opts.File == "" {
		logrus.SetOutput(os.Stdout)
		return nopCloser{}, nil
	}

	rotated := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	logrus.SetOutput(io.MultiWriter(os.Stdout, rotated))
	return rotated, nil
}

// nopCloser is returned when logs only go to stdout
type nopCloser struct{}

func (nopCloser) Close() error { return nil }
