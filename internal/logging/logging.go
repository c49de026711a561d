// Package logging builds the structured logger the simulation driver uses
// to report periodic tick summaries: a console sink for interactive runs and a
// size-rotated file sink for long multi-year simulations.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely New writes.
type Options struct {
	// LogDir is the directory the rotating log file is written into. Created
	// if it does not exist.
	LogDir string
	// Verbose enables debug-level logging; otherwise info level.
	Verbose bool
}

// New builds a zerolog.Logger writing to both os.Stderr (colorized only
// when it's a real terminal) and a rotating file under opts.LogDir.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	isTerminal := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !isTerminal,
	}

	logDir := opts.LogDir
	if logDir == "" {
		logDir = "."
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return zerolog.Logger{}, err
	}

	file := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "epidemic-abm.log"),
		MaxSize:    16, // megabytes
		MaxBackups: 8,
		MaxAge:     365, // days
		Compress:   true,
	}

	multi := zerolog.MultiLevelWriter(io.Writer(console), file)
	logger := zerolog.New(multi).Level(level).With().Timestamp().Logger()
	return logger, nil
}
