// Package logging routes log output through a level filter. Lines carry a
// "[LEVEL]" prefix, e.g. log.Printf("[WARN] ...").
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/logutils"
)

// Levels are the recognised levels, lowest first.
var Levels = []logutils.LogLevel{"DEBUG", "INFO", "WARN", "ERROR"}

// ParseLevel normalises s to one of Levels.
func ParseLevel(s string) (logutils.LogLevel, error) {
	level := logutils.LogLevel(strings.ToUpper(strings.TrimSpace(s)))
	for _, l := range Levels {
		if l == level {
			return level, nil
		}
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// NewFilter drops lines below minLevel before writing to w.
func NewFilter(w io.Writer, minLevel logutils.LogLevel) *logutils.LevelFilter {
	return &logutils.LevelFilter{
		Levels:   Levels,
		MinLevel: minLevel,
		Writer:   w,
	}
}

// Setup points the standard logger at a level filter over w.
func Setup(w io.Writer, level string) error {
	min, err := ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetOutput(NewFilter(w, min))
	log.SetFlags(log.LstdFlags)
	return nil
}

// GetLogger returns a logger for one part of the program, prefixed with
// its name, writing through the same filter as the standard logger.
func GetLogger(domain string) *log.Logger {
	return log.New(log.Writer(), domain+" ", log.LstdFlags|log.Lmsgprefix)
}

// OpenFile opens path for appending, creating its directory.
func OpenFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return f, nil
}
