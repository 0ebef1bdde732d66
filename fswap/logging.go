// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package fswap

import (
	"fmt"
	"io"

	"github.com/decred/slog"
)

// Every component constructor accepts a Logger. All logging should take place
// through the provided logger.
type Logger = slog.Logger

// Disabled is a Logger that discards all output. Useful as a default in
// tests and optional constructor arguments.
var Disabled = func() Logger {
	lggr := slog.NewBackend(io.Discard).Logger("")
	lggr.SetLevel(slog.LevelOff)
	return lggr
}()

// LoggerMaker allows creation of new log subsystems with predefined levels.
type LoggerMaker struct {
	*slog.Backend
	DefaultLevel slog.Level
	Levels       map[string]slog.Level
}

// NewLoggerMaker creates a new LoggerMaker writing to the provided writer at
// the provided default level. lvl must parse with slog.LevelFromString.
func NewLoggerMaker(writer io.Writer, lvl string) (*LoggerMaker, error) {
	level, ok := slog.LevelFromString(lvl)
	if !ok {
		return nil, fmt.Errorf("unknown log level: %q", lvl)
	}
	return &LoggerMaker{
		Backend:      slog.NewBackend(writer),
		DefaultLevel: level,
		Levels:       make(map[string]slog.Level),
	}, nil
}

// SubLogger creates a Logger with a subsystem name "parent[name]", using any
// known log level for the parent subsystem, defaulting to the DefaultLevel
// if the parent does not have an explicitly set level.
func (lm *LoggerMaker) SubLogger(parent, name string) Logger {
	level, ok := lm.Levels[parent]
	if !ok {
		level = lm.DefaultLevel
	}
	logger := lm.Backend.Logger(fmt.Sprintf("%s[%s]", parent, name))
	logger.SetLevel(level)
	return logger
}

// NewLogger creates a new Logger for the subsystem with the given name. If a
// log level is specified, it is used for the Logger. Otherwise the
// DefaultLevel is used.
func (lm *LoggerMaker) NewLogger(name string, level ...slog.Level) Logger {
	lvl := lm.DefaultLevel
	if len(level) > 0 {
		lvl = level[0]
	}
	logger := lm.Backend.Logger(name)
	logger.SetLevel(lvl)
	return logger
}
