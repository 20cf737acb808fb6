// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package log provides simple leveled logging for the mrecordlog engine.
//
// It mirrors the small Outputter-based logging façade used across the
// corpus this engine is modeled on: by default, log output is written to
// os.Stderr with a level prefix, but callers may install their own Outputter to
// unify output with an application's own logging.
package log

import (
	"fmt"
	"os"
)

// An Outputter is a destination for leveled log output.
type Outputter interface {
	// Level returns the level at which the outputter is accepting messages.
	Level() Level
	// Output writes s to the outputter at the given level. Implementations
	// drop the message if they are not logging at that level.
	Output(calldepth int, level Level, s string) error
}

var out Outputter = stdlibOutputter{}

// SetOutputter installs a new outputter and returns the previous one.
// It should not be called concurrently with log output.
func SetOutputter(newOut Outputter) Outputter {
	old := out
	out = newOut
	return old
}

// At reports whether the current outputter is logging at level.
func At(level Level) bool {
	return level <= out.Level()
}

// Level is a log verbosity level. Lower levels have higher priority: if the
// outputter logs at level L, every message with level M <= L is emitted.
type Level int

const (
	// Off never emits messages.
	Off = Level(-3)
	// Error emits error messages only.
	Error = Level(-2)
	// Info emits informational messages. This is the default level.
	Info = Level(0)
	// Debug emits messages intended for diagnosing the engine itself.
	Debug = Level(1)
)

func (l Level) String() string {
	switch l {
	case Off:
		return "off"
	case Error:
		return "error"
	case Info:
		return "info"
	case Debug:
		return "debug"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Printf formats a message and emits it at level l.
func (l Level) Printf(format string, v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprintf(format, v...))
	}
}

// Println formats a message and emits it at level l.
func (l Level) Println(v ...interface{}) {
	if At(l) {
		_ = out.Output(2, l, fmt.Sprintln(v...))
	}
}

// Printf formats a message at Info level.
func Printf(format string, v ...interface{}) {
	Info.Printf(format, v...)
}

// SetLevel sets the level of the default stdlib-backed outputter. It has no
// effect if a custom Outputter has been installed.
func SetLevel(level Level) {
	if o, ok := out.(stdlibOutputter); ok {
		_ = o
		stdlibLevel = level
	}
}

var stdlibLevel = Info

type stdlibOutputter struct{}

func (stdlibOutputter) Level() Level { return stdlibLevel }

func (stdlibOutputter) Output(calldepth int, level Level, s string) error {
	if stdlibLevel < level {
		return nil
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", level, s)
	return nil
}
