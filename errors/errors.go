// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package errors implements the error taxonomy used throughout mrecordlog.
//
// It is adapted from github.com/grailbio/base/errors: a single Error type
// carrying an interpretable Kind and an optional chained cause, constructed
// through a variadic E() helper. The Vanadium (v.io/v23/verror)
// interpretation clause present in the teacher package is dropped — this
// engine never talks to a Vanadium RPC server, so there is nothing for it
// to interpret; see DESIGN.md.
package errors

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
)

// Separator separates chained errors in Error's message.
var Separator = ":\n\t"

// Kind classifies an error. Kinds map directly onto mrecordlog's §7 error
// taxonomy.
type Kind int

const (
	// Other is an unclassified error.
	Other Kind = iota
	// Io indicates an underlying storage failure.
	Io
	// Corruption indicates recovery observed a semantically impossible
	// sequence of records.
	Corruption
	// MissingQueue indicates an operation targets a nonexistent queue.
	MissingQueue
	// AlreadyExists indicates create_queue targets an existing queue.
	AlreadyExists
	// Past indicates an idempotent append's position is already behind the
	// queue's applied range.
	Past
	// Future indicates an idempotent append's position is ahead of
	// next_position, or a truncate position is at or beyond it.
	Future
	// Canceled indicates a context cancellation.
	Canceled

	maxKind
)

var kinds = map[Kind]string{
	Other:         "unknown error",
	Io:            "io error",
	Corruption:    "corruption",
	MissingQueue:  "missing queue",
	AlreadyExists: "queue already exists",
	Past:          "position already applied",
	Future:        "position not yet reachable",
	Canceled:      "operation was canceled",
}

var kindStdErrs = map[Kind]error{
	Canceled: context.Canceled,
}

// String returns a human-readable description of k.
func (k Kind) String() string {
	return kinds[k]
}

// Error is mrecordlog's standard error type: a Kind, an optional message,
// and an optional chained cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// E constructs an error from its arguments, interpreted by type:
//
//   - Kind sets the error's kind.
//   - string values are joined with a space to form the message.
//   - error sets the cause; if it is itself *Error and no kind was given
//     explicitly, the kind is inherited from it.
//
// E never returns nil; calling it with no arguments panics.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("errors.E: no arguments")
	}
	e := new(Error)
	var msg strings.Builder
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if msg.Len() > 0 {
				msg.WriteByte(' ')
			}
			msg.WriteString(a)
		case *Error:
			cp := *a
			e.Err = &cp
		case error:
			e.Err = a
		default:
			return &Error{Kind: Other, Message: "errors.E: unsupported argument type"}
		}
	}
	e.Message = msg.String()
	if e.Err == nil {
		return e
	}
	if prev, ok := e.Err.(*Error); ok && e.Kind == Other {
		e.Kind = prev.Kind
	} else if e.Kind == Other {
		for k := Kind(0); k < maxKind; k++ {
			if std := kindStdErrs[k]; std != nil && errors.Is(e.Err, std) {
				e.Kind = k
				break
			}
		}
		if e.Kind == Other && os.IsNotExist(e.Err) {
			e.Kind = MissingQueue
		}
	}
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b bytes.Buffer
	e.writeError(&b)
	return b.String()
}

func (e *Error) writeError(b *bytes.Buffer) {
	if e.Message != "" {
		pad(b)
		b.WriteString(e.Message)
	}
	if e.Kind != Other {
		pad(b)
		b.WriteString(e.Kind.String())
	}
	if e.Err == nil {
		return
	}
	if inner, ok := e.Err.(*Error); ok {
		if b.Len() > 0 {
			b.WriteString(Separator)
		}
		inner.writeError(b)
	} else {
		pad(b)
		b.WriteString(e.Err.Error())
	}
}

func pad(b *bytes.Buffer) {
	if b.Len() > 0 {
		b.WriteString(": ")
	}
}

// Unwrap lets the standard library's errors.Unwrap/errors.Is/errors.As walk
// through *Error's cause chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err has the given Kind, including through a chain of
// *Error causes.
func Is(kind Kind, err error) bool {
	for err != nil {
		e, ok := err.(*Error)
		if !ok {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// New is synonymous with the standard library's errors.New.
func New(msg string) error {
	return errors.New(msg)
}
