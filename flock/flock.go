// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package flock implements a simple POSIX advisory lock used to enforce
// mrecordlog's single-writer-per-directory assumption (§5).
//
// It is adapted from github.com/grailbio/base/flock, trimmed to the Unix
// implementation: mrecordlog's rolling writer has no platform-specific
// requirement that would justify carrying the Windows LockFileEx variant
// (see DESIGN.md).
package flock

import "context"

// A Lock is an exclusive, process-scoped advisory lock on a path.
type Lock interface {
	// Lock acquires the lock, blocking until it is available or ctx is
	// done. If Lock returns nil, the caller must eventually call Unlock.
	Lock(ctx context.Context) error
	// Unlock releases the lock.
	Unlock() error
}

// New returns a Lock guarding the given path. The path is created if it
// does not already exist; it is never removed.
func New(path string) Lock {
	return newUnixLock(path)
}
