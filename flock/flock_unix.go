// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

//go:build !windows

package flock

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/RaphaelMarinier/mrecordlog/log"
)

// pollInterval is the fixed wait between retries of the non-blocking flock
// attempt. There is no portable way to wait on both a POSIX advisory lock
// and a context's Done channel at once, so Lock polls; this bounds how
// stale a cancellation can be observed.
const pollInterval = 25 * time.Millisecond

type unixLock struct {
	path string
	mu   sync.Mutex
	fd   int
}

func newUnixLock(path string) Lock {
	return &unixLock{path: path}
}

// Lock opens (creating if needed) the file at l.path and repeatedly
// attempts a non-blocking exclusive flock on it, backing off between
// attempts, until it succeeds or ctx is done. A held fd is only ever
// returned to the caller on success.
func (l *unixLock) Lock(ctx context.Context) error {
	l.mu.Lock()

	fd, err := unix.Open(l.path, unix.O_CREAT|unix.O_RDWR, 0o644)
	if err != nil {
		l.mu.Unlock()
		return err
	}

	for attempt := 0; ; attempt++ {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			l.fd = fd
			return nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			_ = unix.Close(fd)
			l.mu.Unlock()
			return err
		}
		if attempt == 0 {
			log.Debug.Printf("flock: waiting for lock on %s", l.path)
		}
		select {
		case <-ctx.Done():
			_ = unix.Close(fd)
			l.mu.Unlock()
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Unlock releases the flock and closes the underlying file descriptor.
func (l *unixLock) Unlock() error {
	err := unix.Flock(l.fd, unix.LOCK_UN)
	if cerr := unix.Close(l.fd); err == nil {
		err = cerr
	}
	l.mu.Unlock()
	return err
}
