// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package errors

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

// Once captures at most one error, safely across goroutines. The zero Once
// is ready to use. It is adapted from the teacher package's errors.Once,
// used here by the rolling writer to latch the first I/O failure across
// the file removals (and manifest write) of one garbage-collection pass.
type Once struct {
	mu  sync.Mutex
	err unsafe.Pointer // *error
}

// Err returns the first non-nil error passed to Set, or nil.
func (o *Once) Err() error {
	p := atomic.LoadPointer(&o.err)
	if p == nil {
		return nil
	}
	return *(*error)(p)
}

// Set records err if it is the first non-nil error seen.
func (o *Once) Set(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err == nil {
		atomic.StorePointer(&o.err, unsafe.Pointer(&err))
	}
}
