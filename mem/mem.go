// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package mem implements MemQueues, the in-memory per-queue index described
// in §3/§4.2 of the mrecordlog specification: it is the authoritative
// in-process view of every queue's live position range and payload bytes.
//
// MemQueues never touches disk; the log engine (package mrecordlog) is
// responsible for keeping it synchronized with the on-disk record log
// according to the write-order invariants of §4.3 and §9.
package mem

import (
	"sort"

	"github.com/RaphaelMarinier/mrecordlog/errors"
)

// entry is one live record: its hosting file number and a private copy of
// its payload. The codec's Deserialize is zero-copy, so MemQueues must copy
// payload bytes on the way in (§9 "Borrowed vs owned payloads").
type entry struct {
	fileNumber uint64
	payload    []byte
}

// queue is the per-queue state described in §3 "Queue (logical, in
// memory)". entries[i] always holds the record at position
// firstRetainedPosition+uint64(i); positions within a queue are therefore
// always contiguous, satisfying invariant 1.
type queue struct {
	nextPosition          uint64
	firstRetainedPosition uint64
	firstFileNumber       uint64
	entries               []entry
}

func (q *queue) empty() bool { return len(q.entries) == 0 }

// MemQueues is the in-memory index of every live queue. The zero value is
// not usable; construct with New.
type MemQueues struct {
	queues map[string]*queue
}

// New returns an empty MemQueues, as used by engine recovery (§4.3.1 step
// 2) and by a freshly-created log directory.
func New() *MemQueues {
	return &MemQueues{queues: make(map[string]*queue)}
}

// CreateQueue inserts a new, empty queue named name, whose
// first_file_number is currentFileNumber until its first record is
// appended. It fails with errors.AlreadyExists if the queue is already
// present.
func (m *MemQueues) CreateQueue(name string, currentFileNumber uint64) error {
	if _, ok := m.queues[name]; ok {
		return errors.E(errors.AlreadyExists, name)
	}
	m.queues[name] = &queue{firstFileNumber: currentFileNumber}
	return nil
}

// DeleteQueue removes all state for name. It fails with
// errors.MissingQueue if the queue does not exist.
func (m *MemQueues) DeleteQueue(name string) error {
	if _, ok := m.queues[name]; !ok {
		return errors.E(errors.MissingQueue, name)
	}
	delete(m.queues, name)
	return nil
}

// ContainsQueue reports whether name currently exists.
func (m *MemQueues) ContainsQueue(name string) bool {
	_, ok := m.queues[name]
	return ok
}

// ListQueues returns the names of every live queue, sorted for determinism.
func (m *MemQueues) ListQueues() []string {
	names := make([]string, 0, len(m.queues))
	for name := range m.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NextPosition returns the position the next append to name will receive.
// It fails with errors.MissingQueue if name does not exist.
func (m *MemQueues) NextPosition(name string) (uint64, error) {
	q, ok := m.queues[name]
	if !ok {
		return 0, errors.E(errors.MissingQueue, name)
	}
	return q.nextPosition, nil
}

// AppendRecord records a live entry at position, hosted in fileNumber, for
// queue name. It fails with errors.Corruption if name does not exist or
// position does not equal the queue's current next_position — both
// semantically impossible outside of a corrupted log.
func (m *MemQueues) AppendRecord(name string, fileNumber, position uint64, payload []byte) error {
	q, ok := m.queues[name]
	if !ok {
		return errors.E(errors.Corruption, "append to missing queue", name)
	}
	if position != q.nextPosition {
		return errors.E(errors.Corruption, "append position is not next_position", name)
	}
	owned := append([]byte(nil), payload...)
	if q.empty() {
		q.firstFileNumber = fileNumber
	}
	q.entries = append(q.entries, entry{fileNumber: fileNumber, payload: owned})
	q.nextPosition = position + 1
	return nil
}

// Touch pins or advances name's first_file_number to fileNumber.
//
//   - If name does not exist, it is created with next_position = position.
//   - If it exists and is empty, next_position is advanced to position and
//     first_file_number is set to fileNumber.
//   - If it exists and is non-empty, position must equal next_position;
//     otherwise Touch fails with errors.Corruption.
func (m *MemQueues) Touch(name string, position, fileNumber uint64) error {
	q, ok := m.queues[name]
	if !ok {
		m.queues[name] = &queue{
			nextPosition:          position,
			firstRetainedPosition: position,
			firstFileNumber:       fileNumber,
		}
		return nil
	}
	if q.empty() {
		q.nextPosition = position
		q.firstRetainedPosition = position
		q.firstFileNumber = fileNumber
		return nil
	}
	if position != q.nextPosition {
		return errors.E(errors.Corruption, "touch position does not match next_position", name)
	}
	return nil
}

// Truncate removes every live entry of name with position <= position. A
// truncate of an absent queue is a no-op at this layer; the log engine
// rejects such truncations upstream (§4.2).
func (m *MemQueues) Truncate(name string, position uint64) {
	q, ok := m.queues[name]
	if !ok {
		return
	}
	if position+1 >= q.nextPosition {
		for i := range q.entries {
			q.entries[i].payload = nil
		}
		q.entries = nil
		q.firstRetainedPosition = q.nextPosition
		return
	}
	if position < q.firstRetainedPosition {
		return // already truncated past this point
	}
	cut := int(position - q.firstRetainedPosition + 1)
	for i := 0; i < cut; i++ {
		q.entries[i].payload = nil
	}
	q.entries = q.entries[cut:]
	q.firstRetainedPosition += uint64(cut)
}

// EmptyQueue identifies a queue that currently has no live entries, as
// returned by EmptyQueuePositions.
type EmptyQueue struct {
	Name         string
	NextPosition uint64
}

// EmptyQueuePositions returns every queue currently holding zero live
// entries, together with its next_position. The log engine uses this after
// a truncate to emit fresh RecordPosition ("touch") frames so that GC can
// advance past files those queues no longer reference (§4.3.5, §9).
func (m *MemQueues) EmptyQueuePositions() []EmptyQueue {
	var out []EmptyQueue
	for name, q := range m.queues {
		if q.empty() {
			out = append(out, EmptyQueue{Name: name, NextPosition: q.nextPosition})
		}
	}
	return out
}

// FirstFileNumber returns the file number that must be retained for name
// not to lose its origin (invariant 3), and whether name exists.
func (m *MemQueues) FirstFileNumber(name string) (uint64, bool) {
	q, ok := m.queues[name]
	if !ok {
		return 0, false
	}
	return q.firstFileNumber, true
}

// MinFirstFileNumber returns the smallest first_file_number across every
// live queue, and whether any queue exists at all. The log engine's GC
// step (§4.3.7) deletes every file strictly below this number.
func (m *MemQueues) MinFirstFileNumber() (uint64, bool) {
	var (
		min   uint64
		found bool
	)
	for _, q := range m.queues {
		if !found || q.firstFileNumber < min {
			min = q.firstFileNumber
			found = true
		}
	}
	return min, found
}

// RangeIter is a forward iterator over a contiguous slice of a queue's live
// entries, as returned by Range. It does not copy payload bytes.
type RangeIter struct {
	base  uint64
	items []entry
	i     int
}

// Next returns the next (position, payload) pair in the range, and false
// once exhausted.
func (it *RangeIter) Next() (position uint64, payload []byte, ok bool) {
	if it == nil || it.i >= len(it.items) {
		return 0, nil, false
	}
	position = it.base + uint64(it.i)
	payload = it.items[it.i].payload
	it.i++
	return position, payload, true
}

// Range returns an iterator over every live entry of name with position in
// [start, end), and true — or ok == false if name does not exist. The
// returned range is the intersection of [start, end) with the queue's live
// range [first_retained_position, next_position).
func (m *MemQueues) Range(name string, start, end uint64) (*RangeIter, bool) {
	q, ok := m.queues[name]
	if !ok {
		return nil, false
	}
	lo := start
	if q.firstRetainedPosition > lo {
		lo = q.firstRetainedPosition
	}
	hi := end
	if q.nextPosition < hi {
		hi = q.nextPosition
	}
	if hi <= lo {
		return &RangeIter{}, true
	}
	loIdx := int(lo - q.firstRetainedPosition)
	hiIdx := int(hi - q.firstRetainedPosition)
	return &RangeIter{base: lo, items: q.entries[loIdx:hiIdx]}, true
}
