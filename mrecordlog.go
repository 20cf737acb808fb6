// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package mrecordlog implements an append-only, multiplexed, on-disk record
// log: many independent named queues, each with a monotonically increasing
// per-queue position, multiplexed into a single physical log directory.
//
// The package follows the three-layer split the corpus this engine is
// modeled on uses for similar storage engines: a pure binary codec
// (package record), an in-memory index (package mem), and this top-level
// engine that orchestrates the write-ahead-log discipline between them.
package mrecordlog

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/RaphaelMarinier/mrecordlog/errors"
	"github.com/RaphaelMarinier/mrecordlog/flock"
	"github.com/RaphaelMarinier/mrecordlog/log"
	"github.com/RaphaelMarinier/mrecordlog/mem"
	"github.com/RaphaelMarinier/mrecordlog/record"
	"github.com/RaphaelMarinier/mrecordlog/rolling"
)

// MultiRecordLog is the log engine: it owns a rolling.Writer over the
// on-disk record log and the mem.MemQueues index kept synchronized with
// it. The zero value is not usable; construct with Open.
//
// MultiRecordLog is not internally synchronized beyond what is needed to
// make a single mutex-guarded instance safe for concurrent use from
// multiple goroutines: operations are serialized, matching §5's
// single-threaded cooperative scheduling model. It assumes it is the only
// writer of its directory across process boundaries, enforced by an
// advisory directory lock acquired in Open.
type MultiRecordLog struct {
	mu sync.Mutex

	dir    string
	lock   flock.Lock
	writer *rolling.Writer
	mem    *mem.MemQueues

	serializeBuf []byte
}

// Options configures Open. The zero Options value selects sane defaults.
type Options struct {
	// MaxFileSize is the rolling file size threshold. Zero selects
	// rolling.DefaultMaxFileSize.
	MaxFileSize int64
}

// Open opens or creates a record log rooted at directory, replaying its
// on-disk state (§4.3.1) and acquiring an advisory lock that excludes
// other processes from opening the same directory concurrently.
func Open(ctx context.Context, directory string, opts Options) (*MultiRecordLog, error) {
	maxFileSize := opts.MaxFileSize
	if maxFileSize == 0 {
		maxFileSize = rolling.DefaultMaxFileSize
	}

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, errors.E(errors.Io, "creating log directory", err)
	}

	lock := flock.New(filepath.Join(directory, ".lock"))
	if err := lock.Lock(ctx); err != nil {
		return nil, errors.E(errors.Io, "acquiring directory lock", err)
	}

	reader, err := rolling.Open(directory)
	if err != nil {
		_ = lock.Unlock()
		return nil, errors.E(errors.Io, "opening rolling reader", err)
	}

	index := mem.New()
	for {
		fileNumber := reader.CurrentFileNumber()
		frame, ok, err := reader.Read()
		if err != nil {
			_ = lock.Unlock()
			return nil, errors.E(errors.Io, "reading rolling frame during recovery", err)
		}
		if !ok {
			break
		}
		rec, ok := record.Deserialize(frame)
		if !ok {
			// A frame that fails to decode mid-stream (as opposed to a
			// torn tail, which Read already collapsed to ok == false) is
			// a semantically impossible state: the codec wrote it.
			_ = lock.Unlock()
			return nil, errors.E(errors.Corruption, "undecodable frame during recovery")
		}
		if err := applyRecord(index, rec, fileNumber); err != nil {
			_ = lock.Unlock()
			return nil, err
		}
	}

	writer, err := reader.IntoWriter(maxFileSize)
	if err != nil {
		_ = lock.Unlock()
		return nil, errors.E(errors.Io, "converting reader into writer", err)
	}

	log.Info.Printf("mrecordlog: opened %s with %d live queue(s)", directory, len(index.ListQueues()))

	return &MultiRecordLog{
		dir:    directory,
		lock:   lock,
		writer: writer,
		mem:    index,
	}, nil
}

func applyRecord(index *mem.MemQueues, rec record.Record, fileNumber uint64) error {
	switch rec.Kind {
	case record.AppendRecords:
		for _, item := range rec.Items {
			if err := index.AppendRecord(rec.Queue, fileNumber, item.Position, item.Payload); err != nil {
				return errors.E(errors.Corruption, "replaying append", err)
			}
		}
		return nil
	case record.Truncate:
		index.Truncate(rec.Queue, rec.Position)
		return nil
	case record.RecordPosition:
		if err := index.Touch(rec.Queue, rec.Position, fileNumber); err != nil {
			return errors.E(errors.Corruption, "replaying touch", err)
		}
		return nil
	case record.DeleteQueue:
		if err := index.DeleteQueue(rec.Queue); err != nil {
			return errors.E(errors.Corruption, "replaying delete_queue", err)
		}
		return nil
	default:
		return errors.E(errors.Corruption, "unknown record kind during recovery")
	}
}

// Close releases the engine's directory lock and underlying file handle.
// It does not flush: callers that need every prior mutation durable
// should rely on the fact that every mutating method already flushes
// before returning. Calls after the first do nothing and return nil.
func (m *MultiRecordLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writer == nil {
		return nil
	}
	err := m.writer.Close()
	if uerr := m.lock.Unlock(); err == nil {
		err = uerr
	}
	m.writer = nil
	return err
}

func (m *MultiRecordLog) writeAndFlush(rec record.Record) error {
	m.serializeBuf = record.Serialize(m.serializeBuf, rec)
	if err := m.writer.Append(m.serializeBuf); err != nil {
		return err
	}
	return m.writer.Flush()
}

// CreateQueue creates a new, empty queue named name. It fails with
// errors.AlreadyExists if the queue is already present.
//
// Per §9 open question 1, the in-memory uniqueness check runs before the
// frame pinning the queue's origin file is written, so a redundant create
// writes nothing: replaying a position-0 touch frame for a queue that
// already exists would reset an empty queue's next_position, or fail
// recovery with errors.Corruption for a non-empty one.
func (m *MultiRecordLog) CreateQueue(queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.mem.ContainsQueue(queue) {
		return errors.E(errors.AlreadyExists, queue)
	}
	rec := record.Record{Kind: record.RecordPosition, Position: 0, Queue: queue}
	if err := m.writeAndFlush(rec); err != nil {
		return errors.E(errors.Io, "writing create_queue frame", err)
	}
	if err := m.mem.CreateQueue(queue, m.writer.CurrentFileNumber()); err != nil {
		return err
	}
	return nil
}

// DeleteQueue removes queue entirely. It fails with errors.MissingQueue if
// queue does not exist.
func (m *MultiRecordLog) DeleteQueue(queue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, err := m.mem.NextPosition(queue)
	if err != nil {
		return err
	}
	rec := record.Record{Kind: record.DeleteQueue, Position: next, Queue: queue}
	if err := m.writeAndFlush(rec); err != nil {
		return errors.E(errors.Io, "writing delete_queue frame", err)
	}
	return m.mem.DeleteQueue(queue)
}

// QueueExists reports whether queue currently exists.
func (m *MultiRecordLog) QueueExists(queue string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.ContainsQueue(queue)
}

// ListQueues returns the names of every live queue, sorted.
func (m *MultiRecordLog) ListQueues() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.ListQueues()
}

// NextPosition returns the position the next append to queue will
// receive.
func (m *MultiRecordLog) NextPosition(queue string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.NextPosition(queue)
}

// AppendRecord appends one payload to queue, implementing the idempotence
// contract of §4.3.4. If position is non-nil and already applied (its
// value is one less than the queue's next_position), AppendRecord is a
// no-op and returns (nil, nil).
func (m *MultiRecordLog) AppendRecord(queue string, position *uint64, payload []byte) (*uint64, error) {
	return m.AppendRecords(queue, position, [][]byte{payload})
}

// AppendRecords is the batched form of AppendRecord (§4.3.4): it applies
// every payload in one frame, at consecutive positions starting from p,
// atomically — on recovery the whole frame applies or (if its tail was
// torn) none of it does.
func (m *MultiRecordLog) AppendRecords(queue string, position *uint64, payloads [][]byte) (*uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	np, err := m.mem.NextPosition(queue)
	if err != nil {
		return nil, err
	}

	var p uint64
	switch {
	case position == nil:
		p = np
	case *position > np:
		return nil, errors.E(errors.Future, "append position is ahead of next_position")
	case *position+1 == np:
		return nil, nil
	case *position < np:
		return nil, errors.E(errors.Past, "append position is already applied")
	default:
		p = *position
	}

	if len(payloads) == 0 {
		return nil, nil
	}

	items := make([]record.Item, len(payloads))
	for i, payload := range payloads {
		items[i] = record.Item{Position: p + uint64(i), Payload: payload}
	}
	rec := record.Record{Kind: record.AppendRecords, Position: p, Queue: queue, Items: items}
	if err := m.writeAndFlush(rec); err != nil {
		return nil, errors.E(errors.Io, "writing append_records frame", err)
	}
	// Read back the file number only now that the frame has actually been
	// written: writeAndFlush may have rolled to a new file partway through,
	// and the frame always lands in whatever file CurrentFileNumber reports
	// after the write returns, never the one it reported before.
	fileNumber := m.writer.CurrentFileNumber()
	for _, item := range items {
		if err := m.mem.AppendRecord(queue, fileNumber, item.Position, item.Payload); err != nil {
			return nil, errors.E(errors.Corruption, "applying append_records frame", err)
		}
	}
	return &p, nil
}

// Truncate retracts queue's live range so no position <= position remains
// live. It fails with errors.Future if position is at or beyond the
// queue's next_position.
//
// After truncating, every queue that is empty at that point is touched
// (§4.3.5) so that its first_file_number advances past files it no longer
// references; garbage collection then runs (§4.3.7).
func (m *MultiRecordLog) Truncate(queue string, position uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	np, err := m.mem.NextPosition(queue)
	if err != nil {
		return err
	}
	if position >= np {
		return errors.E(errors.Future, "truncate position is at or beyond next_position")
	}

	m.mem.Truncate(queue, position)
	rec := record.Record{Kind: record.Truncate, Position: position, Queue: queue}
	if err := m.writeAndFlush(rec); err != nil {
		return errors.E(errors.Io, "writing truncate frame", err)
	}

	for _, eq := range m.mem.EmptyQueuePositions() {
		touch := record.Record{Kind: record.RecordPosition, Position: eq.NextPosition, Queue: eq.Name}
		if err := m.writeAndFlush(touch); err != nil {
			return errors.E(errors.Io, "writing touch frame for empty queue", err)
		}
		// As in AppendRecords, fileNumber must be read back after the write:
		// a roll during writeAndFlush would otherwise pin first_file_number
		// to a file this touch frame was never actually written into.
		fileNumber := m.writer.CurrentFileNumber()
		if err := m.mem.Touch(eq.Name, eq.NextPosition, fileNumber); err != nil {
			return errors.E(errors.Corruption, "applying touch frame for empty queue", err)
		}
	}

	return m.gc()
}

// gc deletes every rolling file strictly below the minimum first_file_number
// across all live queues (§4.3.7), or every file older than the current
// one if no queue exists.
func (m *MultiRecordLog) gc() error {
	keepFrom, found := m.mem.MinFirstFileNumber()
	if !found {
		keepFrom = m.writer.CurrentFileNumber()
	}
	if err := m.writer.DeleteFilesUpToWithManifest(keepFrom); err != nil {
		return errors.E(errors.Io, "garbage collecting rolling files", err)
	}
	return nil
}

// Range returns an iterator over every live payload of queue with
// position in [start, end), or ok == false if queue does not exist.
// The iterator reads the queue's entries in place after the engine's lock
// is released; a Truncate of that queue clears the payloads of the entries
// it removes, including ones the iterator has not yet returned.
func (m *MultiRecordLog) Range(queue string, start, end uint64) (it *mem.RangeIter, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mem.Range(queue, start, end)
}

// ListFileNumbers returns every rolling file number currently present in
// the log directory, ascending. It is a diagnostic accessor exercised by
// cmd/mrecordlogctl and by tests asserting GC safety (§8 property 6).
func (m *MultiRecordLog) ListFileNumbers() ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writer.ListFileNumbers()
}
