// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package rolling

import (
	"io"
	"os"

	"github.com/RaphaelMarinier/mrecordlog/errors"
	"github.com/RaphaelMarinier/mrecordlog/log"
)

// Writer appends frames to a directory of numbered rolling files, rolling
// to a fresh file once the current one reaches maxFileSize. Durability is
// explicit: Append only buffers into the current file's writer; Flush must
// be called for appended frames to be fsync'd.
type Writer struct {
	dir         string
	maxFileSize int64

	fileNumber uint64
	file       *os.File
	fw         *frameWriter
}

// createWriter starts a brand new rolling file numbered fileNumber in dir.
func createWriter(dir string, fileNumber uint64, maxFileSize int64) (*Writer, error) {
	f, err := os.OpenFile(filePath(dir, fileNumber), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, errors.E(errors.Io, "creating rolling file", err)
	}
	return &Writer{
		dir:         dir,
		maxFileSize: maxFileSize,
		fileNumber:  fileNumber,
		file:        f,
		fw:          newFrameWriter(f, 0),
	}, nil
}

// openWriterOnFile continues writing an already-open file (handed off by a
// Reader via IntoWriter) at logical offset off. Append uses a plain Write
// rather than pwrite, so writes land at the descriptor's shared offset,
// which recovery's reads have advanced; the descriptor itself must be
// seeked to off before any append: otherwise the first write lands
// wherever the reader's last read left the offset, not at off, leaving a
// hole (or overlap) between the two.
func openWriterOnFile(dir string, fileNumber uint64, f *os.File, off int64, maxFileSize int64) (*Writer, error) {
	if _, err := f.Seek(off, io.SeekStart); err != nil {
		return nil, errors.E(errors.Io, "seeking rolling file for append", err)
	}
	return &Writer{
		dir:         dir,
		maxFileSize: maxFileSize,
		fileNumber:  fileNumber,
		file:        f,
		fw:          newFrameWriter(f, off),
	}, nil
}

// CurrentFileNumber returns the number of the file the next Append will
// land in.
func (w *Writer) CurrentFileNumber() uint64 {
	return w.fileNumber
}

// Append writes one frame to the current file, rolling to a new file first
// if the current one has reached its size threshold. Durability is not
// guaranteed until Flush is called.
func (w *Writer) Append(data []byte) error {
	if w.fw.Tell() >= w.maxFileSize {
		if err := w.roll(); err != nil {
			return err
		}
	}
	if err := w.fw.Append(data); err != nil {
		return errors.E(errors.Io, "appending rolling frame", err)
	}
	return nil
}

func (w *Writer) roll() error {
	if err := w.file.Sync(); err != nil {
		return errors.E(errors.Io, "syncing rolling file before roll", err)
	}
	if err := w.file.Close(); err != nil {
		return errors.E(errors.Io, "closing rolling file before roll", err)
	}
	next := w.fileNumber + 1
	f, err := os.OpenFile(filePath(w.dir, next), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.E(errors.Io, "creating rolling file", err)
	}
	log.Debug.Printf("rolling: rolled to file %d", next)
	w.fileNumber = next
	w.file = f
	w.fw = newFrameWriter(f, 0)
	return nil
}

// Flush fsyncs the current file so every Append so far is durable.
func (w *Writer) Flush() error {
	if err := w.file.Sync(); err != nil {
		return errors.E(errors.Io, "syncing rolling file", err)
	}
	return nil
}

// ListFileNumbers returns every numbered rolling file currently present in
// the writer's directory, ascending. It is the basis of the manifest
// fallback (SUPPLEMENTED FEATURES item 4) and is also useful directly for
// diagnostics and tests.
func (w *Writer) ListFileNumbers() ([]uint64, error) {
	return listFileNumbers(w.dir)
}

// DeleteFilesUpTo removes every rolling file with number strictly less
// than keepFrom, found by listing the directory. The engine's GC step
// (§4.3.7) does not call it; it uses DeleteFilesUpToWithManifest.
// Every candidate file is attempted even if an earlier deletion fails; the
// first error encountered, if any, is returned.
func (w *Writer) DeleteFilesUpTo(keepFrom uint64) error {
	nums, err := listFileNumbers(w.dir)
	if err != nil {
		return errors.E(errors.Io, "listing rolling files for gc", err)
	}
	var once errors.Once
	for _, n := range nums {
		if n >= keepFrom || n == w.fileNumber {
			continue
		}
		if err := os.Remove(filePath(w.dir, n)); err != nil && !os.IsNotExist(err) {
			once.Set(errors.E(errors.Io, "removing rolling file", err))
			continue
		}
		log.Debug.Printf("rolling: gc removed file %d", n)
	}
	return once.Err()
}

// Close releases the writer's open file handle without deleting anything.
func (w *Writer) Close() error {
	return w.file.Close()
}
