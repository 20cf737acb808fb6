// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package rolling

import (
	"io"
	"os"
)

// Reader reads frames from a directory of numbered rolling files, in
// ascending file-number order, transparently advancing across file
// boundaries. It implements the read side of the §4.4 rolling writer/
// reader contract: Read returns ok == false at both a clean end of the log
// and a torn/corrupt tail, by design (the caller cannot and must not need
// to distinguish the two).
type Reader struct {
	dir         string
	fileNumbers []uint64
	idx         int // index into fileNumbers of the currently open file, or -1

	file *os.File
	fr   *frameReader

	stopped      bool
	lastGoodTell int64
	firstFileNum uint64 // file number to use if fileNumbers is empty
}

// Open opens a Reader over the rolling files already present in dir. It is
// not an error for dir to contain no rolling files yet: Read then
// immediately reports a clean end, and a subsequent IntoWriter begins a
// fresh first file.
func Open(dir string) (*Reader, error) {
	nums, err := listFileNumbers(dir)
	if err != nil {
		return nil, err
	}
	r := &Reader{dir: dir, fileNumbers: nums, idx: -1, firstFileNum: 1}
	if len(nums) == 0 {
		return r, nil
	}
	if err := r.openFileAt(0); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) openFileAt(idx int) error {
	if r.file != nil {
		_ = r.file.Close()
	}
	f, err := os.OpenFile(filePath(r.dir, r.fileNumbers[idx]), os.O_RDWR, 0o644)
	if err != nil {
		return err
	}
	r.idx = idx
	r.file = f
	r.fr = newFrameReader(f, 0)
	r.lastGoodTell = 0
	return nil
}

// CurrentFileNumber returns the file number that the next frame returned
// by Read will be attributed to, or (once Read has reported a clean end
// or no files exist) the file number a subsequent write should land in.
func (r *Reader) CurrentFileNumber() uint64 {
	if r.idx < 0 {
		return r.firstFileNum
	}
	return r.fileNumbers[r.idx]
}

// Read returns the next frame in file-number order. ok is false both at a
// clean end of the log and after a torn/corrupted tail; err is non-nil
// only for genuine I/O failures unrelated to log framing.
func (r *Reader) Read() (frame []byte, ok bool, err error) {
	if r.stopped || r.idx < 0 {
		return nil, false, nil
	}
	for {
		data, rerr := r.fr.Read()
		switch {
		case rerr == nil:
			r.lastGoodTell = r.fr.tell()
			return data, true, nil
		case rerr == io.EOF:
			// Clean end of this file: advance to the next numbered file,
			// if any.
			if r.idx+1 < len(r.fileNumbers) {
				if err := r.openFileAt(r.idx + 1); err != nil {
					return nil, false, err
				}
				continue
			}
			r.stopped = true
			return nil, false, nil
		case rerr == io.ErrUnexpectedEOF || rerr == errFrameCorrupted:
			// Torn or corrupt tail: recovery stops here for good, even if
			// further numbered files exist on disk (they should not, in a
			// correctly functioning single-writer log; see DESIGN.md).
			r.stopped = true
			return nil, false, nil
		default:
			return nil, false, rerr
		}
	}
}

// IntoWriter finalizes recovery by converting the reader's position into a
// Writer ready to append: if the reader stopped on a torn tail, the
// current file is truncated to the last fully-read frame boundary before
// appends resume; otherwise appends resume at the end of the last file
// read (or a brand new first file, if dir held none).
func (r *Reader) IntoWriter(maxFileSize int64) (*Writer, error) {
	if r.idx < 0 {
		if r.file != nil {
			_ = r.file.Close()
		}
		return createWriter(r.dir, r.firstFileNum, maxFileSize)
	}
	fileNum := r.fileNumbers[r.idx]
	if r.stopped {
		if err := r.file.Truncate(r.lastGoodTell); err != nil {
			_ = r.file.Close()
			return nil, err
		}
	}
	return openWriterOnFile(r.dir, fileNum, r.file, r.lastGoodTell, maxFileSize)
}
