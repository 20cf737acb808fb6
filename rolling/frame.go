// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package rolling

import (
	"encoding/binary"
	"errors"
	"io"

	xxhash "github.com/cespare/xxhash/v2"
)

// frameHeaderSize is the fixed prefix of every on-disk frame written by
// frameWriter: a checksum covering the length and the payload, followed by
// the payload length itself.
const frameHeaderSize = 4 + 4 // checksum + length

var byteOrder = binary.LittleEndian

// errFrameCorrupted is returned when a frame's checksum does not match its
// bytes. Every mutating MultiRecordLog operation fsyncs its frame before
// returning (§4.3's write-flush-mutate discipline), so a partially written
// frame can only ever be the very last one in the newest file after an
// unclean shutdown — there is nothing upstream of it to resynchronize past,
// unlike a log format that must tolerate a torn write anywhere in the
// stream. Reader treats this identically to a torn tail (§4.4): recovery
// simply stops.
var errFrameCorrupted = errors.New("rolling: corrupted frame")

func checksum(data []byte) uint32 {
	h := xxhash.Sum64(data)
	return uint32(h>>32) ^ uint32(h)
}

// frameWriter appends length-prefixed, checksummed frames to a single
// rolling file's byte stream. Unlike a block-structured log, frames are not
// padded or split to align to any fixed boundary: each Append writes
// exactly frameHeaderSize+len(data) bytes.
type frameWriter struct {
	wr  io.Writer
	off int64
}

func newFrameWriter(wr io.Writer, offset int64) *frameWriter {
	return &frameWriter{wr: wr, off: offset}
}

// Append writes one frame. The caller is responsible for durability
// (fsync); frameWriter only appends to the underlying stream.
func (w *frameWriter) Append(data []byte) error {
	buf := make([]byte, frameHeaderSize+len(data))
	byteOrder.PutUint32(buf[4:8], uint32(len(data)))
	copy(buf[frameHeaderSize:], data)
	byteOrder.PutUint32(buf[0:4], checksum(buf[4:]))
	n, err := w.wr.Write(buf)
	w.off += int64(n)
	return err
}

// Tell returns the offset the next frame will begin at.
func (w *frameWriter) Tell() int64 {
	return w.off
}

// frameReader reads frames from a single rolling file's byte stream,
// written by frameWriter.
type frameReader struct {
	rd  io.Reader
	off int64
}

func newFrameReader(r io.Reader, offset int64) *frameReader {
	return &frameReader{rd: r, off: offset}
}

// Read returns the next frame's payload. It returns io.EOF at a clean end
// of stream (nothing at all left to read), io.ErrUnexpectedEOF if the
// stream ends partway through a header or payload (a torn tail), and
// errFrameCorrupted if a complete frame's checksum does not match its
// bytes. The reader's position only advances past a frame once it has been
// fully validated.
func (r *frameReader) Read() ([]byte, error) {
	header := make([]byte, frameHeaderSize)
	if _, err := io.ReadFull(r.rd, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, io.ErrUnexpectedEOF
	}
	length := byteOrder.Uint32(header[4:8])
	data := make([]byte, length)
	if _, err := io.ReadFull(r.rd, data); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	combined := make([]byte, frameHeaderSize-4+len(data))
	copy(combined, header[4:8])
	copy(combined[4:], data)
	if checksum(combined) != byteOrder.Uint32(header[0:4]) {
		return nil, errFrameCorrupted
	}
	r.off += int64(len(header) + len(data))
	return data, nil
}

// tell returns the offset of the next frame to be read, i.e. the end of the
// last frame fully validated by Read.
func (r *frameReader) tell() int64 {
	return r.off
}
