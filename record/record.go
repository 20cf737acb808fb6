// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package record implements the on-disk record codec described in §3/§4.1/§6
// of the mrecordlog specification: the four-variant tagged union written to
// each frame, and the nested multi-payload blob carried by AppendRecords
// frames.
//
// Deserialize is zero-copy for payloads: the returned Record's Items
// reference slices of the input buffer (Queue is copied into a new
// string). Callers that need to retain a Record past the
// next reuse of that buffer (as MemQueues does) must copy the bytes they
// keep.
package record

import (
	"encoding/binary"
	"unicode/utf8"
)

// Kind identifies which of the four record variants a frame encodes.
type Kind uint8

const (
	// Truncate retracts a queue's live range from the low end.
	Truncate Kind = 1
	// RecordPosition (aka "touch") pins or advances a queue's
	// next_position without appending a payload, creating the queue if it
	// does not already exist.
	RecordPosition Kind = 2
	// DeleteQueue removes a queue entirely.
	DeleteQueue Kind = 3
	// AppendRecords appends one or more payloads to a queue, carried as a
	// nested multi-payload blob.
	AppendRecords Kind = 4
)

const headerSize = 1 + 8 + 2 // tag + position + queue_len

// Record is the decoded form of one on-disk frame.
//
// Position is the frame's header position for all kinds. For AppendRecords
// it is also the position of Items[0]: Serialize panics unless Items[i] is
// at Position+uint64(i). Deserialize does not check item positions.
type Record struct {
	Kind     Kind
	Position uint64
	Queue    string
	// Items holds the decoded multi-payload entries. Only populated, and
	// only meaningful, when Kind == AppendRecords.
	Items []Item
}

// Item is a single payload within an AppendRecords frame's multi-payload
// blob, tagged with its own position.
type Item struct {
	Position uint64
	Payload  []byte
}

// Serialize appends the framed encoding of r to dst (after truncating dst
// to length 0, mirroring the source's "clear buffer, then serialize"
// contract) and returns the extended slice.
func Serialize(dst []byte, r Record) []byte {
	dst = dst[:0]
	if len(r.Queue) > 0xFFFF {
		panic("record: queue name exceeds 65535 bytes")
	}
	dst = append(dst, byte(r.Kind))
	dst = appendUint64(dst, r.Position)
	dst = appendUint16(dst, uint16(len(r.Queue)))
	dst = append(dst, r.Queue...)
	if r.Kind == AppendRecords {
		dst = appendMultiPayload(dst, r.Position, r.Items)
	}
	return dst
}

// Deserialize decodes one frame from b. It returns ok == false ("no
// record") if b is too short, its tag is unknown, its queue bytes are
// missing or not valid UTF-8, or (for AppendRecords) its nested
// multi-payload blob fails validation. Extra trailing bytes after the
// queue name on Truncate/RecordPosition/DeleteQueue frames are tolerated
// and ignored, for backward compatibility.
func Deserialize(b []byte) (Record, bool) {
	if len(b) < headerSize {
		return Record{}, false
	}
	kind := Kind(b[0])
	position := binary.LittleEndian.Uint64(b[1:9])
	queueLen := int(binary.LittleEndian.Uint16(b[9:11]))
	rest := b[11:]
	if len(rest) < queueLen {
		return Record{}, false
	}
	queueBytes := rest[:queueLen]
	if !utf8.Valid(queueBytes) {
		return Record{}, false
	}
	queue := string(queueBytes)
	payload := rest[queueLen:]

	switch kind {
	case Truncate, RecordPosition, DeleteQueue:
		return Record{Kind: kind, Position: position, Queue: queue}, true
	case AppendRecords:
		items, ok := parseMultiPayload(payload)
		if !ok {
			return Record{}, false
		}
		return Record{Kind: kind, Position: position, Queue: queue, Items: items}, true
	default:
		return Record{}, false
	}
}

func appendUint16(dst []byte, v uint16) []byte {
	return append(dst, byte(v), byte(v>>8))
}

func appendUint64(dst []byte, v uint64) []byte {
	return append(dst,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}
