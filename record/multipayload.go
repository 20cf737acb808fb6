// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import "encoding/binary"

const itemHeaderSize = 8 + 4 // position + length

// appendMultiPayload appends the inner multi-payload blob for items starting
// at basePosition to dst. It asserts (mirroring the source's "implementers
// should assert monotonicity on construction") that item positions are
// exactly basePosition, basePosition+1, ... and that no payload exceeds
// 4GiB-1 bytes.
func appendMultiPayload(dst []byte, basePosition uint64, items []Item) []byte {
	for i, it := range items {
		if it.Position != basePosition+uint64(i) {
			panic("record: multi-payload item positions are not contiguous")
		}
		if uint64(len(it.Payload)) > 0xFFFFFFFF {
			panic("record: item payload exceeds 4GiB-1")
		}
		dst = appendUint64(dst, it.Position)
		dst = appendUint32(dst, uint32(len(it.Payload)))
		dst = append(dst, it.Payload...)
	}
	return dst
}

// parseMultiPayload validates and decodes a multi-payload blob in full: it
// must iterate to exactly the end of b with no partial trailing item. An
// empty blob (zero items) is valid. The returned Items reference slices of
// b.
func parseMultiPayload(b []byte) ([]Item, bool) {
	var items []Item
	for len(b) > 0 {
		if len(b) < itemHeaderSize {
			return nil, false
		}
		position := binary.LittleEndian.Uint64(b[0:8])
		length := binary.LittleEndian.Uint32(b[8:12])
		rest := b[itemHeaderSize:]
		if uint64(len(rest)) < uint64(length) {
			return nil, false
		}
		items = append(items, Item{Position: position, Payload: rest[:length]})
		b = rest[length:]
	}
	return items, true
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
