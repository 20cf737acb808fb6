// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	cases := []Record{
		{Kind: Truncate, Position: 42, Queue: "q"},
		{Kind: RecordPosition, Position: 0, Queue: "empty-queue"},
		{Kind: DeleteQueue, Position: 7, Queue: "gone"},
		{Kind: AppendRecords, Position: 5, Queue: "q", Items: []Item{
			{Position: 5, Payload: []byte("hello")},
			{Position: 6, Payload: []byte("world")},
		}},
		{Kind: AppendRecords, Position: 9, Queue: "empty-items", Items: nil},
	}
	for _, r := range cases {
		buf := Serialize(nil, r)
		got, ok := Deserialize(buf)
		require.True(t, ok, "deserialize of %+v failed", r)
		if diff := cmp.Diff(r, got); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestSerializeReusesBuffer(t *testing.T) {
	buf := make([]byte, 0, 256)
	buf = Serialize(buf, Record{Kind: Truncate, Position: 1, Queue: "a"})
	first := append([]byte(nil), buf...)
	buf = Serialize(buf, Record{Kind: Truncate, Position: 2, Queue: "bb"})
	assert.NotEqual(t, first, buf)
}

func TestDeserializeRejectsTooShort(t *testing.T) {
	_, ok := Deserialize(make([]byte, 10))
	assert.False(t, ok)
}

func TestDeserializeRejectsMissingQueueBytes(t *testing.T) {
	buf := Serialize(nil, Record{Kind: Truncate, Position: 1, Queue: "abcdef"})
	_, ok := Deserialize(buf[:len(buf)-2])
	assert.False(t, ok)
}

func TestDeserializeRejectsUnknownTag(t *testing.T) {
	buf := Serialize(nil, Record{Kind: Truncate, Position: 1, Queue: "q"})
	buf[0] = 99
	_, ok := Deserialize(buf)
	assert.False(t, ok)
}

func TestDeserializeRejectsInvalidUTF8Queue(t *testing.T) {
	buf := Serialize(nil, Record{Kind: Truncate, Position: 1, Queue: "q"})
	// Overwrite the single-byte queue name with an invalid UTF-8 byte.
	buf[11] = 0xFF
	_, ok := Deserialize(buf)
	assert.False(t, ok)
}

func TestDeserializeIgnoresTrailingBytesOnPayloadlessKinds(t *testing.T) {
	buf := Serialize(nil, Record{Kind: Truncate, Position: 1, Queue: "q"})
	buf = append(buf, 0xDE, 0xAD, 0xBE, 0xEF)
	got, ok := Deserialize(buf)
	require.True(t, ok)
	assert.Equal(t, Truncate, got.Kind)
	assert.Equal(t, "q", got.Queue)
}

func TestDeserializeRobustnessUnderTruncation(t *testing.T) {
	buf := Serialize(nil, Record{Kind: AppendRecords, Position: 5, Queue: "queue_name", Items: []Item{
		{Position: 5, Payload: []byte("123")},
		{Position: 6, Payload: []byte("4567")},
	}})
	for n := 1; n < len(buf); n++ {
		assert.NotPanics(t, func() {
			Deserialize(buf[:len(buf)-n])
		})
	}
}

func TestSerializePanicsOnOversizeQueueName(t *testing.T) {
	assert.Panics(t, func() {
		Serialize(nil, Record{Kind: Truncate, Queue: string(make([]byte, 0x10000))})
	})
}

func TestSerializePanicsOnNonContiguousItems(t *testing.T) {
	assert.Panics(t, func() {
		Serialize(nil, Record{Kind: AppendRecords, Position: 0, Queue: "q", Items: []Item{
			{Position: 0, Payload: []byte("a")},
			{Position: 2, Payload: []byte("b")},
		}})
	})
}
