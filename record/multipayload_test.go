// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiPayloadRoundTrip(t *testing.T) {
	buf := appendMultiPayload(nil, 5, []Item{
		{Position: 5, Payload: []byte("123")},
		{Position: 6, Payload: []byte("4567")},
	})
	items, ok := parseMultiPayload(buf)
	require.True(t, ok)
	require.Len(t, items, 2)
	assert.Equal(t, uint64(5), items[0].Position)
	assert.Equal(t, []byte("123"), items[0].Payload)
	assert.Equal(t, uint64(6), items[1].Position)
	assert.Equal(t, []byte("4567"), items[1].Payload)
}

func TestMultiPayloadEmptyIsValid(t *testing.T) {
	items, ok := parseMultiPayload(nil)
	assert.True(t, ok)
	assert.Empty(t, items)
}

func TestMultiPayloadRobustnessUnderTruncation(t *testing.T) {
	buf := appendMultiPayload(nil, 5, []Item{
		{Position: 5, Payload: []byte("123")},
		{Position: 6, Payload: []byte("4567")},
	})
	for n := 1; n < len(buf); n++ {
		assert.NotPanics(t, func() {
			parseMultiPayload(buf[:len(buf)-n])
		})
	}
}

func TestMultiPayloadRejectsTrailingGarbage(t *testing.T) {
	buf := appendMultiPayload(nil, 5, []Item{{Position: 5, Payload: []byte("x")}})
	buf = append(buf, 0x01) // a single byte, too short for another item header
	_, ok := parseMultiPayload(buf)
	assert.False(t, ok)
}
