// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package mrecordlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/RaphaelMarinier/mrecordlog/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func open(t *testing.T, dir string) *MultiRecordLog {
	t.Helper()
	m, err := Open(context.Background(), dir, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func rangeAll(t *testing.T, m *MultiRecordLog, queue string) []string {
	t.Helper()
	it, ok := m.Range(queue, 0, ^uint64(0))
	require.True(t, ok)
	var out []string
	for {
		_, payload, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, string(payload))
	}
	return out
}

func u64(v uint64) *uint64 { return &v }

func TestScenarioS1AppendAndRange(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))

	p, err := m.AppendRecord("q", nil, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), *p)

	p, err = m.AppendRecord("q", nil, []byte("world"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), *p)

	assert.Equal(t, []string{"hello", "world"}, rangeAll(t, m, "q"))
}

func TestScenarioS2RecoveryThenAppend(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	_, err := m.AppendRecord("q", nil, []byte("hello"))
	require.NoError(t, err)
	_, err = m.AppendRecord("q", nil, []byte("world"))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m2 := open(t, dir)
	assert.Equal(t, []string{"hello", "world"}, rangeAll(t, m2, "q"))
	p, err := m2.AppendRecord("q", nil, []byte("!"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), *p)
}

func TestScenarioS3Truncate(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	_, err := m.AppendRecord("q", nil, []byte("hello"))
	require.NoError(t, err)
	_, err = m.AppendRecord("q", nil, []byte("world"))
	require.NoError(t, err)

	require.NoError(t, m.Truncate("q", 0))
	assert.Equal(t, []string{"world"}, rangeAll(t, m, "q"))
	next, err := m.NextPosition("q")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), next)
}

func TestScenarioS4IdempotentAppend(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))

	p, err := m.AppendRecord("q", u64(0), []byte("a"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), *p)

	p, err = m.AppendRecord("q", u64(0), []byte("a"))
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = m.AppendRecord("q", u64(2), []byte("a"))
	assert.True(t, errors.Is(errors.Future, err))

	for i := 0; i < 8; i++ {
		_, err := m.AppendRecord("q", nil, []byte("pad"))
		require.NoError(t, err)
	}
	next, err := m.NextPosition("q")
	require.NoError(t, err)
	require.Equal(t, uint64(9), next)

	_, err = m.AppendRecord("q", u64(5), []byte("a"))
	assert.True(t, errors.Is(errors.Past, err))
}

func TestScenarioS5TruncateThenGC(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	for i := 0; i < 3; i++ {
		_, err := m.AppendRecord("q", nil, []byte("x"))
		require.NoError(t, err)
	}
	preTruncateFile := m.writer.CurrentFileNumber()

	require.NoError(t, m.Truncate("q", 2))
	assert.Empty(t, rangeAll(t, m, "q"))

	nums, err := m.ListFileNumbers()
	require.NoError(t, err)
	for _, n := range nums {
		assert.GreaterOrEqual(t, n, preTruncateFile)
	}
}

func TestScenarioS6RecoversFromTornTail(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	_, err := m.AppendRecord("q", nil, []byte("hello"))
	require.NoError(t, err)
	before := rangeAll(t, m, "q")

	// Tear the tail of the *next* frame, not the one already durable: S6
	// asserts that recovery reproduces the state from before the torn
	// frame, so a record appended earlier must survive and the torn one
	// must not appear.
	_, err = m.AppendRecord("q", nil, []byte("world"))
	require.NoError(t, err)
	require.NoError(t, m.Close())

	nums, err := func() ([]uint64, error) {
		m2, err := Open(context.Background(), dir, Options{})
		if err != nil {
			return nil, err
		}
		defer m2.Close()
		return m2.ListFileNumbers()
	}()
	require.NoError(t, err)
	require.NotEmpty(t, nums)

	latest := nums[len(nums)-1]
	path := filepath.Join(dir, fmt.Sprintf("%020d.log", latest))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(fi.Size()-1))
	require.NoError(t, f.Close())

	m3 := open(t, dir)
	assert.Equal(t, before, rangeAll(t, m3, "q"))

	// Recovery must also have repositioned the writer so that a fresh
	// append lands directly after the surviving "hello" frame, not at the
	// stale byte offset the torn "world" frame left behind.
	p, err := m3.AppendRecord("q", nil, []byte("again"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), *p)
	assert.Equal(t, []string{"hello", "again"}, rangeAll(t, m3, "q"))
}

func TestCreateQueueAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	err := m.CreateQueue("q")
	assert.True(t, errors.Is(errors.AlreadyExists, err))
}

func TestDeleteQueueThenMissing(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	require.NoError(t, m.DeleteQueue("q"))
	assert.False(t, m.QueueExists("q"))

	err := m.DeleteQueue("q")
	assert.True(t, errors.Is(errors.MissingQueue, err))
}

func TestTruncateRejectsFuturePosition(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))
	_, err := m.AppendRecord("q", nil, []byte("a"))
	require.NoError(t, err)

	err = m.Truncate("q", 1)
	assert.True(t, errors.Is(errors.Future, err))
}

func TestBatchedAppendIsAtomicOnRecovery(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("q"))

	p, err := m.AppendRecords("q", nil, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	require.NoError(t, err)
	require.Equal(t, uint64(0), *p)
	require.NoError(t, m.Close())

	m2 := open(t, dir)
	assert.Equal(t, []string{"a", "b", "c"}, rangeAll(t, m2, "q"))
}

func TestListQueues(t *testing.T) {
	dir := t.TempDir()
	m := open(t, dir)
	require.NoError(t, m.CreateQueue("zeta"))
	require.NoError(t, m.CreateQueue("alpha"))
	assert.Equal(t, []string{"alpha", "zeta"}, m.ListQueues())
}
