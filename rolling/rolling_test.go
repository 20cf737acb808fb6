// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package rolling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	w, err := r.IntoWriter(DefaultMaxFileSize)
	require.NoError(t, err)

	frames := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, f := range frames {
		require.NoError(t, w.Append(f))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	r2, err := Open(dir)
	require.NoError(t, err)
	var got [][]byte
	for {
		data, ok, err := r2.Read()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, append([]byte(nil), data...))
	}
	require.Len(t, got, len(frames))
	for i, f := range frames {
		assert.Equal(t, f, got[i])
	}
}

func TestWriterRollsAtSizeThreshold(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	w, err := r.IntoWriter(1024)
	require.NoError(t, err)

	payload := make([]byte, 300)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Append(payload))
	}
	require.NoError(t, w.Flush())

	nums, err := w.ListFileNumbers()
	require.NoError(t, err)
	assert.Greater(t, len(nums), 1)
}

func TestIntoWriterTruncatesTornTail(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	w, err := r.IntoWriter(DefaultMaxFileSize)
	require.NoError(t, err)

	require.NoError(t, w.Append([]byte("good-frame")))
	require.NoError(t, w.Flush())
	require.NoError(t, w.Close())

	path := filePath(dir, 1)
	fi, err := os.Stat(path)
	require.NoError(t, err)
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(fi.Size()-2))
	require.NoError(t, f.Close())

	r2, err := Open(dir)
	require.NoError(t, err)
	_, ok, err := r2.Read()
	require.NoError(t, err)
	assert.False(t, ok)

	w2, err := r2.IntoWriter(DefaultMaxFileSize)
	require.NoError(t, err)
	require.NoError(t, w2.Append([]byte("after-recovery")))
	require.NoError(t, w2.Flush())
	require.NoError(t, w2.Close())

	r3, err := Open(dir)
	require.NoError(t, err)
	data, ok, err := r3.Read()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("after-recovery"), data)
	_, ok, err = r3.Read()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteFilesUpTo(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	w, err := r.IntoWriter(1024)
	require.NoError(t, err)

	payload := make([]byte, 300)
	for i := 0; i < 20; i++ {
		require.NoError(t, w.Append(payload))
	}
	require.NoError(t, w.Flush())

	nums, err := w.ListFileNumbers()
	require.NoError(t, err)
	require.Greater(t, len(nums), 2)

	keepFrom := nums[len(nums)-1]
	require.NoError(t, w.DeleteFilesUpTo(keepFrom))

	remaining, err := w.ListFileNumbers()
	require.NoError(t, err)
	for _, n := range remaining {
		assert.True(t, n >= keepFrom || n == w.CurrentFileNumber())
	}
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	w, err := r.IntoWriter(DefaultMaxFileSize)
	require.NoError(t, err)
	require.NoError(t, w.Append([]byte("x")))
	require.NoError(t, w.Flush())

	require.NoError(t, w.DeleteFilesUpToWithManifest(1))

	n, err := LowestKnownFileNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestLowestKnownFileNumberFallsBackWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	w, err := r.IntoWriter(DefaultMaxFileSize)
	require.NoError(t, err)
	require.NoError(t, w.Append([]byte("x")))
	require.NoError(t, w.Flush())

	_, err = os.Stat(filepath.Join(dir, manifestName))
	require.True(t, os.IsNotExist(err))

	n, err := LowestKnownFileNumber(dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestOpenOnEmptyDirectoryStartsAtFileOne(t *testing.T) {
	dir := t.TempDir()
	r, err := Open(dir)
	require.NoError(t, err)
	_, ok, err := r.Read()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), r.CurrentFileNumber())

	w, err := r.IntoWriter(DefaultMaxFileSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), w.CurrentFileNumber())
}
