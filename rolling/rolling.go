// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package rolling implements the append-only, multi-file, numbered-segment
// byte stream that the mrecordlog engine treats as an external
// collaborator (§4.4): a checksummed, length-prefixed write stream
// segmented into numbered files, with per-file sync and whole-file
// deletion.
//
// Each frame is its own checksummed unit (package-level frameWriter/
// frameReader in frame.go): there is no block alignment or padding, and no
// mid-stream resynchronization, unlike the leveldb-style block format
// github.com/grailbio/base/logio uses for the same external contract.
// That simplification is deliberate: every mutating MultiRecordLog
// operation fsyncs its single frame before returning (§4.3), so under the
// engine's single-writer assumption a torn write can only ever land at the
// very end of the newest file, never in the middle of the stream — there
// is nothing upstream of a bad frame to realign past. This package instead
// adds the numbered, rolling, multi-file layer and the garbage-collection/
// manifest machinery the engine's §4.3.7 depends on.
package rolling

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// DefaultMaxFileSize is the file-size threshold at which the Writer rolls
// to a new numbered file.
const DefaultMaxFileSize = 128 << 20 // 128 MiB

const fileSuffix = ".log"

func fileName(n uint64) string {
	return fmt.Sprintf("%020d%s", n, fileSuffix)
}

func filePath(dir string, n uint64) string {
	return filepath.Join(dir, fileName(n))
}

// listFileNumbers returns every numbered rolling file present in dir, in
// ascending order.
func listFileNumbers(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var nums []uint64
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSuffix(name, fileSuffix), 10, 64)
		if err != nil {
			continue // not one of ours; ignore (e.g. MANIFEST)
		}
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums, nil
}
