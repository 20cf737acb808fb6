// Copyright 2026 The mrecordlog Authors. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package rolling

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/RaphaelMarinier/mrecordlog/errors"
	"github.com/RaphaelMarinier/mrecordlog/log"
)

// manifestName names the optional, best-effort MANIFEST written after every
// GC pass (SUPPLEMENTED FEATURES item 4). It exists purely as an
// optimization: recording the lowest live file number directly avoids a
// directory listing (and a stat of every candidate file) on the hot GC
// path once a directory accumulates many rolling files. Its absence, or
// any inconsistency with what is actually on disk, is never an error —
// listFileNumbers remains the ground truth.
const manifestName = "MANIFEST"

type manifest struct {
	// LowestFileNumber is the smallest rolling file number known (at
	// manifest-write time) to still be referenced by a live queue.
	LowestFileNumber uint64 `json:"lowest_file_number"`
}

// writeManifest persists the current lowest-referenced file number. Errors
// are reported to the caller; DeleteFilesUpToWithManifest returns them
// unless a file removal failed first.
func writeManifest(dir string, lowestFileNumber uint64) error {
	data, err := json.Marshal(manifest{LowestFileNumber: lowestFileNumber})
	if err != nil {
		return err
	}
	return atomic.WriteFile(filepath.Join(dir, manifestName), bytes.NewReader(data))
}

// readManifest loads the manifest, if present and well-formed. A missing
// or corrupt manifest is reported via ok == false rather than an error:
// callers fall back to listFileNumbers in that case.
func readManifest(dir string) (lowestFileNumber uint64, ok bool) {
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return 0, false
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return 0, false
	}
	return m.LowestFileNumber, true
}

// DeleteFilesUpToWithManifest is the GC path the engine actually drives
// (§4.3.7). Unlike DeleteFilesUpTo, it does not list the directory to find
// candidates: it reads the previous GC frontier back from the manifest (or
// derives it once, the first time, if no manifest exists yet) and attempts
// removal of exactly the file numbers in [previous frontier, keepFrom) —
// the only ones that could possibly still be present and now obsolete. This
// is the optimization manifestName's doc comment describes: once a
// directory has accumulated many already-deleted low-numbered files, a
// plain os.ReadDir before every GC pass re-lists all of them for nothing.
// The manifest write is attempted even when deletion reported no files to
// remove, and a manifest write failure does not override a deletion error.
func (w *Writer) DeleteFilesUpToWithManifest(keepFrom uint64) error {
	from, err := LowestKnownFileNumber(w.dir)
	if err != nil {
		return errors.E(errors.Io, "reading rolling gc frontier", err)
	}
	var once errors.Once
	once.Set(w.deleteFilesInRange(from, keepFrom))
	if err := writeManifest(w.dir, keepFrom); err != nil {
		once.Set(errors.E(errors.Io, "writing rolling manifest", err))
	}
	return once.Err()
}

// deleteFilesInRange removes every file number in [from, keepFrom), without
// consulting the directory: from is trusted to already be a lower bound
// on what could still exist (either the prior manifest frontier or a
// one-time listFileNumbers-derived fallback), so file numbers below it are
// never even attempted.
func (w *Writer) deleteFilesInRange(from, keepFrom uint64) error {
	var once errors.Once
	for n := from; n < keepFrom; n++ {
		if n == w.fileNumber {
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

// LowestKnownFileNumber reports the manifest's recorded GC frontier for
// dir, if one exists, falling back to deriving it from the files actually
// present otherwise.
func LowestKnownFileNumber(dir string) (uint64, error) {
	if n, ok := readManifest(dir); ok {
		return n, nil
	}
	nums, err := listFileNumbers(dir)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, nil
	}
	return nums[0], nil
}
