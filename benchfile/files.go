// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchfile locates benchmark output artifacts in a directory
// tree.
//
// Traversal order is lexicographic by full path, so everything
// downstream that depends on the order artifacts were seen is
// reproducible across runs.
package benchfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// An Artifact is a candidate file and its raw content.
type Artifact struct {
	Path    string
	Content []byte

	// Err is set if the file could not be read. It applies only to
	// this artifact.
	Err error
}

// A Match selects candidate files by name.
type Match struct {
	// Extensions lists accepted file extensions, including the dot.
	// A trailing ".gz" is removed from the name before matching and
	// the file is decompressed when read.
	Extensions []string

	// Contains, if non-empty, must be a substring of the file name.
	Contains string
}

// DefaultMatch selects files produced by the Android benchmark
// library, such as "com.example.test-benchmarkData.json".
var DefaultMatch = Match{Extensions: []string{".json"}, Contains: "benchmarkData"}

// Matches reports whether the file name base is selected by m.
func (m Match) Matches(base string) bool {
	base = strings.TrimSuffix(base, ".gz")
	if m.Contains != "" && !strings.Contains(base, m.Contains) {
		return false
	}
	if len(m.Extensions) == 0 {
		return true
	}
	ext := filepath.Ext(base)
	for _, want := range m.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// A MissingRootError reports that the root to search does not exist.
// It is recoverable: the artifact set is simply empty.
type MissingRootError struct {
	Root string
}

func (e *MissingRootError) Error() string {
	return fmt.Sprintf("%s: no such directory", e.Root)
}

// IsMissingRoot reports whether err is or wraps a *MissingRootError.
func IsMissingRoot(err error) bool {
	var m *MissingRootError
	return errors.As(err, &m)
}

// Find returns the paths of all files under root selected by m,
// sorted lexicographically. If root is a regular file, it is the only
// candidate. If root does not exist, Find returns a *MissingRootError.
func Find(root string, m Match) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &MissingRootError{root}
	} else if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if m.Matches(filepath.Base(root)) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// An unreadable subdirectory doesn't prevent
			// finding artifacts elsewhere.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && m.Matches(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	// WalkDir orders entries within a directory, but "a/b.json"
	// still precedes "a.json". Sort by full path.
	sort.Strings(paths)
	return paths, nil
}

// ReadArtifact reads the artifact at path, decompressing it if its
// name ends in ".gz".
func ReadArtifact(path string) Artifact {
	content, err := readFile(path)
	return Artifact{Path: path, Content: content, Err: err}
}

func readFile(path string) ([]byte, error) {
	if !strings.HasSuffix(path, ".gz") {
		return os.ReadFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer zr.Close()
	content, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return content, nil
}

// A Files reads artifacts lazily from a directory tree.
//
// Its API is modeled on bufio.Scanner. The directory is walked on the
// first call to Scan, and each file's content is read only when Scan
// reaches it.
type Files struct {
	// Root is the file or directory to search.
	Root string

	// Match selects candidate files. The zero Match selects every
	// file.
	Match Match

	// paths is the sequence of remaining paths, or nil if this
	// Files has not started yet. Note that this distinguishes nil
	// from length 0.
	paths []string

	cur Artifact
	err error
}

// init does first-use initialization of f.
func (f *Files) init() {
	paths, err := Find(f.Root, f.Match)
	f.err = err
	// Set f.paths to a non-nil slice to indicate initialization
	// has happened.
	f.paths = append([]string{}, paths...)
}

// Scan advances to the next artifact and reports whether there was
// one. The caller should use the Artifact method to get it. When
// there are no more artifacts, or the search itself failed, Scan
// returns false and the caller should check Err.
func (f *Files) Scan() bool {
	if f.paths == nil {
		f.init()
	}
	if f.err != nil || len(f.paths) == 0 {
		return false
	}
	path := f.paths[0]
	f.paths = f.paths[1:]
	f.cur = ReadArtifact(path)
	return true
}

// Artifact returns the artifact read by the most recent call to Scan.
func (f *Files) Artifact() Artifact {
	return f.cur
}

// Err returns the error that stopped Scan, if any. It is a
// *MissingRootError if Root does not exist. Errors reading
// individual files are reported through Artifact.Err instead.
func (f *Files) Err() error {
	return f.err
}
