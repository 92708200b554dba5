// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux || darwin

package fileio

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"testing"

	"golang.org/x/sync/errgroup"
)

// TestAppendAtomicity runs two unbuffered appenders on separate handles and
// checks that the file is one write followed by the other.
func TestAppendAtomicity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 20; iter++ {
		path := tempPath(t)
		writeFile(t, path, nil)

		a := bytes.Repeat([]byte{'a'}, 1+rng.Intn(64<<10))
		b := bytes.Repeat([]byte{'b'}, 1+rng.Intn(64<<10))
		fa := mustOpen(t, path, Write|Append)
		fb := mustOpen(t, path, Write|Append)

		var g errgroup.Group
		for _, w := range []struct {
			f    *File
			data []byte
		}{{fa, a}, {fb, b}} {
			w := w
			g.Go(func() error {
				n, err := w.f.Write(w.data)
				if err != nil {
					return err
				}
				if n != len(w.data) {
					return fmt.Errorf("short append: %d of %d", n, len(w.data))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			t.Fatalf("iteration %d: %v", iter, err)
		}

		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		ab := append(append([]byte{}, a...), b...)
		ba := append(append([]byte{}, b...), a...)
		if !bytes.Equal(got, ab) && !bytes.Equal(got, ba) {
			t.Fatalf("iteration %d: file of %d bytes is not a clean concatenation of %d and %d bytes",
				iter, len(got), len(a), len(b))
		}
	}
}

// TestAppendManyWriters checks that chunks from many appenders never tear.
func TestAppendManyWriters(t *testing.T) {
	const (
		writers = 4
		writes  = 50
		size    = 512
	)
	path := tempPath(t)
	writeFile(t, path, nil)

	var g errgroup.Group
	for i := 0; i < writers; i++ {
		f := mustOpen(t, path, Write|Append)
		chunk := bytes.Repeat([]byte{byte('A' + i)}, size)
		g.Go(func() error {
			for j := 0; j < writes; j++ {
				if _, err := f.WriteFull(chunk); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != writers*writes*size {
		t.Fatalf("file size = %d, want %d", len(got), writers*writes*size)
	}
	for off := 0; off < len(got); off += size {
		c := got[off : off+size]
		if !bytes.Equal(c, bytes.Repeat(c[:1], size)) {
			t.Fatalf("torn chunk at offset %d", off)
		}
	}
}

// TestAppendAfterRemove appends through a handle whose name is gone and
// checks that the name is not brought back.
func TestAppendAfterRemove(t *testing.T) {
	path := tempPath(t)
	f := mustOpen(t, path, Write|Create|Append)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if n, err := f.Write([]byte("x")); err != nil || n != 1 {
		t.Fatalf("Write = %d, %v", n, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat(%q) after append = %v, want not exist", path, err)
	}
}

// TestAppendAfterRename checks that handles opened before a rename keep
// appending to the renamed file without tearing, and leave the old name
// alone.
func TestAppendAfterRename(t *testing.T) {
	const (
		writers = 2
		writes  = 50
		size    = 4096
	)
	path := tempPath(t)
	writeFile(t, path, nil)
	files := make([]*File, writers)
	for i := range files {
		files[i] = mustOpen(t, path, Write|Append)
	}
	moved := path + ".moved"
	if err := os.Rename(path, moved); err != nil {
		t.Fatal(err)
	}

	var g errgroup.Group
	for i, f := range files {
		f := f
		chunk := bytes.Repeat([]byte{byte('A' + i)}, size)
		g.Go(func() error {
			for j := 0; j < writes; j++ {
				if _, err := f.WriteFull(chunk); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Stat(%q) after appends = %v, want not exist", path, err)
	}
	got, err := os.ReadFile(moved)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != writers*writes*size {
		t.Fatalf("file size = %d, want %d", len(got), writers*writes*size)
	}
	for off := 0; off < len(got); off += size {
		c := got[off : off+size]
		if !bytes.Equal(c, bytes.Repeat(c[:1], size)) {
			t.Fatalf("torn chunk at offset %d", off)
		}
	}
}
