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

// Package rawfiletest provides an instrumented rawfile.Ops for tests.
package rawfiletest

import (
	"os"
	"sync"
	"time"

	"github.com/walteh/portio/pkg/rawfile"
)

// Op names used by Counting.
const (
	OpOpen     = "open"
	OpClose    = "close"
	OpRead     = "read"
	OpWrite    = "write"
	OpWritev   = "writev"
	OpSeek     = "seek"
	OpTruncate = "truncate"
	OpSync     = "sync"
	OpDatasync = "datasync"
	OpStat     = "stat"
	OpWait     = "wait"
)

// Counting wraps an Ops, counts calls by operation and injects faults.
type Counting struct {
	rawfile.Ops

	mu     sync.Mutex
	calls  map[string]int
	faults map[string]error

	// MaxWrite, if positive, caps the bytes passed to each Write call so
	// that short writes can be exercised.
	MaxWrite int

	// StatValid, if non-zero, masks the Valid set returned by Stat.
	StatValid rawfile.InfoField
}

// New returns a Counting wrapping ops, or rawfile.Host if ops is nil.
func New(ops rawfile.Ops) *Counting {
	if ops == nil {
		ops = rawfile.Host{}
	}
	return &Counting{
		Ops:    ops,
		calls:  make(map[string]int),
		faults: make(map[string]error),
	}
}

// Calls returns the number of calls to op since the last Reset.
func (c *Counting) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// Reset clears all counters.
func (c *Counting) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = make(map[string]int)
}

// Fail makes every later call to op return err without reaching the wrapped
// Ops. A nil err removes the fault.
func (c *Counting) Fail(op string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.faults, op)
		return
	}
	c.faults[op] = err
}

func (c *Counting) enter(op string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[op]++
	return c.faults[op]
}

// Open implements rawfile.Ops.Open.
func (c *Counting) Open(path string, flags rawfile.OpenFlags, perm os.FileMode) (int, error) {
	if err := c.enter(OpOpen); err != nil {
		return -1, err
	}
	return c.Ops.Open(path, flags, perm)
}

// Close implements rawfile.Ops.Close.
func (c *Counting) Close(fd int) error {
	if err := c.enter(OpClose); err != nil {
		return err
	}
	return c.Ops.Close(fd)
}

// Read implements rawfile.Ops.Read.
func (c *Counting) Read(fd int, p []byte) (int, error) {
	if err := c.enter(OpRead); err != nil {
		return 0, err
	}
	return c.Ops.Read(fd, p)
}

// Write implements rawfile.Ops.Write.
func (c *Counting) Write(fd int, p []byte) (int, error) {
	if err := c.enter(OpWrite); err != nil {
		return 0, err
	}
	if c.MaxWrite > 0 && len(p) > c.MaxWrite {
		p = p[:c.MaxWrite]
	}
	return c.Ops.Write(fd, p)
}

// Writev implements rawfile.Ops.Writev.
func (c *Counting) Writev(fd int, bufs [][]byte) (int, error) {
	if err := c.enter(OpWritev); err != nil {
		return 0, err
	}
	return c.Ops.Writev(fd, bufs)
}

// Seek implements rawfile.Ops.Seek.
func (c *Counting) Seek(fd int, offset int64, whence int) (int64, error) {
	if err := c.enter(OpSeek); err != nil {
		return -1, err
	}
	return c.Ops.Seek(fd, offset, whence)
}

// Truncate implements rawfile.Ops.Truncate.
func (c *Counting) Truncate(fd int, length int64) error {
	if err := c.enter(OpTruncate); err != nil {
		return err
	}
	return c.Ops.Truncate(fd, length)
}

// Sync implements rawfile.Ops.Sync.
func (c *Counting) Sync(fd int) error {
	if err := c.enter(OpSync); err != nil {
		return err
	}
	return c.Ops.Sync(fd)
}

// Datasync implements rawfile.Ops.Datasync.
func (c *Counting) Datasync(fd int) error {
	if err := c.enter(OpDatasync); err != nil {
		return err
	}
	return c.Ops.Datasync(fd)
}

// Stat implements rawfile.Ops.Stat.
func (c *Counting) Stat(fd int) (rawfile.FileInfo, error) {
	if err := c.enter(OpStat); err != nil {
		return rawfile.FileInfo{}, err
	}
	fi, err := c.Ops.Stat(fd)
	if err == nil && c.StatValid != 0 {
		fi.Valid &= c.StatValid
	}
	return fi, err
}

// WaitReadable implements rawfile.Ops.WaitReadable.
func (c *Counting) WaitReadable(fd, cancel int, timeout time.Duration) error {
	if err := c.enter(OpWait); err != nil {
		return err
	}
	return c.Ops.WaitReadable(fd, cancel, timeout)
}

// WaitWritable implements rawfile.Ops.WaitWritable.
func (c *Counting) WaitWritable(fd, cancel int, timeout time.Duration) error {
	if err := c.enter(OpWait); err != nil {
		return err
	}
	return c.Ops.WaitWritable(fd, cancel, timeout)
}
