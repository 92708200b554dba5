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

package fileio

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/walteh/portio/pkg/ioerr"
)

// PipeMode selects which ends of a new pipe block.
type PipeMode uint8

// Pipe modes.
const (
	// FullBlock makes both ends blocking.
	FullBlock PipeMode = iota

	// ReadBlock makes only the read end blocking.
	ReadBlock

	// WriteBlock makes only the write end blocking.
	WriteBlock

	// NoBlock makes neither end blocking.
	NoBlock
)

// Pipe creates a connected pair of Files. Non-blocking ends start with a
// zero timeout; use SetPipeTimeout to wait instead.
func Pipe(mode PipeMode, opts ...Option) (r, w *File, err error) {
	o := buildOptions(opts)
	rfd, wfd, err := o.ops.Pipe()
	if err != nil {
		return nil, nil, err
	}
	ev, err := o.ops.NewEvent()
	if err != nil {
		o.ops.Close(rfd)
		o.ops.Close(wfd)
		return nil, nil, err
	}
	r = newFile(o, rfd, "pipe:r", Read, rolePipeRead)
	r.event = ev
	w = newFile(o, wfd, "pipe:w", Write, rolePipeWrite)

	readBlocks := mode == FullBlock || mode == ReadBlock
	writeBlocks := mode == FullBlock || mode == WriteBlock
	for _, end := range []struct {
		f      *File
		blocks bool
	}{{r, readBlocks}, {w, writeBlocks}} {
		timeout := time.Duration(-1)
		if !end.blocks {
			timeout = 0
		}
		if err := end.f.SetPipeTimeout(timeout); err != nil {
			r.Close()
			w.Close()
			return nil, nil, err
		}
	}
	return r, w, nil
}

// NewPipe wraps an existing pipe descriptor. flags must include exactly one
// of Read or Write. The blocking mode stays unknown until SetPipeTimeout.
func NewPipe(fd int, name string, flags Flag, opts ...Option) (*File, error) {
	if fd < 0 {
		return nil, ioerr.ErrBadHandle
	}
	o := buildOptions(opts)
	switch flags & (Read | Write) {
	case Read:
		ev, err := o.ops.NewEvent()
		if err != nil {
			return nil, err
		}
		f := newFile(o, fd, name, flags, rolePipeRead)
		f.event = ev
		return f, nil
	case Write:
		return newFile(o, fd, name, flags, rolePipeWrite), nil
	default:
		return nil, ioerr.ErrInvalidArgument
	}
}

// SetPipeTimeout sets how long reads (or writes, on a write end) wait. A
// timeout of zero or more switches the descriptor to non-blocking and waits
// at most that long; a negative timeout restores blocking host I/O.
func (f *File) SetPipeTimeout(timeout time.Duration) error {
	if f.role == roleFile {
		return ioerr.ErrInvalidArgument
	}
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	fd := f.FD()
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	if timeout >= 0 {
		if f.blocking != blockOff {
			if err := f.ops.SetNonblock(fd, true); err != nil {
				return err
			}
			f.blocking = blockOff
		}
	} else {
		if f.blocking != blockOn {
			if err := f.ops.SetNonblock(fd, false); err != nil {
				return err
			}
			f.blocking = blockOn
		}
		timeout = -1
	}
	f.timeout = timeout
	return nil
}

// PipeTimeout returns the current pipe timeout; negative means blocking.
func (f *File) PipeTimeout() (time.Duration, error) {
	if f.role == roleFile {
		return 0, ioerr.ErrInvalidArgument
	}
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	return f.timeout, nil
}

// NamedPipe creates a FIFO at path.
func NamedPipe(path string, perm os.FileMode, opts ...Option) error {
	return buildOptions(opts).ops.Mkfifo(path, perm)
}

// TempPipeName returns a fresh FIFO path in dir, or in the default temporary
// directory if dir is empty.
func TempPipeName(dir string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "pipe-"+uuid.NewString())
}
