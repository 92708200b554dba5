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

// Package fileio implements file and pipe handles with an optional buffered
// engine.
//
// A buffered File keeps one fixed-size buffer that holds either read-ahead or
// pending writes, never both. The position seen by callers is
//
//	filePtr - dataRead + bufpos
//
// where filePtr is the host offset after the last physical transfer. Every
// buffer-touching operation on a buffered File is serialised by its mutex.
// Unbuffered Files take no lock except around append writes.
//
// End of stream is reported as io.EOF. Other failures use package ioerr.
package fileio

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/log"
	"github.com/walteh/portio/pkg/rawfile"
)

type role uint8

const (
	roleFile role = iota
	rolePipeRead
	rolePipeWrite
)

type blocking uint8

const (
	blockUnknown blocking = iota
	blockOff
	blockOn
)

type direction uint8

const (
	dirNeutral direction = iota
	dirRead
	dirWrite
)

// File is an open file or pipe end.
type File struct {
	ops   rawfile.Ops
	fd    atomic.Int64
	name  string
	flags Flag
	role  role

	// blocking and timeout apply to pipe ends only. A negative timeout
	// means the descriptor blocks in the host.
	blocking blocking
	timeout  time.Duration

	// event is owned by pipe read ends. It is reset before every read
	// attempt and notified by Close to wake blocked readers.
	event rawfile.Event

	// appendMu serialises append writes through this handle; lock
	// serialises them against every other handle on the same file.
	appendMu sync.Mutex
	lock     rawfile.RangeLock

	// mu guards everything below on buffered files.
	mu       sync.Mutex
	buffered bool
	eof      bool
	unget    int
	buf      []byte
	bufpos   int
	dataRead int
	dir      direction
	filePtr  int64
}

// Open opens the named file.
func Open(path string, flags Flag, perm os.FileMode, opts ...Option) (*File, error) {
	if flags&(Read|Write) == 0 {
		return nil, &ioerr.OSError{Op: "open", Path: path, Errno: syscall.EACCES}
	}
	if flags&Excl != 0 && flags&Create == 0 {
		return nil, &ioerr.OSError{Op: "open", Path: path, Errno: syscall.EACCES}
	}
	if flags&NonBlock != 0 {
		return nil, ioerr.ErrNotImplemented
	}

	o := buildOptions(opts)
	var rflags rawfile.OpenFlags
	for _, m := range []struct {
		f Flag
		r rawfile.OpenFlags
	}{
		{Read, rawfile.OpenRead},
		{Write, rawfile.OpenWrite},
		{Create, rawfile.OpenCreate},
		{Excl, rawfile.OpenExcl},
		{Truncate, rawfile.OpenTruncate},
		{Append, rawfile.OpenAppend},
	} {
		if flags&m.f != 0 {
			rflags |= m.r
		}
	}
	fd, err := o.ops.Open(path, rflags, perm)
	if err != nil {
		return nil, err
	}
	f := newFile(o, fd, path, flags, roleFile)

	if flags&Append != 0 {
		off, err := o.ops.Seek(fd, 0, io.SeekEnd)
		if err != nil {
			o.ops.Close(fd)
			return nil, err
		}
		f.filePtr = off
	}
	return f, nil
}

// NewFile wraps an existing descriptor. The File owns fd from then on.
func NewFile(fd int, name string, flags Flag, opts ...Option) (*File, error) {
	if fd < 0 {
		return nil, ioerr.ErrBadHandle
	}
	return newFile(buildOptions(opts), fd, name, flags, roleFile), nil
}

func newFile(o options, fd int, name string, flags Flag, r role) *File {
	f := &File{
		ops:      o.ops,
		name:     name,
		flags:    flags,
		role:     r,
		timeout:  -1,
		unget:    -1,
		buffered: flags&Buffered != 0,
	}
	f.fd.Store(int64(fd))
	if f.buffered {
		f.buf = make([]byte, o.bufferSize)
	}
	return f
}

// Stdin returns a File for descriptor 0.
func Stdin(opts ...Option) (*File, error) {
	return NewFile(0, "stdin", Read, opts...)
}

// Stdout returns a File for descriptor 1.
func Stdout(opts ...Option) (*File, error) {
	return NewFile(1, "stdout", Write, opts...)
}

// Stderr returns a File for descriptor 2.
func Stderr(opts ...Option) (*File, error) {
	return NewFile(2, "stderr", Write, opts...)
}

// FD returns the host descriptor, or -1 once the File is closed.
func (f *File) FD() int {
	return int(f.fd.Load())
}

// Name returns the name the File was opened with.
func (f *File) Name() string {
	return f.name
}

// Flags returns the open flags.
func (f *File) Flags() Flag {
	return f.flags
}

// IsBuffered reports whether the buffered engine is in use.
func (f *File) IsBuffered() bool {
	return f.buffered
}

// EOF reports whether the last read hit end of file.
func (f *File) EOF() bool {
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	return f.eof
}

// SetInherit controls whether the descriptor survives exec.
func (f *File) SetInherit(inherit bool) error {
	fd := f.FD()
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	return f.ops.SetInherit(fd, inherit)
}

// Close flushes pending writes, releases the descriptor and wakes blocked
// pipe readers. A flush failure does not stop the close but is returned.
// DeleteOnClose files are removed after a successful close; a file that is
// already gone is not an error.
func (f *File) Close() error {
	if f.event != nil {
		// Readers wait for data with f.mu held, so they must be woken
		// before the lock is taken. A read end has nothing to flush.
		fd := f.fd.Swap(-1)
		if fd < 0 {
			return ioerr.ErrBadHandle
		}
		if err := f.event.Notify(); err != nil {
			log.Warningf("%s: waking readers on close failed: %v", f.name, err)
		}
		if f.buffered {
			f.mu.Lock()
			defer f.mu.Unlock()
		}
		return f.release(int(fd), nil)
	}

	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	if f.FD() < 0 {
		return ioerr.ErrBadHandle
	}
	var flushErr error
	if f.buffered {
		if flushErr = f.flushLocked(); flushErr != nil {
			log.Warningf("%s: flush on close failed: %v", f.name, flushErr)
		}
	}
	fd := f.fd.Swap(-1)
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	return f.release(int(fd), flushErr)
}

// release closes fd and the event and handles DeleteOnClose. flushErr, if
// set, takes precedence over the close result.
//
// Preconditions: f.mu is held for buffered files; f.fd is already -1.
func (f *File) release(fd int, flushErr error) error {
	err := f.ops.Close(fd)
	if f.event != nil {
		f.event.Close()
	}
	f.buf = nil

	if err == nil && f.flags&DeleteOnClose != 0 {
		if rerr := f.ops.Remove(f.name); rerr != nil {
			if !ioerr.IsNotExist(rerr) {
				err = rerr
			} else {
				log.Debugf("%s: already removed", f.name)
			}
		}
	}
	if flushErr != nil {
		return flushErr
	}
	return err
}

// Info returns metadata for the open file. Pending writes are flushed first
// so that the size is current. If the host could not fill every field in
// wanted, the partial result is returned with ioerr.ErrIncompleteInfo.
func (f *File) Info(wanted rawfile.InfoField) (rawfile.FileInfo, error) {
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
		if err := f.flushLocked(); err != nil {
			return rawfile.FileInfo{}, err
		}
	}
	fd := f.FD()
	if fd < 0 {
		return rawfile.FileInfo{}, ioerr.ErrBadHandle
	}
	fi, err := f.ops.Stat(fd)
	if err != nil {
		return rawfile.FileInfo{}, err
	}
	if !fi.Has(wanted) {
		return fi, ioerr.ErrIncompleteInfo
	}
	return fi, nil
}
