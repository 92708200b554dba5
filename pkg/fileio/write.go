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
	"fmt"
	"io"
	"time"

	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/log"
)

// Write implements io.Writer.
//
// Buffered files copy p into the buffer and flush whenever it fills; a flush
// failure is returned with the count of bytes accepted so far. Unbuffered
// files issue a single physical write, under the append lock when the file
// was opened with Append.
func (f *File) Write(p []byte) (int, error) {
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.writeBuffered(p)
	}
	return f.writeUnbuffered(p)
}

// Preconditions: f.mu is held.
func (f *File) writeBuffered(p []byte) (int, error) {
	fd := f.FD()
	if fd < 0 {
		return 0, ioerr.ErrBadHandle
	}
	if err := f.enterWrite(fd); err != nil {
		return 0, err
	}
	n := 0
	for n < len(p) {
		if f.bufpos == len(f.buf) {
			if err := f.flushLocked(); err != nil {
				return n, err
			}
		}
		c := copy(f.buf[f.bufpos:], p[n:])
		f.bufpos += c
		n += c
	}
	return n, nil
}

// enterWrite switches the buffer to write direction. Unconsumed read-ahead
// is dropped and the host offset moved back to the logical position.
//
// Preconditions: f.mu is held.
func (f *File) enterWrite(fd int) error {
	if f.dir == dirWrite {
		return nil
	}
	if off := f.pos(); off != f.filePtr {
		if _, err := f.ops.Seek(fd, off, io.SeekStart); err != nil {
			return err
		}
		f.filePtr = off
	}
	f.bufpos = 0
	f.dataRead = 0
	f.dir = dirWrite
	return nil
}

func (f *File) writeUnbuffered(p []byte) (int, error) {
	fd := f.FD()
	if fd < 0 {
		return 0, ioerr.ErrBadHandle
	}
	var (
		n   int
		err error
	)
	if f.flags&Append != 0 {
		_, n, err = f.appendWrite(fd, func() (int, error) {
			return f.physWrite(fd, p)
		})
	} else {
		n, err = f.physWrite(fd, p)
	}
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	return n, err
}

// appendWrite runs write with the host offset at end of file. The seek and
// the write happen under the whole-file lock, so concurrent appenders
// through other handles or processes cannot interleave. It returns the
// offset the write started at.
func (f *File) appendWrite(fd int, write func() (int, error)) (int64, int, error) {
	f.appendMu.Lock()
	defer f.appendMu.Unlock()

	if f.lock == nil {
		l, err := f.ops.NewRangeLock(fd, f.name)
		if err != nil {
			return 0, 0, err
		}
		f.lock = l
	}
	if err := f.lock.Lock(); err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := f.lock.Unlock(); err != nil {
			log.Warningf("%s: append unlock failed: %v", f.name, err)
		}
	}()

	off, err := f.ops.Seek(fd, 0, io.SeekEnd)
	if err != nil {
		return 0, 0, err
	}
	n, err := write()
	return off, n, err
}

// physWrite performs one physical write. Non-blocking pipe write ends wait
// for room up to the pipe timeout.
func (f *File) physWrite(fd int, p []byte) (int, error) {
	if f.role != rolePipeWrite || f.blocking != blockOff {
		return f.ops.Write(fd, p)
	}
	var deadline time.Time
	if f.timeout > 0 {
		deadline = time.Now().Add(f.timeout)
	}
	for {
		n, err := f.ops.Write(fd, p)
		if err == nil {
			return n, nil
		}
		if !ioerr.IsWouldBlock(err) {
			return 0, err
		}
		timeout := f.timeout
		if timeout > 0 {
			if timeout = time.Until(deadline); timeout <= 0 {
				return 0, ioerr.ErrTimeout
			}
		}
		if timeout == 0 {
			return 0, ioerr.ErrTimeout
		}
		if err := f.ops.WaitWritable(fd, -1, timeout); err != nil {
			return 0, err
		}
	}
}

// Flush writes out any buffered data. It is a no-op for unbuffered files
// and when nothing is pending.
func (f *File) Flush() error {
	if !f.buffered {
		if f.FD() < 0 {
			return ioerr.ErrBadHandle
		}
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FD() < 0 {
		return ioerr.ErrBadHandle
	}
	return f.flushLocked()
}

// Sync flushes and then commits the file to stable storage.
func (f *File) Sync() error {
	if err := f.Flush(); err != nil {
		return err
	}
	return f.ops.Sync(f.FD())
}

// Datasync is Sync without forcing metadata that is not needed to read the
// data back.
func (f *File) Datasync() error {
	if err := f.Flush(); err != nil {
		return err
	}
	return f.ops.Datasync(f.FD())
}

// Writev writes the concatenation of bufs. Buffered files copy each buffer
// in turn; unbuffered files issue one vectored host write, which may be
// short.
func (f *File) Writev(bufs [][]byte) (int, error) {
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
		total := 0
		for _, b := range bufs {
			n, err := f.writeBuffered(b)
			total += n
			if err != nil {
				return total, err
			}
		}
		return total, nil
	}

	fd := f.FD()
	if fd < 0 {
		return 0, ioerr.ErrBadHandle
	}
	if f.flags&Append != 0 {
		_, n, err := f.appendWrite(fd, func() (int, error) {
			return f.ops.Writev(fd, bufs)
		})
		return n, err
	}
	return f.ops.Writev(fd, bufs)
}

// WriteFull writes all of p, retrying short writes.
func (f *File) WriteFull(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := f.Write(p[n:])
		n += m
		if err == io.ErrShortWrite && m > 0 {
			continue
		}
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Putc writes one byte.
func (f *File) Putc(c byte) error {
	_, err := f.Write([]byte{c})
	return err
}

// Puts writes s.
func (f *File) Puts(s string) error {
	_, err := f.WriteFull([]byte(s))
	return err
}

// Printf writes a formatted string and returns the bytes written.
func (f *File) Printf(format string, args ...any) (int, error) {
	return f.WriteFull([]byte(fmt.Sprintf(format, args...)))
}
