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
	"io"
	"time"

	"github.com/walteh/portio/pkg/ioerr"
)

// Read implements io.Reader.
//
// A pending Ungetc byte is delivered first. Read returns io.EOF only when no
// bytes were produced and end of file was reached; a short read that ends at
// end of file succeeds.
func (f *File) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.readBuffered(p)
	}
	return f.readUnbuffered(p)
}

// Preconditions: f.mu is held.
func (f *File) readBuffered(p []byte) (int, error) {
	fd := f.FD()
	if fd < 0 {
		return 0, ioerr.ErrBadHandle
	}
	n := f.takeUnget(p)

	if f.dir == dirWrite {
		if err := f.flushLocked(); err != nil {
			return n, err
		}
		f.bufpos = 0
		f.dataRead = 0
		f.dir = dirNeutral
	}

	for n < len(p) {
		if f.bufpos >= f.dataRead {
			m, err := f.physRead(fd, f.buf)
			if err != nil {
				return n, err
			}
			f.bufpos = 0
			f.dataRead = m
			f.dir = dirRead
			if m == 0 {
				f.eof = true
				break
			}
			f.filePtr += int64(m)
		}
		c := copy(p[n:], f.buf[f.bufpos:f.dataRead])
		f.bufpos += c
		n += c
	}

	if n == 0 && f.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (f *File) readUnbuffered(p []byte) (int, error) {
	fd := f.FD()
	if fd < 0 {
		return 0, ioerr.ErrBadHandle
	}
	n := f.takeUnget(p)
	if n == len(p) {
		return n, nil
	}
	m, err := f.physRead(fd, p[n:])
	n += m
	if err != nil {
		return n, err
	}
	if m == 0 {
		f.eof = true
		if n == 0 {
			return 0, io.EOF
		}
	}
	return n, nil
}

// takeUnget moves a pending Ungetc byte into p and returns the count.
func (f *File) takeUnget(p []byte) int {
	if f.unget < 0 {
		return 0
	}
	p[0] = byte(f.unget)
	f.unget = -1
	return 1
}

// physRead performs one physical read. Non-blocking pipe read ends wait for
// data up to the pipe timeout: the event is reset before every attempt, a
// zero timeout fails at once with ioerr.ErrTimeout, and a Close from another
// goroutine ends the wait with ioerr.ErrBadHandle.
func (f *File) physRead(fd int, p []byte) (int, error) {
	if f.role != rolePipeRead || f.blocking != blockOff || f.event == nil {
		return f.ops.Read(fd, p)
	}
	var deadline time.Time
	if f.timeout > 0 {
		deadline = time.Now().Add(f.timeout)
	}
	for {
		if err := f.event.Reset(); err != nil {
			return 0, ioerr.Translate("reset", err)
		}
		if f.FD() < 0 {
			return 0, ioerr.ErrBadHandle
		}
		n, err := f.ops.Read(fd, p)
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
		if err := f.ops.WaitReadable(fd, f.event.FD(), timeout); err != nil {
			return 0, err
		}
	}
}

// ReadFull reads exactly len(p) bytes, with the semantics of io.ReadFull.
func (f *File) ReadFull(p []byte) (int, error) {
	return io.ReadFull(f, p)
}

// Getc reads one byte.
func (f *File) Getc() (byte, error) {
	var b [1]byte
	if _, err := f.Read(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// Ungetc pushes c back so that the next read returns it first. Only one byte
// can be pending; a second Ungetc replaces the first.
func (f *File) Ungetc(c byte) error {
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
	}
	if f.FD() < 0 {
		return ioerr.ErrBadHandle
	}
	f.unget = int(c)
	return nil
}

// Gets reads bytes into p up to and including the first newline, or until p
// is full. It returns io.EOF only if end of file is reached before any byte
// is read.
func (f *File) Gets(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c, err := f.Getc()
		if err == io.EOF {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err != nil {
			return n, err
		}
		p[n] = c
		n++
		if c == '\n' {
			break
		}
	}
	return n, nil
}

// CheckRead reports whether a pipe read end has data without waiting. It
// returns nil if a read would not block and ioerr.ErrTimeout otherwise.
func (f *File) CheckRead() error {
	if f.role != rolePipeRead {
		return ioerr.ErrInvalidArgument
	}
	if f.buffered {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.bufpos < f.dataRead {
			return nil
		}
	}
	fd := f.FD()
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	if f.unget >= 0 {
		return nil
	}
	return f.ops.WaitReadable(fd, -1, 0)
}
