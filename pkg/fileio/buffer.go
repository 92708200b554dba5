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

	"github.com/walteh/portio/pkg/ioerr"
)

// pos returns the logical position.
//
// Preconditions: f.mu is held.
func (f *File) pos() int64 {
	return f.filePtr - int64(f.dataRead) + int64(f.bufpos)
}

// flushLocked writes out pending data. On failure the unwritten tail stays
// at the front of the buffer and filePtr covers only what reached the host.
//
// Preconditions: f.mu is held.
func (f *File) flushLocked() error {
	if f.dir != dirWrite || f.bufpos == 0 {
		return nil
	}
	fd := f.FD()
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	written := 0
	for written < f.bufpos {
		var (
			n   int
			err error
		)
		if f.flags&Append != 0 {
			var off int64
			off, n, err = f.appendWrite(fd, func() (int, error) {
				return f.physWrite(fd, f.buf[written:f.bufpos])
			})
			if n > 0 {
				f.filePtr = off
			}
		} else {
			n, err = f.physWrite(fd, f.buf[written:f.bufpos])
		}
		written += n
		f.filePtr += int64(n)
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			f.bufpos = copy(f.buf, f.buf[written:f.bufpos])
			return err
		}
	}
	f.bufpos = 0
	return nil
}

// setPtr moves the logical position to the absolute offset target. A target
// inside the current read-ahead window only moves bufpos.
//
// Preconditions: f.mu is held; f holds no pending writes.
func (f *File) setPtr(fd int, target int64) (int64, error) {
	start := f.filePtr - int64(f.dataRead)
	if target >= start && target <= f.filePtr {
		f.bufpos = int(target - start)
		return f.pos(), nil
	}
	off, err := f.ops.Seek(fd, target, io.SeekStart)
	if err != nil {
		return -1, err
	}
	f.filePtr = off
	f.bufpos = 0
	f.dataRead = 0
	return f.pos(), nil
}
