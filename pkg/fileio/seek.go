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
	"github.com/walteh/portio/pkg/rawfile"
)

// Seek implements io.Seeker. It clears the end-of-file flag and any pending
// Ungetc byte.
//
// On a buffered file, pending writes are flushed first, and a target inside
// the read-ahead window is reached without a host seek. The returned offset
// is the logical position.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if !f.buffered {
		fd := f.FD()
		if fd < 0 {
			return -1, ioerr.ErrBadHandle
		}
		f.eof = false
		f.unget = -1
		return f.ops.Seek(fd, offset, whence)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fd := f.FD()
	if fd < 0 {
		return -1, ioerr.ErrBadHandle
	}
	f.eof = false
	f.unget = -1
	if err := f.flushLocked(); err != nil {
		return -1, err
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.pos() + offset
	case io.SeekEnd:
		fi, err := f.ops.Stat(fd)
		if err != nil {
			return -1, err
		}
		if !fi.Has(rawfile.InfoSize) {
			return -1, ioerr.ErrIncompleteInfo
		}
		target = fi.Size + offset
	default:
		return -1, ioerr.ErrInvalidArgument
	}
	if target < 0 {
		return -1, ioerr.ErrInvalidArgument
	}
	return f.setPtr(fd, target)
}

// Truncate changes the file size to length and moves the position there.
//
// Pending buffered writes beyond length are dropped before the rest is
// flushed; read-ahead is discarded.
func (f *File) Truncate(length int64) error {
	if length < 0 {
		return ioerr.ErrInvalidArgument
	}
	if !f.buffered {
		fd := f.FD()
		if fd < 0 {
			return ioerr.ErrBadHandle
		}
		if err := f.ops.Truncate(fd, length); err != nil {
			return err
		}
		f.eof = false
		f.unget = -1
		_, err := f.ops.Seek(fd, length, io.SeekStart)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	fd := f.FD()
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	switch f.dir {
	case dirWrite:
		if end := f.filePtr + int64(f.bufpos); end > length {
			keep := length - f.filePtr
			if keep < 0 {
				keep = 0
			}
			f.bufpos = int(keep)
		}
		if err := f.flushLocked(); err != nil {
			return err
		}
		f.bufpos = 0
		f.dataRead = 0
		f.dir = dirNeutral
	case dirRead:
		f.bufpos = 0
		f.dataRead = 0
	}
	if err := f.ops.Truncate(fd, length); err != nil {
		return err
	}
	f.eof = false
	f.unget = -1
	_, err := f.setPtr(fd, length)
	return err
}
