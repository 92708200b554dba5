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

// Package rawfile contains the host operations used by the file and pipe
// layers.
//
// Everything above this package talks to the host through Ops. The host
// implementation is selected at build time; its methods retry interrupted
// calls and return errors already translated by package ioerr.
package rawfile

import (
	"os"
	"time"
)

// OpenFlags selects the access mode and creation behaviour of Ops.Open.
type OpenFlags uint32

// Open flags.
const (
	OpenRead OpenFlags = 1 << iota
	OpenWrite
	OpenCreate
	OpenExcl
	OpenTruncate
	OpenAppend
)

// FileType is the kind of object behind a descriptor.
type FileType uint8

// File types.
const (
	TypeUnknown FileType = iota
	TypeRegular
	TypeDirectory
	TypeCharDevice
	TypeBlockDevice
	TypePipe
	TypeSymlink
	TypeSocket
)

// String implements fmt.Stringer.
func (t FileType) String() string {
	switch t {
	case TypeRegular:
		return "regular"
	case TypeDirectory:
		return "directory"
	case TypeCharDevice:
		return "char-device"
	case TypeBlockDevice:
		return "block-device"
	case TypePipe:
		return "pipe"
	case TypeSymlink:
		return "symlink"
	case TypeSocket:
		return "socket"
	default:
		return "unknown"
	}
}

// InfoField is a set of FileInfo fields.
type InfoField uint16

// FileInfo fields.
const (
	InfoType InfoField = 1 << iota
	InfoSize
	InfoMode
	InfoAtime
	InfoMtime
	InfoCtime

	InfoAll = InfoType | InfoSize | InfoMode | InfoAtime | InfoMtime | InfoCtime
)

// FileInfo is the result of Ops.Stat.
type FileInfo struct {
	Type  FileType
	Size  int64
	Mode  os.FileMode
	Atime time.Time
	Mtime time.Time
	Ctime time.Time

	// Valid is the set of fields above that were filled in.
	Valid InfoField
}

// Has reports whether every field in want is valid.
func (fi *FileInfo) Has(want InfoField) bool {
	return fi.Valid&want == want
}

// RangeLock is an exclusive lock over a whole file. Locks taken through
// different RangeLocks exclude each other, even within one process.
type RangeLock interface {
	Lock() error
	Unlock() error
}

// Event is a level-triggered signal object that can be waited on together
// with a descriptor.
type Event interface {
	FD() int
	Notify() error
	Reset() error
	Close() error
}

// Ops is the set of host operations.
//
// Offsets use io.SeekStart, io.SeekCurrent and io.SeekEnd. Methods never
// return interrupted-call errors. Zero-byte reads return (0, nil); callers
// decide what end of stream means for them.
type Ops interface {
	Open(path string, flags OpenFlags, perm os.FileMode) (int, error)
	Close(fd int) error
	Read(fd int, p []byte) (int, error)
	Write(fd int, p []byte) (int, error)
	Writev(fd int, bufs [][]byte) (int, error)
	Seek(fd int, offset int64, whence int) (int64, error)
	Truncate(fd int, length int64) error
	Sync(fd int) error
	Datasync(fd int) error
	Stat(fd int) (FileInfo, error)

	// Pipe returns a connected read end and write end.
	Pipe() (r, w int, err error)
	SetNonblock(fd int, nonblocking bool) error

	// SetInherit controls whether fd survives exec. Descriptors returned by
	// Ops are not inherited until SetInherit(fd, true).
	SetInherit(fd int, inherit bool) error
	Mkfifo(path string, perm os.FileMode) error
	Remove(path string) error

	// NewRangeLock returns a whole-file lock for the file open at fd.
	// path may be empty when the descriptor has no known name.
	NewRangeLock(fd int, path string) (RangeLock, error)
	NewEvent() (Event, error)

	// WaitReadable blocks until fd is readable, cancel is readable, or the
	// timeout expires, with the conventions of package poll.
	WaitReadable(fd, cancel int, timeout time.Duration) error

	// WaitWritable is WaitReadable for writability.
	WaitWritable(fd, cancel int, timeout time.Duration) error
	IsTerminal(fd int) bool
}
