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

// Package fd provides types for working with host file descriptors.
package fd

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// FD owns a host file descriptor.
//
// The descriptor is valid until Close or Release is called; afterwards FD
// returns -1. FD is safe for concurrent use: exactly one caller wins the
// descriptor on Close/Release.
type FD struct {
	fd atomic.Int64
}

// New creates a new FD owning fd.
//
// New panics if fd is negative.
func New(fd int) *FD {
	if fd < 0 {
		panic(fmt.Sprintf("invalid fd %d", fd))
	}
	f := &FD{}
	f.fd.Store(int64(fd))
	return f
}

// Open opens path with the given open(2) flags and mode. O_LARGEFILE and
// O_CLOEXEC are always added. Interrupted calls are retried.
func Open(path string, openmode int, perm uint32) (*FD, error) {
	for {
		fd, err := unix.Open(path, openmode|O_LARGEFILE|unix.O_CLOEXEC, perm)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		return New(fd), nil
	}
}

// FD returns the descriptor, or -1 if it has been closed or released.
func (f *FD) FD() int {
	return int(f.fd.Load())
}

// Valid returns true while the descriptor is owned.
func (f *FD) Valid() bool {
	return f.fd.Load() >= 0
}

// Release relinquishes ownership of the descriptor and returns it. The
// caller becomes responsible for closing it. Release returns -1 if the
// descriptor was already released or closed.
func (f *FD) Release() int {
	return int(f.fd.Swap(-1))
}

// Close closes the descriptor. It returns unix.EBADF if it was already
// closed or released.
func (f *FD) Close() error {
	fd := f.Release()
	if fd < 0 {
		return unix.EBADF
	}
	return unix.Close(fd)
}
