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

// Package eventfd wraps a level-triggered host signal object.
//
// On Linux it is an eventfd(2). Elsewhere it is simulated with a non-blocking
// pipe. Either way FD becomes readable once Notify has been called and stays
// readable until Reset drains it, so it can be placed next to a data
// descriptor in a single poll(2).
package eventfd

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// sizeofUint64 is the size of an eventfd counter read or write.
const sizeofUint64 = 8

// Eventfd is a signal object. The zero value is not usable; use Create.
type Eventfd struct {
	// fd is polled for readability and drained by Reset.
	fd int

	// wfd receives Notify writes. It equals fd for a real eventfd.
	wfd int
}

// FD returns the descriptor to poll for readability.
func (ev Eventfd) FD() int {
	return ev.fd
}

// Notify signals the object. Notifying an already signalled object is not an
// error.
func (ev Eventfd) Notify() error {
	var buf [sizeofUint64]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	for {
		_, err := unix.Write(ev.wfd, buf[:])
		switch err {
		case nil, unix.EAGAIN:
			// EAGAIN means the counter or pipe is full, which is
			// already a signalled state.
			return nil
		case unix.EINTR:
			continue
		default:
			return err
		}
	}
}

// Reset clears any pending signal.
func (ev Eventfd) Reset() error {
	var buf [sizeofUint64]byte
	for {
		_, err := unix.Read(ev.fd, buf[:])
		switch err {
		case nil, unix.EINTR:
			continue
		case unix.EAGAIN:
			return nil
		default:
			return err
		}
	}
}

// Signalled reports whether Notify has been called since the last Reset,
// without consuming the signal.
func (ev Eventfd) Signalled() bool {
	fds := []unix.PollFd{{Fd: int32(ev.fd), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
	}
}

// Close releases the host resources.
func (ev Eventfd) Close() error {
	err := unix.Close(ev.fd)
	if ev.wfd != ev.fd {
		if werr := unix.Close(ev.wfd); err == nil {
			err = werr
		}
	}
	return err
}
