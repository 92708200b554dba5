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

// Package poll waits for readiness on host descriptors.
//
// Timeouts follow a single convention everywhere in this package: a zero
// timeout polls without blocking, a negative timeout waits forever, and a
// positive timeout is rounded up to whole milliseconds.
package poll

import (
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/walteh/portio/pkg/ioerr"
)

// EventMask is a set of readiness interests or results.
type EventMask uint8

// Readiness kinds.
const (
	Readable EventMask = 1 << iota
	Writable
	Exceptional
)

// String implements fmt.Stringer.
func (m EventMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&Readable != 0 {
		parts = append(parts, "readable")
	}
	if m&Writable != 0 {
		parts = append(parts, "writable")
	}
	if m&Exceptional != 0 {
		parts = append(parts, "exceptional")
	}
	return strings.Join(parts, "|")
}

// Entry is one descriptor in a Poll request.
type Entry struct {
	// FD is the host descriptor.
	FD int

	// Events is the set of interests.
	Events EventMask

	// Revents is filled in by Poll with the subset of Events that is ready.
	Revents EventMask
}

// Pollable is implemented by handles that expose a host descriptor.
type Pollable interface {
	FD() int
}

// EntryFor returns an Entry for p.
func EntryFor(p Pollable, events EventMask) Entry {
	return Entry{FD: p.FD(), Events: events}
}

// Poll waits until at least one entry is ready or the timeout expires.
//
// The request is flattened into one host poll(2) call whose descriptor list
// is partitioned by interest kind: all readable interests first, then
// writable, then exceptional. Results are demultiplexed back into each
// entry's Revents. Poll returns the number of ready (descriptor, interest)
// pairs, or ioerr.ErrTimeout if there are none. A request with no interests
// fails with ioerr.ErrInvalidArgument.
func Poll(entries []Entry, timeout time.Duration) (int, error) {
	var nr, nw, ne int
	for i := range entries {
		entries[i].Revents = 0
		if entries[i].Events&Readable != 0 {
			nr++
		}
		if entries[i].Events&Writable != 0 {
			nw++
		}
		if entries[i].Events&Exceptional != 0 {
			ne++
		}
	}

	if nr+nw+ne == 0 {
		return 0, ioerr.ErrInvalidArgument
	}

	pfds := make([]unix.PollFd, nr+nw+ne)
	r, w, e := 0, nr, nr+nw
	for _, ent := range entries {
		if ent.Events&Readable != 0 {
			pfds[r] = unix.PollFd{Fd: int32(ent.FD), Events: unix.POLLIN}
			r++
		}
		if ent.Events&Writable != 0 {
			pfds[w] = unix.PollFd{Fd: int32(ent.FD), Events: unix.POLLOUT}
			w++
		}
		if ent.Events&Exceptional != 0 {
			pfds[e] = unix.PollFd{Fd: int32(ent.FD), Events: unix.POLLPRI}
			e++
		}
	}

	if _, err := pollRetry(pfds, timeout); err != nil {
		return 0, ioerr.Translate("poll", err)
	}

	ready := 0
	r, w, e = 0, nr, nr+nw
	for i := range entries {
		ent := &entries[i]
		if ent.Events&Readable != 0 {
			rev := pfds[r].Revents
			r++
			if rev&unix.POLLNVAL != 0 {
				return 0, &ioerr.OSError{Op: "poll", Errno: unix.EBADF}
			}
			if rev&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
				ent.Revents |= Readable
				ready++
			}
		}
		if ent.Events&Writable != 0 {
			rev := pfds[w].Revents
			w++
			if rev&unix.POLLNVAL != 0 {
				return 0, &ioerr.OSError{Op: "poll", Errno: unix.EBADF}
			}
			if rev&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR) != 0 {
				ent.Revents |= Writable
				ready++
			}
		}
		if ent.Events&Exceptional != 0 {
			rev := pfds[e].Revents
			e++
			if rev&unix.POLLNVAL != 0 {
				return 0, &ioerr.OSError{Op: "poll", Errno: unix.EBADF}
			}
			if rev&unix.POLLPRI != 0 {
				ent.Revents |= Exceptional
				ready++
			}
		}
	}

	if ready == 0 {
		return 0, ioerr.ErrTimeout
	}
	return ready, nil
}

// Ready polls fd without blocking and returns the subset of mask that is
// ready. Errors are reported as an empty mask.
func Ready(fd int, mask EventMask) EventMask {
	entries := []Entry{{FD: fd, Events: mask}}
	if _, err := Poll(entries, 0); err != nil {
		return 0
	}
	return entries[0].Revents
}

// Wait blocks until fd is ready for mask, the cancel descriptor becomes
// readable, or the timeout expires. A negative cancel disables cancellation.
//
// Wait returns ioerr.ErrTimeout on expiry and ioerr.ErrBadHandle when
// cancelled, which is how closing a handle wakes its blocked callers.
func Wait(fd int, mask EventMask, cancel int, timeout time.Duration) error {
	var events int16
	if mask&Readable != 0 {
		events |= unix.POLLIN
	}
	if mask&Writable != 0 {
		events |= unix.POLLOUT
	}
	if mask&Exceptional != 0 {
		events |= unix.POLLPRI
	}
	pfds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	if cancel >= 0 {
		pfds = append(pfds, unix.PollFd{Fd: int32(cancel), Events: unix.POLLIN})
	}

	n, err := pollRetry(pfds, timeout)
	if err != nil {
		return ioerr.Translate("poll", err)
	}
	if n == 0 {
		return ioerr.ErrTimeout
	}
	if cancel >= 0 && pfds[1].Revents&unix.POLLIN != 0 {
		// Signalled, we're closing.
		return ioerr.ErrBadHandle
	}
	if pfds[0].Revents&unix.POLLNVAL != 0 {
		return &ioerr.OSError{Op: "poll", Errno: unix.EBADF}
	}
	return nil
}

// pollRetry issues poll(2), retrying interrupted calls with whatever is left
// of the timeout.
func pollRetry(pfds []unix.PollFd, timeout time.Duration) (int, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		n, err := unix.Poll(pfds, millis(timeout))
		if err != unix.EINTR {
			return n, err
		}
		if timeout > 0 {
			timeout = time.Until(deadline)
			if timeout <= 0 {
				return 0, nil
			}
		}
	}
}

// millis converts a timeout into a poll(2) argument.
func millis(timeout time.Duration) int {
	switch {
	case timeout < 0:
		return -1
	case timeout == 0:
		return 0
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms > 1<<31-1 {
		return -1
	}
	return int(ms)
}
