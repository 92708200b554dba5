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

package netio

import (
	"io"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"

	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/log"
	"github.com/walteh/portio/pkg/poll"
)

// Host calls, replaced in tests.
var (
	sendmsg        = unix.SendmsgN
	sendmsgBuffers = unix.SendmsgBuffers
)

// waiter tracks what is left of a socket timeout across retries.
type waiter struct {
	timeout  time.Duration
	deadline time.Time
}

func newWaiter(timeout time.Duration) waiter {
	w := waiter{timeout: timeout}
	if timeout > 0 {
		w.deadline = time.Now().Add(timeout)
	}
	return w
}

// wait blocks until fd is ready for mask or the socket starts closing.
//
// Precondition: s.mu is held for reading.
func (w waiter) wait(s *Socket, fd int, mask poll.EventMask) error {
	timeout := w.timeout
	if timeout > 0 {
		if timeout = time.Until(w.deadline); timeout <= 0 {
			return ioerr.ErrTimeout
		}
	}
	return poll.Wait(fd, mask, s.efd.FD(), timeout)
}

// Send sends up to SendChunk bytes of p and returns the count sent. It
// waits for the socket to become writable while the host would block, up
// to the socket timeout.
func (s *Socket) Send(p []byte) (int, error) {
	fd, ok := s.enterFD()
	if !ok {
		return 0, ioerr.ErrBadHandle
	}
	defer s.mu.RUnlock()

	if len(p) > s.sendChunk {
		p = p[:s.sendChunk]
	}
	w := newWaiter(s.Timeout())
	for {
		// Try a non-blocking send first, so we don't give up the go
		// runtime M.
		n, err := sendmsg(fd, p, nil, nil, sendFlags|unix.MSG_DONTWAIT)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return 0, ioerr.Translate("sendmsg", err)
		}
		if err := w.wait(s, fd, poll.Writable); err != nil {
			return 0, err
		}
	}
}

// Recv receives into p. A zero-byte receive is io.EOF.
//
// The socket is switched to non-blocking mode on first use. With a zero
// timeout Recv makes exactly one attempt and returns the host's would-block
// error (matching ioerr.ErrWouldBlock) if no data is ready.
func (s *Socket) Recv(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	fd, ok := s.enterFD()
	if !ok {
		return 0, ioerr.ErrBadHandle
	}
	defer s.mu.RUnlock()

	if !s.nonblocking.Load() {
		if err := unix.SetNonblock(fd, true); err != nil {
			return 0, ioerr.Translate("fcntl", err)
		}
		s.nonblocking.Store(true)
	}
	timeout := s.Timeout()
	w := newWaiter(timeout)
	for {
		n, err := unix.Read(fd, p)
		if err == nil {
			if n == 0 {
				return 0, io.EOF
			}
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return 0, ioerr.Translate("recv", err)
		}
		if timeout == 0 {
			return 0, ioerr.Translate("recv", err)
		}
		if err := w.wait(s, fd, poll.Readable); err != nil {
			return 0, err
		}
	}
}

// Sendv sends the leading buffers of bufs whose total stays within
// SendChunk, as one scatter write. If the first buffer alone exceeds the
// chunk it is truncated. Transient ENOBUFS failures are retried
// NoBufsRetries times, NoBufsDelay apart, before failing with
// ioerr.ErrTimeout.
func (s *Socket) Sendv(bufs [][]byte) (int, error) {
	batch := s.batch(bufs)
	if len(batch) == 0 {
		return 0, nil
	}
	fd, ok := s.enterFD()
	if !ok {
		return 0, ioerr.ErrBadHandle
	}
	defer s.mu.RUnlock()

	var (
		sent     int
		attempts int
	)
	w := newWaiter(s.Timeout())
	// WithMaxRetries treats zero as unlimited.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if s.noBufsRetries > 0 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(s.noBufsDelay), uint64(s.noBufsRetries))
	}
	err := backoff.Retry(func() error {
		attempts++
		n, err := s.sendvOnce(fd, batch, w)
		if err == nil {
			sent = n
			return nil
		}
		if ioerr.IsResourceExhausted(err) {
			log.Debugf("sendmsg: %v, attempt %d", err, attempts)
			return err
		}
		return backoff.Permanent(err)
	}, b)
	if err != nil {
		if ioerr.IsResourceExhausted(err) {
			return 0, ioerr.ErrTimeout
		}
		return 0, err
	}
	return sent, nil
}

// Precondition: s.mu is held for reading.
func (s *Socket) sendvOnce(fd int, batch [][]byte, w waiter) (int, error) {
	for {
		n, err := sendmsgBuffers(fd, batch, nil, nil, sendFlags|unix.MSG_DONTWAIT)
		if err == nil {
			return n, nil
		}
		if err == unix.EINTR {
			continue
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return 0, ioerr.Translate("sendmsg", err)
		}
		if err := w.wait(s, fd, poll.Writable); err != nil {
			return 0, err
		}
	}
}

// batch returns the leading non-empty buffers of bufs that fit in one send.
func (s *Socket) batch(bufs [][]byte) [][]byte {
	var (
		out   [][]byte
		total int
	)
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		if total+len(b) > s.sendChunk {
			if len(out) == 0 {
				out = append(out, b[:s.sendChunk])
			}
			break
		}
		out = append(out, b)
		total += len(b)
	}
	return out
}

// Read implements io.Reader with Recv.
func (s *Socket) Read(p []byte) (int, error) {
	return s.Recv(p)
}

// Write implements io.Writer, calling Send until p is written.
func (s *Socket) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		m, err := s.Send(p[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
