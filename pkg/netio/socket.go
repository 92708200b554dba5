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

// Package netio provides stream sockets with timeout-bounded send and
// receive.
//
// Every call first tries the host operation without blocking. If the socket
// is not ready it waits, together with a close signal, for up to the socket
// timeout and tries again. A negative timeout waits forever. Close wakes all
// waiters, which then fail with ioerr.ErrBadHandle.
package netio

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/walteh/portio/pkg/eventfd"
	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/log"
)

// Defaults for Options.
const (
	DefaultSendChunk     = 64 << 10
	DefaultNoBufsRetries = 10
	DefaultNoBufsDelay   = 100 * time.Millisecond
)

// Options configure a Socket.
type Options struct {
	// Timeout bounds each readiness wait. Zero never waits; negative waits
	// forever.
	Timeout time.Duration

	// SendChunk caps the bytes passed to the host in one send.
	SendChunk int

	// NoBufsRetries and NoBufsDelay bound the retries of Sendv when the
	// host reports ENOBUFS.
	NoBufsRetries int
	NoBufsDelay   time.Duration
}

// DefaultOptions returns blocking options with the default limits.
func DefaultOptions() Options {
	return Options{
		Timeout:       -1,
		SendChunk:     DefaultSendChunk,
		NoBufsRetries: DefaultNoBufsRetries,
		NoBufsDelay:   DefaultNoBufsDelay,
	}
}

// Option modifies Options.
type Option func(*Options)

// WithOptions replaces all options.
func WithOptions(o Options) Option {
	return func(opts *Options) {
		*opts = o
	}
}

// WithTimeout sets Options.Timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithSendChunk sets Options.SendChunk.
func WithSendChunk(n int) Option {
	return func(o *Options) {
		o.SendChunk = n
	}
}

// WithNoBufsRetry sets the ENOBUFS retry policy of Sendv.
func WithNoBufsRetry(retries int, delay time.Duration) Option {
	return func(o *Options) {
		o.NoBufsRetries = retries
		o.NoBufsDelay = delay
	}
}

// Socket is a connected stream socket.
type Socket struct {
	// fd is the host descriptor, or -1 once closing has started.
	fd atomic.Int32

	// efd is notified when the socket starts closing.
	efd eventfd.Eventfd

	// mu is held for reading by every operation that uses fd, and for
	// writing by Close while it releases fd.
	mu sync.RWMutex

	timeout     atomic.Int64
	nonblocking atomic.Bool

	sendChunk     int
	noBufsRetries int
	noBufsDelay   time.Duration
}

// NewSocket takes ownership of fd.
func NewSocket(fd int, opts ...Option) (*Socket, error) {
	if fd < 0 {
		return nil, ioerr.ErrBadHandle
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.SendChunk <= 0 {
		o.SendChunk = DefaultSendChunk
	}
	if o.NoBufsRetries < 0 {
		o.NoBufsRetries = 0
	}
	if err := setupSocket(fd); err != nil {
		return nil, ioerr.Translate("setsockopt", err)
	}
	efd, err := eventfd.Create()
	if err != nil {
		return nil, err
	}
	s := &Socket{
		efd:           efd,
		sendChunk:     o.SendChunk,
		noBufsRetries: o.NoBufsRetries,
		noBufsDelay:   o.NoBufsDelay,
	}
	s.fd.Store(int32(fd))
	s.timeout.Store(int64(o.Timeout))
	return s, nil
}

// SocketPair returns a connected pair of unix stream sockets.
func SocketPair(opts ...Option) (*Socket, *Socket, error) {
	fds, err := socketPair()
	if err != nil {
		return nil, nil, ioerr.Translate("socketpair", err)
	}
	a, err := NewSocket(fds[0], opts...)
	if err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, nil, err
	}
	b, err := NewSocket(fds[1], opts...)
	if err != nil {
		a.Close()
		unix.Close(fds[1])
		return nil, nil, err
	}
	return a, b, nil
}

// FromConn returns a Socket on a duplicate of c's descriptor. c stays open
// and remains the caller's to close.
func FromConn(c net.Conn, opts ...Option) (*Socket, error) {
	sc, ok := c.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("%T has no descriptor: %w", c, ioerr.ErrNotImplemented)
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return nil, err
	}
	var (
		nfd  int
		derr error
	)
	if err := rc.Control(func(fd uintptr) {
		nfd, derr = dupCloexec(int(fd))
	}); err != nil {
		return nil, err
	}
	if derr != nil {
		return nil, ioerr.Translate("dup", derr)
	}
	s, err := NewSocket(nfd, opts...)
	if err != nil {
		unix.Close(nfd)
		return nil, err
	}
	return s, nil
}

func dupCloexec(fd int) (int, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return -1, err
	}
	if _, err := unix.FcntlInt(uintptr(nfd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

// FD returns the host descriptor, or -1 once the socket is closed.
func (s *Socket) FD() int {
	return int(s.fd.Load())
}

// SetTimeout sets the wait bound for later calls.
func (s *Socket) SetTimeout(d time.Duration) {
	s.timeout.Store(int64(d))
}

// Timeout returns the wait bound.
func (s *Socket) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// enterFD returns the descriptor and holds s.mu for reading. The caller must
// call s.mu.RUnlock when ok is true.
func (s *Socket) enterFD() (int, bool) {
	s.mu.RLock()
	fd := s.fd.Load()
	if fd < 0 {
		s.mu.RUnlock()
		return -1, false
	}
	return int(fd), true
}

// Close shuts the socket and wakes every waiter.
func (s *Socket) Close() error {
	fd := s.fd.Swap(-1)
	if fd < 0 {
		return ioerr.ErrBadHandle
	}
	if err := s.efd.Notify(); err != nil {
		log.Warningf("socket %d: waking waiters on close failed: %v", fd, err)
	}

	// Wait for in-flight operations to leave.
	s.mu.Lock()
	defer s.mu.Unlock()
	err := unix.Close(int(fd))
	s.efd.Close()
	return ioerr.Translate("close", err)
}
