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

// Package ioerr defines the error taxonomy shared by the file, pipe, poll and
// socket layers.
//
// End of stream is reported as io.EOF. Host failures are translated exactly
// once into an *OSError, which keeps the native errno and answers errors.Is
// for both the errno and the class sentinels below.
package ioerr

import (
	"errors"
	"fmt"
	"syscall"
)

var (
	// ErrBadHandle is returned for operations on a closed or invalid handle.
	ErrBadHandle = errors.New("bad handle")

	// ErrTimeout is returned when a readiness wait expires.
	ErrTimeout = errors.New("operation timed out")

	// ErrIncompleteInfo is returned when a metadata query satisfied only a
	// subset of the requested fields. The partial result is still returned.
	ErrIncompleteInfo = errors.New("incomplete file information")

	// ErrNotImplemented is returned for operations the host cannot perform.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidArgument is returned for arguments rejected before any host
	// call is made.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrWouldBlock matches host "try again" failures. It never escapes the
	// retry loops of this module on its own; callers see ErrTimeout instead,
	// except for zero-timeout socket receives.
	ErrWouldBlock = errors.New("operation would block")

	// ErrResourceExhausted matches transient host resource exhaustion
	// (ENOBUFS, ENOMEM).
	ErrResourceExhausted = errors.New("resource temporarily exhausted")
)

// OSError is a translated host failure.
type OSError struct {
	// Op is the operation that failed, e.g. "read" or "sendmsg".
	Op string

	// Path is the file name involved, if any.
	Path string

	// Errno is the native error number.
	Errno syscall.Errno
}

// Error implements error.Error.
func (e *OSError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Errno)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Errno)
}

// Unwrap returns the native errno.
func (e *OSError) Unwrap() error { return e.Errno }

// Is reports whether target is the class sentinel for e's errno.
func (e *OSError) Is(target error) bool {
	switch target {
	case ErrWouldBlock:
		return e.Errno == syscall.EAGAIN || e.Errno == syscall.EWOULDBLOCK
	case ErrBadHandle:
		return e.Errno == syscall.EBADF
	case ErrNotImplemented:
		return e.Errno == syscall.ENOSYS || e.Errno == syscall.EOPNOTSUPP
	case ErrResourceExhausted:
		return e.Errno == syscall.ENOBUFS || e.Errno == syscall.ENOMEM
	case ErrTimeout:
		return e.Errno == syscall.ETIMEDOUT
	}
	return false
}

// Translate converts err into the taxonomy of this package. Errors already
// translated, and the sentinels above, are returned unchanged so that a
// failure is never wrapped twice.
func Translate(op string, err error) error {
	return TranslatePath(op, "", err)
}

// TranslatePath is Translate with a file name attached.
func TranslatePath(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var oe *OSError
	if errors.As(err, &oe) {
		return err
	}
	if isSentinel(err) {
		return err
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &OSError{Op: op, Path: path, Errno: errno}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isSentinel(err error) bool {
	switch err {
	case ErrBadHandle, ErrTimeout, ErrIncompleteInfo, ErrNotImplemented,
		ErrInvalidArgument, ErrWouldBlock, ErrResourceExhausted:
		return true
	}
	return false
}

// IsInterrupted reports whether err is a host interrupt (EINTR).
func IsInterrupted(err error) bool {
	return errors.Is(err, syscall.EINTR)
}

// IsWouldBlock reports whether err is a host "try again" failure.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}

// IsResourceExhausted reports whether err is transient resource exhaustion.
func IsResourceExhausted(err error) bool {
	return errors.Is(err, ErrResourceExhausted) || errors.Is(err, syscall.ENOBUFS) || errors.Is(err, syscall.ENOMEM)
}

// IsNotExist reports whether err says the named file is already gone.
func IsNotExist(err error) bool {
	return errors.Is(err, syscall.ENOENT)
}
