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

package ioerr

import (
	"errors"
	"fmt"
	"io"
	"syscall"
	"testing"
)

func TestTranslateErrno(t *testing.T) {
	for _, tc := range []struct {
		errno syscall.Errno
		class error
	}{
		{syscall.EAGAIN, ErrWouldBlock},
		{syscall.EBADF, ErrBadHandle},
		{syscall.ENOSYS, ErrNotImplemented},
		{syscall.ENOBUFS, ErrResourceExhausted},
		{syscall.ETIMEDOUT, ErrTimeout},
	} {
		err := Translate("read", tc.errno)
		var oe *OSError
		if !errors.As(err, &oe) {
			t.Fatalf("Translate(%v) = %T, want *OSError", tc.errno, err)
		}
		if !errors.Is(err, tc.class) {
			t.Errorf("errors.Is(%v, %v) = false, want true", err, tc.class)
		}
		if !errors.Is(err, tc.errno) {
			t.Errorf("errors.Is(%v, %v) = false, want true", err, tc.errno)
		}
	}
}

func TestTranslateOnce(t *testing.T) {
	first := TranslatePath("open", "/tmp/x", syscall.ENOENT)
	second := Translate("close", first)
	if second != first {
		t.Errorf("Translate wrapped an already translated error: %v", second)
	}
	if !IsNotExist(second) {
		t.Errorf("IsNotExist(%v) = false, want true", second)
	}
	if got, want := first.Error(), "open /tmp/x: no such file or directory"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestTranslatePassesSentinels(t *testing.T) {
	for _, err := range []error{nil, ErrTimeout, ErrBadHandle, ErrIncompleteInfo} {
		if got := Translate("op", err); got != err {
			t.Errorf("Translate(%v) = %v, want unchanged", err, got)
		}
	}
}

func TestTranslateForeign(t *testing.T) {
	err := Translate("copy", io.ErrShortWrite)
	if !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("Translate lost the cause: %v", err)
	}
	if got, want := err.Error(), fmt.Sprintf("copy: %v", io.ErrShortWrite); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestClassifiers(t *testing.T) {
	if !IsInterrupted(fmt.Errorf("wrapped: %w", syscall.EINTR)) {
		t.Errorf("IsInterrupted(EINTR) = false")
	}
	if !IsWouldBlock(syscall.EAGAIN) {
		t.Errorf("IsWouldBlock(EAGAIN) = false")
	}
	if IsWouldBlock(syscall.EPIPE) {
		t.Errorf("IsWouldBlock(EPIPE) = true")
	}
	if !IsResourceExhausted(Translate("writev", syscall.ENOBUFS)) {
		t.Errorf("IsResourceExhausted(ENOBUFS) = false")
	}
}
