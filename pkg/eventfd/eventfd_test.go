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

package eventfd

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestNotifyReset(t *testing.T) {
	ev, err := Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer ev.Close()

	if ev.Signalled() {
		t.Fatalf("new eventfd is signalled")
	}
	for i := 0; i < 3; i++ {
		if err := ev.Notify(); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}
	if !ev.Signalled() {
		t.Fatalf("Signalled() = false after Notify")
	}
	// Signalled must not consume.
	if !ev.Signalled() {
		t.Fatalf("Signalled() consumed the signal")
	}
	if err := ev.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if ev.Signalled() {
		t.Errorf("Signalled() = true after Reset")
	}
	// Resetting an idle object is fine.
	if err := ev.Reset(); err != nil {
		t.Errorf("Reset on idle object: %v", err)
	}
}

func TestWakesPoll(t *testing.T) {
	ev, err := Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer ev.Close()

	go func() {
		time.Sleep(20 * time.Millisecond)
		ev.Notify()
	}()

	fds := []unix.PollFd{{Fd: int32(ev.FD()), Events: unix.POLLIN}}
	for {
		n, err := unix.Poll(fds, 5000)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			t.Fatalf("Poll: %v", err)
		}
		if n != 1 {
			t.Fatalf("Poll returned %d, want 1", n)
		}
		break
	}
}
