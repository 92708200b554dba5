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

package poll

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"github.com/walteh/portio/pkg/ioerr"
)

// newPipe returns a pipe whose ends are closed at the end of the test.
func newPipe(t *testing.T) (r, w int) {
	t.Helper()
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		t.Fatalf("pipe: %v", err)
	}
	t.Cleanup(func() {
		unix.Close(p[0])
		unix.Close(p[1])
	})
	return p[0], p[1]
}

func TestPollDemux(t *testing.T) {
	r1, _ := newPipe(t)
	_, w2 := newPipe(t)
	r3, _ := newPipe(t)

	// Only the second descriptor is ready: an empty pipe's write end.
	entries := []Entry{
		{FD: r1, Events: Readable},
		{FD: w2, Events: Writable},
		{FD: r3, Events: Readable | Exceptional},
	}
	n, err := Poll(entries, 0)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 {
		t.Errorf("Poll returned %d ready, want 1", n)
	}
	got := []EventMask{entries[0].Revents, entries[1].Revents, entries[2].Revents}
	want := []EventMask{0, Writable, 0}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Revents mismatch (-want +got):\n%s", diff)
	}
}

func TestPollSameDescriptorTwoInterests(t *testing.T) {
	r, w := newPipe(t)
	if _, err := unix.Write(w, []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries := []Entry{
		{FD: r, Events: Readable},
		{FD: w, Events: Readable | Writable},
	}
	n, err := Poll(entries, time.Second)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 2 {
		t.Errorf("Poll returned %d ready, want 2", n)
	}
	if entries[0].Revents != Readable {
		t.Errorf("entries[0].Revents = %v, want readable", entries[0].Revents)
	}
	if entries[1].Revents != Writable {
		t.Errorf("entries[1].Revents = %v, want writable", entries[1].Revents)
	}
}

func TestPollTimeout(t *testing.T) {
	r, _ := newPipe(t)
	entries := []Entry{{FD: r, Events: Readable}}

	start := time.Now()
	n, err := Poll(entries, 30*time.Millisecond)
	if !errors.Is(err, ioerr.ErrTimeout) {
		t.Fatalf("Poll = %d, %v, want ErrTimeout", n, err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Poll returned after %v, want ~30ms", elapsed)
	}

	// Zero never blocks.
	start = time.Now()
	if _, err := Poll(entries, 0); !errors.Is(err, ioerr.ErrTimeout) {
		t.Fatalf("Poll(0) = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Poll(0) took %v", elapsed)
	}
}

func TestPollForever(t *testing.T) {
	r, w := newPipe(t)
	go func() {
		time.Sleep(20 * time.Millisecond)
		unix.Write(w, []byte("y"))
	}()
	entries := []Entry{{FD: r, Events: Readable}}
	if n, err := Poll(entries, -1); err != nil || n != 1 {
		t.Fatalf("Poll(-1) = %d, %v, want 1, nil", n, err)
	}
}

func TestPollHangupIsReadable(t *testing.T) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		t.Fatal(err)
	}
	defer unix.Close(p[0])
	unix.Close(p[1])

	if got := Ready(p[0], Readable); got != Readable {
		t.Errorf("Ready(hung up read end) = %v, want readable", got)
	}
}

func TestPollClosedDescriptor(t *testing.T) {
	r, w := newPipe(t)
	_ = w
	dup, err := unix.Dup(r)
	if err != nil {
		t.Fatal(err)
	}
	unix.Close(dup)

	_, err = Poll([]Entry{{FD: dup, Events: Readable}}, 0)
	if !errors.Is(err, ioerr.ErrBadHandle) {
		t.Errorf("Poll(closed fd) = %v, want ErrBadHandle", err)
	}
}

func TestPollNoInterests(t *testing.T) {
	r, _ := newPipe(t)
	for _, entries := range [][]Entry{nil, {{FD: r}}} {
		done := make(chan error, 1)
		go func() {
			_, err := Poll(entries, -1)
			done <- err
		}()
		select {
		case err := <-done:
			if !errors.Is(err, ioerr.ErrInvalidArgument) {
				t.Errorf("Poll(%v) = %v, want ErrInvalidArgument", entries, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("Poll(%v) with no interests blocked", entries)
		}
	}
}

func TestWait(t *testing.T) {
	r, w := newPipe(t)
	cr, cw := newPipe(t)

	if err := Wait(r, Readable, cr, 10*time.Millisecond); !errors.Is(err, ioerr.ErrTimeout) {
		t.Errorf("Wait(empty) = %v, want ErrTimeout", err)
	}

	unix.Write(w, []byte("z"))
	if err := Wait(r, Readable, cr, time.Second); err != nil {
		t.Errorf("Wait(ready) = %v, want nil", err)
	}

	var buf [1]byte
	unix.Read(r, buf[:])
	go func() {
		time.Sleep(10 * time.Millisecond)
		unix.Write(cw, []byte{1})
	}()
	if err := Wait(r, Readable, cr, -1); !errors.Is(err, ioerr.ErrBadHandle) {
		t.Errorf("Wait(cancelled) = %v, want ErrBadHandle", err)
	}

	if err := Wait(w, Writable, -1, 0); err != nil {
		t.Errorf("Wait(writable, no cancel) = %v, want nil", err)
	}
}

func TestMillis(t *testing.T) {
	for _, tc := range []struct {
		in   time.Duration
		want int
	}{
		{-time.Second, -1},
		{0, 0},
		{time.Microsecond, 1},
		{time.Millisecond, 1},
		{1500 * time.Microsecond, 2},
		{2 * time.Second, 2000},
	} {
		if got := millis(tc.in); got != tc.want {
			t.Errorf("millis(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestEventMaskString(t *testing.T) {
	if got, want := (Readable | Exceptional).String(), "readable|exceptional"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := EventMask(0).String(); got != "none" {
		t.Errorf("String() = %q, want none", got)
	}
}
