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

package fileio

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/rawfile"
)

func mustPipe(t *testing.T, mode PipeMode) (*File, *File) {
	t.Helper()
	r, w, err := Pipe(mode)
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestPipeZeroTimeout(t *testing.T) {
	r, _ := mustPipe(t, NoBlock)
	if d, err := r.PipeTimeout(); err != nil || d != 0 {
		t.Fatalf("PipeTimeout = %v, %v, want 0", d, err)
	}

	start := time.Now()
	n, err := r.Read(make([]byte, 16))
	if !errors.Is(err, ioerr.ErrTimeout) {
		t.Fatalf("Read = %d, %v, want ErrTimeout", n, err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero-timeout read took %v", elapsed)
	}
}

func TestPipeTimeoutExpires(t *testing.T) {
	r, w := mustPipe(t, FullBlock)
	if err := r.SetPipeTimeout(30 * time.Millisecond); err != nil {
		t.Fatalf("SetPipeTimeout: %v", err)
	}
	start := time.Now()
	if _, err := r.Read(make([]byte, 1)); !errors.Is(err, ioerr.ErrTimeout) {
		t.Fatalf("Read = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Read returned after %v, before the timeout", elapsed)
	}

	// Data arriving during the wait is delivered.
	go func() {
		time.Sleep(10 * time.Millisecond)
		w.Write([]byte("late"))
	}()
	r.SetPipeTimeout(5 * time.Second)
	buf := make([]byte, 8)
	n, err := r.Read(buf)
	if err != nil || string(buf[:n]) != "late" {
		t.Errorf("Read = %q, %v, want \"late\"", buf[:n], err)
	}
}

func TestPipeEndOfStream(t *testing.T) {
	r, w := mustPipe(t, FullBlock)
	if _, err := w.Write([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 8)
	if n, err := r.Read(buf); err != nil || string(buf[:n]) != "hi" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}
	for i := 0; i < 2; i++ {
		if n, err := r.Read(buf); n != 0 || err != io.EOF {
			t.Errorf("Read #%d at end = %d, %v, want 0, EOF", i, n, err)
		}
	}
	if !r.EOF() {
		t.Errorf("EOF() = false")
	}
}

func TestPipeEndOfStreamNonBlocking(t *testing.T) {
	r, w := mustPipe(t, NoBlock)
	w.Close()
	for i := 0; i < 2; i++ {
		if n, err := r.Read(make([]byte, 4)); n != 0 || err != io.EOF {
			t.Errorf("Read #%d = %d, %v, want 0, EOF", i, n, err)
		}
	}
}

func TestPipeCloseWakesReader(t *testing.T) {
	r, _ := mustPipe(t, FullBlock)
	if err := r.SetPipeTimeout(10 * time.Second); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() {
		_, err := r.Read(make([]byte, 1))
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	r.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ioerr.ErrBadHandle) {
			t.Errorf("blocked Read = %v, want ErrBadHandle", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Close did not wake the reader")
	}
}

func TestBufferedPipeCloseWakesReader(t *testing.T) {
	for _, timeout := range []time.Duration{10 * time.Second, -1} {
		rfd, wfd, err := rawfile.Host{}.Pipe()
		if err != nil {
			t.Fatal(err)
		}
		w, err := NewPipe(wfd, "w", Write)
		if err != nil {
			t.Fatal(err)
		}
		defer w.Close()
		r, err := NewPipe(rfd, "r", Read|Buffered)
		if err != nil {
			t.Fatal(err)
		}
		if err := r.SetPipeTimeout(timeout); err != nil {
			t.Fatal(err)
		}

		done := make(chan error, 1)
		go func() {
			_, err := r.Read(make([]byte, 1))
			done <- err
		}()
		time.Sleep(20 * time.Millisecond)

		closed := make(chan error, 1)
		go func() { closed <- r.Close() }()
		select {
		case err := <-closed:
			if err != nil {
				t.Errorf("timeout %v: Close = %v", timeout, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout %v: Close blocked behind the reader", timeout)
		}
		select {
		case err := <-done:
			if !errors.Is(err, ioerr.ErrBadHandle) {
				t.Errorf("timeout %v: blocked Read = %v, want ErrBadHandle", timeout, err)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout %v: Close did not wake the reader", timeout)
		}
		if err := r.Close(); !errors.Is(err, ioerr.ErrBadHandle) {
			t.Errorf("timeout %v: second Close = %v, want ErrBadHandle", timeout, err)
		}
	}
}

func TestSetPipeTimeoutDuringRead(t *testing.T) {
	rfd, wfd, err := rawfile.Host{}.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewPipe(rfd, "r", Read|Buffered)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	w, err := NewPipe(wfd, "w", Write)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := r.SetPipeTimeout(time.Millisecond); err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 8)
		for {
			select {
			case <-stop:
				return
			default:
			}
			r.Read(buf)
		}
	}()
	for i := 0; i < 50; i++ {
		if err := r.SetPipeTimeout(time.Duration(i%3) * time.Millisecond); err != nil {
			t.Fatalf("SetPipeTimeout: %v", err)
		}
		if _, err := r.PipeTimeout(); err != nil {
			t.Fatalf("PipeTimeout: %v", err)
		}
	}
	close(stop)
	<-done
}

func TestPipeWriteTimeout(t *testing.T) {
	_, w := mustPipe(t, NoBlock)
	chunk := make([]byte, 64<<10)
	var err error
	for i := 0; i < 64 && err == nil; i++ {
		_, err = w.Write(chunk)
		if err == io.ErrShortWrite {
			err = nil
		}
	}
	if !errors.Is(err, ioerr.ErrTimeout) {
		t.Errorf("Write to full pipe = %v, want ErrTimeout", err)
	}
}

func TestCheckRead(t *testing.T) {
	r, w := mustPipe(t, FullBlock)
	if err := r.CheckRead(); !errors.Is(err, ioerr.ErrTimeout) {
		t.Errorf("CheckRead(empty) = %v, want ErrTimeout", err)
	}
	w.Write([]byte("x"))
	if err := r.CheckRead(); err != nil {
		t.Errorf("CheckRead(ready) = %v", err)
	}
	if err := w.CheckRead(); !errors.Is(err, ioerr.ErrInvalidArgument) {
		t.Errorf("CheckRead(write end) = %v, want ErrInvalidArgument", err)
	}
}

func TestPipeModes(t *testing.T) {
	for _, tc := range []struct {
		mode     PipeMode
		rTO, wTO time.Duration
	}{
		{FullBlock, -1, -1},
		{ReadBlock, -1, 0},
		{WriteBlock, 0, -1},
		{NoBlock, 0, 0},
	} {
		r, w := mustPipe(t, tc.mode)
		if d, _ := r.PipeTimeout(); d != tc.rTO {
			t.Errorf("mode %d: read timeout = %v, want %v", tc.mode, d, tc.rTO)
		}
		if d, _ := w.PipeTimeout(); d != tc.wTO {
			t.Errorf("mode %d: write timeout = %v, want %v", tc.mode, d, tc.wTO)
		}
	}
}

func TestPipeTimeoutOnFile(t *testing.T) {
	f := mustOpen(t, tempPath(t), Write|Create)
	if err := f.SetPipeTimeout(time.Second); !errors.Is(err, ioerr.ErrInvalidArgument) {
		t.Errorf("SetPipeTimeout(file) = %v, want ErrInvalidArgument", err)
	}
	if _, err := f.PipeTimeout(); !errors.Is(err, ioerr.ErrInvalidArgument) {
		t.Errorf("PipeTimeout(file) = %v, want ErrInvalidArgument", err)
	}
	if err := f.CheckRead(); !errors.Is(err, ioerr.ErrInvalidArgument) {
		t.Errorf("CheckRead(file) = %v, want ErrInvalidArgument", err)
	}
}

func TestNewPipe(t *testing.T) {
	rfd, wfd, err := rawfile.Host{}.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	r, err := NewPipe(rfd, "in", Read|Buffered)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	w, err := NewPipe(wfd, "out", Write)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewPipe(wfd, "both", Read|Write); !errors.Is(err, ioerr.ErrInvalidArgument) {
		t.Errorf("NewPipe(Read|Write) = %v, want ErrInvalidArgument", err)
	}
	if d, _ := r.PipeTimeout(); d >= 0 {
		t.Errorf("wrapped pipe timeout = %v, want negative", d)
	}

	w.Puts("line one\nline two\n")
	w.Close()
	buf := make([]byte, 32)
	n, err := r.Gets(buf)
	if err != nil || string(buf[:n]) != "line one\n" {
		t.Errorf("Gets = %q, %v", buf[:n], err)
	}
	rest, err := io.ReadAll(r)
	if err != nil || string(rest) != "line two\n" {
		t.Errorf("ReadAll = %q, %v", rest, err)
	}
}

func TestNamedPipe(t *testing.T) {
	dir := t.TempDir()
	path := TempPipeName(dir)
	if !strings.HasPrefix(path, dir) {
		t.Errorf("TempPipeName(%q) = %q", dir, path)
	}
	if other := TempPipeName(dir); other == path {
		t.Errorf("TempPipeName returned %q twice", path)
	}
	if err := NamedPipe(path, 0o600); err != nil {
		t.Fatalf("NamedPipe: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode()&os.ModeNamedPipe == 0 {
		t.Errorf("mode = %v, want named pipe", st.Mode())
	}
}
