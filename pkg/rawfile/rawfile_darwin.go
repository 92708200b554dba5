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

//go:build darwin

package rawfile

import (
	"time"

	"golang.org/x/sys/unix"
)

// MaxReadWriteIov is the maximum number of buffers passed to writev(2).
const MaxReadWriteIov = 1024 // IOV_MAX

// writev coalesces bufs into a single write(2); x/sys/unix has no writev on
// this platform.
func writev(fd int, bufs [][]byte) (int, error) {
	total := 0
	for _, b := range bufs {
		total += len(b)
	}
	if total == 0 {
		return 0, nil
	}
	if len(bufs) == 1 {
		return unix.Write(fd, bufs[0])
	}
	buf := make([]byte, 0, total)
	for _, b := range bufs {
		buf = append(buf, b...)
	}
	return unix.Write(fd, buf)
}

// fdatasync falls back to fsync(2); the platform has no data-only variant.
func fdatasync(fd int) error {
	return unix.Fsync(fd)
}

func pipe(p []int) error {
	if err := unix.Pipe(p); err != nil {
		return err
	}
	for _, fd := range p {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return err
		}
	}
	return nil
}

func statTimes(st *unix.Stat_t) (atime, mtime, ctime time.Time) {
	return time.Unix(st.Atimespec.Unix()), time.Unix(st.Mtimespec.Unix()), time.Unix(st.Ctimespec.Unix())
}

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	return err == nil
}
