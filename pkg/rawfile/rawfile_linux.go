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

//go:build linux

package rawfile

import (
	"time"

	"golang.org/x/sys/unix"
)

// MaxReadWriteIov is the maximum number of buffers passed to writev(2).
const MaxReadWriteIov = 1024 // UIO_MAXIOV

func writev(fd int, bufs [][]byte) (int, error) {
	return unix.Writev(fd, bufs)
}

func fdatasync(fd int) error {
	return unix.Fdatasync(fd)
}

func pipe(p []int) error {
	return unix.Pipe2(p, unix.O_CLOEXEC)
}

func statTimes(st *unix.Stat_t) (atime, mtime, ctime time.Time) {
	return time.Unix(st.Atim.Unix()), time.Unix(st.Mtim.Unix()), time.Unix(st.Ctim.Unix())
}

func isTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	return err == nil
}
