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

package eventfd

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Create returns an initialized, unsignalled eventfd simulated with a pipe.
func Create() (Eventfd, error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return Eventfd{}, fmt.Errorf("failed to create pipe for eventfd simulation: %w", err)
	}
	for _, fd := range p {
		if err := setup(fd); err != nil {
			unix.Close(p[0])
			unix.Close(p[1])
			return Eventfd{}, err
		}
	}
	return Eventfd{fd: p[0], wfd: p[1]}, nil
}

func setup(fd int) error {
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		return err
	}
	return unix.SetNonblock(fd, true)
}
