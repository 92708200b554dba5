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

//go:build !linux && !darwin

package rawfile

import (
	"os"
	"time"

	"github.com/walteh/portio/pkg/ioerr"
)

// Host is the Ops implementation for platforms without host support. Every
// operation fails with ioerr.ErrNotImplemented.
type Host struct{}

var _ Ops = Host{}

func (Host) Open(string, OpenFlags, os.FileMode) (int, error) { return -1, ioerr.ErrNotImplemented }
func (Host) Close(int) error                                  { return ioerr.ErrNotImplemented }
func (Host) Read(int, []byte) (int, error)                    { return 0, ioerr.ErrNotImplemented }
func (Host) Write(int, []byte) (int, error)                   { return 0, ioerr.ErrNotImplemented }
func (Host) Writev(int, [][]byte) (int, error)                { return 0, ioerr.ErrNotImplemented }
func (Host) Seek(int, int64, int) (int64, error)              { return -1, ioerr.ErrNotImplemented }
func (Host) Truncate(int, int64) error                        { return ioerr.ErrNotImplemented }
func (Host) Sync(int) error                                   { return ioerr.ErrNotImplemented }
func (Host) Datasync(int) error                               { return ioerr.ErrNotImplemented }
func (Host) Stat(int) (FileInfo, error)                       { return FileInfo{}, ioerr.ErrNotImplemented }
func (Host) Pipe() (int, int, error)                          { return -1, -1, ioerr.ErrNotImplemented }
func (Host) SetNonblock(int, bool) error                      { return ioerr.ErrNotImplemented }
func (Host) SetInherit(int, bool) error                       { return ioerr.ErrNotImplemented }
func (Host) Mkfifo(string, os.FileMode) error                 { return ioerr.ErrNotImplemented }
func (Host) Remove(string) error                              { return ioerr.ErrNotImplemented }
func (Host) NewRangeLock(int, string) (RangeLock, error)      { return nil, ioerr.ErrNotImplemented }
func (Host) NewEvent() (Event, error)                         { return nil, ioerr.ErrNotImplemented }
func (Host) WaitReadable(int, int, time.Duration) error       { return ioerr.ErrNotImplemented }
func (Host) WaitWritable(int, int, time.Duration) error       { return ioerr.ErrNotImplemented }
func (Host) IsTerminal(int) bool                              { return false }
