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

package rawfile

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"github.com/walteh/portio/pkg/eventfd"
	"github.com/walteh/portio/pkg/fd"
	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/poll"
)

// Host is the Ops implementation backed by the running kernel.
type Host struct{}

var _ Ops = Host{}

// Open implements Ops.Open.
func (Host) Open(path string, flags OpenFlags, perm os.FileMode) (int, error) {
	var mode int
	switch {
	case flags&OpenRead != 0 && flags&OpenWrite != 0:
		mode = unix.O_RDWR
	case flags&OpenWrite != 0:
		mode = unix.O_WRONLY
	default:
		mode = unix.O_RDONLY
	}
	if flags&OpenCreate != 0 {
		mode |= unix.O_CREAT
	}
	if flags&OpenExcl != 0 {
		mode |= unix.O_EXCL
	}
	if flags&OpenTruncate != 0 {
		mode |= unix.O_TRUNC
	}
	f, err := fd.Open(path, mode, uint32(perm.Perm()))
	if err != nil {
		return -1, ioerr.TranslatePath("open", path, err)
	}
	return f.Release(), nil
}

// Close implements Ops.Close. An interrupted close is not retried; the
// descriptor is gone either way.
func (Host) Close(fd int) error {
	if err := unix.Close(fd); err != nil && err != unix.EINTR {
		return ioerr.Translate("close", err)
	}
	return nil
}

// Read implements Ops.Read.
func (Host) Read(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Read(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, ioerr.Translate("read", err)
		}
		return n, nil
	}
}

// Write implements Ops.Write.
func (Host) Write(fd int, p []byte) (int, error) {
	for {
		n, err := unix.Write(fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, ioerr.Translate("write", err)
		}
		return n, nil
	}
}

// Writev implements Ops.Writev. At most MaxReadWriteIov buffers are passed to
// the host in one call; the count written may therefore be short.
func (Host) Writev(fd int, bufs [][]byte) (int, error) {
	if len(bufs) > MaxReadWriteIov {
		bufs = bufs[:MaxReadWriteIov]
	}
	for {
		n, err := writev(fd, bufs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, ioerr.Translate("writev", err)
		}
		return n, nil
	}
}

// Seek implements Ops.Seek.
func (Host) Seek(fd int, offset int64, whence int) (int64, error) {
	off, err := unix.Seek(fd, offset, whence)
	if err != nil {
		return -1, ioerr.Translate("lseek", err)
	}
	return off, nil
}

// Truncate implements Ops.Truncate.
func (Host) Truncate(fd int, length int64) error {
	for {
		err := unix.Ftruncate(fd, length)
		if err == unix.EINTR {
			continue
		}
		return ioerr.Translate("ftruncate", err)
	}
}

// Sync implements Ops.Sync.
func (Host) Sync(fd int) error {
	for {
		err := unix.Fsync(fd)
		if err == unix.EINTR {
			continue
		}
		return ioerr.Translate("fsync", err)
	}
}

// Datasync implements Ops.Datasync.
func (Host) Datasync(fd int) error {
	for {
		err := fdatasync(fd)
		if err == unix.EINTR {
			continue
		}
		return ioerr.Translate("fdatasync", err)
	}
}

// Stat implements Ops.Stat.
func (Host) Stat(fd int) (FileInfo, error) {
	var st unix.Stat_t
	for {
		err := unix.Fstat(fd, &st)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return FileInfo{}, ioerr.Translate("fstat", err)
		}
		break
	}
	atime, mtime, ctime := statTimes(&st)
	mode := uint32(st.Mode)
	fi := FileInfo{
		Type:  fileType(mode),
		Size:  st.Size,
		Mode:  os.FileMode(mode & 0o777),
		Atime: atime,
		Mtime: mtime,
		Ctime: ctime,
		Valid: InfoAll,
	}
	if fi.Type == TypeUnknown {
		fi.Valid &^= InfoType
	}
	return fi, nil
}

func fileType(mode uint32) FileType {
	switch mode & unix.S_IFMT {
	case unix.S_IFREG:
		return TypeRegular
	case unix.S_IFDIR:
		return TypeDirectory
	case unix.S_IFCHR:
		return TypeCharDevice
	case unix.S_IFBLK:
		return TypeBlockDevice
	case unix.S_IFIFO:
		return TypePipe
	case unix.S_IFLNK:
		return TypeSymlink
	case unix.S_IFSOCK:
		return TypeSocket
	default:
		return TypeUnknown
	}
}

// Pipe implements Ops.Pipe.
func (Host) Pipe() (int, int, error) {
	var p [2]int
	if err := pipe(p[:]); err != nil {
		return -1, -1, ioerr.Translate("pipe", err)
	}
	return p[0], p[1], nil
}

// SetNonblock implements Ops.SetNonblock.
func (Host) SetNonblock(fd int, nonblocking bool) error {
	return ioerr.Translate("fcntl", unix.SetNonblock(fd, nonblocking))
}

// SetInherit implements Ops.SetInherit.
func (Host) SetInherit(fd int, inherit bool) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		return ioerr.Translate("fcntl", err)
	}
	if inherit {
		flags &^= unix.FD_CLOEXEC
	} else {
		flags |= unix.FD_CLOEXEC
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags)
	return ioerr.Translate("fcntl", err)
}

// Mkfifo implements Ops.Mkfifo.
func (Host) Mkfifo(path string, perm os.FileMode) error {
	return ioerr.TranslatePath("mkfifo", path, unix.Mkfifo(path, uint32(perm.Perm())))
}

// Remove implements Ops.Remove.
func (Host) Remove(path string) error {
	return ioerr.TranslatePath("unlink", path, unix.Unlink(path))
}

// NewRangeLock implements Ops.NewRangeLock.
//
// Named files are locked with flock(2) through a descriptor of their own, so
// that every RangeLock is a separate open file description. The name is only
// trusted while it still refers to the file behind fd; once the file is
// removed, renamed or replaced, the lock falls back to fd itself. Both forms
// lock the same inode, so handles using either exclude each other.
func (Host) NewRangeLock(fd int, path string) (RangeLock, error) {
	if path == "" {
		return &fdLock{fd: fd}, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ioerr.TranslatePath("abs", path, err)
	}
	return &fileLock{fl: flock.New(abs), fd: fdLock{fd: fd}}, nil
}

type fileLock struct {
	fl *flock.Flock
	fd fdLock

	// viaFD is set while the lock is held through fd.
	viaFD bool
}

func (l *fileLock) Lock() error {
	if l.sameFile() {
		if err := l.fl.Lock(); err != nil {
			return ioerr.TranslatePath("flock", l.fl.Path(), err)
		}
		if l.sameFile() {
			l.viaFD = false
			return nil
		}
		// Replaced between the check and the lock.
		l.fl.Unlock()
	}
	if err := l.fd.Lock(); err != nil {
		return err
	}
	l.viaFD = true
	return nil
}

func (l *fileLock) Unlock() error {
	if l.viaFD {
		return l.fd.Unlock()
	}
	return ioerr.TranslatePath("flock", l.fl.Path(), l.fl.Unlock())
}

// sameFile reports whether the lock path names the file open on fd. It never
// creates the path.
func (l *fileLock) sameFile() bool {
	var open, named unix.Stat_t
	if err := unix.Fstat(l.fd.fd, &open); err != nil {
		return false
	}
	if err := unix.Stat(l.fl.Path(), &named); err != nil {
		return false
	}
	return open.Dev == named.Dev && open.Ino == named.Ino
}

type fdLock struct {
	fd int
}

func (l *fdLock) Lock() error {
	for {
		err := unix.Flock(l.fd, unix.LOCK_EX)
		if err == unix.EINTR {
			continue
		}
		return ioerr.Translate("flock", err)
	}
}

func (l *fdLock) Unlock() error {
	return ioerr.Translate("flock", unix.Flock(l.fd, unix.LOCK_UN))
}

// NewEvent implements Ops.NewEvent.
func (Host) NewEvent() (Event, error) {
	ev, err := eventfd.Create()
	if err != nil {
		return nil, ioerr.Translate("eventfd", err)
	}
	return ev, nil
}

// WaitReadable implements Ops.WaitReadable.
func (Host) WaitReadable(fd, cancel int, timeout time.Duration) error {
	return poll.Wait(fd, poll.Readable, cancel, timeout)
}

// WaitWritable implements Ops.WaitWritable.
func (Host) WaitWritable(fd, cancel int, timeout time.Duration) error {
	return poll.Wait(fd, poll.Writable, cancel, timeout)
}

// IsTerminal implements Ops.IsTerminal.
func (Host) IsTerminal(fd int) bool {
	return isTerminal(fd)
}
