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

package cmd

import (
	"context"
	"errors"
	"flag"
	"io"
	"net"

	"github.com/google/subcommands"

	"github.com/walteh/portio/pio/config"
	"github.com/walteh/portio/pkg/fileio"
	"github.com/walteh/portio/pkg/log"
	"github.com/walteh/portio/pkg/netio"
)

// sendBlocks is the number of file blocks gathered into one Sendv.
const sendBlocks = 4

// Send implements subcommands.Command for the "send" command.
type Send struct {
	addr string
}

// Name implements subcommands.Command.Name.
func (*Send) Name() string {
	return "send"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Send) Synopsis() string {
	return "send files to a TCP peer"
}

// Usage implements subcommands.Command.Usage.
func (*Send) Usage() string {
	return `send -addr <host:port> <file>... - connect and send the files in order.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Send) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.addr, "addr", "", "peer address.")
}

// Execute implements subcommands.Command.Execute.
func (s *Send) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if s.addr == "" || f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := configFrom(args)

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return failure("%v", err)
	}
	sock, err := netio.FromConn(conn, conf.SocketOptions()...)
	conn.Close()
	if err != nil {
		return failure("%v", err)
	}
	defer sock.Close()

	for _, name := range f.Args() {
		n, err := sendFile(conf, sock, name)
		if err != nil {
			return failure("%s: %v", name, err)
		}
		log.Infof("sent %s: %d bytes", name, n)
	}
	return subcommands.ExitSuccess
}

// sendFile sends name through sock, gathering several blocks per call.
func sendFile(conf *config.Config, sock *netio.Socket, name string) (int64, error) {
	in, err := fileio.Open(name, fileio.Read, 0, conf.FileOptions()...)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	blocks := make([][]byte, sendBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, conf.File.BufferSize)
	}
	var total int64
	for {
		bufs := make([][]byte, 0, sendBlocks)
		eof := false
		for _, b := range blocks {
			n, err := in.ReadFull(b)
			if n > 0 {
				bufs = append(bufs, b[:n])
			}
			if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
				eof = true
				break
			}
			if err != nil {
				return total, err
			}
		}
		n, err := sendAll(sock, bufs)
		total += int64(n)
		if err != nil || eof {
			return total, err
		}
	}
}

// sendAll calls Sendv until every buffer is sent.
func sendAll(sock *netio.Socket, bufs [][]byte) (int, error) {
	total := 0
	for len(bufs) > 0 {
		n, err := sock.Sendv(bufs)
		total += n
		if err != nil {
			return total, err
		}
		for n > 0 && len(bufs) > 0 {
			if n < len(bufs[0]) {
				bufs[0] = bufs[0][n:]
				break
			}
			n -= len(bufs[0])
			bufs = bufs[1:]
		}
		for len(bufs) > 0 && len(bufs[0]) == 0 {
			bufs = bufs[1:]
		}
	}
	return total, nil
}

// Recv implements subcommands.Command for the "recv" command.
type Recv struct {
	listen string
}

// Name implements subcommands.Command.Name.
func (*Recv) Name() string {
	return "recv"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Recv) Synopsis() string {
	return "receive one TCP stream to standard output"
}

// Usage implements subcommands.Command.Usage.
func (*Recv) Usage() string {
	return `recv -listen <addr> - accept one connection and copy it to standard output.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Recv) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.listen, "listen", "", "address to listen on.")
}

// Execute implements subcommands.Command.Execute.
func (r *Recv) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if r.listen == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := configFrom(args)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", r.listen)
	if err != nil {
		return failure("%v", err)
	}
	log.Infof("listening on %s", ln.Addr())
	conn, err := ln.Accept()
	ln.Close()
	if err != nil {
		return failure("accept: %v", err)
	}
	sock, err := netio.FromConn(conn, conf.SocketOptions()...)
	conn.Close()
	if err != nil {
		return failure("%v", err)
	}
	defer sock.Close()

	out, err := fileio.NewFile(1, "stdout", fileio.Write|fileio.Buffered, conf.FileOptions()...)
	if err != nil {
		return failure("stdout: %v", err)
	}
	n, err := io.Copy(out, sock)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		return failure("recv: %v", err)
	}
	log.Infof("received %d bytes", n)
	return subcommands.ExitSuccess
}
