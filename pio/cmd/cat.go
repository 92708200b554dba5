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
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"golang.org/x/time/rate"

	"github.com/walteh/portio/pio/config"
	"github.com/walteh/portio/pkg/fileio"
	"github.com/walteh/portio/pkg/log"
	"github.com/walteh/portio/pkg/rawfile"
)

// Cat implements subcommands.Command for the "cat" command.
type Cat struct {
	unbuffered bool
	bps        int
}

// Name implements subcommands.Command.Name.
func (*Cat) Name() string {
	return "cat"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Cat) Synopsis() string {
	return "copy files to standard output"
}

// Usage implements subcommands.Command.Usage.
func (*Cat) Usage() string {
	return `cat [flags] <file>... - copy each file, or "-" for standard input, to standard output.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Cat) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.unbuffered, "unbuffered", false, "read and write without the buffered engine.")
	f.IntVar(&c.bps, "bps", 0, "limit output to this many bytes per second; 0 is unlimited.")
}

// Execute implements subcommands.Command.Execute.
func (c *Cat) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := configFrom(args)

	out, err := fileio.NewFile(1, "stdout", fileio.Write|c.flags(), conf.FileOptions()...)
	if err != nil {
		return failure("stdout: %v", err)
	}
	var w io.Writer = out
	if c.bps > 0 {
		w = newLimitedWriter(ctx, w, rate.NewLimiter(rate.Limit(c.bps), c.bps))
	}

	status := subcommands.ExitSuccess
	for _, name := range f.Args() {
		if err := c.copyFile(conf, w, name); err != nil {
			status = failure("%s: %v", name, err)
		}
	}
	if err := out.Flush(); err != nil {
		return failure("stdout: %v", err)
	}
	return status
}

func (c *Cat) flags() fileio.Flag {
	if c.unbuffered {
		return 0
	}
	return fileio.Buffered
}

// copyFile copies name, or standard input for "-", to w.
func (c *Cat) copyFile(conf *config.Config, w io.Writer, name string) error {
	in, err := c.open(conf, name)
	if err != nil {
		return err
	}
	n, err := io.Copy(w, in)
	log.Debugf("cat: %s: copied %d bytes", name, n)
	if name == "-" {
		// Standard input is not ours to close.
		return err
	}
	if cerr := in.Close(); err == nil {
		err = cerr
	}
	return err
}

func (c *Cat) open(conf *config.Config, name string) (*fileio.File, error) {
	opts := conf.FileOptions()
	if name != "-" {
		return fileio.Open(name, fileio.Read|c.flags(), 0, opts...)
	}
	info, err := rawfile.Host{}.Stat(0)
	if err == nil && info.Has(rawfile.InfoType) && info.Type == rawfile.TypePipe {
		in, err := fileio.NewPipe(0, "stdin", fileio.Read|c.flags(), opts...)
		if err != nil {
			return nil, err
		}
		if err := in.SetPipeTimeout(conf.PipeTimeout()); err != nil {
			return nil, fmt.Errorf("stdin: %w", err)
		}
		return in, nil
	}
	return fileio.NewFile(0, "stdin", fileio.Read|c.flags(), opts...)
}
