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
	"strings"

	"github.com/google/subcommands"

	"github.com/walteh/portio/pkg/fileio"
)

// Append implements subcommands.Command for the "append" command.
type Append struct {
	file string
}

// Name implements subcommands.Command.Name.
func (*Append) Name() string {
	return "append"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Append) Synopsis() string {
	return "append a line to a file"
}

// Usage implements subcommands.Command.Usage.
func (*Append) Usage() string {
	return `append -file <path> <text>... - append the words as one line. Concurrent appends never interleave.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (a *Append) SetFlags(f *flag.FlagSet) {
	f.StringVar(&a.file, "file", "", "file to append to; created if missing.")
}

// Execute implements subcommands.Command.Execute.
func (a *Append) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if a.file == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := configFrom(args)
	if err := appendLine(a.file, strings.Join(f.Args(), " "), conf.FileOptions()...); err != nil {
		return failure("%v", err)
	}
	return subcommands.ExitSuccess
}

// appendLine writes line and a newline to path in a single append.
func appendLine(path, line string, opts ...fileio.Option) error {
	out, err := fileio.Open(path, fileio.Write|fileio.Create|fileio.Append, 0o644, opts...)
	if err != nil {
		return err
	}
	if _, err := out.WriteFull([]byte(line + "\n")); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
