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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/walteh/portio/pkg/ioerr"
	"github.com/walteh/portio/pkg/poll"
)

// Poll implements subcommands.Command for the "poll" command.
type Poll struct {
	timeout time.Duration
}

// Name implements subcommands.Command.Name.
func (*Poll) Name() string {
	return "poll"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Poll) Synopsis() string {
	return "wait for inherited descriptors to become ready"
}

// Usage implements subcommands.Command.Usage.
func (*Poll) Usage() string {
	return `poll [-timeout D] <fd>:<events>... - events is any of r (readable), w (writable) and e (exceptional).
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (p *Poll) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&p.timeout, "timeout", -1, "how long to wait; 0 does not wait, negative waits forever.")
}

// Execute implements subcommands.Command.Execute.
func (p *Poll) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	entries := make([]poll.Entry, 0, f.NArg())
	for _, arg := range f.Args() {
		e, err := parseEntry(arg)
		if err != nil {
			return failure("%v", err)
		}
		entries = append(entries, e)
	}
	n, err := poll.Poll(entries, p.timeout)
	if errors.Is(err, ioerr.ErrTimeout) {
		fmt.Println("timeout")
		return subcommands.ExitFailure
	}
	if err != nil {
		return failure("poll: %v", err)
	}
	for _, e := range entries {
		fmt.Printf("%d: %v\n", e.FD, e.Revents)
	}
	fmt.Printf("%d ready\n", n)
	return subcommands.ExitSuccess
}

// parseEntry parses "fd:events", for example "0:r" or "4:rw".
func parseEntry(arg string) (poll.Entry, error) {
	fdStr, events, ok := strings.Cut(arg, ":")
	if !ok {
		return poll.Entry{}, fmt.Errorf("%q: want <fd>:<events>", arg)
	}
	fd, err := strconv.Atoi(fdStr)
	if err != nil || fd < 0 {
		return poll.Entry{}, fmt.Errorf("%q: bad descriptor", arg)
	}
	e := poll.Entry{FD: fd}
	for _, c := range events {
		switch c {
		case 'r':
			e.Events |= poll.Readable
		case 'w':
			e.Events |= poll.Writable
		case 'e':
			e.Events |= poll.Exceptional
		default:
			return poll.Entry{}, fmt.Errorf("%q: unknown event %q", arg, c)
		}
	}
	if e.Events == 0 {
		return poll.Entry{}, fmt.Errorf("%q: no events", arg)
	}
	return e, nil
}
