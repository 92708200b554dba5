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

// Binary pio exercises the portio descriptor I/O layer from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/walteh/portio/pio/cmd"
	"github.com/walteh/portio/pio/config"
)

var (
	configPath = flag.String("config", "", "path to a TOML configuration file.")
	debug      = flag.Bool("debug", false, "enable debug logging.")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")

	const ioGroup = "I/O"
	subcommands.Register(new(cmd.Cat), ioGroup)
	subcommands.Register(new(cmd.Append), ioGroup)
	subcommands.Register(new(cmd.Poll), ioGroup)

	const netGroup = "network"
	subcommands.Register(new(cmd.Send), netGroup)
	subcommands.Register(new(cmd.Recv), netGroup)

	flag.Parse()

	conf := config.Default()
	if *configPath != "" {
		var err error
		if conf, err = config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "pio: %v\n", err)
			os.Exit(128)
		}
	}
	if err := conf.ApplyLogging(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "pio: %v\n", err)
		os.Exit(128)
	}

	os.Exit(int(subcommands.Execute(context.Background(), conf)))
}
