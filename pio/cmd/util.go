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

// Package cmd holds the pio subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/walteh/portio/pio/config"
	"github.com/walteh/portio/pkg/log"
)

// failure reports an error and returns subcommands.ExitFailure.
func failure(format string, args ...any) subcommands.ExitStatus {
	msg := fmt.Sprintf(format, args...)
	log.Debugf("%s", msg)
	fmt.Fprintf(os.Stderr, "pio: %s\n", msg)
	return subcommands.ExitFailure
}

// configFrom extracts the configuration passed to subcommands.Execute.
func configFrom(args []any) *config.Config {
	if len(args) > 0 {
		if c, ok := args[0].(*config.Config); ok {
			return c
		}
	}
	return config.Default()
}
