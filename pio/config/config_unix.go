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

package config

import (
	"github.com/walteh/portio/pkg/netio"
)

// SocketOptions returns the netio options for c.
func (c *Config) SocketOptions() []netio.Option {
	return []netio.Option{netio.WithOptions(netio.Options{
		Timeout:       c.Socket.Timeout,
		SendChunk:     c.Socket.SendChunk,
		NoBufsRetries: c.Socket.NoBufsRetries,
		NoBufsDelay:   c.Socket.NoBufsDelay,
	})}
}
