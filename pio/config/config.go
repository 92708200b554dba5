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

// Package config holds the pio configuration file format.
//
// A configuration file is TOML:
//
//	[file]
//	buffer_size = 8192
//
//	[pipe]
//	timeout = "500ms"
//	blocking = false
//
//	[socket]
//	timeout = "5s"
//	send_chunk = 65536
//	nobufs_retries = 10
//	nobufs_delay = "100ms"
//
//	[log]
//	level = "info"
//	format = "text"
//
// Missing keys keep their defaults. Unknown keys are an error.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/walteh/portio/pkg/fileio"
	"github.com/walteh/portio/pkg/log"
)

// Config is the complete configuration.
type Config struct {
	File   File   `toml:"file"`
	Pipe   Pipe   `toml:"pipe"`
	Socket Socket `toml:"socket"`
	Log    Log    `toml:"log"`
}

// File configures opened files.
type File struct {
	// BufferSize is the buffer of Buffered handles.
	BufferSize int `toml:"buffer_size"`
}

// Pipe configures pipe ends wrapped by pio, such as standard input.
type Pipe struct {
	// Timeout bounds each wait for pipe readiness. It is ignored when
	// Blocking is set.
	Timeout time.Duration `toml:"timeout"`

	// Blocking waits forever.
	Blocking bool `toml:"blocking"`
}

// Socket configures sockets.
type Socket struct {
	Timeout       time.Duration `toml:"timeout"`
	SendChunk     int           `toml:"send_chunk"`
	NoBufsRetries int           `toml:"nobufs_retries"`
	NoBufsDelay   time.Duration `toml:"nobufs_delay"`
}

// Log configures logging.
type Log struct {
	// Level is one of the logrus level names.
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		File: File{BufferSize: fileio.DefaultBufferSize},
		Pipe: Pipe{Timeout: -1, Blocking: true},
		Socket: Socket{
			Timeout:       -1,
			SendChunk:     64 << 10,
			NoBufsRetries: 10,
			NoBufsDelay:   100 * time.Millisecond,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c := Default()
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("loading %q: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("loading %q: %w", path, err)
	}
	return c, nil
}

// Validate checks that every field is usable.
func (c *Config) Validate() error {
	if c.File.BufferSize <= 0 {
		return fmt.Errorf("file.buffer_size must be positive, got %d", c.File.BufferSize)
	}
	if c.Socket.SendChunk <= 0 {
		return fmt.Errorf("socket.send_chunk must be positive, got %d", c.Socket.SendChunk)
	}
	if c.Socket.NoBufsRetries < 0 {
		return fmt.Errorf("socket.nobufs_retries must not be negative, got %d", c.Socket.NoBufsRetries)
	}
	if c.Socket.NoBufsDelay < 0 {
		return fmt.Errorf("socket.nobufs_delay must not be negative, got %v", c.Socket.NoBufsDelay)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	return nil
}

// FileOptions returns the fileio options for c.
func (c *Config) FileOptions() []fileio.Option {
	return []fileio.Option{fileio.WithBufferSize(c.File.BufferSize)}
}

// PipeTimeout returns the timeout to set on wrapped pipe ends.
func (c *Config) PipeTimeout() time.Duration {
	if c.Pipe.Blocking {
		return -1
	}
	return c.Pipe.Timeout
}

// ApplyLogging configures the process logger. debug forces debug level.
func (c *Config) ApplyLogging(debug bool) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	if debug {
		level = log.Debug
	}
	log.SetLevel(level)
	log.SetJSON(c.Log.Format == "json")
	return nil
}
