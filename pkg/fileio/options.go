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

package fileio

import (
	"github.com/walteh/portio/pkg/rawfile"
)

// DefaultBufferSize is the buffer size of Buffered handles unless
// WithBufferSize says otherwise.
const DefaultBufferSize = 4096

// Flag is a set of open flags.
type Flag uint32

// Open flags.
const (
	// Read opens for reading.
	Read Flag = 1 << iota

	// Write opens for writing.
	Write

	// Create creates the file if it does not exist.
	Create

	// Excl fails if the file exists. Only valid with Create.
	Excl

	// Truncate truncates an existing file to zero length.
	Truncate

	// Append moves to end of file before every write.
	Append

	// Buffered enables the buffered engine.
	Buffered

	// DeleteOnClose removes the file after a successful Close.
	DeleteOnClose

	// NonBlock is not supported for files; Open rejects it.
	NonBlock

	// NoInherit keeps the descriptor from surviving exec. This is the
	// default for every handle and is accepted for compatibility.
	NoInherit
)

type options struct {
	bufferSize int
	ops        rawfile.Ops
}

// Option configures a File.
type Option func(*options)

// WithBufferSize sets the buffer size used when Buffered is set. Sizes below
// one use DefaultBufferSize.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = n
	}
}

// WithOps routes all host calls through ops.
func WithOps(ops rawfile.Ops) Option {
	return func(o *options) {
		o.ops = ops
	}
}

func buildOptions(opts []Option) options {
	o := options{
		bufferSize: DefaultBufferSize,
		ops:        rawfile.Host{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bufferSize < 1 {
		o.bufferSize = DefaultBufferSize
	}
	return o
}
