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
	"io"

	"golang.org/x/time/rate"
)

// limitedWriter paces writes to w through lim.
type limitedWriter struct {
	ctx context.Context
	w   io.Writer
	lim *rate.Limiter
}

func newLimitedWriter(ctx context.Context, w io.Writer, lim *rate.Limiter) *limitedWriter {
	return &limitedWriter{ctx: ctx, w: w, lim: lim}
}

// Write implements io.Writer. Writes larger than the limiter burst are split.
func (l *limitedWriter) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		chunk := len(p) - n
		if b := l.lim.Burst(); chunk > b {
			chunk = b
		}
		if err := l.lim.WaitN(l.ctx, chunk); err != nil {
			return n, err
		}
		m, err := l.w.Write(p[n : n+chunk])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
