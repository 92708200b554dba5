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

package log

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(Info)
	defer SetLevel(Info)

	Debugf("hidden %d", 1)
	Infof("shown %d", 2)
	Warningf("warned %d", 3)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message emitted at info level: %q", out)
	}
	for _, want := range []string{"shown 2", "warned 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
	if IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = true at info level")
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetJSON(true)
	defer SetJSON(false)

	WithField("fd", 7).Info("opened")
	if out := buf.String(); !strings.Contains(out, `"fd":7`) || !strings.Contains(out, `"msg":"opened"`) {
		t.Errorf("unexpected JSON output %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("debug")
	if err != nil {
		t.Fatalf("ParseLevel: %v", err)
	}
	if l != Debug {
		t.Errorf("ParseLevel(debug) = %v, want %v", l, Debug)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Errorf("ParseLevel(loud) succeeded")
	}
}
