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

// Package log is the logging front end used by every package in this module.
//
// It keeps the Debugf/Infof/Warningf vocabulary and routes everything through
// a single logrus logger so that the CLI can pick text or JSON output.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level is a log level.
type Level = logrus.Level

// Supported levels.
const (
	Warning = logrus.WarnLevel
	Info    = logrus.InfoLevel
	Debug   = logrus.DebugLevel
)

var std = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "0102 15:04:05.000000",
	})
	return l
}

// Log returns the underlying logger.
func Log() *logrus.Logger {
	return std
}

// SetOutput redirects all output to w.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetLevel sets the minimum level that is emitted.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// ParseLevel parses a level name such as "debug" or "warning".
func ParseLevel(name string) (Level, error) {
	return logrus.ParseLevel(name)
}

// SetJSON switches between JSON and text output.
func SetJSON(enabled bool) {
	if enabled {
		std.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	std.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "0102 15:04:05.000000",
	})
}

// IsLogging returns true iff level is being logged.
func IsLogging(level Level) bool {
	return std.IsLevelEnabled(level)
}

// Debugf logs at debug level.
func Debugf(format string, v ...any) {
	std.Debugf(format, v...)
}

// Infof logs at info level.
func Infof(format string, v ...any) {
	std.Infof(format, v...)
}

// Warningf logs at warning level.
func Warningf(format string, v ...any) {
	std.Warnf(format, v...)
}

// WithField returns an entry carrying a single structured field.
func WithField(key string, value any) *logrus.Entry {
	return std.WithField(key, value)
}
