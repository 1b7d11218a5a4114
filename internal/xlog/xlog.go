// Copyright 2020-2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package xlog is the core's debug-trace facility, adapted from the
// teacher's internal/debug package: goroutine-tagged, lazily formatted
// lines describing what the bitstream and flattener are doing, gated so
// that normal parsing pays effectively nothing for it.
//
// Unlike the teacher, which compiles the whole facility out behind a
// "debug" build tag, xlog is always compiled in and gated by a runtime
// toggle (Enabled, settable via the DEMOGOBLIN_DEBUG environment variable
// or directly by a caller such as cmd/demodump's -debug flag). A demo
// parser is typically shipped as a single binary handed to whoever is
// triaging a bad capture, so asking them to rebuild with a build tag to get
// a trace is friction this module doesn't need.
package xlog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/timandy/routine"
)

// Enabled turns logging on or off. Checked on every call, so toggling it
// mid-session takes effect immediately.
var Enabled = os.Getenv("DEMOGOBLIN_DEBUG") != ""

// Filter, if set, restricts output to lines matching the given pattern.
// Mirrors the teacher's -hyperpb.filter flag.
var Filter *regexp.Regexp

// Log prints a goroutine-tagged debug line to stderr.
//
// context, if non-empty, is a printf-style (format, args...) pair
// rendered before op; this lets a caller identify which session or
// serverclass a burst of related log lines belongs to without repeating it
// in every call.
func Log(context []any, op, format string, args ...any) {
	if !Enabled {
		return
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "[g%04d", routine.Goid())
	if len(context) >= 1 {
		fmt.Fprintf(&buf, ", "+context[0].(string), context[1:]...)
	}
	fmt.Fprintf(&buf, "] %s: ", op)
	fmt.Fprintf(&buf, format, args...)

	line := buf.String()
	if Filter != nil && !Filter.MatchString(line) {
		return
	}

	fmt.Fprintln(os.Stderr, line)
}
