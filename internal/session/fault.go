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

// Package session implements the session-wide structural error flag
// described in spec §7: a sticky "error" bool plus an owner-lived message,
// distinct from the bitstream's own sticky overflow flag. It is grounded on
// the teacher's errParse (error.go): a small error code plus a formatted
// message, except here the flag is sticky across an entire parsing session
// rather than scoped to a single parse call, matching the source engine's
// "set error=true and short-circuit" contract.
package session

import "fmt"

// Fault is a session-wide latch: once Set, it stays set, and Err always
// returns the first error recorded. Subsequent Set calls are no-ops, so
// that a cascade of errors triggered by the first failure doesn't overwrite
// the original diagnosis.
//
// Not safe for concurrent use — each Session (and its Fault) belongs to
// exactly one goroutine.
type Fault struct {
	err error
}

// Failed reports whether the session has recorded a structural error.
func (f *Fault) Failed() bool {
	return f.err != nil
}

// Err returns the recorded error, or nil if the session has not failed.
func (f *Fault) Err() error {
	return f.err
}

// Message returns the recorded error's text, or "" if the session has not
// failed.
func (f *Fault) Message() string {
	if f.err == nil {
		return ""
	}
	return f.err.Error()
}

// Set records err as the session's fault, if none has been recorded yet.
// Returns true if this call is the one that set the fault.
func (f *Fault) Set(err error) bool {
	if f.err != nil {
		return false
	}
	f.err = err
	return true
}

// Setf is like Set, formatting the message with fmt.Errorf.
func (f *Fault) Setf(format string, args ...any) bool {
	return f.Set(fmt.Errorf(format, args...))
}

// Reset clears the fault. Provided for tests and for callers that pool
// sessions; ordinary sessions are torn down rather than reset.
func (f *Fault) Reset() {
	f.err = nil
}
