// Copyright (c) 2025, the EdgeGate authors.  All rights reserved.
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

package errors

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// NoticeKey identifies a class of pass-wide condition that must surface
// exactly once per compilation pass, no matter how many resources hit it.
type NoticeKey string

const (
	// NoticeTLSDisabled is raised the first time certificate material fails
	// validation anywhere in the pass.
	NoticeTLSDisabled NoticeKey = "tls-disabled"
)

// Entry is one recorded diagnostic. ResourceID is "<kind>/<name>" for scoped
// errors and empty for pass-level ones.
type Entry struct {
	ResourceID string
	Err        *StructuredError
}

// Aggregator is the per-pass sink for validation diagnostics. A fresh
// Aggregator is constructed for every compilation pass and shared by every
// entity in it; it is never a process-wide singleton, so one-time notices
// reset naturally between passes.
//
// All methods are safe for concurrent use so factories may be run in
// parallel across resource kinds.
type Aggregator struct {
	mu      sync.Mutex
	passID  string
	entries []Entry
	seen    map[NoticeKey]bool
	notices []string
	fatal   []*StructuredError
}

// NewAggregator creates an empty Aggregator with a unique pass id.
func NewAggregator() *Aggregator {
	return &Aggregator{
		passID: uuid.NewString(),
		seen:   make(map[NoticeKey]bool),
	}
}

// PassID returns the unique id of the compilation pass this Aggregator
// belongs to. Used to correlate diagnostics across log lines.
func (a *Aggregator) PassID() string {
	return a.passID
}

// PostResourceError records a scoped error against one resource.
// It never fails; a nil error is ignored.
func (a *Aggregator) PostResourceError(kind, name string, err *StructuredError) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	id := fmt.Sprintf("%s/%s", kind, name)
	a.entries = append(a.entries, Entry{ResourceID: id, Err: err})
	slog.Debug("scoped error recorded", "pass", a.passID, "resource", id, "code", err.Code, "message", err.Message)
}

// PostError records a pass-level error not tied to any single resource.
func (a *Aggregator) PostError(err *StructuredError) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, Entry{Err: err})
	slog.Debug("pass error recorded", "pass", a.passID, "code", err.Code, "message", err.Message)
}

// PostNoticeOnce records a pass-wide notice at most once per key. The first
// caller for a key records the message and gets true; later callers are
// no-ops and get false. The message is never dropped: it stays visible via
// Notices for the rest of the pass.
func (a *Aggregator) PostNoticeOnce(key NoticeKey, message string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.seen[key] {
		return false
	}
	a.seen[key] = true
	a.notices = append(a.notices, message)
	slog.Warn(message, "pass", a.passID, "notice", string(key))
	return true
}

// PostFatal records an error that makes the entire IR unusable. The pass
// still runs to completion, but HasFatalErrors reports true and the caller
// must not hand the IR to the renderer.
func (a *Aggregator) PostFatal(err *StructuredError) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.fatal = append(a.fatal, err)
	a.entries = append(a.entries, Entry{Err: err})
	slog.Error("fatal pass error recorded", "pass", a.passID, "code", err.Code, "message", err.Message)
}

// HasFatalErrors reports whether any fatal pass error was recorded.
func (a *Aggregator) HasFatalErrors() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.fatal) > 0
}

// Messages returns a copy of all recorded entries in posting order.
func (a *Aggregator) Messages() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Notices returns the pass-wide notices recorded so far, in posting order.
func (a *Aggregator) Notices() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.notices))
	copy(out, a.notices)
	return out
}

// ErrorCount returns the number of recorded entries, notices excluded.
func (a *Aggregator) ErrorCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
