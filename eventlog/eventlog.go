// Copyright (c) 2025-2026, The LNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package eventlog implements the canonical record stream of a simulation
// run: one timestamped, comma-delimited line per occurrence, written
// line-atomically so the stream stays readable while being written.
package eventlog

import (
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Record kinds emitted during a run.
const (
	RecordInitialized        = "initialized"
	RecordConnectivityUpdate = "connectivity_update"
	RecordTx                 = "tx"
	RecordForward            = "forward"
	RecordSendCommand        = "send_command"
	RecordState              = "state"
)

// Sink writes records to one or more underlying writers. Writes from
// concurrent goroutines never interleave partial lines: the whole line is
// written under the sink mutex. Timestamps are seconds elapsed since the
// sink's start instant, with millisecond precision.
type Sink struct {
	mu      sync.Mutex
	start   time.Time
	writers []io.Writer
}

// NewSink creates a Sink stamping records relative to start.
func NewSink(start time.Time, writers ...io.Writer) *Sink {
	return &Sink{
		start:   start,
		writers: writers,
	}
}

// Start returns the sink's start instant (the simulation start).
func (s *Sink) Start() time.Time {
	return s.start
}

// Elapsed returns the time elapsed since simulation start.
func (s *Sink) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Emit writes one record stamped with the current elapsed time.
func (s *Sink) Emit(kind string, fields ...string) {
	s.EmitAt(s.Elapsed().Seconds(), kind, fields...)
}

// EmitAt writes one record stamped with the given logical timestamp. The
// scheduler uses this so that send_command and connectivity_update records
// carry the timeline timestamp rather than wall-clock arrival time.
func (s *Sink) EmitAt(ts float64, kind string, fields ...string) {
	line := FormatRecord(ts, kind, fields...) + "\n"

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.writers {
		_, _ = io.WriteString(w, line)
	}
}

// FormatRecord renders one record line, without the trailing newline.
func FormatRecord(ts float64, kind string, fields ...string) string {
	var b strings.Builder
	b.WriteString(strconv.FormatFloat(ts, 'f', 3, 64))
	b.WriteByte(',')
	b.WriteString(kind)
	for _, f := range fields {
		b.WriteByte(',')
		b.WriteString(f)
	}
	return b.String()
}

// Record is one parsed event-log line. Rest holds everything after the kind
// field unsplit, since some kinds (send_command) carry commas in their
// payload.
type Record struct {
	Ts   float64
	Kind string
	Rest string
}

// ParseRecord parses one event-log line.
func ParseRecord(line string) (Record, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 2 {
		return Record{}, errors.Errorf("malformed record: %q", line)
	}
	ts, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return Record{}, errors.Wrapf(err, "malformed record timestamp: %q", parts[0])
	}
	rec := Record{Ts: ts, Kind: parts[1]}
	if len(parts) == 3 {
		rec.Rest = parts[2]
	}
	return rec, nil
}
