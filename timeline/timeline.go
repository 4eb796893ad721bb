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

// Package timeline parses the authored schedule driving a simulation run:
// one event per line, `<timestamp>,<destination|-1>,<payload>`, with `#`
// starting a comment to end of line. Pure data, no behavior beyond
// validation.
package timeline

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/loranetsim/lns/logger"
)

// ConnectivityDestination is the reserved destination meaning "apply the
// payload as a full connectivity-matrix replacement".
const ConnectivityDestination = "-1"

// Event is one timed command: at Timestamp (seconds since simulation
// start), deliver Payload to Destination.
type Event struct {
	Timestamp   float64
	Destination string
	Payload     string
}

// IsConnectivityUpdate reports whether the event replaces the matrix.
func (ev *Event) IsConnectivityUpdate() bool {
	return ev.Destination == ConnectivityDestination
}

// Load reads a timeline. Malformed lines are reported with their line
// number and skipped, never fatal. The result is stably sorted by
// non-decreasing timestamp regardless of input order, so equal-timestamp
// events keep their original relative order.
func Load(r io.Reader) ([]Event, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	for lineno := 1; scanner.Scan(); lineno++ {
		raw := scanner.Text()
		if idx := strings.IndexByte(raw, '#'); idx >= 0 {
			raw = raw[:idx]
		}
		line := strings.TrimSpace(raw)
		if len(line) == 0 {
			continue
		}

		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 3 {
			logger.Warnf("timeline: skipping malformed line %d: %s", lineno, line)
			continue
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil || ts < 0 {
			logger.Warnf("timeline: invalid timestamp on line %d: %s", lineno, parts[0])
			continue
		}
		events = append(events, Event{
			Timestamp:   ts,
			Destination: strings.TrimSpace(parts[1]),
			Payload:     parts[2],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading timeline")
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})
	return events, nil
}

// LoadFile reads a timeline file. An unreadable file is a fatal setup
// failure for the caller.
func LoadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening timeline %s", path)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}
