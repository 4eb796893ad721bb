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

package monitor

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/term"

	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/nodeproto"
	"github.com/loranetsim/lns/progctx"
)

// Mode selects what the monitor renders.
type Mode string

const (
	// ModeEvents shows the tail of the event stream.
	ModeEvents Mode = "events"
	// ModeState shows the latest known state per node.
	ModeState Mode = "state"
)

const (
	DefaultRefreshInterval = 500 * time.Millisecond
	recentCapacity         = 64
	fallbackWidth          = 100
)

type nodeView struct {
	lastSeen float64
	tx       int
	received int
	state    *nodeproto.State
}

// Monitor aggregates event-log records into a renderable view. HandleLine
// and Render may be called from different goroutines.
type Monitor struct {
	mode Mode

	mu     sync.Mutex
	nodes  map[string]*nodeView
	conn   string
	connTs float64
	recent []string
	lastTs float64
	total  int
	bad    int
}

func NewMonitor(mode Mode) *Monitor {
	return &Monitor{
		mode:  mode,
		nodes: make(map[string]*nodeView),
	}
}

// HandleLine folds one event-log line into the view. Unparseable lines are
// counted, not fatal: the log may be mid-write or hand-edited.
func (m *Monitor) HandleLine(line string) {
	rec, err := eventlog.ParseRecord(line)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.bad++
		return
	}
	m.total++
	m.lastTs = rec.Ts
	m.pushRecent(line)

	switch rec.Kind {
	case eventlog.RecordInitialized:
		m.node(rec.Rest).lastSeen = rec.Ts
	case eventlog.RecordConnectivityUpdate:
		m.conn = rec.Rest
		m.connTs = rec.Ts
	case eventlog.RecordTx:
		if name, _, ok := splitField(rec.Rest); ok {
			v := m.node(name)
			v.lastSeen = rec.Ts
			v.tx++
		}
	case eventlog.RecordForward:
		if _, rest, ok := splitField(rec.Rest); ok {
			if dst, _, ok := splitField(rest); ok {
				v := m.node(dst)
				v.lastSeen = rec.Ts
				v.received++
			}
		}
	case eventlog.RecordState:
		if name, resp, ok := splitField(rec.Rest); ok {
			v := m.node(name)
			v.lastSeen = rec.Ts
			if st, err := nodeproto.ParseStateResponse(resp); err == nil {
				v.state = st
			}
		}
	}
}

func (m *Monitor) node(name string) *nodeView {
	v := m.nodes[name]
	if v == nil {
		v = &nodeView{}
		m.nodes[name] = v
	}
	return v
}

func (m *Monitor) pushRecent(line string) {
	if len(m.recent) == recentCapacity {
		copy(m.recent, m.recent[1:])
		m.recent = m.recent[:recentCapacity-1]
	}
	m.recent = append(m.recent, line)
}

func splitField(s string) (first, rest string, ok bool) {
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return s, "", s != ""
	}
	return s[:i], s[i+1:], true
}

// Render draws the current view as text fitted to width.
func (m *Monitor) Render(width int) string {
	if width <= 0 {
		width = fallbackWidth
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "LNS monitor - t=%.3fs, %d records", m.lastTs, m.total)
	if m.bad > 0 {
		fmt.Fprintf(&b, " (%d unparseable)", m.bad)
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat("-", width))
	b.WriteByte('\n')

	if m.conn != "" {
		fmt.Fprintf(&b, "connectivity @%.3fs: %s\n", m.connTs, m.conn)
	}

	switch m.mode {
	case ModeState:
		m.renderState(&b)
	default:
		m.renderEvents(&b, width)
	}
	return b.String()
}

func (m *Monitor) renderState(b *strings.Builder) {
	names := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(b, "%-6s %10s %6s %6s  %s\n", "Node", "LastSeen", "Tx", "Rx", "State")
	for _, name := range names {
		v := m.nodes[name]
		stateStr := "-"
		if v.state != nil {
			entries := make([]string, 0, len(v.state.Entries))
			for _, e := range v.state.Entries {
				entries = append(entries, fmt.Sprintf("%s(%s,%s,%s)", e.Name, e.Timestamp, e.Latitude, e.Longitude))
			}
			stateStr = strings.Join(entries, " ")
		}
		fmt.Fprintf(b, "%-6s %9.3fs %6d %6d  %s\n", name, v.lastSeen, v.tx, v.received, stateStr)
	}
}

func (m *Monitor) renderEvents(b *strings.Builder, width int) {
	for _, line := range m.recent {
		b.WriteString(wordwrap.WrapString(line, uint(width)))
		b.WriteByte('\n')
	}
}

// Run follows the event log at path and redraws the view until ctx is
// cancelled. It is the whole lns-monitor program, minus flag parsing.
func Run(ctx *progctx.ProgCtx, path string, mode Mode, fromEnd bool) error {
	m := NewMonitor(mode)
	tail := NewTail(path, DefaultPollInterval, fromEnd)

	ctx.WaitAdd("tail", 1)
	go func() {
		if err := tail.Run(ctx, m.HandleLine); err != nil && ctx.Err() == nil {
			logger.Errorf("monitor: %v", err)
			ctx.Cancel(err)
		}
	}()

	ticker := time.NewTicker(DefaultRefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			width, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err != nil {
				width = fallbackWidth
			}
			// home the cursor and clear, then draw the whole frame
			fmt.Print("\033[H\033[2J")
			fmt.Print(m.Render(width))
		case <-ctx.Done():
			return nil
		}
	}
}
