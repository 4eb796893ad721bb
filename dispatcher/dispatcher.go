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

// Package dispatcher routes transmitted packets between simulated nodes
// according to the directed connectivity matrix in force at delivery time.
package dispatcher

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/nodeproto"
	"github.com/loranetsim/lns/stats"
)

const DefaultStateProbeTimeout = 200 * time.Millisecond

type Config struct {
	// StateProbe makes the dispatcher query a destination's state right
	// after forwarding a packet to it, and emit a `state` record, so a live
	// monitor sees the effect of a delivery without polling.
	StateProbe        bool
	StateProbeTimeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		StateProbe:        true,
		StateProbeTimeout: DefaultStateProbeTimeout,
	}
}

// NodeTransport is what the dispatcher needs from a node supervisor.
type NodeTransport interface {
	Name() string
	SendCommand(cmd string) error
	QueryState(timeout time.Duration) (string, bool)
}

// Dispatcher owns the connectivity matrix and the registry of live node
// transports. The matrix and the delivery fan-out share one lock: a route
// read during an in-flight matrix replacement must never observe a torn
// matrix. Holding the lock across the fan-out also serializes the state
// probe queries, which QueryState requires of its callers.
type Dispatcher struct {
	cfg  Config
	sink *eventlog.Sink

	mu    sync.Mutex
	names []string
	index map[string]int
	conn  []bool // row-major: conn[i*N+j] = reachable(names[i], names[j])
	nodes map[string]NodeTransport
}

// NewDispatcher creates a dispatcher over the full node-name set. The set
// is fixed for the run: the matrix always has exactly one entry per ordered
// pair of known names. Initially nothing reaches anything.
func NewDispatcher(names []string, sink *eventlog.Sink, cfg *Config) *Dispatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return &Dispatcher{
		cfg:   *cfg,
		sink:  sink,
		names: append([]string(nil), names...),
		index: index,
		conn:  make([]bool, len(names)*len(names)),
		nodes: make(map[string]NodeTransport, len(names)),
	}
}

// Register adds a node supervisor to the routing table. A node receives
// forwarded traffic only after registration.
func (d *Dispatcher) Register(n NodeTransport) {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := n.Name()
	if _, known := d.index[name]; !known {
		logger.Warnf("dispatcher: registering node %s outside the configured name set", name)
	}
	d.nodes[name] = n
}

// NodeCount returns the size of the configured node-name set.
func (d *Dispatcher) NodeCount() int {
	return len(d.names)
}

// UpdateConnectivity replaces the entire matrix from a flat row-major
// bitstring of length N*N (row i = reachability from node i). On a length
// mismatch the matrix is left unchanged and an error returned; partial
// updates are never applied. ts is the logical timestamp carried into the
// connectivity_update record.
func (d *Dispatcher) UpdateConnectivity(bits string, ts float64) error {
	n := len(d.names)
	if len(bits) != n*n {
		return errors.Errorf("connectivity bitstring length %d != %d^2", len(bits), n)
	}
	for i := 0; i < len(bits); i++ {
		if bits[i] != '0' && bits[i] != '1' {
			return errors.Errorf("connectivity bitstring has invalid digit %q at %d", bits[i], i)
		}
	}

	d.mu.Lock()
	for i := 0; i < len(bits); i++ {
		d.conn[i] = bits[i] == '1'
	}
	d.mu.Unlock()

	d.sink.EmitAt(ts, eventlog.RecordConnectivityUpdate, bits)
	stats.ConnectivityUpdates.Inc()
	return nil
}

// Reachable reports whether dst is currently reachable from src.
func (d *Dispatcher) Reachable(src, dst string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reachableLocked(src, dst)
}

func (d *Dispatcher) reachableLocked(src, dst string) bool {
	i, okSrc := d.index[src]
	j, okDst := d.index[dst]
	if !okSrc || !okDst {
		return false
	}
	return d.conn[i*len(d.names)+j]
}

// Deliver fans a transmitted payload out to every registered destination
// currently reachable from src. Self-delivery is excluded regardless of the
// matrix content. Delivery to distinct destinations is not atomic: a crash
// mid fan-out leaves a partial delivery, which is acceptable.
func (d *Dispatcher) Deliver(src, hexData string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[src]
	if !ok {
		logger.Warnf("dispatcher: dropping packet from unknown source %s", src)
		return
	}

	n := len(d.names)
	for j, dst := range d.names {
		if !d.conn[i*n+j] || dst == src {
			continue
		}
		node := d.nodes[dst]
		if node == nil {
			continue // reachable but not spawned yet
		}
		if err := node.SendCommand(nodeproto.ReceivePacketCommand(hexData)); err != nil {
			logger.Errorf("dispatcher: forwarding %s -> %s: %v", src, dst, err)
			continue
		}
		d.sink.Emit(eventlog.RecordForward, src, dst, hexData)
		stats.PacketsForwarded.Inc()

		if d.cfg.StateProbe {
			if resp, ok := node.QueryState(d.cfg.StateProbeTimeout); ok {
				d.sink.Emit(eventlog.RecordState, dst, resp)
			}
		}
	}
}
