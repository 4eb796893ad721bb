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

// Package simulation orchestrates one run: it spawns one external process
// per simulated node, drives them from the authored timeline through the
// dispatcher, and collects a final state summary before tearing everything
// down.
package simulation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/loranetsim/lns/dispatcher"
	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/nodeproto"
	"github.com/loranetsim/lns/prng"
	"github.com/loranetsim/lns/progctx"
	"github.com/loranetsim/lns/timeline"
)

// Phase is the lifecycle state of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSpawning
	PhaseRunning
	PhaseDraining
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSpawning:
		return "spawning"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	case PhaseTerminated:
		return "terminated"
	}
	return "unknown"
}

type Simulation struct {
	ctx  *progctx.ProgCtx
	cfg  *Config
	d    *dispatcher.Dispatcher
	sink *eventlog.Sink

	nodesMu sync.Mutex
	nodes   map[string]*Node
	phase   Phase
}

func NewSimulation(ctx *progctx.ProgCtx, cfg *Config, sink *eventlog.Sink) *Simulation {
	dispatcherCfg := dispatcher.DefaultConfig()
	dispatcherCfg.StateProbe = cfg.StateProbe

	return &Simulation{
		ctx:   ctx,
		cfg:   cfg,
		sink:  sink,
		d:     dispatcher.NewDispatcher(cfg.Nodes, sink, dispatcherCfg),
		nodes: make(map[string]*Node, len(cfg.Nodes)),
	}
}

func (s *Simulation) Dispatcher() *dispatcher.Dispatcher {
	return s.d
}

// NodeNames returns the configured node-name set, in configuration order.
func (s *Simulation) NodeNames() []string {
	return s.cfg.Nodes
}

// Node returns the live supervisor for name, or nil if never spawned.
func (s *Simulation) Node(name string) *Node {
	s.nodesMu.Lock()
	defer s.nodesMu.Unlock()
	return s.nodes[name]
}

// Phase returns the current lifecycle phase.
func (s *Simulation) Phase() Phase {
	s.nodesMu.Lock()
	defer s.nodesMu.Unlock()
	return s.phase
}

func (s *Simulation) setPhase(p Phase) {
	s.nodesMu.Lock()
	s.phase = p
	s.nodesMu.Unlock()
	logger.Debugf("simulation phase: %s", p)
}

// AddNode spawns the external process for a configured node name, registers
// it with the dispatcher and emits the initialized record. No supervisor is
// ever re-created for the same name within one run.
func (s *Simulation) AddNode(name string) (*Node, error) {
	if !s.isConfiguredName(name) {
		return nil, errors.Errorf("node %s is not part of the configured node set", name)
	}

	s.nodesMu.Lock()
	if s.nodes[name] != nil {
		s.nodesMu.Unlock()
		return nil, errors.Errorf("node %s already exists", name)
	}
	s.nodesMu.Unlock()

	node, err := newNode(name, s.cfg.NodeExecutable, s.cfg.OutputDir, s.sink, s.d)
	if err != nil {
		return nil, err
	}

	s.nodesMu.Lock()
	s.nodes[name] = node
	s.nodesMu.Unlock()

	s.d.Register(node)
	s.sink.Emit(eventlog.RecordInitialized, name)
	logger.Infof("node %s initialized (pid %d)", name, node.Pid())
	return node, nil
}

func (s *Simulation) isConfiguredName(name string) bool {
	for _, n := range s.cfg.Nodes {
		if n == name {
			return true
		}
	}
	return false
}

// SetConnectivity replaces the connectivity matrix, stamped with the
// current elapsed time. Used by the interactive CLI.
func (s *Simulation) SetConnectivity(bits string) error {
	return s.d.UpdateConnectivity(bits, s.sink.Elapsed().Seconds())
}

// UpdateNode sends an interactively generated node_update with random
// coordinates to a spawned node, and emits the send_command record.
func (s *Simulation) UpdateNode(name string) error {
	node := s.Node(name)
	if node == nil {
		return errors.Errorf("node %s is not spawned", name)
	}
	elapsed := s.sink.Elapsed()
	cmd := nodeproto.NodeUpdateCommand(name, int64(elapsed.Seconds()), prng.Coordinate(), prng.Coordinate())
	if err := node.SendCommand(cmd); err != nil {
		return errors.Wrapf(err, "sending node_update to %s", name)
	}
	s.sink.EmitAt(elapsed.Seconds(), eventlog.RecordSendCommand, name, cmd)
	return nil
}

// Stop sets the shared stop signal.
func (s *Simulation) Stop() {
	s.ctx.Cancel(nil)
}

// Run executes one full simulation: Spawning, Running, Draining,
// Terminated. It returns an error only for fatal setup failures (an
// unreadable timeline, a node that cannot be spawned); everything else is
// reported and the run continues.
func (s *Simulation) Run() error {
	var events []timeline.Event
	interactive := s.cfg.Input == ""
	if !interactive {
		var err error
		if events, err = timeline.LoadFile(s.cfg.Input); err != nil {
			return err
		}
		logger.Infof("loaded %d timeline events from %s", len(events), s.cfg.Input)
	}

	s.setPhase(PhaseSpawning)
	if !interactive {
		// interactive mode spawns nodes on operator command instead
		if err := s.spawnAll(); err != nil {
			return err
		}
	}

	s.setPhase(PhaseRunning)
	var loaderDone chan struct{}
	if !interactive && s.ctx.Err() == nil {
		loaderDone = make(chan struct{})
		s.ctx.WaitAdd("loader", 1)
		go s.runLoader(events, loaderDone)
	}

	s.waitStop(loaderDone)

	s.setPhase(PhaseDraining)
	logger.Println(s.drain())

	s.setPhase(PhaseTerminated)
	s.terminateAll()
	logger.Infof("simulation terminated")
	return nil
}

// spawnAll spawns every configured node in ascending spawn-offset order,
// not configuration order. A spawn failure aborts the whole run.
func (s *Simulation) spawnAll() error {
	offsets := s.cfg.SpawnOffsets
	if len(offsets) == 0 {
		offsets = make([]float64, len(s.cfg.Nodes))
		for i := range offsets {
			offsets[i] = prng.SpawnOffset(s.cfg.SpawnMax)
		}
	}

	type spawnSlot struct {
		offset float64
		name   string
	}
	schedule := make([]spawnSlot, len(s.cfg.Nodes))
	for i, name := range s.cfg.Nodes {
		schedule[i] = spawnSlot{offsets[i], name}
	}
	sort.SliceStable(schedule, func(i, j int) bool {
		return schedule[i].offset < schedule[j].offset
	})

	for _, slot := range schedule {
		wait := time.Duration(slot.offset*float64(time.Second)) - s.sink.Elapsed()
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-s.ctx.Done():
				return nil
			}
		}
		if s.ctx.Err() != nil {
			return nil
		}
		if _, err := s.AddNode(slot.name); err != nil {
			return errors.Wrapf(err, "spawning node %s", slot.name)
		}
	}
	return nil
}

// waitStop blocks until the stop condition fires: the configured duration
// elapses, the shared stop signal is set (interactive stop or interrupt),
// or - when configured - the timeline is exhausted. With no duration and
// no timeline stop it waits indefinitely for cancellation.
func (s *Simulation) waitStop(loaderDone <-chan struct{}) {
	var timeout <-chan time.Time
	if s.cfg.Duration > 0 {
		timeout = time.After(time.Duration(s.cfg.Duration))
	}
	if !s.cfg.StopAfterTimeline {
		loaderDone = nil
	}

	select {
	case <-timeout:
		logger.Infof("simulation duration %v elapsed", time.Duration(s.cfg.Duration))
	case <-loaderDone:
		logger.Infof("stopping: timeline exhausted")
	case <-s.ctx.Done():
		logger.Infof("stopping: cancelled")
	}
}

// drain performs the bounded final state collection: one get_state per
// configured node, in configuration order. Nodes that never spawned or do
// not answer in time are reported absent; nothing here is fatal.
func (s *Simulation) drain() string {
	var b strings.Builder
	b.WriteString("\nFinal node states:\n")

	for _, name := range s.cfg.Nodes {
		fmt.Fprintf(&b, "\n%s:\n", name)

		node := s.Node(name)
		if node == nil {
			b.WriteString("  <never spawned>\n")
			continue
		}
		resp, ok := node.QueryState(time.Duration(s.cfg.QueryTimeout))
		if !ok {
			b.WriteString("  <no response>\n")
			continue
		}
		s.sink.Emit(eventlog.RecordState, name, resp)

		st, err := nodeproto.ParseStateResponse(resp)
		if err != nil {
			fmt.Fprintf(&b, "  %s\n", resp)
			continue
		}
		fmt.Fprintf(&b, "    %4s %10s %10s %10s\n", "Node", "Timestamp", "Lat", "Lon")
		for _, e := range st.Entries {
			fmt.Fprintf(&b, "    %4s %10s %10s %10s\n", e.Name, e.Timestamp, e.Latitude, e.Longitude)
		}
	}
	return b.String()
}

// terminateAll tears down every node process, best effort.
func (s *Simulation) terminateAll() {
	s.nodesMu.Lock()
	nodes := make([]*Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		nodes = append(nodes, node)
	}
	s.nodesMu.Unlock()

	for _, node := range nodes {
		node.Exit()
	}
}
