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

package simulation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/prng"
	"github.com/loranetsim/lns/progctx"
)

func newTestSimulation(t *testing.T, cfg *Config) (*Simulation, *lockedBuffer, *progctx.ProgCtx) {
	t.Helper()
	prng.Init(1)

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.NodeExecutable == DefaultNodeExecutable {
		cfg.NodeExecutable = catExecutable
	}
	if cfg.OutputDir == "." {
		cfg.OutputDir = t.TempDir()
	}
	require.NoError(t, cfg.Validate())

	buf := &lockedBuffer{}
	sink := eventlog.NewSink(time.Now(), buf)
	ctx := progctx.New(context.Background())
	return NewSimulation(ctx, cfg, sink), buf, ctx
}

func TestAddNode(t *testing.T) {
	sim, buf, _ := newTestSimulation(t, nil)
	defer sim.terminateAll()

	node, err := sim.AddNode("ND01")
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Greater(t, node.Pid(), 0)
	assert.Equal(t, node, sim.Node("ND01"))
	assert.Contains(t, buf.String(), ",initialized,ND01")

	// unknown and duplicate names are rejected
	_, err = sim.AddNode("ND99")
	assert.Error(t, err)
	_, err = sim.AddNode("ND01")
	assert.Error(t, err)
}

func TestUpdateNode(t *testing.T) {
	sim, buf, _ := newTestSimulation(t, nil)
	defer sim.terminateAll()

	// not spawned yet
	assert.Error(t, sim.UpdateNode("ND01"))

	_, err := sim.AddNode("ND01")
	require.NoError(t, err)
	require.NoError(t, sim.UpdateNode("ND01"))
	assert.Contains(t, buf.String(), ",send_command,ND01,node_update,ND01,")
}

func TestSetConnectivity(t *testing.T) {
	sim, buf, _ := newTestSimulation(t, nil)

	require.NoError(t, sim.SetConnectivity("0110100110010110"))
	assert.Contains(t, buf.String(), ",connectivity_update,0110100110010110")
	assert.True(t, sim.Dispatcher().Reachable("ND01", "ND02"))
	assert.False(t, sim.Dispatcher().Reachable("ND01", "ND04"))

	assert.Error(t, sim.SetConnectivity("01"))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "spawning", PhaseSpawning.String())
	assert.Equal(t, "running", PhaseRunning.String())
	assert.Equal(t, "draining", PhaseDraining.String())
	assert.Equal(t, "terminated", PhaseTerminated.String())
}

func TestRunMissingTimelineIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = filepath.Join(t.TempDir(), "missing.txt")
	sim, _, _ := newTestSimulation(t, cfg)

	assert.Error(t, sim.Run())
	assert.Equal(t, PhaseIdle, sim.Phase())
}

// TestRunEndToEnd drives a full run: two nodes, one connectivity update and
// one injected transmit. The echo node turns the injected line into a push
// notification, which must be forwarded to the one reachable peer.
func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.txt")
	timelineData := `0.0,-1,0110
0.2,ND01,transmit_packet,2,DEAD
`
	require.NoError(t, os.WriteFile(input, []byte(timelineData), 0644))

	cfg := DefaultConfig()
	cfg.Nodes = []string{"ND01", "ND02"}
	cfg.Input = input
	cfg.OutputDir = dir
	cfg.SpawnOffsets = []float64{0, 0}
	cfg.Duration = Duration(700 * time.Millisecond)
	cfg.QueryTimeout = Duration(time.Second)
	sim, buf, ctx := newTestSimulation(t, cfg)

	require.NoError(t, sim.Run())
	assert.Equal(t, PhaseTerminated, sim.Phase())

	log := buf.String()
	assert.Contains(t, log, ",initialized,ND01")
	assert.Contains(t, log, ",initialized,ND02")
	assert.Contains(t, log, "0.000,connectivity_update,0110")
	assert.Contains(t, log, "0.200,send_command,ND01,transmit_packet,2,DEAD")
	txIdx := strings.Index(log, ",tx,ND01,DEAD")
	fwdIdx := strings.Index(log, ",forward,ND01,ND02,DEAD")
	require.Greater(t, txIdx, -1)
	require.Greater(t, fwdIdx, -1)
	assert.Less(t, txIdx, fwdIdx)
	// a node never receives a forward sourced from itself
	assert.NotContains(t, log, ",forward,ND01,ND01,")
	assert.NotContains(t, log, ",forward,ND02,ND02,")
	// the post-forward state probe and the final drain both query ND02
	assert.Contains(t, log, ",state,ND02,get_state")

	// per-node capture logs were produced
	for _, name := range cfg.Nodes {
		_, err := os.Stat(filepath.Join(dir, name+".stdout.log"))
		assert.NoError(t, err)
	}

	ctx.Cancel(nil)
	ctx.Wait()
}

// TestRunStopAfterTimeline checks the run ends on timeline exhaustion when
// configured so, without a duration limit.
func TestRunStopAfterTimeline(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.txt")
	require.NoError(t, os.WriteFile(input, []byte("0.0,-1,0110\n"), 0644))

	cfg := DefaultConfig()
	cfg.Nodes = []string{"ND01", "ND02"}
	cfg.Input = input
	cfg.OutputDir = dir
	cfg.SpawnOffsets = []float64{0, 0}
	cfg.StopAfterTimeline = true
	cfg.QueryTimeout = Duration(time.Second)
	sim, _, ctx := newTestSimulation(t, cfg)

	done := make(chan error, 1)
	go func() {
		done <- sim.Run()
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop after the timeline was exhausted")
	}

	ctx.Cancel(nil)
	ctx.Wait()
}

// TestRunUnknownDestination checks a timeline entry addressed to a name
// outside the node set is dropped without failing the run.
func TestRunUnknownDestination(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.txt")
	timelineData := `0.0,XX,get_state
0.1,ND01,get_state
`
	require.NoError(t, os.WriteFile(input, []byte(timelineData), 0644))

	cfg := DefaultConfig()
	cfg.Nodes = []string{"ND01"}
	cfg.Input = input
	cfg.OutputDir = dir
	cfg.SpawnOffsets = []float64{0}
	cfg.StopAfterTimeline = true
	cfg.QueryTimeout = Duration(time.Second)
	sim, buf, ctx := newTestSimulation(t, cfg)

	require.NoError(t, sim.Run())

	log := buf.String()
	assert.NotContains(t, log, "send_command,XX")
	assert.Contains(t, log, "0.100,send_command,ND01,get_state")

	ctx.Cancel(nil)
	ctx.Wait()
}

func TestStopCancelsContext(t *testing.T) {
	sim, _, ctx := newTestSimulation(t, nil)
	sim.Stop()
	assert.Equal(t, context.Canceled, ctx.Err())
}

func TestDrainReportsUnspawnedNodes(t *testing.T) {
	sim, _, _ := newTestSimulation(t, nil)
	out := sim.drain()
	assert.Contains(t, out, "ND01:")
	assert.True(t, strings.Contains(out, "<never spawned>"))
}
