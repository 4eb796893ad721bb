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

package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/prng"
	"github.com/loranetsim/lns/progctx"
	"github.com/loranetsim/lns/simulation"
)

func newTestRunner(t *testing.T) (*CmdRunner, *progctx.ProgCtx, *simulation.Simulation) {
	t.Helper()
	prng.Init(1)

	cfg := simulation.DefaultConfig()
	cfg.Nodes = []string{"ND01", "ND02"}
	cfg.NodeExecutable = "/bin/cat"
	cfg.OutputDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	sink := eventlog.NewSink(time.Now(), &bytes.Buffer{})
	ctx := progctx.New(context.Background())
	sim := simulation.NewSimulation(ctx, cfg, sink)
	return NewCmdRunner(ctx, sim), ctx, sim
}

func handle(t *testing.T, rt *CmdRunner, line string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, rt.HandleCommand(line, &out))
	return out.String()
}

func TestCmdRunnerAddAndNodes(t *testing.T) {
	rt, _, sim := newTestRunner(t)
	defer sim.Stop()

	out := handle(t, rt, "nodes")
	assert.Contains(t, out, "ND01\tnot spawned")

	out = handle(t, rt, "add ND01")
	assert.Empty(t, out)
	require.NotNil(t, sim.Node("ND01"))
	defer sim.Node("ND01").Exit()

	out = handle(t, rt, "nodes")
	assert.Contains(t, out, "pid ")

	out = handle(t, rt, "add ND01")
	assert.Contains(t, out, "Error:")
	out = handle(t, rt, "add ND99")
	assert.Contains(t, out, "Error:")
}

func TestCmdRunnerConn(t *testing.T) {
	rt, _, sim := newTestRunner(t)

	out := handle(t, rt, "conn 0110")
	assert.Empty(t, out)
	assert.True(t, sim.Dispatcher().Reachable("ND01", "ND02"))

	out = handle(t, rt, "conn 01")
	assert.Contains(t, out, "Error:")
}

func TestCmdRunnerState(t *testing.T) {
	rt, _, sim := newTestRunner(t)

	out := handle(t, rt, "state ND01")
	assert.Contains(t, out, "Error:")

	handle(t, rt, "add ND01")
	defer sim.Node("ND01").Exit()

	// the cat node echoes the get_state query back as its response
	out = handle(t, rt, "state ND01")
	assert.Contains(t, out, "ND01: get_state")
}

func TestCmdRunnerUpdate(t *testing.T) {
	rt, _, sim := newTestRunner(t)

	out := handle(t, rt, "update ND01")
	assert.Contains(t, out, "Error:")

	handle(t, rt, "add ND01")
	defer sim.Node("ND01").Exit()

	out = handle(t, rt, "update ND01")
	assert.Empty(t, out)
}

func TestCmdRunnerExit(t *testing.T) {
	rt, ctx, _ := newTestRunner(t)
	handle(t, rt, "exit")
	assert.Equal(t, context.Canceled, ctx.Err())
}

func TestCmdRunnerParseErrorIsReportedNotReturned(t *testing.T) {
	rt, _, _ := newTestRunner(t)
	out := handle(t, rt, "frobnicate")
	assert.Contains(t, out, "Error:")
}

func TestCmdRunnerPrompt(t *testing.T) {
	rt, _, _ := newTestRunner(t)
	assert.Equal(t, "> ", rt.GetPrompt())
}
