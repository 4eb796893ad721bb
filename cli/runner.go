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

// Package cli implements the interactive operator console of the
// orchestrator. In interactive mode it is how nodes get spawned and the
// matrix gets set; alongside a timeline run it is the interactive stop
// surface.
package cli

import (
	"fmt"
	"io"

	"github.com/loranetsim/lns/cli/runcli"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/progctx"
	"github.com/loranetsim/lns/simulation"
)

type CmdRunner struct {
	ctx *progctx.ProgCtx
	sim *simulation.Simulation
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{ctx: ctx, sim: sim}
}

// Run runs the console loop; it returns when the console closes.
func Run(rt *CmdRunner, options *runcli.CliOptions) error {
	return runcli.RunCli(rt, options)
}

func (rt *CmdRunner) GetPrompt() string {
	return "> "
}

func (rt *CmdRunner) HandleCommand(line string, output io.Writer) error {
	cmd, err := ParseCommand(line)
	if err != nil {
		_, _ = fmt.Fprintf(output, "Error: %v\n", err)
		return nil
	}
	rt.execute(cmd, output)
	return nil
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	switch {
	case cmd.Add != nil:
		if _, err := rt.sim.AddNode(cmd.Add.Name); err != nil {
			_, _ = fmt.Fprintf(output, "Error: %v\n", err)
		}
	case cmd.Conn != nil:
		if err := rt.sim.SetConnectivity(cmd.Conn.Bits); err != nil {
			_, _ = fmt.Fprintf(output, "Error: %v\n", err)
		}
	case cmd.Update != nil:
		if err := rt.sim.UpdateNode(cmd.Update.Name); err != nil {
			_, _ = fmt.Fprintf(output, "Error: %v\n", err)
		}
	case cmd.State != nil:
		rt.executeState(cmd.State, output)
	case cmd.Nodes != nil:
		for _, name := range rt.sim.NodeNames() {
			status := "not spawned"
			if node := rt.sim.Node(name); node != nil {
				status = fmt.Sprintf("pid %d", node.Pid())
			}
			_, _ = fmt.Fprintf(output, "%s\t%s\n", name, status)
		}
	case cmd.Exit != nil:
		rt.ctx.Cancel(nil)
	default:
		logger.Panicf("unhandled console command: %+v", cmd)
	}
}

func (rt *CmdRunner) executeState(cmd *StateCmd, output io.Writer) {
	node := rt.sim.Node(cmd.Name)
	if node == nil {
		_, _ = fmt.Fprintf(output, "Error: node %s is not spawned\n", cmd.Name)
		return
	}
	resp, ok := node.QueryState(simulation.DefaultQueryTimeout)
	if !ok {
		_, _ = fmt.Fprintf(output, "%s: <no response>\n", cmd.Name)
		return
	}
	_, _ = fmt.Fprintf(output, "%s: %s\n", cmd.Name, resp)
}
