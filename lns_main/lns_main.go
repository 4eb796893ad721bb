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

// Package lns_main wires the whole orchestrator together: configuration,
// event log, simulation, interactive console, signals and metrics.
package lns_main

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/loranetsim/lns/cli"
	"github.com/loranetsim/lns/cli/runcli"
	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/prng"
	"github.com/loranetsim/lns/progctx"
	"github.com/loranetsim/lns/simulation"
	"github.com/loranetsim/lns/stats"
)

const EventLogFileName = "sim_output.log"

type MainArgs struct {
	ConfigFile        string
	Input             string
	Nodes             string
	NodeExecutable    string
	OutputDir         string
	Duration          time.Duration
	SpawnOffsets      string
	SpawnMax          float64
	Seed              int64
	LogLevel          string
	MetricsAddr       string
	Quiet             bool
	NoStateProbe      bool
	StopAfterTimeline bool
}

var (
	args MainArgs
)

func parseArgs() {
	flag.StringVar(&args.ConfigFile, "config", "", "YAML configuration file; flags override its values")
	flag.StringVar(&args.Input, "input", "", "timeline file driving the run; empty starts interactive mode")
	flag.StringVar(&args.Nodes, "nodes", "", "comma-separated node names (default ND01..ND04)")
	flag.StringVar(&args.NodeExecutable, "node-exe", "", "node executable spawned per simulated node")
	flag.StringVar(&args.OutputDir, "outdir", "", "directory for the event log and per-node capture logs")
	flag.DurationVar(&args.Duration, "duration", 0, "stop the run after this much wall-clock time (0 = no limit)")
	flag.StringVar(&args.SpawnOffsets, "spawn-offsets", "", "comma-separated per-node spawn delays in seconds")
	flag.Float64Var(&args.SpawnMax, "spawn-max", -1, "upper bound for randomized spawn delays, in seconds")
	flag.Int64Var(&args.Seed, "seed", 0, "PRNG root seed; 0 seeds from the clock")
	flag.StringVar(&args.LogLevel, "log", "info", "set logging level: trace, debug, info, warn, error.")
	flag.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics on this address (e.g. :9100)")
	flag.BoolVar(&args.Quiet, "quiet", false, "do not echo event-log records to stdout")
	flag.BoolVar(&args.NoStateProbe, "no-state-probe", false, "do not query a node's state after each forwarded packet")
	flag.BoolVar(&args.StopAfterTimeline, "stop-after-timeline", false, "stop the run once the timeline is exhausted")

	flag.Parse()
}

func Main(ctx *progctx.ProgCtx, cliOptions *runcli.CliOptions) {
	parseArgs()
	logger.SetLevel(logger.ParseLevel(args.LogLevel))

	// run console in the main goroutine
	ctx.Defer(func() {
		_ = os.Stdin.Close()
	})

	handleSignals(ctx)

	simcfg := buildConfig()
	prng.Init(simcfg.Seed)

	logFile, err := os.Create(filepath.Join(simcfg.OutputDir, EventLogFileName))
	logger.FatalIfError(err)
	defer func() {
		_ = logFile.Close()
	}()

	writers := []io.Writer{logFile}
	if !args.Quiet {
		writers = append(writers, os.Stdout)
	}
	sink := eventlog.NewSink(time.Now(), writers...)

	if args.MetricsAddr != "" {
		ctx.WaitAdd("stats", 1)
		go stats.Serve(ctx, args.MetricsAddr)
	}

	sim := simulation.NewSimulation(ctx, simcfg, sink)

	if runcli.IsTerminal() {
		rt := cli.NewCmdRunner(ctx, sim)
		logger.SetStdoutCallback(promptRestorer{})
		ctx.WaitAdd("cli", 1)
		go func() {
			defer ctx.WaitDone("cli")
			err := cli.Run(rt, cliOptions)
			ctx.Cancel(err)
		}()
	} else if simcfg.Input == "" {
		logger.Fatalf("interactive mode needs a terminal; use -input to drive a timeline run")
	}

	err = sim.Run()
	logger.FatalIfError(err)

	ctx.Cancel(nil)
	ctx.Wait()
}

// promptRestorer redraws the console prompt after the logger wrote over it.
type promptRestorer struct{}

func (promptRestorer) OnStdout() {
	runcli.RestorePrompt()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer logger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// buildConfig layers configuration: built-in defaults, then the YAML file,
// then command-line flags. Invalid configuration is fatal.
func buildConfig() *simulation.Config {
	simcfg := simulation.DefaultConfig()

	if args.ConfigFile != "" {
		logger.FatalIfError(simulation.ReadConfigFile(args.ConfigFile, simcfg))
	}

	if args.Input != "" {
		simcfg.Input = args.Input
	}
	if args.Nodes != "" {
		simcfg.Nodes = splitNonEmpty(args.Nodes)
	}
	if args.NodeExecutable != "" {
		simcfg.NodeExecutable = args.NodeExecutable
	}
	if args.OutputDir != "" {
		simcfg.OutputDir = args.OutputDir
	}
	if args.Duration > 0 {
		simcfg.Duration = simulation.Duration(args.Duration)
	}
	if args.SpawnOffsets != "" {
		simcfg.SpawnOffsets = parseOffsets(args.SpawnOffsets)
	}
	if args.SpawnMax >= 0 {
		simcfg.SpawnMax = args.SpawnMax
	}
	if args.Seed != 0 {
		simcfg.Seed = args.Seed
	}
	if args.NoStateProbe {
		simcfg.StateProbe = false
	}
	if args.StopAfterTimeline {
		simcfg.StopAfterTimeline = true
	}

	logger.FatalIfError(simcfg.Validate())
	return simcfg
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOffsets(s string) []float64 {
	parts := splitNonEmpty(s)
	offsets := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			logger.Fatalf("invalid spawn offset %q: %v", part, err)
		}
		offsets[i] = v
	}
	return offsets
}
