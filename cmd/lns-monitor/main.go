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

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/monitor"
	"github.com/loranetsim/lns/progctx"
)

var args struct {
	Mode    string
	FromEnd bool
}

func parseArgs() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <sim_output.log>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  Renders a live terminal view of a running simulation's event log.\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&args.Mode, "mode", string(monitor.ModeEvents), "view mode: events or state")
	flag.BoolVar(&args.FromEnd, "from-end", false, "skip existing log content, show new records only")
	flag.Parse()

	if len(flag.Args()) != 1 {
		flag.Usage()
		os.Exit(1)
	}
}

func main() {
	parseArgs()
	logger.SetLevel(logger.WarnLevel)

	mode := monitor.Mode(args.Mode)
	if mode != monitor.ModeEvents && mode != monitor.ModeState {
		logger.Fatalf("unknown mode %q", args.Mode)
	}

	ctx := progctx.New(context.Background())

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-c
		ctx.Cancel(nil)
	}()

	err := monitor.Run(ctx, flag.Arg(0), mode, args.FromEnd)
	logger.FatalIfError(err)
	ctx.Wait()
}
