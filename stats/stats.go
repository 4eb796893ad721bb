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

// Package stats exposes run counters over Prometheus, for long-running
// simulations that want external observation of the orchestrator itself.
package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/progctx"
)

var (
	PacketsTransmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lns",
		Name:      "packets_transmitted_total",
		Help:      "transmit_packet push notifications intercepted from nodes.",
	})
	PacketsForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lns",
		Name:      "packets_forwarded_total",
		Help:      "Per-destination packet deliveries fanned out by the dispatcher.",
	})
	CommandsSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lns",
		Name:      "commands_sent_total",
		Help:      "Timeline commands delivered to a node.",
	})
	ConnectivityUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lns",
		Name:      "connectivity_updates_total",
		Help:      "Full connectivity-matrix replacements applied.",
	})
	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lns",
		Name:      "events_dropped_total",
		Help:      "Timeline events dropped (unknown destination or bad matrix).",
	})
	QueryTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "lns",
		Name:      "query_timeouts_total",
		Help:      "get_state queries that hit their deadline with no response.",
	})
)

// Serve exposes /metrics on addr until the program context is cancelled.
// Run it on a goroutine registered as "stats" with the program context.
func Serve(ctx *progctx.ProgCtx, addr string) {
	defer ctx.WaitDone("stats")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	logger.Infof("stats listening on http://%s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
		logger.Errorf("stats server: %v", err)
	}
}
