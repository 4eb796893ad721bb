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
	"time"

	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/stats"
	"github.com/loranetsim/lns/timeline"
)

// runLoader walks the time-sorted timeline, aligning wall-clock time with
// each event's logical timestamp. A late event fires immediately: order is
// preserved, wall-clock fidelity is not. It stops issuing new sends as soon
// as the stop signal is observed; closing done signals timeline exhaustion.
func (s *Simulation) runLoader(events []timeline.Event, done chan<- struct{}) {
	defer s.ctx.WaitDone("loader")
	defer close(done)
	defer logger.Debugf("loader exit.")

	for i := range events {
		ev := &events[i]

		wait := time.Duration(ev.Timestamp*float64(time.Second)) - s.sink.Elapsed()
		if wait > 0 {
			select {
			case <-time.After(wait):
			case <-s.ctx.Done():
				return
			}
		}
		if s.ctx.Err() != nil {
			return
		}

		s.applyEvent(ev)
	}
	logger.Infof("timeline exhausted (%d events)", len(events))
}

// applyEvent applies one timeline event: either a full connectivity-matrix
// replacement, or a command sent to a specific node. Failures are reported
// and the run continues.
func (s *Simulation) applyEvent(ev *timeline.Event) {
	if ev.IsConnectivityUpdate() {
		if err := s.d.UpdateConnectivity(ev.Payload, ev.Timestamp); err != nil {
			logger.Errorf("connectivity update at ts %.3f: %v", ev.Timestamp, err)
			stats.EventsDropped.Inc()
		}
		return
	}

	node := s.Node(ev.Destination)
	if node == nil {
		logger.Errorf("unknown destination '%s' at ts %.3f", ev.Destination, ev.Timestamp)
		stats.EventsDropped.Inc()
		return
	}
	if err := node.SendCommand(ev.Payload); err != nil {
		logger.Errorf("sending to %s at ts %.3f: %v", ev.Destination, ev.Timestamp, err)
		return
	}
	s.sink.EmitAt(ev.Timestamp, eventlog.RecordSendCommand, ev.Destination, ev.Payload)
	stats.CommandsSent.Inc()
}
