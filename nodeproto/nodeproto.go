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

// Package nodeproto implements the line-oriented text protocol spoken by
// the external node process on its standard input/output. The node is not
// aware of the orchestrator's query protocol - it simply emits lines - so
// classification of its output into push notifications and query responses
// happens here, on the consuming side.
package nodeproto

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Commands sent to a node. Any other command line is passed through opaquely.
const (
	CmdGetState      = "get_state"
	cmdReceivePacket = "network_receive_packet"
	cmdNodeUpdate    = "node_update"
)

// transmit_packet is the one recognized push notification emitted by a node.
const pushTransmitPacket = "transmit_packet"

// OutputClass tags a classified node stdout line.
type OutputClass int

const (
	// ClassResponse is any line that answers (or may answer) a query.
	ClassResponse OutputClass = iota
	// ClassTransmit is a transmit_packet push notification.
	ClassTransmit
)

// TransmitPacket is the payload of a transmit_packet push notification.
type TransmitPacket struct {
	Len     int
	HexData string
}

// OutputLine is one classified node stdout line.
type OutputLine struct {
	Class  OutputClass
	Raw    string
	Packet TransmitPacket // valid when Class == ClassTransmit
}

// ParseOutputLine classifies one node stdout line. A malformed
// transmit_packet line yields an error; the caller reports and drops it.
func ParseOutputLine(line string) (OutputLine, error) {
	if !strings.HasPrefix(line, pushTransmitPacket+",") && line != pushTransmitPacket {
		return OutputLine{Class: ClassResponse, Raw: line}, nil
	}

	// format: transmit_packet,<LEN>,<HEXDATA>
	parts := strings.SplitN(line, ",", 3)
	if len(parts) < 3 {
		return OutputLine{}, errors.Errorf("malformed transmit_packet line: %q", line)
	}
	length, err := strconv.Atoi(parts[1])
	if err != nil {
		return OutputLine{}, errors.Wrapf(err, "malformed transmit_packet length: %q", parts[1])
	}
	return OutputLine{
		Class: ClassTransmit,
		Raw:   line,
		Packet: TransmitPacket{
			Len:     length,
			HexData: parts[2],
		},
	}, nil
}

// ReceivePacketCommand builds the command delivering a forwarded payload.
func ReceivePacketCommand(hexData string) string {
	return cmdReceivePacket + "," + hexData
}

// NodeUpdateCommand builds a node_update command.
func NodeUpdateCommand(name string, ts int64, lat, lon int) string {
	return cmdNodeUpdate + "," + name + "," + strconv.FormatInt(ts, 10) + "," +
		strconv.Itoa(lat) + "," + strconv.Itoa(lon)
}

// IsStateResponse reports whether a response line answers a get_state query.
func IsStateResponse(line string) bool {
	return line == CmdGetState || strings.HasPrefix(line, CmdGetState+",")
}

// StateEntry is one node's view of one peer, as carried in a get_state
// response. The values stay opaque strings: the orchestrator only relays
// them between the node and the operator.
type StateEntry struct {
	Name      string
	Timestamp string
	Latitude  string
	Longitude string
}

// State is a parsed get_state response.
type State struct {
	UptimeMs string
	Entries  []StateEntry
}

// ParseStateResponse parses a get_state response line:
// get_state,<uptime_ms>,(<name>,<ts>,<lat>,<lon>)*
func ParseStateResponse(line string) (*State, error) {
	if !IsStateResponse(line) {
		return nil, errors.Errorf("not a get_state response: %q", line)
	}
	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return nil, errors.Errorf("get_state response missing uptime: %q", line)
	}

	st := &State{UptimeMs: parts[1]}
	entries := parts[2:]
	for i := 0; i+4 <= len(entries); i += 4 {
		st.Entries = append(st.Entries, StateEntry{
			Name:      entries[i],
			Timestamp: entries[i+1],
			Latitude:  entries[i+2],
			Longitude: entries[i+3],
		})
	}
	return st, nil
}
