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
	"bufio"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/loranetsim/lns/dispatcher"
	"github.com/loranetsim/lns/eventlog"
	"github.com/loranetsim/lns/logger"
	"github.com/loranetsim/lns/nodeproto"
	"github.com/loranetsim/lns/stats"
)

const NodeExitTimeout = 3 * time.Second

// Node supervises one external node process: it owns the process handle,
// the single-writer channel to its stdin, and two background readers that
// run for the process lifetime. The stdout reader splits the one physical
// stream into push events (handed to the dispatcher) and query responses
// (kept in a single-slot mailbox).
type Node struct {
	name string

	sink *eventlog.Sink
	d    *dispatcher.Dispatcher

	cmd     *exec.Cmd
	pipeIn  io.WriteCloser
	pipeOut io.ReadCloser
	pipeErr io.ReadCloser
	stdinMu sync.Mutex

	// resp holds at most the most recent unconsumed query response;
	// "get latest, not history" is the documented contract.
	resp chan string

	outLog  *os.File
	errLog  *os.File
	outSink *eventlog.Sink
	errSink *eventlog.Sink
}

// newNode launches the external node program with piped stdio and starts
// the two background readers. A node that cannot be started is fatal to
// the run; the caller aborts.
func newNode(name, exePath, outputDir string, sink *eventlog.Sink, d *dispatcher.Dispatcher) (*Node, error) {
	node := &Node{
		name: name,
		sink: sink,
		d:    d,
		cmd:  exec.Command(exePath),
		resp: make(chan string, 1),
	}

	var err error
	if node.outLog, err = os.Create(filepath.Join(outputDir, name+".stdout.log")); err != nil {
		return nil, errors.Wrapf(err, "creating stdout log for %s", name)
	}
	if node.errLog, err = os.Create(filepath.Join(outputDir, name+".stderr.log")); err != nil {
		_ = node.outLog.Close()
		return nil, errors.Wrapf(err, "creating stderr log for %s", name)
	}
	// capture logs share the run's start instant, so their timestamps line
	// up with the event log.
	node.outSink = eventlog.NewSink(sink.Start(), node.outLog)
	node.errSink = eventlog.NewSink(sink.Start(), node.errLog)

	if node.pipeIn, err = node.cmd.StdinPipe(); err != nil {
		node.closeLogs()
		return nil, err
	}
	if node.pipeOut, err = node.cmd.StdoutPipe(); err != nil {
		node.closeLogs()
		return nil, err
	}
	if node.pipeErr, err = node.cmd.StderrPipe(); err != nil {
		node.closeLogs()
		return nil, err
	}

	if err = node.cmd.Start(); err != nil {
		node.closeLogs()
		return nil, errors.Wrapf(err, "starting %s for node %s", exePath, name)
	}

	go node.lineReaderStdOut(node.pipeOut)
	go node.lineReaderStdErr(node.pipeErr)

	return node, nil
}

func (node *Node) String() string {
	return node.name
}

// Name implements dispatcher.NodeTransport.
func (node *Node) Name() string {
	return node.name
}

// Pid returns the node process id.
func (node *Node) Pid() int {
	return node.cmd.Process.Pid
}

// SendCommand writes one command line to the node, atomically with respect
// to other writers to this process. Fire-and-forget: it blocks only on
// pipe-buffer backpressure.
func (node *Node) SendCommand(cmd string) error {
	node.stdinMu.Lock()
	defer node.stdinMu.Unlock()

	_, err := io.WriteString(node.pipeIn, cmd+"\n")
	return err
}

// QueryState discards any previously unconsumed response, sends get_state
// and waits for a line tagged as a state response, up to timeout. One
// deadline-bounded attempt is the whole contract; there are no retries.
// Concurrent callers race on the discard step and must be serialized
// (the dispatcher's lock does this for probe queries).
func (node *Node) QueryState(timeout time.Duration) (string, bool) {
	select {
	case <-node.resp:
	default:
	}

	if err := node.SendCommand(nodeproto.CmdGetState); err != nil {
		logger.Errorf("node %s: sending get_state: %v", node.name, err)
		return "", false
	}

	deadline := time.After(timeout)
	for {
		select {
		case line := <-node.resp:
			if nodeproto.IsStateResponse(line) {
				return line, true
			}
			// a stale response to some earlier command; keep waiting
		case <-deadline:
			stats.QueryTimeouts.Inc()
			return "", false
		}
	}
}

// lineReaderStdOut consumes the node's stdout for the process lifetime.
// Every line is appended, timestamped, to the capture log. transmit_packet
// push notifications never touch the response mailbox: they are logged as
// tx and handed to the dispatcher for fan-out. Everything else overwrites
// the mailbox.
func (node *Node) lineReaderStdOut(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		line := scanner.Text()
		node.outSink.Emit(line)

		out, err := nodeproto.ParseOutputLine(line)
		if err != nil {
			logger.Warnf("node %s: %v", node.name, err)
			continue
		}

		switch out.Class {
		case nodeproto.ClassTransmit:
			node.sink.Emit(eventlog.RecordTx, node.name, out.Packet.HexData)
			stats.PacketsTransmitted.Inc()
			node.d.Deliver(node.name, out.Packet.HexData)
		default:
			node.pushResponse(line)
		}
	}
	logger.Debugf("node %s: stdout closed", node.name)
}

// pushResponse places line in the single-slot mailbox, discarding an
// unconsumed older value rather than blocking the reader.
func (node *Node) pushResponse(line string) {
	for {
		select {
		case node.resp <- line:
			return
		default:
			select {
			case <-node.resp:
			default:
			}
		}
	}
}

// lineReaderStdErr consumes the node's stderr for the process lifetime;
// lines are captured, timestamped, and never affect control flow.
func (node *Node) lineReaderStdErr(reader io.Reader) {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		node.errSink.Emit(scanner.Text())
	}
}

// Exit terminates the node process, best effort: the process may already
// be gone, and all errors are swallowed.
func (node *Node) Exit() {
	_ = node.cmd.Process.Signal(syscall.SIGTERM)

	// Pipes are closed so the readers and cmd.Wait() do not hang.
	_ = node.pipeIn.Close()
	_ = node.pipeOut.Close()
	_ = node.pipeErr.Close()

	done := make(chan error, 1)
	go func() {
		done <- node.cmd.Wait()
	}()
	select {
	case <-done:
	case <-time.After(NodeExitTimeout):
		logger.Warnf("node %s did not exit in time, sending SIGKILL", node.name)
		_ = node.cmd.Process.Kill()
		<-done
	}

	node.closeLogs()
}

func (node *Node) closeLogs() {
	if node.outLog != nil {
		_ = node.outLog.Close()
	}
	if node.errLog != nil {
		_ = node.errLog.Close()
	}
}
