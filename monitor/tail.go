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

// Package monitor renders a live terminal view of a run by following its
// event log file, for watching a simulation from a second terminal.
package monitor

import (
	"bufio"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"

	"github.com/loranetsim/lns/progctx"
)

const DefaultPollInterval = 200 * time.Millisecond

// Tail follows a growing file and hands complete lines to a callback, in
// order. The writer appends whole lines only, so a partial read means the
// line is still being written and is retried on the next poll.
type Tail struct {
	path     string
	interval time.Duration
	fromEnd  bool
}

func NewTail(path string, interval time.Duration, fromEnd bool) *Tail {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Tail{path: path, interval: interval, fromEnd: fromEnd}
}

// Run follows the file until ctx is cancelled, invoking handle for every
// complete line. It waits for the file to appear first, so the monitor can
// be started before the run.
func (t *Tail) Run(ctx *progctx.ProgCtx, handle func(line string)) error {
	defer ctx.WaitDone("tail")

	f, err := t.waitOpen(ctx)
	if f == nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	if t.fromEnd {
		if _, err = f.Seek(0, io.SeekEnd); err != nil {
			return errors.Wrapf(err, "seeking to end of %s", t.path)
		}
	}

	reader := bufio.NewReader(f)
	var partial []byte
	for {
		line, err := reader.ReadString('\n')
		if err == nil {
			if len(partial) > 0 {
				line = string(partial) + line
				partial = partial[:0]
			}
			handle(line[:len(line)-1])
			continue
		}
		if err != io.EOF {
			return errors.Wrapf(err, "reading %s", t.path)
		}
		// incomplete trailing line: stash it and poll for the rest
		partial = append(partial, line...)

		select {
		case <-time.After(t.interval):
		case <-ctx.Done():
			return nil
		}
	}
}

func (t *Tail) waitOpen(ctx *progctx.ProgCtx) (*os.File, error) {
	for {
		f, err := os.Open(t.path)
		if err == nil {
			return f, nil
		}
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "opening %s", t.path)
		}
		select {
		case <-time.After(t.interval):
		case <-ctx.Done():
			return nil, nil
		}
	}
}
