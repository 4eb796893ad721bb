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
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add    *AddCmd    `  @@` //nolint
	Conn   *ConnCmd   `| @@` //nolint
	Exit   *ExitCmd   `| @@` //nolint
	Nodes  *NodesCmd  `| @@` //nolint
	State  *StateCmd  `| @@` //nolint
	Update *UpdateCmd `| @@` //nolint
}

// AddCmd spawns a configured node now.
// noinspection GoStructTag
type AddCmd struct {
	Cmd  struct{} `"add"`  //nolint
	Name string   `@Ident` //nolint
}

// ConnCmd replaces the connectivity matrix with a flat row-major bitstring.
// noinspection GoStructTag
type ConnCmd struct {
	Cmd  struct{} `"conn"`        //nolint
	Bits string   `@(Int|Ident)` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `("exit"|"stop")` //nolint
}

// NodesCmd lists the configured nodes and whether each is spawned.
// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// StateCmd queries one node's state and prints the response.
// noinspection GoStructTag
type StateCmd struct {
	Cmd  struct{} `"state"` //nolint
	Name string   `@Ident`  //nolint
}

// UpdateCmd sends a node_update with random coordinates to a spawned node.
// noinspection GoStructTag
type UpdateCmd struct {
	Cmd  struct{} `"update"` //nolint
	Name string   `@Ident`   //nolint
}

var commandParser = participle.MustBuild(&Command{})

// ParseCommand parses one console command line.
func ParseCommand(line string) (*Command, error) {
	cmd := &Command{}
	if err := commandParser.ParseString(line, cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}
