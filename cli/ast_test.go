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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	_, err := ParseCommand("wrongcmd")
	assert.NotNil(t, err)

	cmd, err := ParseCommand("add ND01")
	assert.Nil(t, err)
	assert.True(t, cmd.Add != nil && cmd.Add.Name == "ND01")

	cmd, err = ParseCommand("conn 0110")
	assert.Nil(t, err)
	assert.True(t, cmd.Conn != nil && cmd.Conn.Bits == "0110")

	cmd, err = ParseCommand("exit")
	assert.Nil(t, err)
	assert.NotNil(t, cmd.Exit)
	cmd, err = ParseCommand("stop")
	assert.Nil(t, err)
	assert.NotNil(t, cmd.Exit)

	cmd, err = ParseCommand("nodes")
	assert.Nil(t, err)
	assert.NotNil(t, cmd.Nodes)

	cmd, err = ParseCommand("state ND02")
	assert.Nil(t, err)
	assert.True(t, cmd.State != nil && cmd.State.Name == "ND02")

	cmd, err = ParseCommand("update ND03")
	assert.Nil(t, err)
	assert.True(t, cmd.Update != nil && cmd.Update.Name == "ND03")

	_, err = ParseCommand("add")
	assert.NotNil(t, err)
	_, err = ParseCommand("state")
	assert.NotNil(t, err)
}
