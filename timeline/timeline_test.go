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

package timeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	input := `# a comment line
0.0,-1,0110100110010110

1.5,ND01,transmit_packet,2,DEAD  # trailing comment
0.5,ND02,get_state
`
	events, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 3)

	// sorted by timestamp, not input order
	assert.Equal(t, 0.0, events[0].Timestamp)
	assert.True(t, events[0].IsConnectivityUpdate())
	assert.Equal(t, "0110100110010110", events[0].Payload)

	assert.Equal(t, 0.5, events[1].Timestamp)
	assert.Equal(t, "ND02", events[1].Destination)
	assert.Equal(t, "get_state", events[1].Payload)

	assert.Equal(t, 1.5, events[2].Timestamp)
	assert.Equal(t, "ND01", events[2].Destination)
	// payload keeps its internal commas, but not the stripped comment
	assert.Equal(t, "transmit_packet,2,DEAD", events[2].Payload)
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	input := `not-an-event
1.0,ND01
-2.0,ND01,get_state
abc,ND01,get_state
2.0,ND01,get_state
`
	events, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2.0, events[0].Timestamp)
}

func TestLoadStableSortKeepsEqualTimestampOrder(t *testing.T) {
	input := `1.0,ND01,first
1.0,ND02,second
1.0,ND03,third
0.5,ND04,earlier
`
	events, err := Load(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "ND04", events[0].Destination)
	assert.Equal(t, "first", events[1].Payload)
	assert.Equal(t, "second", events[2].Payload)
	assert.Equal(t, "third", events[3].Payload)
}

func TestLoadEmpty(t *testing.T) {
	events, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.txt")
	require.NoError(t, os.WriteFile(path, []byte("0.0,-1,0110\n"), 0644))

	events, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, events[0].IsConnectivityUpdate())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
