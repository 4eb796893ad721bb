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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultNodeNames, cfg.Nodes)
	assert.Equal(t, DefaultNodeExecutable, cfg.NodeExecutable)
	assert.True(t, cfg.StateProbe)
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nodes = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Nodes = []string{"ND01", ""}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Nodes = []string{"ND01", "ND01"}
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SpawnOffsets = []float64{1, 2} // 2 offsets for 4 nodes
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SpawnMax = -1
	assert.Error(t, cfg.Validate())
}

func TestReadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lns.yaml")
	content := `nodes: [N1, N2]
node_exe: ./node
outdir: /tmp/run
input: events.txt
duration: 30s
spawn_offsets: [0.5, 1.5]
seed: 42
state_probe: false
stop_after_timeline: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, ReadConfigFile(path, cfg))
	assert.Equal(t, []string{"N1", "N2"}, cfg.Nodes)
	assert.Equal(t, "./node", cfg.NodeExecutable)
	assert.Equal(t, "/tmp/run", cfg.OutputDir)
	assert.Equal(t, "events.txt", cfg.Input)
	assert.Equal(t, Duration(30*time.Second), cfg.Duration)
	assert.Equal(t, []float64{0.5, 1.5}, cfg.SpawnOffsets)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.False(t, cfg.StateProbe)
	assert.True(t, cfg.StopAfterTimeline)
	// values absent from the file keep their defaults
	assert.Equal(t, Duration(DefaultQueryTimeout), cfg.QueryTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestReadConfigFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, ReadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg))
}
