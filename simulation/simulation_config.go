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
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNodeExecutable = "./network_simulator"
	DefaultSpawnMax       = 5.0
	DefaultQueryTimeout   = time.Second
)

var DefaultNodeNames = []string{"ND01", "ND02", "ND03", "ND04"}

// Duration is a time.Duration that decodes from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := time.ParseDuration(value.Value)
	if err != nil {
		return errors.Wrapf(err, "parsing duration %q", value.Value)
	}
	*d = Duration(v)
	return nil
}

type Config struct {
	// Nodes is the full node-name set of the run; the connectivity matrix
	// is defined over exactly this set, in this order.
	Nodes []string `yaml:"nodes"`

	// NodeExecutable is the external node program spawned per node.
	NodeExecutable string `yaml:"node_exe"`

	// OutputDir receives sim_output.log and the per-node capture logs.
	OutputDir string `yaml:"outdir"`

	// Input is the timeline file; empty enters interactive mode.
	Input string `yaml:"input"`

	// Duration stops the run when elapsed; zero means wait for cancellation
	// (or for the timeline, see StopAfterTimeline).
	Duration Duration `yaml:"duration"`

	// SpawnOffsets are explicit per-node spawn delays in seconds, matching
	// Nodes by position. When empty, offsets are drawn from [0, SpawnMax).
	SpawnOffsets []float64 `yaml:"spawn_offsets"`
	SpawnMax     float64   `yaml:"spawn_max"`

	// Seed is the PRNG root seed; zero seeds from the clock.
	Seed int64 `yaml:"seed"`

	// QueryTimeout bounds each final get_state query during draining.
	QueryTimeout Duration `yaml:"query_timeout"`

	// StateProbe queries a node's state right after each packet forwarded
	// to it (see dispatcher.Config).
	StateProbe bool `yaml:"state_probe"`

	// StopAfterTimeline stops the run once the last timeline event was
	// applied, instead of waiting for a duration or cancellation.
	StopAfterTimeline bool `yaml:"stop_after_timeline"`
}

func DefaultConfig() *Config {
	return &Config{
		Nodes:          append([]string(nil), DefaultNodeNames...),
		NodeExecutable: DefaultNodeExecutable,
		OutputDir:      ".",
		SpawnMax:       DefaultSpawnMax,
		QueryTimeout:   Duration(DefaultQueryTimeout),
		StateProbe:     true,
	}
}

// ReadConfigFile overlays a YAML config file onto cfg.
func ReadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parsing config %s", path)
	}
	return nil
}

// Validate rejects configurations that cannot produce a well-defined run.
func (cfg *Config) Validate() error {
	if len(cfg.Nodes) == 0 {
		return errors.New("config: at least one node is required")
	}
	seen := make(map[string]struct{}, len(cfg.Nodes))
	for _, name := range cfg.Nodes {
		if name == "" {
			return errors.New("config: empty node name")
		}
		if _, dup := seen[name]; dup {
			return errors.Errorf("config: duplicate node name %s", name)
		}
		seen[name] = struct{}{}
	}
	if len(cfg.SpawnOffsets) > 0 && len(cfg.SpawnOffsets) != len(cfg.Nodes) {
		return errors.Errorf("config: %d spawn offsets for %d nodes",
			len(cfg.SpawnOffsets), len(cfg.Nodes))
	}
	if cfg.SpawnMax < 0 {
		return errors.Errorf("config: negative spawn_max %v", cfg.SpawnMax)
	}
	return nil
}
