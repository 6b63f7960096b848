// Copyright (c) 2020-2023, The OTNS Authors.
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
	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/serialuart"
	. "github.com/meshsense/meshnode/types"
)

const (
	defaultRadioRange  = 160
	defaultSensorBase  = 215 // 21.5 C in tenths of a degree
	defaultSensorNoise = 5
	nodePlacementStep  = 40
)

// NodeConfig is the user-provided configuration of a new simulated node.
type NodeConfig struct {
	ID           SimNodeId
	Role         Role
	NodeId       NodeId // programmed into flash before boot; UnprogrammedNodeId leaves flash as is
	X, Y         int
	IsAutoPlaced bool
	RadioRange   int
	SensorBase   int16
	SensorNoise  int16
	Serial       string // serial device bound to the node UART, if any
	Baud         int
}

func DefaultNodeConfig() NodeConfig {
	return NodeConfig{
		ID:           InvalidSimNodeId,
		Role:         RoleTag,
		NodeId:       UnprogrammedNodeId,
		IsAutoPlaced: true,
		RadioRange:   defaultRadioRange,
		SensorBase:   defaultSensorBase,
		SensorNoise:  defaultSensorNoise,
		Baud:         serialuart.DefaultBaud,
	}
}

// NodeConfigFinalize fills in the simulation-wide defaults and checks the result.
func (s *Simulation) NodeConfigFinalize(cfg *NodeConfig) error {
	if cfg.RadioRange <= 0 {
		cfg.RadioRange = s.cfg.NewNodeConfig.RadioRange
	}
	if cfg.Baud <= 0 {
		cfg.Baud = serialuart.DefaultBaud
	}
	if cfg.ID < 0 || cfg.ID > MaxSimNodeId {
		return errors.Errorf("invalid node id %d", cfg.ID)
	}
	if cfg.NodeId == BroadcastNodeId {
		return errors.Errorf("node id 0x%02X is reserved for broadcast", cfg.NodeId)
	}
	if cfg.SensorNoise < 0 {
		return errors.Errorf("invalid sensor noise %d", cfg.SensorNoise)
	}
	return nil
}

// nodeAutoPlacer places new nodes on a line, one step to the right of the last placed node.
type nodeAutoPlacer struct {
	x, y  int
	valid bool
}

func (p *nodeAutoPlacer) next() (int, int) {
	if !p.valid {
		p.x, p.y, p.valid = nodePlacementStep, nodePlacementStep, true
		return p.x, p.y
	}
	p.x += nodePlacementStep
	return p.x, p.y
}

func (p *nodeAutoPlacer) update(x, y int) {
	p.x, p.y, p.valid = x, y, true
}
