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

	. "github.com/meshsense/meshnode/types"
)

// YamlConfigFile is the top level of a scenario file.
type YamlConfigFile struct {
	NetworkConfig YamlNetworkConfig `yaml:"network"`
	NodesList     []YamlNodeConfig  `yaml:"nodes"`
}

// YamlNetworkConfig holds settings that apply to all nodes of a scenario file.
type YamlNetworkConfig struct {
	Position        [2]int   `yaml:"pos-shift,flow"`
	RadioRange      *int     `yaml:"radio-range,omitempty"`
	BaseId          *int     `yaml:"base-id,omitempty"`
	PacketLossRatio *float64 `yaml:"plr,omitempty"`
}

// YamlNodeConfig is one node of a scenario file.
type YamlNodeConfig struct {
	ID         SimNodeId `yaml:"id"`
	Role       Role      `yaml:"role"`
	NodeId     *int      `yaml:"node-id,omitempty"`
	Position   [2]int    `yaml:"pos,flow"`
	RadioRange *int      `yaml:"radio-range,omitempty"`
	Sensor     *int      `yaml:"sensor,omitempty"`
	Serial     *string   `yaml:"serial,omitempty"`
}

// CommandInterruptedError is reported for work posted to a simulation that is stopping.
var CommandInterruptedError = errors.Errorf("command interrupted due to simulation exit")
