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
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/meshsense/meshnode/logger"
	. "github.com/meshsense/meshnode/types"
)

// ExportNetwork exports config info of network to a YAML-friendly object.
func (s *Simulation) ExportNetwork() YamlNetworkConfig {
	var rr *int = nil
	var plr *float64 = nil

	// include radio-range if non-default
	if s.cfg.NewNodeConfig.RadioRange != DefaultNodeConfig().RadioRange {
		rr = &s.cfg.NewNodeConfig.RadioRange
	}
	if p := s.GetPacketLossRatio(); p > 0 {
		plr = &p
	}
	return YamlNetworkConfig{
		Position:        [2]int{0, 0}, // when exporting, always a 0-offset is used.
		RadioRange:      rr,
		PacketLossRatio: plr,
	}
}

// ExportNodes exports config/position info of all nodes to a YAML-friendly object.
func (s *Simulation) ExportNodes(nwConfig *YamlNetworkConfig) []YamlNodeConfig {
	res := make([]YamlNodeConfig, 0, len(s.nodes))

	s.VisitNodesInOrder(func(node *Node) {
		var rr *int = nil
		var serial *string = nil

		radioRange := int(node.Board.Radio.Node().RadioRange)
		if (nwConfig.RadioRange != nil && radioRange != *nwConfig.RadioRange) ||
			(nwConfig.RadioRange == nil && radioRange != defaultRadioRange) {
			rr = &radioRange
		}
		if len(node.cfg.Serial) > 0 {
			serial = &node.cfg.Serial
		}
		sensor := int(node.cfg.SensorBase)
		nodeId := int(node.Firmware.Context().NodeId())
		x, y := node.Position()

		res = append(res, YamlNodeConfig{
			ID:         node.Id,
			Role:       node.cfg.Role,
			NodeId:     &nodeId,
			Position:   [2]int{x, y},
			RadioRange: rr,
			Sensor:     &sensor,
			Serial:     serial,
		})
	})
	return res
}

// ImportNodes adds the nodes of a scenario. It keeps going after a node fails to import.
func (s *Simulation) ImportNodes(nwConfig YamlNetworkConfig, nodes []YamlNodeConfig) error {
	allOk := true
	rr := s.cfg.NewNodeConfig.RadioRange
	if nwConfig.RadioRange != nil {
		rr = *nwConfig.RadioRange
	}
	posOffset := nwConfig.Position
	nodeIdOffset := 0
	if nwConfig.BaseId != nil {
		nodeIdOffset = *nwConfig.BaseId
	}
	if nwConfig.PacketLossRatio != nil {
		s.SetPacketLossRatio(*nwConfig.PacketLossRatio)
	}

	for _, node := range nodes {
		cfg := s.cfg.NewNodeConfig

		cfg.ID = node.ID + nodeIdOffset
		cfg.Role = node.Role
		if node.RadioRange != nil {
			cfg.RadioRange = *node.RadioRange
		} else {
			cfg.RadioRange = rr
		}
		cfg.IsAutoPlaced = false
		cfg.X = node.Position[0] + posOffset[0]
		cfg.Y = node.Position[1] + posOffset[1]
		if node.NodeId != nil {
			if *node.NodeId <= int(BroadcastNodeId) || *node.NodeId > int(UnprogrammedNodeId) {
				logger.Warnf("node %d: invalid node-id %d", cfg.ID, *node.NodeId)
				allOk = false
				continue
			}
			cfg.NodeId = NodeId(*node.NodeId)
		}
		if node.Sensor != nil {
			cfg.SensorBase = int16(*node.Sensor)
		}
		if node.Serial != nil {
			cfg.Serial = *node.Serial
		}

		if _, err := s.AddNode(&cfg); err != nil {
			logger.Warnf("Warn: %s", err)
			allOk = false // continue trying to import remaining nodes
		}
	}

	if !allOk {
		return errors.Errorf("not all nodes could be imported - see error log above")
	}
	return nil
}

// LoadYamlFile imports the nodes of a scenario file.
func (s *Simulation) LoadYamlFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrapf(err, "read scenario file")
	}
	cfgFile := YamlConfigFile{}
	if err = yaml.Unmarshal(data, &cfgFile); err != nil {
		return errors.Wrapf(err, "parse scenario file %s", filename)
	}
	return s.ImportNodes(cfgFile.NetworkConfig, cfgFile.NodesList)
}

// SaveYamlFile writes the current network as a scenario file.
func (s *Simulation) SaveYamlFile(filename string) error {
	nw := s.ExportNetwork()
	cfgFile := YamlConfigFile{
		NetworkConfig: nw,
		NodesList:     s.ExportNodes(&nw),
	}
	data, err := yaml.Marshal(&cfgFile)
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0644), "write scenario file")
}
