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
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/hal"
	"github.com/meshsense/meshnode/logger"
	nodefw "github.com/meshsense/meshnode/node"
	"github.com/meshsense/meshnode/prng"
	"github.com/meshsense/meshnode/radiomodel"
	"github.com/meshsense/meshnode/serialuart"
	"github.com/meshsense/meshnode/simhw"
	. "github.com/meshsense/meshnode/types"
)

// Node is one simulated node: a firmware instance on its own simulated board.
type Node struct {
	S        *Simulation
	Id       SimNodeId
	Board    *simhw.Board
	Firmware *nodefw.Firmware
	Logger   *logger.NodeLogger

	cfg         *NodeConfig
	serial      *serialuart.Port
	failureCtrl *FailureCtrl
	failed      bool
	err         error
	boots       int
}

// NodeStatus is the YAML-friendly view of a node, as shown by the 'node' command.
type NodeStatus struct {
	Id          SimNodeId      `yaml:"id"`
	Role        Role           `yaml:"role"`
	NodeId      string         `yaml:"node-id"`
	RouterId    string         `yaml:"router-id"`
	Position    [2]int         `yaml:"pos,flow"`
	RadioRange  int            `yaml:"radio-range"`
	Failed      bool           `yaml:"failed"`
	RadioDown   bool           `yaml:"radio-down"`
	FailTime    *FailTime      `yaml:"fail-time,omitempty,flow"`
	Fault       string         `yaml:"fault,omitempty"`
	Boots       int            `yaml:"boots"`
	RedLed      bool           `yaml:"led-red"`
	GreenLed    bool           `yaml:"led-green"`
	IdRequest   bool           `yaml:"id-request"`
	Serial      string         `yaml:"serial,omitempty"`
	LastAverage *float64       `yaml:"last-average,omitempty"`
	Readings    map[string]int `yaml:"readings,omitempty"`
	Stats       nodefw.Stats   `yaml:"stats"`
}

func newNode(s *Simulation, nodeid SimNodeId, cfg *NodeConfig) (*Node, error) {
	flash, err := simhw.NewFlash(s.flashPath(nodeid))
	if err != nil {
		return nil, err
	}
	n := &Node{
		S:      s,
		Id:     nodeid,
		cfg:    cfg,
		Logger: logger.GetNodeLogger(s.nodeLogDir(), s.cfg.Id, nodeid),
	}
	n.Logger.SetDisplayLevel(s.logLevel)

	if cfg.NodeId != UnprogrammedNodeId {
		if err = programNodeId(flash, cfg.NodeId); err != nil {
			return nil, err
		}
	}

	if len(cfg.Serial) > 0 {
		if n.serial, err = serialuart.Open(cfg.Serial, cfg.Baud); err != nil {
			return nil, err
		}
	}

	radio := s.medium.Attach(nodeid, &radiomodel.RadioNodeConfig{
		X:          cfg.X,
		Y:          cfg.Y,
		RadioRange: cfg.RadioRange,
	})
	sensor := simhw.NewSensor(cfg.SensorBase, cfg.SensorNoise, prng.NewNodeRandomSeed())
	n.Board = simhw.NewBoard(radio, sensor, flash)
	n.failureCtrl = newFailureCtrl(radio, NonFailTime)

	if err = n.boot(); err != nil {
		s.medium.Detach(nodeid)
		n.closeSerial()
		return nil, err
	}
	return n, nil
}

// programNodeId writes id at the node id address, as a flashing tool would before deployment.
func programNodeId(flash *simhw.Flash, id NodeId) error {
	addr := nodefw.DefaultNodeIdAddr
	if v, err := flash.Read(addr); err == nil && v == id {
		return nil
	}
	if err := flash.EraseBlock(addr); err != nil {
		return err
	}
	return flash.Write(addr, id)
}

func (node *Node) halBoard() hal.Board {
	b := node.Board.HAL()
	if node.serial != nil {
		b.UART = node.serial
	}
	return b
}

func (node *Node) boot() error {
	fwcfg := nodefw.DefaultConfig()
	fwcfg.Role = node.cfg.Role
	fwcfg.TickPeriod = node.S.cfg.TickPeriod

	fw, err := nodefw.New(fwcfg, node.halBoard(), node.Logger)
	if err != nil {
		return errors.Wrapf(err, "create firmware of %s", GetNodeName(node.Id))
	}
	if err = fw.Boot(); err != nil {
		return err
	}
	node.Firmware = fw
	node.failed = false
	node.err = nil
	node.boots++
	return nil
}

// restart reboots the firmware on fresh peripherals. The radio, the sensor and the flash contents
// are kept.
func (node *Node) restart() error {
	node.Board = simhw.NewBoard(node.Board.Radio, node.Board.Sensor, node.Board.Flash)
	return node.boot()
}

func (node *Node) fail(err error) {
	if node.failed {
		return
	}
	node.failed = true
	node.err = err
	node.Logger.Errorf("node failed: %v", err)
	node.Board.Radio.Off()
}

// pollSerial hands bytes received on the serial port to the firmware.
func (node *Node) pollSerial() {
	if node.serial != nil && !node.failed {
		node.serial.Poll()
	}
}

func (node *Node) fireTimer() {
	if !node.failed {
		node.Board.Timer.Fire()
	}
}

func (node *Node) runPasses(passes int) {
	for i := 0; i < passes && !node.failed; i++ {
		if err := node.Firmware.RunPass(); err != nil {
			node.fail(err)
		}
	}
}

func (node *Node) closeSerial() {
	if node.serial != nil {
		if err := node.serial.Close(); err != nil {
			logger.Warnf("closing serial port of %s: %v", GetNodeName(node.Id), err)
		}
		node.serial = nil
	}
}

// Press presses the node's button.
func (node *Node) Press() error {
	if node.failed {
		return errors.Errorf("%s has failed", GetNodeName(node.Id))
	}
	if !node.Board.Button.Press() {
		return errors.Errorf("%s button interrupt not enabled", GetNodeName(node.Id))
	}
	return nil
}

// UartInput delivers one byte to the node UART.
func (node *Node) UartInput(b byte) error {
	if node.failed {
		return errors.Errorf("%s has failed", GetNodeName(node.Id))
	}
	if node.serial != nil {
		return errors.Errorf("%s UART is bound to %s", GetNodeName(node.Id), node.serial.Name())
	}
	if !node.Board.UART.Input(b) {
		return errors.Errorf("%s UART has no receive callback", GetNodeName(node.Id))
	}
	return nil
}

// TakeConsoleOutput returns and clears what the firmware wrote to the simulated UART.
func (node *Node) TakeConsoleOutput() string {
	return node.Board.UART.TakeOutput()
}

func (node *Node) Failed() bool {
	return node.failed
}

func (node *Node) Err() error {
	return node.err
}

func (node *Node) Config() NodeConfig {
	return *node.cfg
}

func (node *Node) Position() (int, int) {
	rn := node.Board.Radio.Node()
	return int(rn.X), int(rn.Y)
}

func (node *Node) Status() NodeStatus {
	c := node.Firmware.Context()
	x, y := node.Position()
	st := NodeStatus{
		Id:         node.Id,
		Role:       node.Firmware.Role(),
		NodeId:     fmt.Sprintf("0x%02X", c.NodeId()),
		RouterId:   fmt.Sprintf("0x%02X", c.RouterId()),
		Position:   [2]int{x, y},
		RadioRange: int(node.Board.Radio.Node().RadioRange),
		Failed:     node.failed,
		RadioDown:  node.Board.Radio.IsDown(),
		Boots:      node.boots,
		RedLed:     node.Board.RedLED.IsOn(),
		GreenLed:   node.Board.GreenLED.IsOn(),
		IdRequest:  c.IdInputPending(),
		Stats:      c.Stats(),
	}
	if ft := node.failureCtrl.FailTime(); ft.CanFail() {
		st.FailTime = &ft
	}
	if node.err != nil {
		st.Fault = node.err.Error()
	}
	if node.serial != nil {
		st.Serial = node.serial.Name()
	}
	if avg, ok := c.LastAverage(); ok {
		st.LastAverage = &avg
	}
	if recs := c.PendingReadings(); len(recs) > 0 {
		st.Readings = make(map[string]int, len(recs))
		for _, r := range recs {
			st.Readings[fmt.Sprintf("0x%02X", r.Source)] = int(r.Reading)
		}
	}
	return st
}

func (s *Simulation) flashPath(nodeid SimNodeId) string {
	if len(s.cfg.FlashDir) == 0 {
		return ""
	}
	return filepath.Join(s.cfg.FlashDir, fmt.Sprintf("%d_%d.flash", s.cfg.Id, nodeid))
}

func (s *Simulation) nodeLogDir() string {
	if !s.cfg.NodeLogFiles {
		return ""
	}
	return s.cfg.OutputDir
}
