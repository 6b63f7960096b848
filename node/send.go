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

package node

import (
	"github.com/meshsense/meshnode/frame"
	. "github.com/meshsense/meshnode/types"
)

// transmit hands the outbound frame to the radio for one transmission and re-arms receive.
func (c *Context) transmit() bool {
	err := c.board.Radio.Transmit(c.tx.Bytes())
	c.board.Radio.EnterReceive()
	if err != nil {
		c.stats.TxErrors++
		c.log.Warnf("transmit %s failed: %v", frame.TypeString(c.tx.Type()), err)
		return false
	}
	c.stats.TxFrames++
	c.log.Debugf("sent %s", c.tx.Hex())
	return true
}

func (c *Context) sendTemperature() {
	reading := c.board.Sensor.Sample()
	c.tx.MakeTemperature(c.nodeId, c.routerId, reading)
	c.log.Infof("sending temperature %d to router 0x%02X", reading, c.routerId)
	c.transmit()
}

func (c *Context) sendAck(dest NodeId) {
	c.tx.MakeAck(c.nodeId, dest)
	if c.transmit() {
		c.stats.AcksSent++
	}
}

func (c *Context) sendIsRouter() {
	c.tx.MakeIsRouter(c.nodeId)
	c.log.Debugf("advertising router id 0x%02X", c.nodeId)
	c.transmit()
}

func (c *Context) sendIdReply() {
	c.tx.MakeIdReply(c.nodeId, c.nodeId)
	c.transmit()
}

func (c *Context) sendResults() {
	if err := c.tx.MakeResults(c.nodeId, c.cfg.AnchorId, c.readings); err != nil {
		c.log.Errorf("build RESULTS: %v", err)
		return
	}
	c.log.Infof("forwarding %d readings to anchor 0x%02X", len(c.readings), c.cfg.AnchorId)
	if c.transmit() {
		c.stats.ResultsSent++
	}
}
