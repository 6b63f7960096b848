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

// handleMessage runs every message rule on f. Rules are independent and more than one may fire.
func (c *Context) handleMessage(f *frame.Frame) {
	c.stats.Processed++
	c.dumpMessage(f)

	toSelf := f.Dest() == c.nodeId

	if toSelf && f.Type() == frame.TypeTemperature {
		c.sendAck(f.NodeId())
		if c.cfg.Role == RoleRouter {
			c.recordReading(f.NodeId(), f.Temperature())
		}
	}

	if toSelf && f.Type() == frame.TypeResults {
		c.sendAck(f.NodeId())
		c.reportAverage(f)
	}

	if f.IsBroadcast() && f.Type() == frame.TypeIsRouter {
		c.UpdateRouterIdentity(f.NodeId())
	}

	if f.IsBroadcast() && f.Type() == frame.TypeIdReply {
		c.log.Infof("node 0x%02X announced id 0x%02X", f.NodeId(), f.IdReply())
	}

	if f.Type() == frame.TypeAck {
		if toSelf {
			c.stats.AcksReceived++
		}
		c.log.Debugf("ACK from 0x%02X", f.NodeId())
	}

	if !toSelf {
		c.log.Tracef("message not addressed to me (dest 0x%02X)", f.Dest())
	}
}

func (c *Context) dumpMessage(f *frame.Frame) {
	c.log.Debugf("recv %s", f.Hex())
	switch f.Type() {
	case frame.TypeTemperature:
		c.log.Debugf("  from 0x%02X to 0x%02X temperature %d", f.NodeId(), f.Dest(), f.Temperature())
	case frame.TypeAck:
		c.log.Debugf("  from 0x%02X to 0x%02X ACK", f.NodeId(), f.Dest())
	default:
		c.log.Debugf("  from 0x%02X to 0x%02X %s", f.NodeId(), f.Dest(), frame.TypeString(f.Type()))
	}
}

// recordReading keeps the latest reading of each source for the next RESULTS frame.
func (c *Context) recordReading(src NodeId, reading int16) {
	for i := range c.readings {
		if c.readings[i].Source == src {
			c.readings[i].Reading = reading
			return
		}
	}
	if len(c.readings) == frame.MaxResults {
		c.log.Warnf("results table full, dropped reading of 0x%02X", src)
		return
	}
	c.readings = append(c.readings, frame.Record{Source: src, Reading: reading})
}

func (c *Context) reportAverage(f *frame.Frame) {
	recs, err := f.Results()
	if err != nil {
		c.stats.ResultsRejected++
		c.log.Warnf("RESULTS from 0x%02X rejected: %v", f.NodeId(), err)
		return
	}

	for _, r := range recs {
		c.consolef(" id %02X : %d\r\n", r.Source, r.Reading)
	}
	mean, _ := frame.Mean(recs)
	c.consolef("average : %.2f\r\n", mean)

	c.lastAverage, c.hasAverage = mean, true
	c.stats.ResultsAveraged++
	c.log.Infof("average temperature %.2f over %d nodes", mean, len(recs))
}
