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
	"github.com/meshsense/meshnode/hal"
)

// Interrupt callbacks. They only copy data, set flags and touch timers; all protocol work
// happens in tasks.

func (c *Context) onTimerTick() {
	c.timers.Tick()
}

func (c *Context) onRadioReceive(buf []byte, size int, rssi int8) {
	c.ledGreenBlink(c.cfg.Ticks.RxBlink)

	if err := hal.RxError(size); err != nil {
		c.stats.RxErrors++
		c.log.Debugf("radio_cb :: %v", err)
	} else if size < frame.Len || len(buf) < frame.Len {
		c.stats.RxErrors++
		c.log.Debugf("radio_cb :: msg packet error size=%d", size)
	} else if !c.rx.push(buf) {
		c.stats.RxOverruns++
		c.log.Warnf("radio_cb :: rx queue full, dropped frame from 0x%02X (rssi %d)", buf[frame.ByteNodeId], rssi)
	} else {
		c.stats.RxFrames++
		c.log.Tracef("radio_cb :: rssi %d", rssi)
	}

	c.board.Radio.EnterReceive()
}

func (c *Context) onUartReceive(b byte) {
	c.uartFlag = true
	c.uartData = b
}

func (c *Context) onButtonPressed() {
	if c.antibouncingFlag {
		c.stats.ButtonBounces++
		return
	}
	c.buttonPressedFlag = true
	c.antibouncingFlag = true
	c.timers.Reset(TimerAntibouncing)
	c.ledGreenBlink(c.cfg.Ticks.ButtonBlink)
}
