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
	"github.com/meshsense/meshnode/sched"
	"github.com/meshsense/meshnode/softtimer"
	. "github.com/meshsense/meshnode/types"
)

// Task names, in pass order.
const (
	TaskLedRed            = "led-red"
	TaskLedGreen          = "led-green"
	TaskUart              = "uart"
	TaskAntibouncing      = "antibouncing"
	TaskProcessMsg        = "process-msg"
	TaskPeriodicSend      = "periodic-send"
	TaskPeriodicBroadcast = "periodic-broadcast"
	TaskForward           = "forward"
	TaskButton            = "button"
)

// Resumption states. A task returns a state only while its wait condition is false.
const (
	ledRedToggle sched.State = iota
	ledRedWait
)

const (
	ledGreenWaitRequest sched.State = iota
	ledGreenWaitElapsed
)

const (
	periodicArm sched.State = iota
	periodicWait
)

func addTasks(s *sched.Scheduler[Context], role Role) {
	s.Add(TaskLedRed, ledRedTask)
	s.Add(TaskLedGreen, ledGreenTask)
	s.Add(TaskUart, uartTask)
	s.Add(TaskAntibouncing, antibouncingTask)
	s.Add(TaskProcessMsg, processMsgTask)
	switch role {
	case RoleTag:
		s.Add(TaskPeriodicSend, periodicSendTask)
	case RoleRouter:
		s.Add(TaskPeriodicBroadcast, periodicBroadcastTask)
		s.Add(TaskForward, forwardTask)
	}
	s.Add(TaskButton, buttonTask)
}

func ledRedTask(c *Context, st sched.State) sched.State {
	for {
		switch st {
		case ledRedToggle:
			c.board.RedLED.Toggle()
			c.timers.Reset(TimerLedRed)
			st = ledRedWait
		case ledRedWait:
			if !c.timers.Reached(TimerLedRed, c.cfg.Ticks.LedRedPeriod) {
				return st
			}
			st = ledRedToggle
		}
	}
}

func ledGreenTask(c *Context, st sched.State) sched.State {
	for {
		switch st {
		case ledGreenWaitRequest:
			if !c.ledGreenFlag {
				return st
			}
			c.board.GreenLED.On()
			c.timers.Reset(TimerLedGreen)
			st = ledGreenWaitElapsed
		case ledGreenWaitElapsed:
			if !c.timers.Reached(TimerLedGreen, c.ledGreenDuration) {
				return st
			}
			c.board.GreenLED.Off()
			c.ledGreenFlag = false
			return ledGreenWaitRequest
		}
	}
}

func uartTask(c *Context, st sched.State) sched.State {
	if !c.uartFlag {
		return st
	}
	b := c.uartData
	c.uartFlag = false
	c.ledGreenBlink(c.cfg.Ticks.UartBlink)

	if !c.IdInputPending() {
		c.log.Debugf("uart byte 0x%02X ignored, no id request pending", b)
		return st
	}
	if b == BroadcastNodeId || b == UnprogrammedNodeId {
		c.log.Warnf("0x%02X is not a valid node id", b)
		c.consolef("invalid node id %02X\r\n", b)
		return st
	}
	if err := c.AssignIdentity(b); err != nil {
		c.fail(err)
		return st
	}
	c.consolef("node id set to %02X\r\n", b)
	c.sendIdReply()
	return st
}

func antibouncingTask(c *Context, st sched.State) sched.State {
	if c.antibouncingFlag && c.timers.Reached(TimerAntibouncing, c.cfg.Ticks.Antibouncing) {
		c.antibouncingFlag = false
	}
	return st
}

func processMsgTask(c *Context, st sched.State) sched.State {
	// the queue is bounded, so draining it always terminates
	for c.rx.len() > 0 {
		c.handleMessage(c.rx.front())
		c.rx.pop()
	}
	return st
}

func periodicSendTask(c *Context, st sched.State) sched.State {
	return periodic(c, st, TimerRadioSend, c.cfg.Ticks.RadioSend, c.sendTemperature)
}

func periodicBroadcastTask(c *Context, st sched.State) sched.State {
	return periodic(c, st, TimerRadioBroadcast, c.cfg.Ticks.RadioBroadcast, c.sendIsRouter)
}

func forwardTask(c *Context, st sched.State) sched.State {
	return periodic(c, st, TimerRadioForward, c.cfg.Ticks.RadioForward, func() {
		if len(c.readings) == 0 {
			c.log.Tracef("no readings to forward")
			return
		}
		c.sendResults()
		c.readings = c.readings[:0]
	})
}

// periodic arms timer, waits for period ticks, fires and re-arms.
func periodic(c *Context, st sched.State, timer softtimer.Id, period uint16, fire func()) sched.State {
	for {
		switch st {
		case periodicArm:
			c.timers.Reset(timer)
			st = periodicWait
		case periodicWait:
			if !c.timers.Reached(timer, period) {
				return st
			}
			fire()
			st = periodicArm
		}
	}
}

func buttonTask(c *Context, st sched.State) sched.State {
	if !c.buttonPressedFlag {
		return st
	}
	c.timers.Reset(TimerIdInput)
	c.log.Infof("id request: waiting %d ticks for a node id on the uart", c.cfg.Ticks.IdInputTimeout)
	c.consolef("enter node id (1 byte):\r\n")
	c.buttonPressedFlag = false
	return st
}
