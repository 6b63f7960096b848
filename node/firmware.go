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

// Package node implements the firmware core of a mesh node: the shared context, the interrupt
// callbacks, the message rules and the role-dependent cooperative tasks.
package node

import (
	"context"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/hal"
	"github.com/meshsense/meshnode/sched"
	. "github.com/meshsense/meshnode/types"
)

// Firmware is one node's firmware instance bound to a board.
type Firmware struct {
	ctx    *Context
	sched  *sched.Scheduler[Context]
	booted bool
}

// New creates the firmware for board. Nothing touches the drivers until Boot.
func New(cfg Config, board hal.Board, log Logger) (*Firmware, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, errors.New("nil logger")
	}

	ctx := newContext(cfg, board, log)
	s := sched.New(ctx)
	addTasks(s, cfg.Role)
	return &Firmware{
		ctx:   ctx,
		sched: s,
	}, nil
}

// Boot loads the identities, sets the LEDs, registers every callback and enables the drivers.
func (fw *Firmware) Boot() error {
	if fw.booted {
		return errors.New("firmware already booted")
	}
	c := fw.ctx

	c.timers.Disable(TimerIdInput)
	c.loadIdentity()

	c.board.RedLED.On()
	c.board.GreenLED.Off()

	c.board.Timer.RegisterTick(c.onTimerTick)
	c.board.Timer.Start(c.cfg.TickPeriod)
	c.board.Button.RegisterPress(c.onButtonPressed)
	c.board.UART.RegisterReceive(c.onUartReceive)
	c.board.Radio.RegisterReceive(c.onRadioReceive)
	c.board.Radio.EnterReceive()

	c.log.Infof("booted as %s, node id 0x%02X, router id 0x%02X", c.cfg.Role, c.nodeId, c.routerId)
	c.board.Button.EnableInterrupt()

	fw.booted = true
	return nil
}

// RunPass resumes every task once. It returns the node's fault once one has occurred.
func (fw *Firmware) RunPass() error {
	if !fw.booted {
		return errors.New("firmware not booted")
	}
	if fw.ctx.fault != nil {
		return fw.ctx.fault
	}
	fw.sched.RunPass()
	return fw.ctx.fault
}

// Run executes passes until ctx is done or the node faults. Interrupt callbacks must be delivered
// on the calling goroutine between passes, which is what the simulated drivers do.
func (fw *Firmware) Run(ctx context.Context) error {
	if !fw.booted {
		return errors.New("firmware not booted")
	}
	return fw.sched.Run(ctx, fw.ctx.Fault)
}

func (fw *Firmware) Context() *Context {
	return fw.ctx
}

func (fw *Firmware) Booted() bool {
	return fw.booted
}

func (fw *Firmware) Passes() uint64 {
	return fw.sched.Passes()
}

// TaskNames returns the tasks of this node in pass order.
func (fw *Firmware) TaskNames() []string {
	return fw.sched.TaskNames()
}

func (fw *Firmware) TaskState(name string) (sched.State, bool) {
	return fw.sched.TaskState(name)
}

// Role is a shortcut for Context().Role().
func (fw *Firmware) Role() Role {
	return fw.ctx.cfg.Role
}
