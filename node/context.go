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
	"fmt"

	"github.com/meshsense/meshnode/frame"
	"github.com/meshsense/meshnode/hal"
	"github.com/meshsense/meshnode/softtimer"
	. "github.com/meshsense/meshnode/types"
)

// Logger receives the diagnostic output of a node. *logger.NodeLogger implements it.
type Logger interface {
	Tracef(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Stats counts what happened on a node since boot.
type Stats struct {
	RxFrames        int // frames accepted into the inbound queue
	RxErrors        int // transport-reported receive errors
	RxOverruns      int // frames dropped because the inbound queue was full
	Processed       int // frames run through the message rules
	TxFrames        int
	TxErrors        int
	AcksSent        int
	AcksReceived    int // ACKs addressed to this node
	RouterChanges   int
	ResultsAveraged int
	ResultsRejected int
	ResultsSent     int
	ButtonBounces   int // presses ignored inside the debounce window
	IdAssignments   int
}

// Context is the state shared by all tasks of one node. Every field has a single writer: either
// one interrupt callback or one task.
type Context struct {
	cfg    Config
	board  hal.Board
	log    Logger
	timers *softtimer.Bank

	nodeId   NodeId
	routerId NodeId

	// set by led-green blink requests, cleared by the led-green task
	ledGreenFlag     bool
	ledGreenDuration uint16

	// set by the UART callback, cleared by the uart task
	uartFlag bool
	uartData byte

	// set by the button callback, cleared by the antibouncing and button tasks
	antibouncingFlag  bool
	buttonPressedFlag bool

	rx *rxQueue
	tx frame.Frame

	readings    []frame.Record // latest reading per tag, router only
	lastAverage float64
	hasAverage  bool

	stats Stats
	fault error
}

func newContext(cfg Config, board hal.Board, log Logger) *Context {
	return &Context{
		cfg:      cfg,
		board:    board,
		log:      log,
		timers:   softtimer.NewBank(int(numTimers)),
		nodeId:   cfg.DefaultNodeId,
		routerId: cfg.DefaultRouterId,
		rx:       newRxQueue(cfg.RxQueueSize),
	}
}

// NodeId returns the node's current identity.
func (c *Context) NodeId() NodeId {
	return c.nodeId
}

// RouterId returns the node's current belief of which node is the relay.
func (c *Context) RouterId() NodeId {
	return c.routerId
}

func (c *Context) Role() Role {
	return c.cfg.Role
}

func (c *Context) Config() Config {
	return c.cfg
}

// Timers exposes the soft timer bank, e.g. to let tests inspect timer slots.
func (c *Context) Timers() *softtimer.Bank {
	return c.timers
}

func (c *Context) Stats() Stats {
	return c.stats
}

// LastAverage returns the last average computed from a RESULTS frame.
func (c *Context) LastAverage() (float64, bool) {
	return c.lastAverage, c.hasAverage
}

// PendingReadings returns the readings a router holds for its next RESULTS frame.
func (c *Context) PendingReadings() []frame.Record {
	return append([]frame.Record(nil), c.readings...)
}

// IdInputPending reports whether an identity request is waiting for UART input.
func (c *Context) IdInputPending() bool {
	return c.timers.Armed(TimerIdInput) && !c.timers.Reached(TimerIdInput, c.cfg.Ticks.IdInputTimeout)
}

// Fault returns the fatal error that stopped the node, if any.
func (c *Context) Fault() error {
	return c.fault
}

func (c *Context) fail(err error) {
	if c.fault == nil {
		c.fault = err
		c.log.Errorf("fatal: %v", err)
	}
}

// ledGreenBlink requests a green pulse; the led-green task turns it into on-then-off.
func (c *Context) ledGreenBlink(duration uint16) {
	c.ledGreenDuration = duration
	c.ledGreenFlag = true
}

// consolef writes console text to the UART, for an operator attached to the serial port.
func (c *Context) consolef(format string, args ...interface{}) {
	for _, b := range []byte(fmt.Sprintf(format, args...)) {
		if err := c.board.UART.SendByte(b); err != nil {
			c.log.Debugf("uart write failed: %v", err)
			return
		}
	}
}

// rxQueue is the bounded inbound frame queue between the radio callback (producer) and the
// process-msg task (consumer). The callback only writes free slots; the task releases the
// front slot after the message rules ran on it.
type rxQueue struct {
	slots []frame.Frame
	head  int
	n     int
}

func newRxQueue(size int) *rxQueue {
	return &rxQueue{
		slots: make([]frame.Frame, size),
	}
}

// push copies buf into a free slot. It returns false, dropping buf, if the queue is full.
func (q *rxQueue) push(buf []byte) bool {
	if q.n == len(q.slots) {
		return false
	}
	copy(q.slots[(q.head+q.n)%len(q.slots)][:], buf)
	q.n++
	return true
}

func (q *rxQueue) front() *frame.Frame {
	return &q.slots[q.head]
}

func (q *rxQueue) pop() {
	q.head = (q.head + 1) % len(q.slots)
	q.n--
}

func (q *rxQueue) len() int {
	return q.n
}
