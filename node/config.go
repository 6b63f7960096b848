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
	"time"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/softtimer"
	. "github.com/meshsense/meshnode/types"
)

// Soft timer slots. Each slot is reset only by the task that owns it.
const (
	TimerLedRed softtimer.Id = iota
	TimerLedGreen
	TimerAntibouncing
	TimerRadioSend
	TimerIdInput
	TimerRadioForward
	TimerRadioBroadcast
	numTimers
)

const (
	DefaultNodeId   NodeId = 0x01
	DefaultRouterId NodeId = 0x01
	DefaultAnchorId NodeId = 0x02

	// DefaultNodeIdAddr is the start of the information flash segment that holds the node id.
	DefaultNodeIdAddr uint16 = 0x1000

	DefaultRxQueueSize = 2
)

// Ticks holds the durations, in timer ticks, of every timed behavior.
type Ticks struct {
	LedRedPeriod   uint16 // heartbeat toggle period
	RxBlink        uint16 // green blink on each radio callback
	UartBlink      uint16 // green blink on each UART byte
	ButtonBlink    uint16 // green blink on an accepted press
	Antibouncing   uint16 // window during which new presses are ignored
	IdInputTimeout uint16 // time given to enter an identity after a press
	RadioSend      uint16 // tag temperature report period
	RadioBroadcast uint16 // router advertisement period
	RadioForward   uint16 // router RESULTS forwarding period
}

// DefaultTicks returns the durations for a 10 ms tick.
func DefaultTicks() Ticks {
	return Ticks{
		LedRedPeriod:   100,
		RxBlink:        10,
		UartBlink:      10,
		ButtonBlink:    200,
		Antibouncing:   10,
		IdInputTimeout: 1000,
		RadioSend:      1000,
		RadioBroadcast: 10000,
		RadioForward:   3000,
	}
}

// Config is the deployment-time configuration of one node.
type Config struct {
	Role            Role
	DefaultNodeId   NodeId // used when the node id cell is unprogrammed
	DefaultRouterId NodeId
	AnchorId        NodeId // destination of RESULTS frames sent by a router
	NodeIdAddr      uint16
	RxQueueSize     int
	TickPeriod      time.Duration
	Ticks           Ticks
}

func DefaultConfig() Config {
	return Config{
		Role:            RoleTag,
		DefaultNodeId:   DefaultNodeId,
		DefaultRouterId: DefaultRouterId,
		AnchorId:        DefaultAnchorId,
		NodeIdAddr:      DefaultNodeIdAddr,
		RxQueueSize:     DefaultRxQueueSize,
		TickPeriod:      DefaultTickPeriod,
		Ticks:           DefaultTicks(),
	}
}

// Validate checks that no task can spin without reaching a suspension point.
func (cfg *Config) Validate() error {
	if cfg.Role != RoleTag && cfg.Role != RoleRouter && cfg.Role != RoleAnchor {
		return errors.Errorf("invalid role %d", int(cfg.Role))
	}
	if cfg.RxQueueSize < 1 {
		return errors.Errorf("rx queue size must be at least 1, got %d", cfg.RxQueueSize)
	}
	if cfg.TickPeriod <= 0 {
		return errors.Errorf("invalid tick period %v", cfg.TickPeriod)
	}
	periods := map[string]uint16{
		"led red period":  cfg.Ticks.LedRedPeriod,
		"radio send":      cfg.Ticks.RadioSend,
		"radio broadcast": cfg.Ticks.RadioBroadcast,
		"radio forward":   cfg.Ticks.RadioForward,
	}
	for name, v := range periods {
		if v == 0 || v > softtimer.Max {
			return errors.Errorf("%s must be in 1..%d ticks, got %d", name, softtimer.Max, v)
		}
	}
	if cfg.Ticks.IdInputTimeout > softtimer.Max || cfg.Ticks.Antibouncing > softtimer.Max {
		return errors.Errorf("timeouts must not exceed %d ticks", softtimer.Max)
	}
	return nil
}
