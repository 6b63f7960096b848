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
	"github.com/meshsense/meshnode/logger"
	"github.com/meshsense/meshnode/prng"
)

// FailTime describes a repeating radio outage: in every FailInterval ticks the radio is down for
// FailDuration ticks, starting at a random point of the interval.
type FailTime struct {
	FailDuration uint64 `yaml:"duration"` // unit: ticks
	FailInterval uint64 `yaml:"interval"` // unit: ticks
}

var (
	NonFailTime = FailTime{0, 0}
)

func (ft FailTime) CanFail() bool {
	return ft.FailDuration > 0
}

type outageTarget interface {
	IsDown() bool
	SetDown(down bool)
}

type FailureCtrl struct {
	radio     outageTarget
	failTime  FailTime
	recoverTs uint64 // tick when the radio comes back (valid while down)
	failTs    uint64 // tick when the next outage starts (valid while up)
	remainTm  uint64 // ticks left in the current fail cycle after the outage ends
}

func newFailureCtrl(radio outageTarget, failTime FailTime) *FailureCtrl {
	return &FailureCtrl{
		radio:    radio,
		failTime: failTime,
	}
}

// SetFailTime starts a new fail cycle at tick now. NonFailTime stops outages and brings the radio
// back up.
func (fc *FailureCtrl) SetFailTime(failTime FailTime, now uint64) {
	fc.failTime = failTime

	fc.recoverTs = 0
	fc.failTs = 0
	fc.remainTm = 0
	if !failTime.CanFail() {
		fc.radio.SetDown(false)
		return
	}
	if fc.radio.IsDown() {
		fc.radio.SetDown(false)
	}
	fc.calcNextFailTimestamp(now)
}

func (fc *FailureCtrl) FailTime() FailTime {
	return fc.failTime
}

// OnTick takes the radio down or brings it back up as the fail cycle requires.
func (fc *FailureCtrl) OnTick(now uint64) {
	if !fc.failTime.CanFail() {
		return
	}

	if fc.radio.IsDown() {
		if now >= fc.recoverTs {
			fc.recoverTs = 0
			fc.calcNextFailTimestamp(now)
			fc.radio.SetDown(false)
		}
		return
	}

	if now >= fc.failTs {
		fc.recoverTs = now + fc.failTime.FailDuration
		fc.failTs = 0
		fc.radio.SetDown(true)
	}
}

func (fc *FailureCtrl) calcNextFailTimestamp(now uint64) {
	logger.AssertTrue(fc.failTime.FailDuration > 0 && fc.failTime.FailInterval > fc.failTime.FailDuration)
	failStartTimeMax := int(fc.failTime.FailInterval - fc.failTime.FailDuration)
	failTsRel := prng.NewFailTime(failStartTimeMax)
	fc.failTs = failTsRel + now + fc.remainTm
	fc.remainTm = fc.failTime.FailInterval - fc.failTime.FailDuration - failTsRel
}
