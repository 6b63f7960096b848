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

package radiomodel

import (
	"math"

	. "github.com/meshsense/meshnode/types"
)

type RadioNode struct {
	Id SimNodeId

	// TxPower is the transmit power in dBm.
	TxPower DbValue

	// RxSensitivity is the Rx sensitivity in dBm of the node.
	RxSensitivity DbValue

	// RadioRange is the radio range as configured by the simulation for this node.
	RadioRange float64

	// RxOn is true while the transceiver listens.
	RxOn bool

	// Node position in units/pixels.
	X, Y float64

	stats RadioNodeStats
}

type RadioNodeConfig struct {
	X, Y       int
	RadioRange int
}

type RadioNodeStats struct {
	NumFramesTx int
	NumBytesTx  int
	NumFramesRx int
}

func NewRadioNode(nodeid SimNodeId, cfg *RadioNodeConfig) *RadioNode {
	return &RadioNode{
		Id:            nodeid,
		TxPower:       DefaultTxPowerDbm,
		RxSensitivity: DefaultRxSensitivityDbm,
		X:             float64(cfg.X),
		Y:             float64(cfg.Y),
		RadioRange:    float64(cfg.RadioRange),
	}
}

func (rn *RadioNode) SetNodePos(x, y int) {
	rn.X, rn.Y = float64(x), float64(y)
}

func (rn *RadioNode) GetDistanceTo(other *RadioNode) float64 {
	dx := other.X - rn.X
	dy := other.Y - rn.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (rn *RadioNode) Stats() RadioNodeStats {
	return rn.stats
}

// OnTransmit accounts one transmitted frame of n bytes.
func (rn *RadioNode) OnTransmit(n int) {
	rn.stats.NumFramesTx++
	rn.stats.NumBytesTx += n
}

// OnReceive accounts one frame delivered to this node.
func (rn *RadioNode) OnReceive() {
	rn.stats.NumFramesRx++
}
