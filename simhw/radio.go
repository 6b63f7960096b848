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

package simhw

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/frame"
	"github.com/meshsense/meshnode/hal"
	"github.com/meshsense/meshnode/prng"
	"github.com/meshsense/meshnode/radiomodel"
	. "github.com/meshsense/meshnode/types"
)

var ErrDetached = errors.New("radio is not attached to a medium")

// TransmitFunc observes every frame put on the air. receivers is the number of radios the frame
// was delivered to intact.
type TransmitFunc func(src SimNodeId, buf []byte, receivers int)

// Medium connects simulated radios through a radio model. Delivery is immediate: a frame is
// handed to every reachable listening radio before Transmit returns.
type Medium struct {
	model      radiomodel.RadioModel
	radios     map[SimNodeId]*Radio
	order      []SimNodeId
	plr        float64
	onTransmit TransmitFunc
}

func NewMedium(model radiomodel.RadioModel) *Medium {
	return &Medium{
		model:  model,
		radios: map[SimNodeId]*Radio{},
	}
}

// Attach creates the radio of node id.
func (m *Medium) Attach(id SimNodeId, cfg *radiomodel.RadioNodeConfig) *Radio {
	r := &Radio{
		node:   radiomodel.NewRadioNode(id, cfg),
		medium: m,
	}
	m.Detach(id)
	m.radios[id] = r
	m.model.AddNode(id, r.node)
	m.order = append(m.order, id)
	sort.Ints(m.order)
	return r
}

// Detach removes the radio of node id; it can no longer send or receive.
func (m *Medium) Detach(id SimNodeId) {
	r, ok := m.radios[id]
	if !ok {
		return
	}
	r.medium = nil
	r.node.RxOn = false
	delete(m.radios, id)
	m.model.DeleteNode(id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Medium) Radio(id SimNodeId) *Radio {
	return m.radios[id]
}

func (m *Medium) Model() radiomodel.RadioModel {
	return m.model
}

// SetPacketLossRatio sets the probability that a reachable receiver gets a bad CRC instead of the frame.
func (m *Medium) SetPacketLossRatio(plr float64) {
	if plr < 0 {
		plr = 0
	} else if plr > 1 {
		plr = 1
	}
	m.plr = plr
}

func (m *Medium) PacketLossRatio() float64 {
	return m.plr
}

func (m *Medium) SetTransmitObserver(f TransmitFunc) {
	m.onTransmit = f
}

func (m *Medium) deliver(src *Radio, buf []byte) {
	received := 0
	for _, id := range m.order {
		dst := m.radios[id]
		if !m.model.CheckRadioReachable(src.node, dst.node) {
			continue
		}
		rssi := m.model.GetTxRssi(src.node, dst.node)
		// the transceiver leaves receive mode after each frame until re-armed
		dst.node.RxOn = false
		if dst.cb == nil {
			continue
		}
		if m.plr > 0 && prng.NewUnitRandom() < m.plr {
			dst.cb(nil, hal.RxCodeBadCRC, rssi)
			continue
		}
		n := copy(dst.rxbuf[:], buf)
		dst.node.OnReceive()
		received++
		dst.cb(dst.rxbuf[:n], n, rssi)
	}
	if m.onTransmit != nil {
		m.onTransmit(src.node.Id, buf, received)
	}
}

// Radio is a simulated fixed-length frame transceiver.
type Radio struct {
	node   *radiomodel.RadioNode
	medium *Medium
	cb     hal.ReceiveFunc
	rxbuf  [frame.Len]byte

	// while down, frames are neither sent nor received; rxArmed keeps the receive mode the
	// firmware asked for.
	down    bool
	rxArmed bool
}

// Transmit sends buf to the medium. A radio that is down accepts the frame but nothing goes on
// the air.
func (r *Radio) Transmit(buf []byte) error {
	if r.medium == nil {
		return ErrDetached
	}
	if len(buf) > frame.Len {
		return errors.Wrapf(hal.ErrTxOverflow, "%d bytes", len(buf))
	}
	r.node.RxOn, r.rxArmed = false, false
	if r.down {
		return nil
	}
	r.node.OnTransmit(len(buf))
	r.medium.deliver(r, buf)
	return nil
}

func (r *Radio) EnterReceive() {
	if r.medium != nil {
		r.rxArmed = true
		r.node.RxOn = !r.down
	}
}

// SetDown takes the radio off the air, or puts it back in the receive mode it had.
func (r *Radio) SetDown(down bool) {
	if r.down == down {
		return
	}
	r.down = down
	if down {
		r.rxArmed = r.node.RxOn
		r.node.RxOn = false
	} else {
		r.node.RxOn = r.rxArmed && r.medium != nil
	}
}

// Off leaves receive mode until the firmware asks for it again.
func (r *Radio) Off() {
	r.node.RxOn, r.rxArmed = false, false
}

func (r *Radio) IsDown() bool {
	return r.down
}

func (r *Radio) RegisterReceive(cb hal.ReceiveFunc) {
	r.cb = cb
}

// Node returns the radio model state of this radio (position, range, counters).
func (r *Radio) Node() *radiomodel.RadioNode {
	return r.node
}

func (r *Radio) Listening() bool {
	return r.node.RxOn
}
