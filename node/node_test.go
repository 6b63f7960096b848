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
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsense/meshnode/frame"
	"github.com/meshsense/meshnode/hal"
	"github.com/meshsense/meshnode/radiomodel"
	"github.com/meshsense/meshnode/simhw"
	. "github.com/meshsense/meshnode/types"
)

type testLogger struct {
	lines []string
}

func (l *testLogger) add(level string, format string, args []interface{}) {
	l.lines = append(l.lines, level+" "+fmt.Sprintf(format, args...))
}

func (l *testLogger) Tracef(format string, args ...interface{}) { l.add("T", format, args) }
func (l *testLogger) Debugf(format string, args ...interface{}) { l.add("D", format, args) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.add("I", format, args) }
func (l *testLogger) Warnf(format string, args ...interface{})  { l.add("W", format, args) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.add("E", format, args) }

type testNode struct {
	board *simhw.Board
	fw    *Firmware
	log   *testLogger
}

func (n *testNode) ctx() *Context {
	return n.fw.Context()
}

// peer is a bare radio used to inject frames and capture everything sent on the air.
type peer struct {
	radio  *simhw.Radio
	frames []frame.Frame
}

func (p *peer) send(t *testing.T, f *frame.Frame) {
	require.Nil(t, p.radio.Transmit(f.Bytes()))
	p.radio.EnterReceive()
}

func (p *peer) take() []frame.Frame {
	fs := p.frames
	p.frames = nil
	return fs
}

type testMesh struct {
	t      *testing.T
	medium *simhw.Medium
	nodes  []*testNode
	peer   *peer
}

func newTestMesh(t *testing.T) *testMesh {
	model, err := radiomodel.NewRadioModel("Ideal")
	require.Nil(t, err)
	m := &testMesh{t: t, medium: simhw.NewMedium(model)}

	p := &peer{radio: m.medium.Attach(100, &radiomodel.RadioNodeConfig{X: 10, RadioRange: 1000})}
	p.radio.RegisterReceive(func(buf []byte, size int, rssi int8) {
		if size == frame.Len {
			f, _ := frame.Decode(buf)
			p.frames = append(p.frames, f)
		}
		p.radio.EnterReceive()
	})
	p.radio.EnterReceive()
	m.peer = p
	return m
}

func (m *testMesh) add(id SimNodeId, role Role, nodeId NodeId, flash *simhw.Flash, setup func(cfg *Config)) *testNode {
	cfg := DefaultConfig()
	cfg.Role = role
	cfg.DefaultNodeId = nodeId
	if setup != nil {
		setup(&cfg)
	}
	if flash == nil {
		var err error
		flash, err = simhw.NewFlash("")
		require.Nil(m.t, err)
	}
	radio := m.medium.Attach(id, &radiomodel.RadioNodeConfig{X: 20 * id, RadioRange: 1000})
	board := simhw.NewBoard(radio, simhw.NewSensor(215, 0, 1), flash)
	log := &testLogger{}
	fw, err := New(cfg, board.HAL(), log)
	require.Nil(m.t, err)
	require.Nil(m.t, fw.Boot())

	n := &testNode{board: board, fw: fw, log: log}
	m.nodes = append(m.nodes, n)
	return n
}

func (m *testMesh) pass() {
	for _, n := range m.nodes {
		require.Nil(m.t, n.fw.RunPass())
	}
}

// ticks fires every node's timer once and runs one pass, k times.
func (m *testMesh) ticks(k int) {
	for i := 0; i < k; i++ {
		for _, n := range m.nodes {
			n.board.Timer.Fire()
		}
		m.pass()
	}
}

func TestFirmware_TaskOrder(t *testing.T) {
	m := newTestMesh(t)
	tag := m.add(1, RoleTag, 3, nil, nil)
	router := m.add(2, RoleRouter, 1, nil, nil)
	anchor := m.add(3, RoleAnchor, 2, nil, nil)

	assert.Equal(t, []string{"led-red", "led-green", "uart", "antibouncing", "process-msg", "periodic-send", "button"},
		tag.fw.TaskNames())
	assert.Equal(t, []string{"led-red", "led-green", "uart", "antibouncing", "process-msg", "periodic-broadcast", "forward", "button"},
		router.fw.TaskNames())
	assert.Equal(t, []string{"led-red", "led-green", "uart", "antibouncing", "process-msg", "button"},
		anchor.fw.TaskNames())
}

func TestFirmware_Boot(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 2, nil, nil)

	assert.Equal(t, NodeId(2), n.ctx().NodeId())
	assert.Equal(t, DefaultRouterId, n.ctx().RouterId())
	assert.True(t, n.board.RedLED.IsOn())
	assert.False(t, n.board.GreenLED.IsOn())
	assert.True(t, n.board.Timer.Running())
	assert.Equal(t, DefaultTickPeriod, n.board.Timer.Period())
	assert.True(t, n.board.Radio.Listening())
	assert.False(t, n.ctx().Timers().Armed(TimerIdInput))
	assert.False(t, n.ctx().IdInputPending())

	assert.NotNil(t, n.fw.Boot())
}

func TestFirmware_BootProgrammedId(t *testing.T) {
	flash, _ := simhw.NewFlash("")
	require.Nil(t, flash.Write(DefaultNodeIdAddr, 0x2A))

	m := newTestMesh(t)
	n := m.add(1, RoleTag, 3, flash, nil)
	assert.Equal(t, NodeId(0x2A), n.ctx().NodeId())
}

func TestFirmware_NotBooted(t *testing.T) {
	flash, _ := simhw.NewFlash("")
	board := simhw.NewBoard(&simhw.Radio{}, simhw.NewSensor(0, 0, 1), flash)
	fw, err := New(DefaultConfig(), board.HAL(), &testLogger{})
	require.Nil(t, err)
	assert.NotNil(t, fw.RunPass())
}

func TestNew_InvalidConfig(t *testing.T) {
	flash, _ := simhw.NewFlash("")
	board := simhw.NewBoard(&simhw.Radio{}, simhw.NewSensor(0, 0, 1), flash)

	cfg := DefaultConfig()
	cfg.Ticks.LedRedPeriod = 0
	_, err := New(cfg, board.HAL(), &testLogger{})
	assert.NotNil(t, err)

	cfg = DefaultConfig()
	cfg.RxQueueSize = 0
	_, err = New(cfg, board.HAL(), &testLogger{})
	assert.NotNil(t, err)

	hb := board.HAL()
	hb.Flash = nil
	_, err = New(DefaultConfig(), hb, &testLogger{})
	assert.EqualError(t, err, "board has no flash driver")
}

func TestHandle_AckOnTemperature(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)

	var f frame.Frame
	f.MakeTemperature(0x03, 0x01, 235)
	m.peer.send(t, &f)
	m.pass()

	sent := m.peer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.TypeAck, sent[0].Type())
	assert.Equal(t, NodeId(0x03), sent[0].Dest())
	assert.Equal(t, NodeId(0x01), sent[0].NodeId())
	assert.Equal(t, 1, n.ctx().Stats().AcksSent)
	assert.Equal(t, 1, n.ctx().Stats().Processed)
}

func TestHandle_NotAddressedToSelf(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)

	var f frame.Frame
	f.MakeTemperature(0x03, 0x05, 235)
	m.peer.send(t, &f)
	m.pass()

	assert.Empty(t, m.peer.take())
	assert.Equal(t, 1, n.ctx().Stats().Processed)
	assert.Contains(t, n.log.lines, "T message not addressed to me (dest 0x05)")
}

func TestHandle_IsRouterIdempotent(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleTag, 0x03, nil, nil)

	var f frame.Frame
	f.MakeIsRouter(0x07)
	m.peer.send(t, &f)
	m.pass()
	assert.Equal(t, NodeId(0x07), n.ctx().RouterId())

	m.peer.send(t, &f)
	m.pass()
	assert.Equal(t, NodeId(0x07), n.ctx().RouterId())
	assert.Equal(t, 1, n.ctx().Stats().RouterChanges)

	assert.False(t, n.ctx().UpdateRouterIdentity(0x07))
	assert.True(t, n.ctx().UpdateRouterIdentity(0x08))
}

func TestHandle_Ack(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x03, nil, nil)

	var f frame.Frame
	f.MakeAck(0x01, 0x03)
	m.peer.send(t, &f)
	m.pass()

	assert.Empty(t, m.peer.take())
	assert.Equal(t, 1, n.ctx().Stats().AcksReceived)
}

func TestHandle_ResultsAverage(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, DefaultAnchorId, nil, nil)

	var f frame.Frame
	require.Nil(t, f.MakeResults(0x01, DefaultAnchorId, []frame.Record{
		{Source: 0x03, Reading: 10}, {Source: 0x04, Reading: 20}, {Source: 0x05, Reading: 30},
	}))
	m.peer.send(t, &f)
	m.pass()

	sent := m.peer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.TypeAck, sent[0].Type())
	assert.Equal(t, NodeId(0x01), sent[0].Dest())

	avg, ok := n.ctx().LastAverage()
	assert.True(t, ok)
	assert.Equal(t, 20.0, avg)
	out := n.board.UART.Output()
	assert.Contains(t, out, " id 03 : 10\r\n")
	assert.Contains(t, out, "average : 20.00\r\n")
}

func TestHandle_ResultsZeroCount(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, DefaultAnchorId, nil, nil)

	var f frame.Frame
	f.Init(0x01)
	f.SetType(frame.TypeResults)
	f.SetDest(DefaultAnchorId)
	m.peer.send(t, &f)
	m.pass()

	// acknowledged, then rejected
	require.Len(t, m.peer.take(), 1)
	_, ok := n.ctx().LastAverage()
	assert.False(t, ok)
	assert.Equal(t, 1, n.ctx().Stats().ResultsRejected)
}

func TestRadio_QueueOverrun(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)

	var f frame.Frame
	for i := 0; i < DefaultRxQueueSize+1; i++ {
		f.MakeTemperature(NodeId(0x10+i), 0x01, int16(i))
		m.peer.send(t, &f)
	}
	m.pass()

	st := n.ctx().Stats()
	assert.Equal(t, DefaultRxQueueSize, st.RxFrames)
	assert.Equal(t, 1, st.RxOverruns)
	assert.Equal(t, DefaultRxQueueSize, st.Processed)

	// the oldest frames are kept
	sent := m.peer.take()
	require.Len(t, sent, DefaultRxQueueSize)
	assert.Equal(t, NodeId(0x10), sent[0].Dest())
	assert.Equal(t, NodeId(0x11), sent[1].Dest())
}

func TestRadio_TransportError(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)
	m.medium.SetPacketLossRatio(1)

	var f frame.Frame
	f.MakeTemperature(0x03, 0x01, 1)
	m.peer.send(t, &f)
	m.pass()

	assert.Equal(t, 1, n.ctx().Stats().RxErrors)
	assert.Equal(t, 0, n.ctx().Stats().Processed)
	assert.True(t, n.board.Radio.Listening())
}

func TestTask_GreenBlink(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)

	var f frame.Frame
	f.MakeAck(0x03, 0x01)
	m.peer.send(t, &f)
	m.pass()
	assert.True(t, n.board.GreenLED.IsOn())

	m.ticks(int(n.ctx().Config().Ticks.RxBlink) - 1)
	assert.True(t, n.board.GreenLED.IsOn())
	m.ticks(1)
	assert.False(t, n.board.GreenLED.IsOn())
}

func TestTask_RedHeartbeat(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)

	m.pass()
	assert.Equal(t, 1, n.board.RedLED.Toggles())
	m.ticks(99)
	assert.Equal(t, 1, n.board.RedLED.Toggles())
	m.ticks(1)
	assert.Equal(t, 2, n.board.RedLED.Toggles())
	m.ticks(100)
	assert.Equal(t, 3, n.board.RedLED.Toggles())
}

func TestTask_TagPeriodicSend(t *testing.T) {
	m := newTestMesh(t)
	m.add(1, RoleTag, 0x03, nil, nil)

	m.pass()
	m.ticks(999)
	assert.Empty(t, m.peer.take())

	m.ticks(1)
	sent := m.peer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.TypeTemperature, sent[0].Type())
	assert.Equal(t, DefaultRouterId, sent[0].Dest())
	assert.Equal(t, NodeId(0x03), sent[0].NodeId())
	assert.Equal(t, int16(215), sent[0].Temperature())

	m.ticks(1000)
	assert.Len(t, m.peer.take(), 1)
}

func TestTask_RouterBroadcastAndForward(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleRouter, 0x01, nil, func(cfg *Config) {
		cfg.Ticks.RadioBroadcast = 50
		cfg.Ticks.RadioForward = 30
	})
	m.pass()

	var f frame.Frame
	f.MakeTemperature(0x03, 0x01, 10)
	m.peer.send(t, &f)
	f.MakeTemperature(0x04, 0x01, 20)
	m.peer.send(t, &f)
	m.pass()
	f.MakeTemperature(0x03, 0x01, 12)
	m.peer.send(t, &f)
	m.pass()
	assert.Equal(t, []frame.Record{{Source: 0x03, Reading: 12}, {Source: 0x04, Reading: 20}}, n.ctx().PendingReadings())
	assert.Len(t, m.peer.take(), 3) // acks

	m.ticks(30)
	sent := m.peer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.TypeResults, sent[0].Type())
	assert.Equal(t, DefaultAnchorId, sent[0].Dest())
	recs, err := sent[0].Results()
	require.Nil(t, err)
	assert.Equal(t, []frame.Record{{Source: 0x03, Reading: 12}, {Source: 0x04, Reading: 20}}, recs)
	assert.Empty(t, n.ctx().PendingReadings())

	m.ticks(20)
	sent = m.peer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.TypeIsRouter, sent[0].Type())
	assert.True(t, sent[0].IsBroadcast())
	assert.Equal(t, NodeId(0x01), sent[0].NodeId())

	// empty table: nothing forwarded
	m.ticks(10)
	assert.Empty(t, m.peer.take())
}

func TestButton_Debounce(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x01, nil, nil)
	timers := n.ctx().Timers()

	// first press is accepted and arms the id input timeout
	assert.True(t, n.board.Button.Press())
	m.pass()
	assert.True(t, n.ctx().IdInputPending())
	assert.Equal(t, uint16(0), timers.Value(TimerIdInput))
	assert.Contains(t, n.board.UART.TakeOutput(), "enter node id")

	// second press inside the debounce window is ignored
	m.ticks(5)
	n.board.Button.Press()
	m.pass()
	assert.Equal(t, 1, n.ctx().Stats().ButtonBounces)
	assert.Equal(t, uint16(5), timers.Value(TimerIdInput))

	// after the window a third press is accepted and re-arms the timeout
	m.ticks(5)
	assert.Equal(t, uint16(10), timers.Value(TimerIdInput))
	n.board.Button.Press()
	m.pass()
	assert.Equal(t, 1, n.ctx().Stats().ButtonBounces)
	assert.Equal(t, uint16(0), timers.Value(TimerIdInput))
}

func TestUart_AssignIdentity(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleTag, 0x03, nil, nil)

	n.board.Button.Press()
	m.pass()
	m.ticks(20)
	m.peer.take()

	n.board.UART.Input(0x2A)
	m.pass()
	assert.Equal(t, NodeId(0x2A), n.ctx().NodeId())
	assert.False(t, n.ctx().IdInputPending())
	assert.False(t, n.ctx().Timers().Armed(TimerIdInput))

	v, err := n.board.Flash.Read(DefaultNodeIdAddr)
	assert.Nil(t, err)
	assert.Equal(t, byte(0x2A), v)

	sent := m.peer.take()
	require.Len(t, sent, 1)
	assert.Equal(t, frame.TypeIdReply, sent[0].Type())
	assert.Equal(t, NodeId(0x2A), sent[0].IdReply())
	assert.Contains(t, n.board.UART.Output(), "node id set to 2A")
}

func TestUart_IgnoredWithoutRequest(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x03, nil, nil)

	n.board.UART.Input(0x2A)
	m.pass()
	assert.Equal(t, NodeId(0x03), n.ctx().NodeId())
	// the blink request is served on the next pass
	m.pass()
	assert.True(t, n.board.GreenLED.IsOn())
}

func TestUart_Timeout(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x03, nil, nil)

	n.board.Button.Press()
	m.pass()
	m.ticks(int(n.ctx().Config().Ticks.IdInputTimeout))
	assert.False(t, n.ctx().IdInputPending())

	n.board.UART.Input(0x2A)
	m.pass()
	assert.Equal(t, NodeId(0x03), n.ctx().NodeId())
}

func TestUart_InvalidId(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x03, nil, nil)

	n.board.Button.Press()
	m.pass()
	n.board.UART.Input(BroadcastNodeId)
	m.pass()
	assert.Equal(t, NodeId(0x03), n.ctx().NodeId())
	// still waiting for a valid id
	assert.True(t, n.ctx().IdInputPending())
}

func TestAssignIdentity_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.flash")
	flash, err := simhw.NewFlash(path)
	require.Nil(t, err)

	m := newTestMesh(t)
	n := m.add(1, RoleTag, 0x03, flash, nil)
	require.Nil(t, n.ctx().AssignIdentity(0x2A))

	m2 := newTestMesh(t)
	flash2, err := simhw.NewFlash(path)
	require.Nil(t, err)
	n2 := m2.add(1, RoleTag, 0x03, flash2, nil)
	assert.Equal(t, NodeId(0x2A), n2.ctx().NodeId())

	// reassignment needs an erase first
	require.Nil(t, n2.ctx().AssignIdentity(0x2B))
	assert.Equal(t, 1, flash2.Erases())
	assert.Equal(t, NodeId(0x2B), n2.ctx().NodeId())
}

func TestAssignIdentity_StorageFatal(t *testing.T) {
	m := newTestMesh(t)
	n := m.add(1, RoleAnchor, 0x03, nil, nil)
	fault := errors.New("write fault")
	n.board.Flash.SetFault(fault)

	err := n.ctx().AssignIdentity(0x2A)
	assert.True(t, errors.Is(err, ErrStorageFatal))
	assert.True(t, errors.Is(err, fault))
	assert.Contains(t, err.Error(), "write fault")
	assert.Equal(t, NodeId(0x03), n.ctx().NodeId())

	n.board.Button.Press()
	require.Nil(t, n.fw.RunPass())
	n.board.UART.Input(0x2A)
	err = n.fw.RunPass()
	assert.True(t, errors.Is(err, ErrStorageFatal))
	assert.Equal(t, err, n.fw.RunPass())
	assert.Equal(t, err, n.ctx().Fault())
}

func TestStorageErrorChain(t *testing.T) {
	cause := errors.Wrapf(hal.ErrNotErased, "0x1000 holds 0x2A")
	var err error = &storageError{id: 0x2B, addr: 0x1000, cause: cause}

	assert.True(t, errors.Is(err, ErrStorageFatal))
	assert.True(t, errors.Is(err, hal.ErrNotErased))
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.Equal(t, "non-volatile storage write failed: write node id 0x2B at 0x1000: 0x1000 holds 0x2A: flash cell not erased", err.Error())
}

func TestMesh_EndToEnd(t *testing.T) {
	short := func(cfg *Config) {
		cfg.Ticks.RadioSend = 20
		cfg.Ticks.RadioForward = 50
		cfg.Ticks.RadioBroadcast = 200
	}
	m := newTestMesh(t)
	tagA := m.add(1, RoleTag, 0x03, nil, short)
	tagB := m.add(2, RoleTag, 0x04, nil, short)
	router := m.add(3, RoleRouter, 0x01, nil, short)
	anchor := m.add(4, RoleAnchor, DefaultAnchorId, nil, short)
	tagB.board.Sensor.Base = 225

	m.pass()
	m.ticks(60)

	assert.True(t, tagA.ctx().Stats().AcksReceived >= 2)
	assert.True(t, tagB.ctx().Stats().AcksReceived >= 2)
	assert.Equal(t, 1, router.ctx().Stats().ResultsSent)
	avg, ok := anchor.ctx().LastAverage()
	assert.True(t, ok)
	assert.Equal(t, 220.0, avg)
	assert.Contains(t, anchor.board.UART.Output(), "average : 220.00")
}
