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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gopkg.in/yaml.v3"

	"github.com/meshsense/meshnode/frame"
	nodefw "github.com/meshsense/meshnode/node"
	"github.com/meshsense/meshnode/pcap"
	"github.com/meshsense/meshnode/progctx"
	"github.com/meshsense/meshnode/replay"
	. "github.com/meshsense/meshnode/types"
)

func newTestSimulation(t *testing.T, setup func(cfg *Config)) *Simulation {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Speed = MaxSimulateSpeed
	if setup != nil {
		setup(cfg)
	}
	sim, err := NewSimulation(progctx.New(context.Background()), cfg)
	require.Nil(t, err)
	t.Cleanup(sim.Stop)
	return sim
}

func addTestNode(t *testing.T, sim *Simulation, id SimNodeId, role Role, nodeId NodeId, x int) *Node {
	cfg := DefaultNodeConfig()
	cfg.ID = id
	cfg.Role = role
	cfg.NodeId = nodeId
	cfg.X, cfg.Y = x, 100
	cfg.IsAutoPlaced = false
	cfg.SensorNoise = 0
	node, err := sim.AddNode(&cfg)
	require.Nil(t, err)
	return node
}

func TestNewSimulation_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.PassesPerTick = 0
	_, err := NewSimulation(progctx.New(context.Background()), cfg)
	assert.NotNil(t, err)

	cfg = DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.RadioModel = "NoSuchModel"
	_, err = NewSimulation(progctx.New(context.Background()), cfg)
	assert.NotNil(t, err)
}

func TestAddNode_AutoPlaced(t *testing.T) {
	sim := newTestSimulation(t, nil)

	cfg := DefaultNodeConfig()
	n1, err := sim.AddNode(&cfg)
	require.Nil(t, err)
	n2, err := sim.AddNode(&cfg)
	require.Nil(t, err)

	assert.Equal(t, 1, n1.Id)
	assert.Equal(t, 2, n2.Id)
	x1, y1 := n1.Position()
	x2, y2 := n2.Position()
	assert.Equal(t, nodePlacementStep, x1)
	assert.Equal(t, 2*nodePlacementStep, x2)
	assert.Equal(t, y1, y2)
	assert.Equal(t, []SimNodeId{1, 2}, sim.GetNodes())

	cfg.ID = 2
	_, err = sim.AddNode(&cfg)
	assert.NotNil(t, err)
}

func TestAddNode_ReservedNodeId(t *testing.T) {
	sim := newTestSimulation(t, nil)
	cfg := DefaultNodeConfig()
	cfg.NodeId = BroadcastNodeId
	_, err := sim.AddNode(&cfg)
	assert.NotNil(t, err)
	assert.Empty(t, sim.Nodes())
}

func TestAddNode_ProgrammedNodeId(t *testing.T) {
	sim := newTestSimulation(t, nil)
	node := addTestNode(t, sim, 5, RoleTag, 0x33, 100)

	assert.Equal(t, NodeId(0x33), node.Firmware.Context().NodeId())
	st := node.Status()
	assert.Equal(t, "0x33", st.NodeId)
	assert.Equal(t, "0x01", st.RouterId)
	assert.Equal(t, RoleTag, st.Role)
	assert.True(t, st.RedLed)
	assert.Equal(t, 1, st.Boots)
}

func TestDeleteNode(t *testing.T) {
	sim := newTestSimulation(t, nil)
	addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	addTestNode(t, sim, 2, RoleTag, 0x03, 140)

	assert.Nil(t, sim.DeleteNode(2))
	assert.Nil(t, sim.GetNode(2))
	assert.Nil(t, sim.Medium().Radio(2))
	assert.NotNil(t, sim.DeleteNode(2))
	assert.Equal(t, []SimNodeId{1}, sim.GetNodes())
}

func TestRunTicks_TagReportsToRouter(t *testing.T) {
	sim := newTestSimulation(t, nil)
	router := addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	tag := addTestNode(t, sim, 2, RoleTag, 0x03, 140)

	sim.RunTicks(999)
	assert.Equal(t, 0, tag.Firmware.Context().Stats().TxFrames)

	sim.RunTicks(10)
	assert.Equal(t, uint64(1009), sim.CurTick())
	assert.Equal(t, 1, tag.Firmware.Context().Stats().TxFrames)
	assert.Equal(t, 1, router.Firmware.Context().Stats().AcksSent)
	assert.Equal(t, 1, tag.Firmware.Context().Stats().AcksReceived)
	assert.Equal(t, uint64(2), sim.TxFrames())

	recs := router.Firmware.Context().PendingReadings()
	require.Len(t, recs, 1)
	assert.Equal(t, frame.Record{Source: 0x03, Reading: defaultSensorBase}, recs[0])
	assert.Equal(t, map[string]int{"0x03": defaultSensorBase}, router.Status().Readings)
}

func TestRunTicks_PacketLoss(t *testing.T) {
	sim := newTestSimulation(t, nil)
	router := addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	tag := addTestNode(t, sim, 2, RoleTag, 0x03, 140)

	sim.SetPacketLossRatio(1.0)
	assert.Equal(t, 1.0, sim.GetPacketLossRatio())
	sim.RunTicks(1010)

	assert.Equal(t, 1, tag.Firmware.Context().Stats().TxFrames)
	assert.Equal(t, 1, router.Firmware.Context().Stats().RxErrors)
	assert.Equal(t, 0, router.Firmware.Context().Stats().RxFrames)
	assert.Empty(t, router.Firmware.Context().PendingReadings())
}

func TestRadioDown(t *testing.T) {
	sim := newTestSimulation(t, nil)
	router := addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	tag := addTestNode(t, sim, 2, RoleTag, 0x03, 140)

	require.Nil(t, sim.SetRadioDown(2, true))
	sim.RunTicks(1010)
	assert.Equal(t, 1, tag.Firmware.Context().Stats().TxFrames)
	assert.Equal(t, uint64(0), sim.TxFrames())
	assert.Equal(t, 0, router.Firmware.Context().Stats().RxFrames)
	assert.True(t, tag.Status().RadioDown)

	require.Nil(t, sim.SetRadioDown(2, false))
	assert.False(t, tag.Status().RadioDown)
	sim.RunTicks(1010)
	assert.Equal(t, map[string]int{"0x03": defaultSensorBase}, router.Status().Readings)

	assert.NotNil(t, sim.SetRadioDown(5, true))
}

func TestRadioFailTime(t *testing.T) {
	sim := newTestSimulation(t, nil)
	tag := addTestNode(t, sim, 1, RoleTag, 0x03, 140)

	assert.NotNil(t, sim.SetRadioFailTime(1, FailTime{FailDuration: 10, FailInterval: 10}))
	assert.NotNil(t, sim.SetRadioFailTime(5, FailTime{FailDuration: 1, FailInterval: 10}))

	require.Nil(t, sim.SetRadioFailTime(1, FailTime{FailDuration: 50, FailInterval: 100}))
	assert.Equal(t, &FailTime{50, 100}, tag.Status().FailTime)
	down := 0
	for i := 0; i < 1000; i++ {
		sim.RunTicks(1)
		if tag.Board.Radio.IsDown() {
			down++
		}
	}
	assert.InDelta(t, 500, down, 50)

	require.Nil(t, sim.SetRadioFailTime(1, NonFailTime))
	assert.False(t, tag.Board.Radio.IsDown())
	assert.Nil(t, tag.Status().FailTime)
}

func TestIdentityAssignment_SurvivesRestart(t *testing.T) {
	sim := newTestSimulation(t, func(cfg *Config) {
		cfg.FlashDir = filepath.Join(cfg.OutputDir, "flash")
	})
	node := addTestNode(t, sim, 1, RoleTag, UnprogrammedNodeId, 100)
	assert.Equal(t, nodefw.DefaultNodeId, node.Firmware.Context().NodeId())

	require.Nil(t, sim.Press(1))
	sim.RunTicks(1)
	assert.True(t, node.Status().IdRequest)
	assert.Contains(t, node.TakeConsoleOutput(), "enter node id")

	require.Nil(t, sim.UartInput(1, 0x2A))
	sim.RunTicks(1)
	assert.Equal(t, NodeId(0x2A), node.Firmware.Context().NodeId())
	assert.Contains(t, node.TakeConsoleOutput(), "node id set to 2A")

	require.Nil(t, sim.Restart(1))
	assert.Equal(t, NodeId(0x2A), node.Firmware.Context().NodeId())
	assert.Equal(t, 2, node.Status().Boots)
	assert.False(t, node.Status().IdRequest)

	_, err := os.Stat(filepath.Join(sim.GetConfig().FlashDir, "0_1.flash"))
	assert.Nil(t, err)
}

func TestNodeFailure(t *testing.T) {
	sim := newTestSimulation(t, nil)
	node := addTestNode(t, sim, 1, RoleTag, UnprogrammedNodeId, 100)
	node.Board.Flash.SetFault(errors.New("cell worn out"))

	require.Nil(t, sim.Press(1))
	sim.RunTicks(1)
	require.Nil(t, sim.UartInput(1, 0x2A))
	sim.RunTicks(1)

	assert.True(t, node.Failed())
	assert.True(t, errors.Is(node.Err(), nodefw.ErrStorageFatal))
	assert.NotEmpty(t, node.Status().Fault)
	assert.NotNil(t, sim.Press(1))

	passes := node.Firmware.Passes()
	sim.RunTicks(5)
	assert.Equal(t, passes, node.Firmware.Passes())
}

func TestUnknownNode(t *testing.T) {
	sim := newTestSimulation(t, nil)
	assert.NotNil(t, sim.Press(7))
	assert.NotNil(t, sim.UartInput(7, 0x10))
	assert.NotNil(t, sim.Restart(7))
	assert.NotNil(t, sim.MoveNodeTo(7, 1, 1))
}

func TestMoveNodeTo_OutOfRange(t *testing.T) {
	sim := newTestSimulation(t, nil)
	router := addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	tag := addTestNode(t, sim, 2, RoleTag, 0x03, 140)

	require.Nil(t, sim.MoveNodeTo(2, 100+10*defaultRadioRange, 100))
	sim.RunTicks(1010)
	assert.Equal(t, 1, tag.Firmware.Context().Stats().TxFrames)
	assert.Equal(t, 0, router.Firmware.Context().Stats().RxFrames)
}

func TestGo_Async(t *testing.T) {
	ctx := progctx.New(context.Background())
	cfg := DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Speed = MaxSimulateSpeed
	sim, err := NewSimulation(ctx, cfg)
	require.Nil(t, err)

	go sim.Run()
	<-sim.Started

	added := make(chan error, 1)
	sim.PostAsync(func() {
		ncfg := DefaultNodeConfig()
		_, err := sim.AddNode(&ncfg)
		added <- err
	})
	assert.Nil(t, <-added)

	select {
	case <-sim.Go(50):
	case <-time.After(10 * time.Second):
		t.Fatal("go did not finish")
	}

	ticks := make(chan uint64, 1)
	sim.PostAsync(func() {
		ticks <- sim.CurTick()
	})
	assert.Equal(t, uint64(50), <-ticks)

	done := sim.Go(Ever)
	ctx.Cancel("test done")
	<-done
	ctx.Wait()
	assert.True(t, sim.IsStopping())
}

func TestOutputs_PcapAndReplay(t *testing.T) {
	var replayFile string
	sim := newTestSimulation(t, func(cfg *Config) {
		cfg.PcapType = pcap.FrameTypeMeta
		replayFile = filepath.Join(cfg.OutputDir, "frames.replay")
		cfg.ReplayFile = replayFile
	})
	addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	addTestNode(t, sim, 2, RoleTag, 0x03, 140)
	sim.RunTicks(1010)
	sim.Stop()

	info, err := os.Stat(filepath.Join(sim.GetConfig().OutputDir, "0_frames.pcap"))
	require.Nil(t, err)
	assert.Greater(t, info.Size(), int64(24))

	var entries []replay.Entry
	err = replay.Read(replayFile, func(e replay.Entry) error {
		entries = append(entries, e)
		return nil
	})
	require.Nil(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 2, entries[0].Source)
	assert.Equal(t, frame.TypeTemperature, entries[0].Frame.Type())
	assert.Equal(t, 1, entries[0].Receivers)
	assert.Equal(t, uint64(1001), entries[0].Tick)
	assert.Equal(t, frame.TypeAck, entries[1].Frame.Type())
}

func TestMonitor_NodeStatus(t *testing.T) {
	sim := newTestSimulation(t, func(cfg *Config) {
		cfg.MonitorAddr = "127.0.0.1:0"
	})
	node := addTestNode(t, sim, 1, RoleTag, UnprogrammedNodeId, 100)
	addTestNode(t, sim, 2, RoleTag, 0x04, 140)
	require.Nil(t, sim.DeleteNode(2))
	node.Board.Flash.SetFault(errors.New("cell worn out"))
	require.Nil(t, sim.Press(1))
	sim.RunTicks(1)
	require.Nil(t, sim.UartInput(1, 0x2A))
	sim.RunTicks(1)
	require.True(t, node.Failed())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, sim.monitor.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.Nil(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	for _, name := range []string{"node1", "node2"} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: name})
		require.Nil(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status, name)
	}
}

func TestMonitor_FailedRestart(t *testing.T) {
	sim := newTestSimulation(t, func(cfg *Config) {
		cfg.MonitorAddr = "127.0.0.1:0"
	})
	node := addTestNode(t, sim, 1, RoleTag, 0x03, 100)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, sim.monitor.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.Nil(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)
	checkNode1 := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "node1"})
		require.Nil(t, err)
		return resp.Status
	}
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkNode1())

	// firmware cannot be created with an invalid tick period
	tickPeriod := sim.cfg.TickPeriod
	sim.cfg.TickPeriod = 0
	assert.NotNil(t, sim.Restart(1))
	assert.True(t, node.Failed())
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkNode1())

	sim.cfg.TickPeriod = tickPeriod
	require.Nil(t, sim.Restart(1))
	assert.False(t, node.Failed())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkNode1())
}

func TestKpi(t *testing.T) {
	sim := newTestSimulation(t, nil)
	addTestNode(t, sim, 1, RoleRouter, 0x01, 100)
	addTestNode(t, sim, 2, RoleTag, 0x03, 140)

	km := sim.KpiManager()
	km.Start()
	assert.True(t, km.IsRunning())
	sim.RunTicks(1010)
	km.Stop()
	assert.False(t, km.IsRunning())

	data := km.Data()
	assert.Equal(t, uint64(1010), data.Time.PeriodTicks)
	assert.InDelta(t, 10.1, data.Time.PeriodSec, 1e-9)
	assert.Equal(t, uint64(2), data.Radio.TxFrames)
	assert.Equal(t, 1, data.Counters[2]["tx.frames"])
	assert.Equal(t, 1, data.Counters[1]["ack.sent"])
	assert.Equal(t, 100.0, data.Delivery.AckPercentage[2])

	_, err := os.Stat(filepath.Join(sim.GetConfig().OutputDir, "0_kpi.json"))
	assert.Nil(t, err)
}

var testYamlFile = `
network:
    pos-shift: [10, 0]
    plr: 0.25
nodes:
    - id: 1
      role: router
      pos: [100, 100]
    - id: 2
      role: tag
      node-id: 3
      pos: [140, 100]
      sensor: 230
    - id: 3
      role: anchor
      node-id: 2
      pos: [60, 100]
      radio-range: 400
`

func TestYamlConfigUnmarshall(t *testing.T) {
	cfgFile := YamlConfigFile{}
	err := yaml.Unmarshal([]byte(testYamlFile), &cfgFile)
	require.Nil(t, err)
	assert.Equal(t, [2]int{10, 0}, cfgFile.NetworkConfig.Position)
	assert.Equal(t, 3, len(cfgFile.NodesList))
	assert.Equal(t, RoleAnchor, cfgFile.NodesList[2].Role)
	assert.Equal(t, 400, *cfgFile.NodesList[2].RadioRange)
	assert.Nil(t, cfgFile.NodesList[0].NodeId)
}

func TestLoadAndSaveYamlFile(t *testing.T) {
	sim := newTestSimulation(t, nil)
	fn := filepath.Join(t.TempDir(), "mesh.yaml")
	require.Nil(t, os.WriteFile(fn, []byte(testYamlFile), 0644))

	require.Nil(t, sim.LoadYamlFile(fn))
	assert.Equal(t, []SimNodeId{1, 2, 3}, sim.GetNodes())
	assert.Equal(t, 0.25, sim.GetPacketLossRatio())

	tag := sim.GetNode(2)
	x, y := tag.Position()
	assert.Equal(t, 150, x)
	assert.Equal(t, 100, y)
	assert.Equal(t, NodeId(0x03), tag.Firmware.Context().NodeId())
	assert.Equal(t, int16(230), tag.Config().SensorBase)
	assert.Equal(t, RoleAnchor, sim.GetNode(3).Firmware.Role())

	out := filepath.Join(t.TempDir(), "saved.yaml")
	require.Nil(t, sim.SaveYamlFile(out))
	data, err := os.ReadFile(out)
	require.Nil(t, err)
	saved := YamlConfigFile{}
	require.Nil(t, yaml.Unmarshal(data, &saved))
	require.Len(t, saved.NodesList, 3)
	assert.Equal(t, [2]int{150, 100}, saved.NodesList[1].Position)
	assert.Equal(t, 3, *saved.NodesList[1].NodeId)
	assert.Equal(t, RoleRouter, saved.NodesList[0].Role)
	assert.Nil(t, saved.NodesList[0].RadioRange)
	assert.Equal(t, 400, *saved.NodesList[2].RadioRange)
	assert.Equal(t, 0.25, *saved.NetworkConfig.PacketLossRatio)
}

func TestImportNodes_PartialFailure(t *testing.T) {
	sim := newTestSimulation(t, nil)
	bad := 0
	nodes := []YamlNodeConfig{
		{ID: 1, Role: RoleRouter, Position: [2]int{10, 10}},
		{ID: 2, Role: RoleTag, NodeId: &bad, Position: [2]int{20, 10}},
		{ID: 1, Role: RoleTag, Position: [2]int{30, 10}},
	}
	err := sim.ImportNodes(YamlNetworkConfig{}, nodes)
	assert.NotNil(t, err)
	assert.Equal(t, []SimNodeId{1}, sim.GetNodes())
}
