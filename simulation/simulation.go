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

// Package simulation runs many node firmware instances on simulated boards that share one radio
// medium, advancing all of them in lockstep one timer tick at a time.
package simulation

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/frame"
	"github.com/meshsense/meshnode/logger"
	"github.com/meshsense/meshnode/monitor"
	"github.com/meshsense/meshnode/pcap"
	"github.com/meshsense/meshnode/prng"
	"github.com/meshsense/meshnode/progctx"
	"github.com/meshsense/meshnode/radiomodel"
	"github.com/meshsense/meshnode/replay"
	"github.com/meshsense/meshnode/simhw"
	. "github.com/meshsense/meshnode/types"
)

type Simulation struct {
	Started    chan struct{}
	ctx        *progctx.ProgCtx
	stopped    bool
	cfg        *Config
	nodes      map[SimNodeId]*Node
	medium     *simhw.Medium
	taskq      chan func()
	curTick    uint64
	goUntil    uint64
	goWaiters  []chan struct{}
	paceStart  time.Time
	paceTick   uint64
	txFrames   uint64
	logLevel   logger.Level
	nodePlacer nodeAutoPlacer
	pcap       pcap.File
	replay     *replay.Replay
	monitor    *monitor.Monitor
	kpiMgr     *KpiManager
	postMu     sync.Mutex
	postClosed bool
}

func NewSimulation(ctx *progctx.ProgCtx, cfg *Config) (*Simulation, error) {
	if cfg.TickPeriod <= 0 {
		return nil, errors.Errorf("invalid tick period %v", cfg.TickPeriod)
	}
	if cfg.PassesPerTick <= 0 {
		return nil, errors.Errorf("invalid passes per tick %d", cfg.PassesPerTick)
	}
	if cfg.Speed <= 0 {
		return nil, errors.Errorf("invalid speed %v", cfg.Speed)
	}

	model, err := radiomodel.NewRadioModel(cfg.RadioModel)
	if err != nil {
		return nil, err
	}
	prng.Init(cfg.Seed)

	s := &Simulation{
		Started: make(chan struct{}),
		ctx:     ctx,
		cfg:     cfg,
		nodes:   map[SimNodeId]*Node{},
		medium:  simhw.NewMedium(model),
		taskq:   make(chan func(), 100),
		kpiMgr:  NewKpiManager(),
	}
	s.SetLogLevel(cfg.LogLevel)
	s.medium.SetPacketLossRatio(cfg.PacketLossRatio)
	s.medium.SetTransmitObserver(s.onTransmit)

	if err = s.createTmpDir(); err != nil {
		return nil, errors.Wrapf(err, "creating %s directory failed", cfg.OutputDir)
	}
	if err = s.cleanTmpDir(cfg.Id); err != nil {
		return nil, errors.Wrapf(err, "cleaning %s directory failed", cfg.OutputDir)
	}
	if len(cfg.FlashDir) > 0 {
		if err = os.MkdirAll(cfg.FlashDir, 0775); err != nil {
			return nil, errors.Wrapf(err, "creating flash directory failed")
		}
	}

	if err = s.openOutputs(); err != nil {
		s.closeOutputs()
		return nil, err
	}
	s.kpiMgr.Init(s)
	return s, nil
}

func (s *Simulation) openOutputs() error {
	var err error
	if s.cfg.PcapType != pcap.FrameTypeOff {
		fn := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("%d_frames.pcap", s.cfg.Id))
		if s.pcap, err = pcap.NewFile(fn, s.cfg.PcapType); err != nil {
			return err
		}
	}
	if len(s.cfg.ReplayFile) > 0 {
		if s.replay, err = replay.NewReplay(s.cfg.ReplayFile); err != nil {
			return err
		}
	}
	if len(s.cfg.MonitorAddr) > 0 {
		if s.monitor, err = monitor.New(s.cfg.MonitorAddr); err != nil {
			return err
		}
		mon := s.monitor
		s.ctx.Go("monitor", func() {
			if err := mon.Serve(); err != nil {
				logger.Errorf("monitor stopped: %v", err)
			}
		})
	}
	return nil
}

func (s *Simulation) closeOutputs() {
	if s.pcap != nil {
		if err := s.pcap.Close(); err != nil {
			logger.Warnf("closing pcap file: %v", err)
		}
		s.pcap = nil
	}
	if s.replay != nil {
		s.replay.Close()
		s.replay = nil
	}
	if s.monitor != nil {
		s.monitor.Stop()
		s.monitor = nil
	}
}

func (s *Simulation) AddNode(cfg *NodeConfig) (*Node, error) {
	if s.stopped {
		return nil, errors.Errorf("simulation stopped")
	}
	ncfg := *cfg
	nodeid := ncfg.ID
	if nodeid <= 0 {
		nodeid = s.genNodeId()
	}
	if s.nodes[nodeid] != nil {
		return nil, errors.Errorf("node %d already exists", nodeid)
	}
	ncfg.ID = nodeid
	if err := s.NodeConfigFinalize(&ncfg); err != nil {
		return nil, err
	}

	if ncfg.IsAutoPlaced {
		ncfg.X, ncfg.Y = s.nodePlacer.next()
	} else {
		s.nodePlacer.update(ncfg.X, ncfg.Y)
	}

	logger.Debugf("simulation:AddNode: %+v", ncfg)
	node, err := newNode(s, nodeid, &ncfg)
	if err != nil {
		logger.ReleaseNodeLogger(nodeid)
		logger.Errorf("simulation add node failed: %v", err)
		return nil, err
	}
	s.nodes[nodeid] = node
	if s.monitor != nil {
		s.monitor.SetNodeStatus(nodeid, true)
	}
	node.Logger.Flush(s.curTick)
	return node, nil
}

func (s *Simulation) genNodeId() SimNodeId {
	nodeid := 1
	for s.nodes[nodeid] != nil {
		nodeid += 1
	}
	return nodeid
}

func (s *Simulation) DeleteNode(nodeid SimNodeId) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	s.medium.Detach(nodeid)
	node.closeSerial()
	s.kpiMgr.stopNode(nodeid)
	if s.monitor != nil {
		s.monitor.SetNodeStatus(nodeid, false)
	}
	logger.ReleaseNodeLogger(nodeid)
	delete(s.nodes, nodeid)
	return nil
}

// Restart reboots the firmware of a node. Its flash contents survive, so a node id assigned over
// the UART is loaded again at boot.
func (s *Simulation) Restart(nodeid SimNodeId) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	if err := node.restart(); err != nil {
		node.fail(err)
		s.onNodeFail(node)
		return err
	}
	if s.monitor != nil {
		s.monitor.SetNodeStatus(nodeid, true)
	}
	node.Logger.Flush(s.curTick)
	return nil
}

func (s *Simulation) Press(nodeid SimNodeId) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	return node.Press()
}

func (s *Simulation) UartInput(nodeid SimNodeId, b byte) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	return node.UartInput(b)
}

func (s *Simulation) MoveNodeTo(nodeid SimNodeId, x, y int) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	node.Board.Radio.Node().SetNodePos(x, y)
	s.nodePlacer.update(x, y)
	return nil
}

// SetRadioDown takes the radio of a node off the air, or puts it back. Any fail cycle set by
// SetRadioFailTime is stopped.
func (s *Simulation) SetRadioDown(nodeid SimNodeId, down bool) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	node.failureCtrl.SetFailTime(NonFailTime, s.curTick)
	node.Board.Radio.SetDown(down)
	if down {
		node.Logger.Infof("radio off")
	} else {
		node.Logger.Infof("radio on")
	}
	return nil
}

// SetRadioFailTime makes the radio of a node go down for ft.FailDuration ticks in every
// ft.FailInterval ticks.
func (s *Simulation) SetRadioFailTime(nodeid SimNodeId, ft FailTime) error {
	node := s.nodes[nodeid]
	if node == nil {
		return errors.Errorf("node not found: %d", nodeid)
	}
	if ft.CanFail() && ft.FailInterval <= ft.FailDuration {
		return errors.Errorf("fail duration %d must be < fail interval %d", ft.FailDuration, ft.FailInterval)
	}
	node.failureCtrl.SetFailTime(ft, s.curTick)
	return nil
}

func (s *Simulation) GetNode(nodeid SimNodeId) *Node {
	return s.nodes[nodeid]
}

func (s *Simulation) Nodes() map[SimNodeId]*Node {
	return s.nodes
}

// GetNodes returns a sorted array of node ids.
func (s *Simulation) GetNodes() []SimNodeId {
	keys := make([]SimNodeId, 0, len(s.nodes))
	for key := range s.nodes {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func (s *Simulation) VisitNodesInOrder(cb func(node *Node)) {
	for _, nodeid := range s.GetNodes() {
		cb(s.nodes[nodeid])
	}
}

// Run executes posted tasks and 'go' periods on the calling goroutine until the program context
// is cancelled.
func (s *Simulation) Run() {
	s.ctx.WaitAdd("simulation", 1)
	defer s.ctx.WaitDone("simulation")
	defer logger.Debugf("simulation exit.")
	defer s.Stop()

	if s.monitor != nil {
		s.monitor.SetSimulationStatus(true)
	}
	close(s.Started)

	for {
		if s.goUntil > s.curTick {
			if !s.runPendingTasks() {
				return
			}
			s.tick()
			s.pace()
			if s.goUntil <= s.curTick {
				s.releaseGoWaiters()
			}
			continue
		}

		select {
		case <-s.ctx.Done():
			return
		case f := <-s.taskq:
			f()
		}
	}
}

func (s *Simulation) runPendingTasks() bool {
	for {
		select {
		case <-s.ctx.Done():
			return false
		case f := <-s.taskq:
			f()
		default:
			return true
		}
	}
}

// pace holds the loop back so that simulated time advances at Speed times real time.
func (s *Simulation) pace() {
	if s.cfg.Speed >= MaxSimulateSpeed {
		return
	}
	elapsed := time.Duration(float64(s.curTick-s.paceTick) * float64(s.cfg.TickPeriod) / s.cfg.Speed)
	if d := time.Until(s.paceStart.Add(elapsed)); d > 0 {
		select {
		case <-s.ctx.Done():
		case <-time.After(d):
		}
	}
}

// PostAsync queues f to run on the simulation goroutine. It returns false if the simulation is
// stopping and f will never run.
func (s *Simulation) PostAsync(f func()) bool {
	s.postMu.Lock()
	defer s.postMu.Unlock()

	if s.postClosed || s.ctx.Err() != nil {
		return false
	}
	select {
	case s.taskq <- f:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// Go runs the simulation for the given number of ticks; Ever runs it until stopped. The returned
// channel is closed when the period is over or the simulation stops.
func (s *Simulation) Go(ticks uint64) <-chan struct{} {
	done := make(chan struct{})
	if s.ctx.Err() != nil {
		close(done)
		return done
	}
	if !s.PostAsync(func() {
		if ticks == 0 || s.stopped {
			close(done)
			return
		}
		if ticks == Ever || s.curTick > Ever-ticks {
			s.goUntil = Ever
		} else {
			s.goUntil = s.curTick + ticks
		}
		s.paceStart, s.paceTick = time.Now(), s.curTick
		s.goWaiters = append(s.goWaiters, done)
	}) {
		close(done)
	}
	return done
}

// GoCancel ends the ongoing 'go' period.
func (s *Simulation) GoCancel() {
	s.PostAsync(func() {
		s.goUntil = s.curTick
		s.releaseGoWaiters()
	})
}

// drainTasks runs the tasks posted before the simulation stopped.
func (s *Simulation) drainTasks() {
	for {
		select {
		case f := <-s.taskq:
			f()
		default:
			return
		}
	}
}

func (s *Simulation) releaseGoWaiters() {
	for _, w := range s.goWaiters {
		close(w)
	}
	s.goWaiters = nil
}

// RunTicks advances the simulation by n ticks on the calling goroutine, which must be the one
// running the simulation (or no one, before Run).
func (s *Simulation) RunTicks(n uint64) {
	for i := uint64(0); i < n && !s.stopped; i++ {
		s.tick()
	}
}

func (s *Simulation) tick() {
	s.curTick++
	logger.SetSimTime(s.CurTime())

	s.VisitNodesInOrder(func(node *Node) {
		node.failureCtrl.OnTick(s.curTick)
		node.pollSerial()
	})
	s.VisitNodesInOrder(func(node *Node) {
		node.fireTimer()
	})
	s.VisitNodesInOrder(func(node *Node) {
		wasFailed := node.failed
		node.runPasses(s.cfg.PassesPerTick)
		if node.failed && !wasFailed {
			s.onNodeFail(node)
		}
	})
	s.VisitNodesInOrder(func(node *Node) {
		node.Logger.Flush(s.curTick)
	})
}

func (s *Simulation) onNodeFail(node *Node) {
	logger.Errorf("%s failed at tick %d: %v", GetNodeName(node.Id), s.curTick, node.err)
	if s.monitor != nil {
		s.monitor.SetNodeStatus(node.Id, false)
	}
}

// onTransmit records a frame put on the air.
func (s *Simulation) onTransmit(src SimNodeId, buf []byte, receivers int) {
	s.txFrames++
	if s.pcap != nil {
		err := s.pcap.AppendFrame(pcap.Frame{
			Timestamp: s.curTick * uint64(s.cfg.TickPeriod/time.Microsecond),
			Data:      buf,
			Source:    src,
			Receivers: receivers,
		})
		if err != nil {
			logger.Warnf("pcap frame dropped: %v", err)
		}
	}
	if s.replay != nil {
		f, err := frame.Decode(buf)
		if err != nil {
			logger.Warnf("replay entry dropped: %v", err)
			return
		}
		s.replay.Append(replay.Entry{
			Tick:      s.curTick,
			Source:    src,
			Receivers: receivers,
			Frame:     f,
		})
	}
}

func (s *Simulation) Stop() {
	if s.stopped {
		return
	}

	logger.Infof("stopping simulation ...")
	s.stopped = true
	s.kpiMgr.Stop()
	s.ctx.Cancel("simulation-stop")

	s.postMu.Lock()
	s.postClosed = true
	s.postMu.Unlock()

	for _, node := range s.nodes {
		node.closeSerial()
		logger.ReleaseNodeLogger(node.Id)
	}
	s.drainTasks()
	s.releaseGoWaiters()
	s.closeOutputs()
	logger.Debugf("all simulation nodes stopped.")
	logger.ClearSimTime()
}

func (s *Simulation) IsStopping() bool {
	return s.stopped || s.ctx.Err() != nil
}

// CurTick returns the number of ticks simulated so far.
func (s *Simulation) CurTick() uint64 {
	return s.curTick
}

// CurTime returns the simulated time.
func (s *Simulation) CurTime() time.Duration {
	return time.Duration(s.curTick) * s.cfg.TickPeriod
}

// TxFrames returns the number of frames put on the air so far.
func (s *Simulation) TxFrames() uint64 {
	return s.txFrames
}

func (s *Simulation) SetPacketLossRatio(plr float64) {
	s.medium.SetPacketLossRatio(plr)
}

func (s *Simulation) GetPacketLossRatio() float64 {
	return s.medium.PacketLossRatio()
}

func (s *Simulation) SetSpeed(speed float64) {
	if speed <= 0 {
		return
	}
	s.cfg.Speed = speed
	s.paceStart, s.paceTick = time.Now(), s.curTick
}

func (s *Simulation) GetSpeed() float64 {
	return s.cfg.Speed
}

func (s *Simulation) AutoGo() bool {
	return s.cfg.AutoGo
}

func (s *Simulation) GetConfig() *Config {
	return s.cfg
}

func (s *Simulation) Medium() *simhw.Medium {
	return s.medium
}

func (s *Simulation) KpiManager() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) GetLogLevel() logger.Level {
	return s.logLevel
}

// SetLogLevel sets the simulator log level and the display level of every node.
func (s *Simulation) SetLogLevel(level logger.Level) {
	s.logLevel = level
	logger.SetLevel(level)
	for _, node := range s.nodes {
		node.Logger.SetDisplayLevel(level)
	}
}

func (s *Simulation) cleanTmpDir(simulationId int) error {
	// logs and captures of an earlier run with the same id are removed; flash images are kept
	for _, pat := range []string{"%d_*.log", "%d_*.pcap"} {
		err := removeAllFiles(filepath.Join(s.cfg.OutputDir, fmt.Sprintf(pat, simulationId)))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) createTmpDir() error {
	err := os.Mkdir(s.cfg.OutputDir, 0775)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	return err
}
