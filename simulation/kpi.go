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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/meshsense/meshnode/logger"
	. "github.com/meshsense/meshnode/types"
)

// KpiManager measures node counters and radio activity over a period of simulated time.
type KpiManager struct {
	sim           *Simulation
	data          *Kpi
	startCounters NodeCountersStore
	curCounters   NodeCountersStore
	startFrames   uint64
	curFrames     uint64
	isRunning     bool
}

type NodeCountersStore map[SimNodeId]NodeCounters

// NewKpiManager creates a new KPI manager/bookkeeper for a particular simulation.
func NewKpiManager() *KpiManager {
	km := &KpiManager{}
	return km
}

// Init inits the KPI manager for the given simulation.
func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok"}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.data = &Kpi{Status: "ok"}
	km.startCounters = km.retrieveNodeCounters()
	km.startFrames = km.sim.TxFrames()
	km.data.Time.StartTick = km.sim.CurTick()
	km.isRunning = true
	km.SaveDefaultFile()
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.curFrames = km.sim.TxFrames()
		km.isRunning = false
		km.calculateKpis()
		km.SaveDefaultFile()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

// Data returns the KPIs of the current (or last) measurement period.
func (km *KpiManager) Data() Kpi {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.curFrames = km.sim.TxFrames()
		km.calculateKpis()
	}
	return *km.data
}

func (km *KpiManager) SaveDefaultFile() {
	km.SaveFile(km.getDefaultSaveFileName())
}

func (km *KpiManager) SaveFile(fn string) {
	logger.AssertNotNil(km.sim)
	data := km.Data()
	data.FileTime = time.Now().Format(time.RFC3339)
	js, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		logger.Errorf("Could not marshal KPI JSON data: %v", err)
		return
	}

	err = os.WriteFile(fn, js, 0644)
	if err != nil {
		logger.Errorf("Could not write KPI JSON file %s: %v", fn, err)
		return
	}
}

func (km *KpiManager) stopNode(nodeid SimNodeId) {
	// deleted nodes during a KPI period won't be used anymore in final node-specific KPI calculations.
	delete(km.startCounters, nodeid)
	delete(km.curCounters, nodeid)
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	nodesMap := make(NodeCountersStore, len(km.sim.nodes))
	km.sim.VisitNodesInOrder(func(node *Node) {
		nodesMap[node.Id] = node.counters()
	})
	return nodesMap
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		startVal := 0 // if node wasn't known at start, it was created during - use 0 for a counter's start value.
		if sv, ok := startCtr[k]; ok {
			startVal = sv
		}
		ret[k] = v - startVal
	}
	return ret
}

func (km *KpiManager) calculateKpis() {
	km.data.Time.EndTick = km.sim.CurTick()
	km.data.Time.PeriodTicks = km.data.Time.EndTick - km.data.Time.StartTick
	km.data.Time.PeriodSec = (time.Duration(km.data.Time.PeriodTicks) * km.sim.cfg.TickPeriod).Seconds()

	km.data.Radio.TxFrames = km.curFrames - km.startFrames
	km.data.Radio.PacketLossRatio = km.sim.GetPacketLossRatio()
	km.data.Radio.AvgFps = 0
	if km.data.Time.PeriodSec > 0 {
		km.data.Radio.AvgFps = float64(km.data.Radio.TxFrames) / km.data.Time.PeriodSec
	}

	km.data.Delivery.AckPercentage = make(map[SimNodeId]float64)
	km.data.Delivery.OverrunPercentage = make(map[SimNodeId]float64)
	km.data.Counters = make(map[SimNodeId]NodeCounters)
	for nid, ctr := range km.curCounters {
		counters := getCountersDiff(ctr, km.startCounters[nid])
		km.data.Delivery.AckPercentage[nid] = percentage(counters["ack.received"], counters["tx.frames"]-counters["ack.sent"])
		km.data.Delivery.OverrunPercentage[nid] = percentage(counters["rx.overruns"], counters["rx.frames"]+counters["rx.overruns"])
		km.data.Counters[nid] = counters
	}
}

func (km *KpiManager) getDefaultSaveFileName() string {
	return filepath.Join(km.sim.cfg.OutputDir, fmt.Sprintf("%d_kpi.json", km.sim.cfg.Id))
}

// counters flattens the firmware and radio statistics of the node.
func (node *Node) counters() NodeCounters {
	st := node.Firmware.Context().Stats()
	rs := node.Board.Radio.Node().Stats()
	return NodeCounters{
		"rx.frames":        st.RxFrames,
		"rx.errors":        st.RxErrors,
		"rx.overruns":      st.RxOverruns,
		"rx.processed":     st.Processed,
		"tx.frames":        st.TxFrames,
		"tx.errors":        st.TxErrors,
		"ack.sent":         st.AcksSent,
		"ack.received":     st.AcksReceived,
		"router.changes":   st.RouterChanges,
		"results.sent":     st.ResultsSent,
		"results.averaged": st.ResultsAveraged,
		"results.rejected": st.ResultsRejected,
		"button.bounces":   st.ButtonBounces,
		"id.assignments":   st.IdAssignments,
		"radio.tx":         rs.NumFramesTx,
		"radio.tx.bytes":   rs.NumBytesTx,
		"radio.rx":         rs.NumFramesRx,
	}
}
