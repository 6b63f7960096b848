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

import . "github.com/meshsense/meshnode/types"

// NodeCounters maps counter names to values.
type NodeCounters map[string]int

type KpiTime struct {
	StartTick   uint64  `json:"start"`
	EndTick     uint64  `json:"end"`
	PeriodTicks uint64  `json:"duration"`
	PeriodSec   float64 `json:"duration_sec"`
}

type KpiRadio struct {
	TxFrames        uint64  `json:"tx_frames"`
	AvgFps          float64 `json:"tx_avg_fps"`
	PacketLossRatio float64 `json:"plr"`
}

type KpiDelivery struct {
	AckPercentage     map[SimNodeId]float64 `json:"ack_percent"`
	OverrunPercentage map[SimNodeId]float64 `json:"overrun_percent"`
}

type Kpi struct {
	FileTime string                     `json:"created"`
	Status   string                     `json:"status"`
	Time     KpiTime                    `json:"time"`
	Radio    KpiRadio                   `json:"radio"`
	Delivery KpiDelivery                `json:"delivery"`
	Counters map[SimNodeId]NodeCounters `json:"counters"`
}
