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
	"time"

	"github.com/meshsense/meshnode/logger"
	"github.com/meshsense/meshnode/pcap"
	. "github.com/meshsense/meshnode/types"
)

const (
	DefaultPassesPerTick = 1
	DefaultRadioModel    = "Ideal_Rssi"
	DefaultSeed          = 1
	DefaultOutputDir     = "tmp"

	// MaxSimulateSpeed runs ticks back to back without pacing.
	MaxSimulateSpeed = 1000000
)

type Config struct {
	Id              int
	TickPeriod      time.Duration
	PassesPerTick   int
	Speed           float64
	PacketLossRatio float64
	RadioModel      string
	Seed            int64
	OutputDir       string
	FlashDir        string
	PcapType        pcap.FrameType
	ReplayFile      string
	MonitorAddr     string
	LogLevel        logger.Level
	NodeLogFiles    bool
	AutoGo          bool
	NewNodeConfig   NodeConfig
}

func DefaultConfig() *Config {
	return &Config{
		Id:            0,
		TickPeriod:    DefaultTickPeriod,
		PassesPerTick: DefaultPassesPerTick,
		Speed:         1,
		RadioModel:    DefaultRadioModel,
		Seed:          DefaultSeed,
		OutputDir:     DefaultOutputDir,
		PcapType:      pcap.FrameTypeOff,
		LogLevel:      logger.WarnLevel,
		NewNodeConfig: DefaultNodeConfig(),
	}
}
