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

package meshsim_main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsense/meshnode/logger"
	"github.com/meshsense/meshnode/pcap"
	"github.com/meshsense/meshnode/simulation"
)

func TestParseArgs_Defaults(t *testing.T) {
	args, err := parseArgs([]string{})
	require.Nil(t, err)
	assert.Equal(t, "1", args.Speed)
	assert.True(t, args.AutoGo)
	assert.Equal(t, 10*time.Millisecond, args.TickPeriod)
	assert.Equal(t, pcap.FrameTypeMetaStr, args.Pcap)
	assert.Empty(t, args.Scenario)

	cfg, err := newSimulationConfig(args)
	require.Nil(t, err)
	assert.Equal(t, 1.0, cfg.Speed)
	assert.Equal(t, logger.WarnLevel, cfg.LogLevel)
	assert.Equal(t, pcap.FrameTypeMeta, cfg.PcapType)
	assert.Equal(t, "tmp/0_meshsim.replay", cfg.ReplayFile)
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"--speed", "max", "--no-autogo", "--log", "debug", "--tick", "5ms",
		"--pcap", "off", "--no-replay", "--id", "3", "--flash-dir", "flash", "net.yaml"})
	require.Nil(t, err)
	assert.False(t, args.AutoGo)
	assert.Equal(t, "net.yaml", args.Scenario)

	cfg, err := newSimulationConfig(args)
	require.Nil(t, err)
	assert.Equal(t, float64(simulation.MaxSimulateSpeed), cfg.Speed)
	assert.Equal(t, logger.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 5*time.Millisecond, cfg.TickPeriod)
	assert.Equal(t, pcap.FrameTypeOff, cfg.PcapType)
	assert.Empty(t, cfg.ReplayFile)
	assert.Equal(t, 3, cfg.Id)
	assert.Equal(t, "flash", cfg.FlashDir)
}

func TestParseArgs_Invalid(t *testing.T) {
	_, err := parseArgs([]string{"--pcap", "xml"})
	assert.NotNil(t, err)

	args, err := parseArgs([]string{"--speed", "fast"})
	require.Nil(t, err)
	_, err = newSimulationConfig(args)
	assert.NotNil(t, err)

	args, err = parseArgs([]string{"--log", "loud"})
	require.Nil(t, err)
	_, err = newSimulationConfig(args)
	assert.NotNil(t, err)
}
