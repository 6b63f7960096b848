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

// Package meshsim_main runs the mesh node simulator: flags, signals, the simulation loop and the
// console.
package meshsim_main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/simonlingoogle/go-simplelogger"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/meshsense/meshnode/cli"
	"github.com/meshsense/meshnode/logger"
	"github.com/meshsense/meshnode/pcap"
	"github.com/meshsense/meshnode/progctx"
	"github.com/meshsense/meshnode/simulation"
)

type MainArgs struct {
	Speed         string
	AutoGo        bool
	LogLevel      string
	LogFile       string
	TickPeriod    time.Duration
	PassesPerTick int
	Plr           float64
	Seed          int64
	RadioModel    string
	SimId         int
	OutputDir     string
	FlashDir      string
	Pcap          string
	NoReplay      bool
	NodeLogs      bool
	MonitorAddr   string
	Scenario      string
}

func parseArgs(argv []string) (*MainArgs, error) {
	args := &MainArgs{}
	app := kingpin.New("meshsim", "Simulator for mesh sensor node firmware.")

	app.Flag("speed", "Simulating speed relative to real time, or 'max'.").Default("1").StringVar(&args.Speed)
	app.Flag("autogo", "Run the simulation at the given speed without 'go' commands.").Default("true").BoolVar(&args.AutoGo)
	app.Flag("log", "Log level: trace, debug, info, warn, error.").Default("warn").StringVar(&args.LogLevel)
	app.Flag("log-file", "Also write the simulator log to this file.").Default("").StringVar(&args.LogFile)
	app.Flag("tick", "Timer tick period of the node firmware.").Default("10ms").DurationVar(&args.TickPeriod)
	app.Flag("passes", "Scheduler passes per node per tick.").Default("1").IntVar(&args.PassesPerTick)
	app.Flag("plr", "Packet loss ratio of the radio medium.").Default("0").Float64Var(&args.Plr)
	app.Flag("seed", "Random seed of the simulation.").Default("1").Int64Var(&args.Seed)
	app.Flag("radio-model", "Radio model of the medium.").Default(simulation.DefaultRadioModel).StringVar(&args.RadioModel)
	app.Flag("id", "Simulation id, used to name output files.").Default("0").IntVar(&args.SimId)
	app.Flag("output-dir", "Directory of output files.").Default(simulation.DefaultOutputDir).StringVar(&args.OutputDir)
	app.Flag("flash-dir", "Directory of node flash images; empty keeps flash in memory.").Default("").StringVar(&args.FlashDir)
	app.Flag("pcap", "PCAP frame type: off, raw or meta.").Default(pcap.FrameTypeMetaStr).EnumVar(&args.Pcap,
		pcap.FrameTypeOffStr, pcap.FrameTypeRawStr, pcap.FrameTypeMetaStr)
	app.Flag("no-replay", "Do not write a replay file.").BoolVar(&args.NoReplay)
	app.Flag("node-logs", "Write a log file per node.").BoolVar(&args.NodeLogs)
	app.Flag("monitor", "Listen address of the gRPC health monitor, e.g. localhost:9000.").Default("").StringVar(&args.MonitorAddr)
	app.Arg("scenario", "Scenario YAML file to load at start.").StringVar(&args.Scenario)

	if _, err := app.Parse(argv); err != nil {
		return nil, err
	}
	return args, nil
}

func Main(ctx *progctx.ProgCtx, cliOptions *cli.CliOptions) {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "meshsim: %v\n", err)
		os.Exit(2)
	}

	if len(args.LogFile) > 0 {
		if err = logger.SetOutput([]string{"stderr", args.LogFile}); err != nil {
			fmt.Fprintf(os.Stderr, "meshsim: log file: %v\n", err)
			os.Exit(2)
		}
	}

	handleSignals(ctx)

	sim := createSimulation(ctx, args)
	rt := cli.NewCmdRunner(ctx, sim)
	logger.SetStdoutCallback(cli.Cli)
	go sim.Run()
	<-sim.Started

	if len(args.Scenario) > 0 {
		sim.PostAsync(func() {
			if err := sim.LoadYamlFile(args.Scenario); err != nil {
				logger.Errorf("loading scenario %s: %v", args.Scenario, err)
			}
		})
	}

	if cliOptions == nil {
		cliOptions = cli.DefaultCliOptions()
		cliOptions.HistoryFile = filepath.Join(args.OutputDir, "meshsim_history")
	}
	go func() {
		err := cli.Cli.Run(rt, cliOptions)
		ctx.Cancel(errors.Wrapf(err, "console exit"))
	}()

	if args.AutoGo {
		go autoGo(ctx, sim)
	}

	<-ctx.Done()
	simplelogger.Debugf("waiting for meshsim to stop gracefully ...")
	ctx.Wait()
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)
	signal.Ignore(syscall.SIGALRM)

	ctx.WaitAdd("handleSignals", 1)
	go func() {
		defer simplelogger.Debugf("handleSignals exit.")
		defer ctx.WaitDone("handleSignals")

		for {
			select {
			case sig := <-c:
				simplelogger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func autoGo(ctx *progctx.ProgCtx, sim *simulation.Simulation) {
	ticksPerSecond := uint64(time.Second / sim.GetConfig().TickPeriod)
	for {
		<-sim.Go(ticksPerSecond)
		if ctx.Err() != nil { // exit when context is Done.
			return
		}
	}
}

func newSimulationConfig(args *MainArgs) (*simulation.Config, error) {
	simcfg := simulation.DefaultConfig()

	if strings.ToLower(args.Speed) == "max" {
		simcfg.Speed = simulation.MaxSimulateSpeed
	} else {
		speed, err := strconv.ParseFloat(args.Speed, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid speed")
		}
		simcfg.Speed = speed
	}
	level, err := logger.ParseLevelString(args.LogLevel)
	if err != nil {
		return nil, err
	}
	simcfg.LogLevel = level
	simcfg.AutoGo = args.AutoGo
	simcfg.TickPeriod = args.TickPeriod
	simcfg.PassesPerTick = args.PassesPerTick
	simcfg.PacketLossRatio = args.Plr
	simcfg.Seed = args.Seed
	simcfg.RadioModel = args.RadioModel
	simcfg.Id = args.SimId
	simcfg.OutputDir = args.OutputDir
	simcfg.FlashDir = args.FlashDir
	simcfg.PcapType = pcap.ParseFrameTypeStr(args.Pcap)
	simcfg.NodeLogFiles = args.NodeLogs
	simcfg.MonitorAddr = args.MonitorAddr
	if !args.NoReplay {
		simcfg.ReplayFile = filepath.Join(args.OutputDir, fmt.Sprintf("%d_meshsim.replay", args.SimId))
	}
	return simcfg, nil
}

func createSimulation(ctx *progctx.ProgCtx, args *MainArgs) *simulation.Simulation {
	simcfg, err := newSimulationConfig(args)
	simplelogger.FatalIfError(err)

	sim, err := simulation.NewSimulation(ctx, simcfg)
	simplelogger.FatalIfError(err)
	return sim
}
