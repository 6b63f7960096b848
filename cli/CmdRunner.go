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

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/meshsense/meshnode/logger"
	"github.com/meshsense/meshnode/progctx"
	"github.com/meshsense/meshnode/simulation"
	. "github.com/meshsense/meshnode/types"
)

const (
	Prompt = "> "
)

type CommandContext struct {
	context.Context
	*Command
	rt     *CmdRunner
	err    error
	output io.Writer
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

type CmdRunner struct {
	sim  *simulation.Simulation
	ctx  *progctx.ProgCtx
	help Help
}

func NewCmdRunner(ctx *progctx.ProgCtx, sim *simulation.Simulation) *CmdRunner {
	return &CmdRunner{
		ctx:  ctx,
		sim:  sim,
		help: newHelp(),
	}
}

func (rt *CmdRunner) RunCommand(cmdline string, output io.Writer) error {
	if rt.ctx.Err() == nil {
		cmd := Command{}

		if err := parseBytes([]byte(cmdline), &cmd); err != nil {
			if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
				return err
			}
		} else {
			rt.execute(&cmd, output)
		}
	}
	return rt.ctx.Err()
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	return rt.RunCommand(cmdline, output)
}

func (rt *CmdRunner) GetCommands() []string {
	return rt.help.commandNames()
}

func (rt *CmdRunner) GetPrompt() string {
	return Prompt
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command: cmd,
		rt:      rt,
		output:  output,
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else {
			cc.outputf("Done\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Add != nil {
		rt.executeAddNode(cc, cmd.Add)
	} else if cmd.Console != nil {
		rt.executeConsole(cc, cmd.Console)
	} else if cmd.Del != nil {
		rt.executeDelNode(cc, cmd.Del)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else if cmd.Go != nil {
		rt.executeGo(cc, cmd.Go)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Kpi != nil {
		rt.executeKpi(cc, cmd.Kpi)
	} else if cmd.Load != nil {
		rt.executeLoad(cc, cmd.Load)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Move != nil {
		rt.executeMoveNode(cc, cmd.Move)
	} else if cmd.Node != nil {
		rt.executeNode(cc, cmd.Node)
	} else if cmd.Nodes != nil {
		rt.executeLsNodes(cc, cmd.Nodes)
	} else if cmd.Plr != nil {
		rt.executePlr(cc, cmd.Plr)
	} else if cmd.Press != nil {
		rt.executePress(cc, cmd.Press)
	} else if cmd.Radio != nil {
		rt.executeRadio(cc, cmd.Radio)
	} else if cmd.Restart != nil {
		rt.executeRestart(cc, cmd.Restart)
	} else if cmd.Save != nil {
		rt.executeSave(cc, cmd.Save)
	} else if cmd.Speed != nil {
		rt.executeSpeed(cc, cmd.Speed)
	} else if cmd.Time != nil {
		rt.executeTime(cc, cmd.Time)
	} else if cmd.Uart != nil {
		rt.executeUart(cc, cmd.Uart)
	} else if cmd.Unwatch != nil {
		rt.executeUnwatch(cc, cmd.Unwatch)
	} else if cmd.Watch != nil {
		rt.executeWatch(cc, cmd.Watch)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// goTicks converts the 'go' argument to ticks: a plain number counts ticks, a number with a unit
// is a simulated duration.
func (rt *CmdRunner) goTicks(arg string) (uint64, error) {
	if ticks, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return ticks, nil
	}
	dur, err := time.ParseDuration(arg)
	if err != nil || dur < 0 {
		return 0, errors.Errorf("could not parse time duration: %s", arg)
	}
	return uint64(dur / rt.sim.GetConfig().TickPeriod), nil
}

func (rt *CmdRunner) executeGo(cc *CommandContext, cmd *GoCmd) {
	ticks := Ever
	if cmd.Ever == nil {
		var err error
		if ticks, err = rt.goTicks(cmd.Time); err != nil {
			cc.error(err)
			return
		}
	}

	speed := rt.sim.GetSpeed()
	if cmd.Speed != nil {
		speed = *cmd.Speed
	} else if rt.sim.AutoGo() && cmd.Ever == nil {
		// when in AutoGo mode, 'go' command used to quickly jump time.
		speed = simulation.MaxSimulateSpeed
	}
	if speed <= 0 {
		speed = simulation.MaxSimulateSpeed
	}

	var prevSpeed float64
	var done <-chan struct{}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		prevSpeed = sim.GetSpeed()
		sim.SetSpeed(speed)
		done = sim.Go(ticks)
	})
	if cc.Err() != nil {
		return
	}
	<-done // block for the simulation period.

	if cmd.Ever == nil && rt.ctx.Err() == nil {
		rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
			sim.SetSpeed(prevSpeed)
		})
	}
}

func (rt *CmdRunner) executeSpeed(cc *CommandContext, cmd *SpeedCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Speed == nil && cmd.Max == nil {
			cc.outputf("%v\n", sim.GetSpeed())
		} else if cmd.Max != nil {
			sim.SetSpeed(simulation.MaxSimulateSpeed)
		} else {
			sim.SetSpeed(*cmd.Speed)
		}
	})
}

func (rt *CmdRunner) postAsyncWait(cc *CommandContext, f func(sim *simulation.Simulation)) {
	done := make(chan struct{})
	if rt.sim.PostAsync(func() {
		defer close(done) // even if f() fails execution, 'done' should be closed.
		f(rt.sim)         // executing task (later) may set cc.err status if error occurs.
	}) {
		<-done // only block-wait if task was accepted.
	} else {
		cc.error(simulation.CommandInterruptedError) // report cc error if not accepted.
	}
}

func (rt *CmdRunner) executeAddNode(cc *CommandContext, cmd *AddCmd) {
	logger.Debugf("Add: %#v", *cmd)
	cfg := rt.sim.GetConfig().NewNodeConfig // copy current new-node config for simulation, and modify it.

	role, err := ParseRole(cmd.Role.Val)
	if err != nil {
		cc.error(err)
		return
	}
	cfg.Role = role

	if cmd.X != nil {
		cfg.X = *cmd.X
		cfg.IsAutoPlaced = false
	}
	if cmd.Y != nil {
		cfg.Y = *cmd.Y
		cfg.IsAutoPlaced = false
	}
	if cmd.Id != nil {
		cfg.ID = cmd.Id.Val
	}
	if cmd.NodeId != nil {
		if cfg.NodeId, err = parseNodeId(cmd.NodeId.Val); err != nil {
			cc.error(err)
			return
		}
	}
	if cmd.RadioRange != nil {
		cfg.RadioRange = cmd.RadioRange.Val
	}
	if cmd.Sensor != nil {
		cfg.SensorBase = int16(cmd.Sensor.Value())
	}
	if cmd.Serial != nil {
		cfg.Serial = unquote(cmd.Serial.Device)
		if cmd.Serial.Baud != nil {
			cfg.Baud = *cmd.Serial.Baud
		}
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node, err := sim.AddNode(&cfg)
		if err != nil {
			cc.error(err)
			return
		}

		cc.outputf("%d\n", node.Id)
	})
}

func (rt *CmdRunner) executeDelNode(cc *CommandContext, cmd *DelCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, sel := range getUniqueAndSorted(cmd.Nodes) {
			node := rt.getNode(sim, sel)
			if node == nil {
				cc.outputf("Warn: node %d not found, skipping\n", sel.Id)
				continue
			}

			err := sim.DeleteNode(node.Id)
			if err != nil {
				cc.errorf("node %d, %+v", sel.Id, err)
			}
		}
	})
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.Stop()
	})
}

func (rt *CmdRunner) getNode(sim *simulation.Simulation, sel NodeSelector) *simulation.Node {
	if sel.Id > 0 {
		return sim.GetNode(sel.Id)
	}
	return nil
}

// withNode runs f on the simulation goroutine for the selected node, or reports that it was not
// found.
func (rt *CmdRunner) withNode(cc *CommandContext, sel NodeSelector, f func(sim *simulation.Simulation, node *simulation.Node)) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		node := rt.getNode(sim, sel)
		if node == nil {
			cc.errorf("node %d not found", sel.Id)
			return
		}
		f(sim, node)
	})
}

func (rt *CmdRunner) executeNode(cc *CommandContext, cmd *NodeCmd) {
	var status simulation.NodeStatus
	found := false
	rt.withNode(cc, cmd.Node, func(sim *simulation.Simulation, node *simulation.Node) {
		status = node.Status()
		found = true
	})
	if !found {
		return
	}
	data, err := yaml.Marshal(&status)
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputStr(string(data))
}

func (rt *CmdRunner) executeLsNodes(cc *CommandContext, cmd *NodesCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.VisitNodesInOrder(func(node *simulation.Node) {
			x, y := node.Position()
			c := node.Firmware.Context()
			cc.outputf("id=%d\trole=%s\tnodeid=0x%02X\tx=%d\ty=%d\tfailed=%v\n", node.Id, node.Firmware.Role(),
				c.NodeId(), x, y, node.Failed())
		})
	})
}

func (rt *CmdRunner) executeMoveNode(cc *CommandContext, cmd *MoveCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.MoveNodeTo(cmd.Target.Id, cmd.X, cmd.Y))
	})
}

func (rt *CmdRunner) executePress(cc *CommandContext, cmd *PressCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.Press(cmd.Node.Id))
	})
}

func (rt *CmdRunner) executeUart(cc *CommandContext, cmd *UartCmd) {
	b, err := parseByte(cmd.Byte)
	if err != nil {
		cc.error(err)
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.UartInput(cmd.Node.Id, b))
	})
}

func (rt *CmdRunner) executeConsole(cc *CommandContext, cmd *ConsoleCmd) {
	rt.withNode(cc, cmd.Node, func(sim *simulation.Simulation, node *simulation.Node) {
		cc.outputStr(node.TakeConsoleOutput())
	})
}

func (rt *CmdRunner) executeRestart(cc *CommandContext, cmd *RestartCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.Restart(cmd.Node.Id))
	})
}

func (rt *CmdRunner) executeRadio(cc *CommandContext, radio *RadioCmd) {
	var ft simulation.FailTime
	if radio.FailTime != nil {
		var err error
		if ft.FailDuration, err = rt.goTicks(radio.FailTime.FailDuration); err != nil {
			cc.error(err)
			return
		}
		if ft.FailInterval, err = rt.goTicks(radio.FailTime.FailInterval); err != nil {
			cc.error(err)
			return
		}
		if ft.FailDuration == 0 || ft.FailInterval <= ft.FailDuration {
			cc.errorf("ft parameter: fail-duration must be > 0 and < fail-interval")
			return
		}
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		for _, sel := range radio.Nodes {
			node := rt.getNode(sim, sel)
			if node == nil {
				cc.errorf("node %d not found", sel.Id)
				continue
			}

			var err error
			if radio.On != nil {
				err = sim.SetRadioDown(node.Id, false)
			} else if radio.Off != nil {
				err = sim.SetRadioDown(node.Id, true)
			} else {
				err = sim.SetRadioFailTime(node.Id, ft)
			}
			if err != nil {
				cc.error(err)
			}
		}
	})
}

func (rt *CmdRunner) executePlr(cc *CommandContext, cmd *PlrCmd) {
	var plr float64
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		if cmd.Val != nil {
			sim.SetPacketLossRatio(*cmd.Val)
		}
		plr = sim.GetPacketLossRatio()
	})
	cc.outputf("%v\n", plr)
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevelString(rt.sim.GetLogLevel()))
		return
	}
	level, err := logger.ParseLevelString(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		sim.SetLogLevel(level)
	})
}

func (rt *CmdRunner) executeWatch(cc *CommandContext, cmd *WatchCmd) {
	level := logger.DebugLevel
	if len(cmd.Level) > 0 {
		var err error
		if level, err = logger.ParseLevelString(cmd.Level); err != nil {
			cc.error(err)
			return
		}
	}

	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodesToWatch := getUniqueAndSorted(cmd.Nodes)
		if len(cmd.All) > 0 {
			nodesToWatch = nodesToWatch[:0]
			for _, nodeid := range sim.GetNodes() {
				nodesToWatch = append(nodesToWatch, NodeSelector{Id: nodeid})
			}
		} else if len(nodesToWatch) == 0 {
			// variant: 'watch', lists the nodes displaying more than the simulation log level.
			sim.VisitNodesInOrder(func(node *simulation.Node) {
				if node.Logger.DisplayLevel() > sim.GetLogLevel() {
					cc.outputf("%d\t%s\n", node.Id, logger.GetLevelString(node.Logger.DisplayLevel()))
				}
			})
			return
		}

		for _, sel := range nodesToWatch {
			node := rt.getNode(sim, sel)
			if node == nil {
				cc.errorf("node %d not found", sel.Id)
				continue
			}
			node.Logger.SetDisplayLevel(level)
		}
	})
}

func (rt *CmdRunner) executeUnwatch(cc *CommandContext, cmd *UnwatchCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		nodes := getUniqueAndSorted(cmd.Nodes)
		// if no node-number(s) given, unwatch all.
		if len(nodes) == 0 {
			for _, nodeid := range sim.GetNodes() {
				nodes = append(nodes, NodeSelector{Id: nodeid})
			}
		}
		for _, sel := range nodes {
			node := rt.getNode(sim, sel)
			if node == nil {
				cc.errorf("node %d not found", sel.Id)
				continue
			}
			node.Logger.SetDisplayLevel(sim.GetLogLevel())
		}
	})
}

func (rt *CmdRunner) executeLoad(cc *CommandContext, cmd *LoadCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.LoadYamlFile(unquote(cmd.Filename)))
	})
}

func (rt *CmdRunner) executeSave(cc *CommandContext, cmd *SaveCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		cc.error(sim.SaveYamlFile(unquote(cmd.Filename)))
	})
}

func (rt *CmdRunner) executeKpi(cc *CommandContext, cmd *KpiCmd) {
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		km := sim.KpiManager()
		switch cmd.Operation {
		case "start":
			km.Start()
		case "stop":
			km.Stop()
		case "save":
			if len(cmd.Filename) > 0 {
				km.SaveFile(unquote(cmd.Filename))
			} else {
				km.SaveDefaultFile()
			}
		default:
			js, err := json.MarshalIndent(km.Data(), "", "    ")
			if err != nil {
				cc.error(err)
				return
			}
			cc.outputf("running: %v\n%s\n", km.IsRunning(), js)
		}
	})
}

func (rt *CmdRunner) executeTime(cc *CommandContext, cmd *TimeCmd) {
	var tick uint64
	var simTime time.Duration
	rt.postAsyncWait(cc, func(sim *simulation.Simulation) {
		tick, simTime = sim.CurTick(), sim.CurTime()
	})
	cc.outputf("%d\t%v\n", tick, simTime)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}
