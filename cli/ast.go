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
	"strconv"

	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Add      *AddCmd      `  @@` //nolint
	Console  *ConsoleCmd  `| @@` //nolint
	Del      *DelCmd      `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Go       *GoCmd       `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	Kpi      *KpiCmd      `| @@` //nolint
	Load     *LoadCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	Move     *MoveCmd     `| @@` //nolint
	Node     *NodeCmd     `| @@` //nolint
	Nodes    *NodesCmd    `| @@` //nolint
	Plr      *PlrCmd      `| @@` //nolint
	Press    *PressCmd    `| @@` //nolint
	Radio    *RadioCmd    `| @@` //nolint
	Restart  *RestartCmd  `| @@` //nolint
	Save     *SaveCmd     `| @@` //nolint
	Speed    *SpeedCmd    `| @@` //nolint
	Time     *TimeCmd     `| @@` //nolint
	Uart     *UartCmd     `| @@` //nolint
	Unwatch  *UnwatchCmd  `| @@` //nolint
	Watch    *WatchCmd    `| @@` //nolint
}

// noinspection GoStructTag
type NodeSelector struct {
	Id int `@Int` //nolint
}

func (ns *NodeSelector) String() string {
	return strconv.Itoa(ns.Id)
}

// noinspection GoStructTag
type AddCmd struct {
	Cmd        struct{}        `"add"`       //nolint
	Role       RoleFlag        `@@`          //nolint
	X          *int            `( "x" @Int ` //nolint
	Y          *int            `| "y" @Int ` //nolint
	Id         *AddNodeId      `| @@`        //nolint
	NodeId     *NodeIdFlag     `| @@`        //nolint
	RadioRange *RadioRangeFlag `| @@`        //nolint
	Sensor     *SensorFlag     `| @@`        //nolint
	Serial     *SerialFlag     `| @@ )*`     //nolint
}

// noinspection GoStructTag
type RoleFlag struct {
	Val string `@("tag"|"router"|"anchor")` //nolint
}

// noinspection GoStructTag
type AddNodeId struct {
	Val int `"id" @Int` //nolint
}

// NodeIdFlag is the firmware identity programmed into flash; hex (0x..) is accepted.
// noinspection GoStructTag
type NodeIdFlag struct {
	Val string `"nodeid" @Int` //nolint
}

// noinspection GoStructTag
type RadioRangeFlag struct {
	Val int `"rr" @Int` //nolint
}

// noinspection GoStructTag
type SensorFlag struct {
	Neg bool `"sensor" @"-"?` //nolint
	Val int  `@Int`           //nolint
}

func (sf *SensorFlag) Value() int {
	if sf.Neg {
		return -sf.Val
	}
	return sf.Val
}

// noinspection GoStructTag
type SerialFlag struct {
	Device string `"serial" @String` //nolint
	Baud   *int   `[ "baud" @Int ]`  //nolint
}

// ConsoleCmd shows what the node wrote to its UART since the last call.
// noinspection GoStructTag
type ConsoleCmd struct {
	Cmd  struct{}     `"console"` //nolint
	Node NodeSelector `@@`        //nolint
}

// noinspection GoStructTag
type DelCmd struct {
	Cmd   struct{}       `"del"`   //nolint
	Nodes []NodeSelector `( @@ )+` //nolint
}

// noinspection GoStructTag
type EverFlag struct {
	Dummy struct{} `"ever"` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// GoCmd runs the simulation for a number of ticks, or for a duration when a unit is given.
// noinspection GoStructTag
type GoCmd struct {
	Cmd   struct{}  `"go"`                        //nolint
	Time  string    `( @(Int ["h"|"m"|"s"|"ms"])` //nolint
	Ever  *EverFlag `| @@ )`                      //nolint
	Speed *float64  `[ "speed" (@Int|@Float) ]`   //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

// noinspection GoStructTag
type KpiCmd struct {
	Cmd       struct{} `"kpi"`                        //nolint
	Operation string   `[ @("start"|"stop"|"save") ]` //nolint
	Filename  string   `[ @String ]`                  //nolint
}

// noinspection GoStructTag
type LoadCmd struct {
	Cmd      struct{} `"load"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                                                            //nolint
	Level string   `[@( "micro"|"trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"off"|"D"|"I"|"N"|"W"|"C"|"E" )]` //nolint
}

// noinspection GoStructTag
type MoveCmd struct {
	Cmd    struct{}     `"move"` //nolint
	Target NodeSelector `@@`     //nolint
	X      int          `@Int`   //nolint
	Y      int          `@Int`   //nolint
}

// noinspection GoStructTag
type NodeCmd struct {
	Cmd  struct{}     `"node"` //nolint
	Node NodeSelector `@@`     //nolint
}

// noinspection GoStructTag
type NodesCmd struct {
	Cmd struct{} `"nodes"` //nolint
}

// noinspection GoStructTag
type PlrCmd struct {
	Cmd struct{} `"plr"`             //nolint
	Val *float64 `[ (@Int|@Float) ]` //nolint
}

// noinspection GoStructTag
type PressCmd struct {
	Cmd  struct{}     `"press"` //nolint
	Node NodeSelector `@@`      //nolint
}

// noinspection GoStructTag
type RadioCmd struct {
	Cmd      struct{}        `"radio"`     //nolint
	Nodes    []NodeSelector  `( @@ )+`     //nolint
	On       *OnFlag         `( @@`        //nolint
	Off      *OffFlag        `| @@`        //nolint
	FailTime *FailTimeParams `| "ft" @@ )` //nolint
}

// noinspection GoStructTag
type OnFlag struct {
	Dummy struct{} `"on"` //nolint
}

// noinspection GoStructTag
type OffFlag struct {
	Dummy struct{} `"off"` //nolint
}

// FailTimeParams are the outage duration and the fail interval, each in ticks or with a time unit.
// noinspection GoStructTag
type FailTimeParams struct {
	FailDuration string `@(Int ["h"|"m"|"s"|"ms"])` //nolint
	FailInterval string `@(Int ["h"|"m"|"s"|"ms"])` //nolint
}

// noinspection GoStructTag
type RestartCmd struct {
	Cmd  struct{}     `"restart"` //nolint
	Node NodeSelector `@@`        //nolint
}

// noinspection GoStructTag
type SaveCmd struct {
	Cmd      struct{} `"save"`  //nolint
	Filename string   `@String` //nolint
}

// noinspection GoStructTag
type MaxSpeedFlag struct {
	Dummy struct{} `( "max" | "inf")` //nolint
}

// noinspection GoStructTag
type SpeedCmd struct {
	Cmd   struct{}      `"speed"`               //nolint
	Max   *MaxSpeedFlag `( @@`                  //nolint
	Speed *float64      `| [ (@Int|@Float) ] )` //nolint
}

// noinspection GoStructTag
type TimeCmd struct {
	Cmd struct{} `"time"` //nolint
}

// UartCmd types one byte into the node's UART, e.g. 'uart 1 0x05'.
// noinspection GoStructTag
type UartCmd struct {
	Cmd  struct{}     `"uart"` //nolint
	Node NodeSelector `@@`     //nolint
	Byte string       `@Int`   //nolint
}

// noinspection GoStructTag
type WatchCmd struct {
	Cmd   struct{}       `"watch"`                                                                                             //nolint
	All   string         `[ @"all" ]`                                                                                          //nolint
	Nodes []NodeSelector `[ ( @@ )+ ]`                                                                                         //nolint
	Level string         `[@( "trace"|"debug"|"info"|"note"|"warn"|"error"|"crit"|"off"|"none"|"T"|"D"|"I"|"N"|"W"|"E"|"C" )]` //nolint
}

// noinspection GoStructTag
type UnwatchCmd struct {
	Cmd   struct{}       `"unwatch"`           //nolint
	Nodes []NodeSelector `( "all" | ( @@ )+ )` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}
