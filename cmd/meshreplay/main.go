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

// meshreplay prints the frames recorded in a meshsim replay file.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/meshsense/meshnode/frame"
	"github.com/meshsense/meshnode/replay"
)

var (
	replayFile = kingpin.Arg("replay", "Replay file written by meshsim.").Required().String()
	typeFilter = kingpin.Flag("type", "Only print frames of this type, e.g. TEMPERATURE.").Default("").String()
	realtime   = kingpin.Flag("realtime", "Pace the output like the simulation, using the given tick period.").Default("0s").Duration()
	summary    = kingpin.Flag("summary", "Print the number of frames per type at the end.").Bool()
)

type printer struct {
	w          io.Writer
	typeFilter string
	tickPeriod time.Duration
	counts     map[string]int
	startTick  uint64
	startTime  time.Time
}

func newPrinter(w io.Writer, typeFilter string, tickPeriod time.Duration) *printer {
	return &printer{
		w:          w,
		typeFilter: strings.ToUpper(typeFilter),
		tickPeriod: tickPeriod,
		counts:     map[string]int{},
	}
}

func (p *printer) print(e replay.Entry) error {
	typ := frame.TypeString(e.Frame.Type())
	p.counts[typ]++
	if len(p.typeFilter) > 0 && p.typeFilter != typ {
		return nil
	}

	if p.tickPeriod > 0 {
		if p.startTime.IsZero() {
			p.startTick, p.startTime = e.Tick, time.Now()
		}
		playTime := p.startTime.Add(time.Duration(e.Tick-p.startTick) * p.tickPeriod)
		time.Sleep(time.Until(playTime))
	}

	_, err := fmt.Fprintf(p.w, "%11d node%-5d rx=%d %v\n", e.Tick, e.Source, e.Receivers, e.Frame)
	return err
}

func (p *printer) printSummary() {
	types := make([]string, 0, len(p.counts))
	for t := range p.counts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		_, _ = fmt.Fprintf(p.w, "%-12s %d\n", t, p.counts[t])
	}
}

func main() {
	kingpin.Version("0.1")
	kingpin.Parse()

	p := newPrinter(os.Stdout, *typeFilter, *realtime)
	if err := replay.Read(*replayFile, p.print); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", *replayFile, err)
		os.Exit(1)
	}
	if *summary {
		p.printSummary()
	}
}
