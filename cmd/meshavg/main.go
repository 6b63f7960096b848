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

// meshavg reads the console of an anchor node, from a serial port or stdin, and prints the
// average of the node readings of every RESULTS report. Zero readings count as undefined.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/tarm/serial"
	"gopkg.in/alecthomas/kingpin.v2"
)

var (
	serialPath = kingpin.Flag("device", "Path to serial port device; stdin when empty.").Default("").String()
	baudRate   = kingpin.Flag("baud", "Serial port baudrate").Default("9600").Int()

	readingPattern = regexp.MustCompile(`^\s*id ([0-9A-Fa-f]+) : (-?\d+)`)
	averagePattern = regexp.MustCompile(`^\s*average : `)
)

// averager collects the readings of one report, keyed by node id; a later reading of the same
// node replaces the earlier one.
type averager struct {
	readings map[string]int
}

func newAverager() *averager {
	return &averager{readings: map[string]int{}}
}

// feed consumes one console line. At the end of a report it returns the average of the non-zero
// readings, and ok is false if there were none.
func (a *averager) feed(line string) (avg float64, done bool, ok bool) {
	if m := readingPattern.FindStringSubmatch(line); m != nil {
		v, err := strconv.Atoi(m[2])
		if err == nil {
			a.readings[m[1]] = v
		}
		return 0, false, false
	}
	if !averagePattern.MatchString(line) {
		return 0, false, false
	}

	sum, n := 0, 0
	for _, v := range a.readings {
		if v != 0 {
			sum += v
			n++
		}
	}
	a.readings = map[string]int{}
	if n == 0 {
		return 0, true, false
	}
	return float64(sum) / float64(n), true, true
}

func run(r io.Reader, w io.Writer) error {
	a := newAverager()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		avg, done, ok := a.feed(scanner.Text())
		if !done {
			continue
		}
		if ok {
			fmt.Fprintf(w, "AVERAGE : %.2f (%.2f C)\n", avg, avg/10)
		} else {
			fmt.Fprintf(w, "AVERAGE : undefined\n")
		}
	}
	return scanner.Err()
}

func main() {
	kingpin.Version("0.1")
	kingpin.Parse()

	var in io.Reader = os.Stdin
	if len(*serialPath) > 0 {
		port, err := serial.OpenPort(&serial.Config{Name: *serialPath, Baud: *baudRate})
		if err != nil {
			fmt.Printf("Error opening serial port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()
		fmt.Printf("Connected on serial port %s\n", *serialPath)
		in = port
	}

	if err := run(in, os.Stdout); err != nil {
		fmt.Printf("Error reading console: %v\n", err)
		os.Exit(1)
	}
}
