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

// Package softtimer implements a fixed bank of software tick counters, advanced by a periodic
// hardware timer callback and polled by cooperative tasks.
package softtimer

import (
	"math"
)

// Id selects one counter slot of a Bank.
type Id int

const (
	// Disabled is the sentinel counter value: a disabled counter never reaches any threshold
	// and is not advanced by Tick.
	Disabled uint16 = math.MaxUint16

	// Max is the largest value an armed counter can hold. Counters saturate here, so an armed
	// counter can never drift into the Disabled sentinel.
	Max uint16 = Disabled - 1
)

// Bank is a fixed set of tick counters. All operations are total; an out-of-range Id is a
// programming error and panics like any slice index.
type Bank struct {
	counters []uint16
}

// NewBank creates a bank of n counters, all starting at zero.
func NewBank(n int) *Bank {
	return &Bank{
		counters: make([]uint16, n),
	}
}

// Len returns the number of counter slots.
func (b *Bank) Len() int {
	return len(b.counters)
}

// Tick advances every armed counter by one. It is meant to be called from the hardware timer
// callback, once per timer period.
func (b *Bank) Tick() {
	for i, c := range b.counters {
		if c < Max {
			b.counters[i] = c + 1
		}
	}
}

// Reset re-arms a counter at zero.
func (b *Bank) Reset(id Id) {
	b.counters[id] = 0
}

// Disable parks a counter at the sentinel until it is reset again.
func (b *Bank) Disable(id Id) {
	b.counters[id] = Disabled
}

// Reached reports whether an armed counter has counted at least threshold ticks since its last reset.
func (b *Bank) Reached(id Id, threshold uint16) bool {
	c := b.counters[id]
	return c != Disabled && c >= threshold
}

// Armed reports whether the counter is counting, i.e. not disabled.
func (b *Bank) Armed(id Id) bool {
	return b.counters[id] != Disabled
}

// Value returns the raw counter value, Disabled included.
func (b *Bank) Value(id Id) uint16 {
	return b.counters[id]
}
