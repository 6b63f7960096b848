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

package softtimer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	testTimerA Id = 0
	testTimerB Id = 1
)

func TestNewBank(t *testing.T) {
	b := NewBank(7)
	assert.Equal(t, 7, b.Len())
	for id := Id(0); id < 7; id++ {
		assert.Equal(t, uint16(0), b.Value(id))
		assert.True(t, b.Armed(id))
	}
}

func TestBank_ResetThenTicks(t *testing.T) {
	for _, n := range []uint16{0, 1, 2, 10, 100, 1000} {
		b := NewBank(2)
		b.Tick()
		b.Tick()
		b.Reset(testTimerA)
		for i := uint16(0); i < n; i++ {
			b.Tick()
		}
		assert.True(t, b.Reached(testTimerA, n), "n=%d", n)
		assert.False(t, b.Reached(testTimerA, n+1), "n=%d", n)
		b.Tick()
		assert.True(t, b.Reached(testTimerA, n+1), "n=%d", n)
	}
}

func TestBank_ResetIsPerCounter(t *testing.T) {
	b := NewBank(2)
	for i := 0; i < 5; i++ {
		b.Tick()
	}
	b.Reset(testTimerA)
	b.Tick()
	assert.Equal(t, uint16(1), b.Value(testTimerA))
	assert.Equal(t, uint16(6), b.Value(testTimerB))
}

func TestBank_Disabled(t *testing.T) {
	b := NewBank(2)
	b.Disable(testTimerA)
	assert.False(t, b.Armed(testTimerA))

	for i := 0; i < 100000; i++ {
		b.Tick()
	}
	assert.Equal(t, Disabled, b.Value(testTimerA))
	assert.False(t, b.Reached(testTimerA, 0))
	assert.False(t, b.Reached(testTimerA, 1))
	assert.False(t, b.Reached(testTimerA, Max))
	assert.False(t, b.Reached(testTimerA, Disabled))

	b.Reset(testTimerA)
	assert.True(t, b.Armed(testTimerA))
	assert.True(t, b.Reached(testTimerA, 0))
}

func TestBank_Saturates(t *testing.T) {
	b := NewBank(1)
	for i := 0; i < int(Disabled)+100; i++ {
		b.Tick()
	}
	assert.Equal(t, Max, b.Value(testTimerA))
	assert.True(t, b.Armed(testTimerA))
	assert.True(t, b.Reached(testTimerA, Max))
}
