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

package radiomodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRadioModel(t *testing.T) {
	rm, err := NewRadioModel("Ideal")
	assert.Nil(t, err)
	assert.Equal(t, "Ideal", rm.GetName())

	rm, err = NewRadioModel("default")
	assert.Nil(t, err)
	assert.Equal(t, "Ideal_Rssi", rm.GetName())

	_, err = NewRadioModel("MutualInterference")
	assert.NotNil(t, err)
}

func TestRadioModelIdeal_Disc(t *testing.T) {
	rm, _ := NewRadioModel("Ideal")
	src := NewRadioNode(1, &RadioNodeConfig{X: 0, Y: 0, RadioRange: 100})
	near := NewRadioNode(2, &RadioNodeConfig{X: 60, Y: 80, RadioRange: 100})
	far := NewRadioNode(3, &RadioNodeConfig{X: 101, Y: 0, RadioRange: 100})
	rm.AddNode(1, src)
	rm.AddNode(2, near)
	rm.AddNode(3, far)

	assert.Equal(t, 100.0, src.GetDistanceTo(near))

	// receivers must listen
	assert.False(t, rm.CheckRadioReachable(src, near))
	near.RxOn = true
	far.RxOn = true
	src.RxOn = true
	assert.True(t, rm.CheckRadioReachable(src, near))
	assert.False(t, rm.CheckRadioReachable(src, far))
	assert.False(t, rm.CheckRadioReachable(src, src))
	assert.Equal(t, int8(-60), rm.GetTxRssi(src, near))
}

func TestRadioModelIdeal_VariableRssi(t *testing.T) {
	rm, _ := NewRadioModel("IR")
	src := NewRadioNode(1, &RadioNodeConfig{RadioRange: 300})
	near := NewRadioNode(2, &RadioNodeConfig{X: 10, RadioRange: 300})
	far := NewRadioNode(3, &RadioNodeConfig{X: 250, RadioRange: 300})
	near.RxOn, far.RxOn = true, true

	rNear := rm.GetTxRssi(src, near)
	rFar := rm.GetTxRssi(src, far)
	assert.True(t, rNear > rFar)
	assert.True(t, rm.CheckRadioReachable(src, far))
}
