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

package frame

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/meshsense/meshnode/types"
)

func TestReading_WireOrder(t *testing.T) {
	b := make([]byte, 2)
	PutReading(b, 0x1234)
	assert.Equal(t, []byte{0x12, 0x34}, b)

	PutReading(b, -2)
	assert.Equal(t, []byte{0xFF, 0xFE}, b)
	assert.Equal(t, int16(-2), Reading(b))
}

func TestReading_FullRange(t *testing.T) {
	b := make([]byte, 2)
	for r := math.MinInt16; r <= math.MaxInt16; r++ {
		PutReading(b, int16(r))
		if Reading(b) != int16(r) {
			t.Fatalf("reading %d decoded as %d", r, Reading(b))
		}
	}
}

func TestFrame_TemperatureRoundTrip(t *testing.T) {
	for _, r := range []int16{math.MinInt16, -1, 0, 1, 235, math.MaxInt16} {
		var f Frame
		f.MakeTemperature(0x03, 0x01, r)

		decoded, err := Decode(f.Bytes())
		require.Nil(t, err)
		assert.Equal(t, TypeTemperature, decoded.Type())
		assert.Equal(t, NodeId(0x01), decoded.Dest())
		assert.Equal(t, NodeId(0x03), decoded.NodeId())
		assert.Equal(t, r, decoded.Temperature())
	}
}

func TestFrame_ZeroFilled(t *testing.T) {
	var f Frame
	for i := range f {
		f[i] = 0xAA
	}
	f.MakeAck(0x07, 0x09)
	assert.Equal(t, Len, len(f.Bytes()))
	assert.Equal(t, NodeId(0x09), f.Dest())
	assert.Equal(t, TypeAck, f.Type())
	assert.Equal(t, NodeId(0x07), f.NodeId())
	assert.Equal(t, make([]byte, ContentLen), f.Content())
}

func TestFrame_IsRouter(t *testing.T) {
	var f Frame
	f.MakeIsRouter(0x07)
	assert.True(t, f.IsBroadcast())
	assert.Equal(t, TypeIsRouter, f.Type())
	assert.Equal(t, NodeId(0x07), f.NodeId())
	assert.Equal(t, "00 05 07", f.Hex()[:8])
}

func TestFrame_IdReply(t *testing.T) {
	var f Frame
	f.MakeIdReply(0x01, 0x2A)
	assert.True(t, f.IsBroadcast())
	assert.Equal(t, NodeId(0x2A), f.IdReply())
}

func TestDecode_Short(t *testing.T) {
	_, err := Decode(make([]byte, Len-1))
	assert.True(t, errors.Is(err, ErrLength))
}

func TestFrame_Results(t *testing.T) {
	recs := []Record{{Source: 0x03, Reading: 10}, {Source: 0x04, Reading: 20}, {Source: 0x05, Reading: 30}}

	var f Frame
	require.Nil(t, f.MakeResults(0x01, 0x02, recs))
	content := f.Content()
	assert.Equal(t, byte(3), content[0])
	// readings at stride 4 from content offset 2
	assert.Equal(t, int16(10), Reading(content[2:]))
	assert.Equal(t, int16(20), Reading(content[6:]))
	assert.Equal(t, int16(30), Reading(content[10:]))

	decoded, err := f.Results()
	require.Nil(t, err)
	assert.Equal(t, recs, decoded)

	mean, err := Mean(decoded)
	assert.Nil(t, err)
	assert.Equal(t, 20.0, mean)
}

func TestFrame_ResultsZeroCount(t *testing.T) {
	var f Frame
	f.Init(0x01)
	f.SetType(TypeResults)
	f.SetDest(0x02)

	_, err := f.Results()
	assert.Equal(t, ErrNoResults, err)

	_, err = Mean(nil)
	assert.Equal(t, ErrNoResults, err)
	assert.Equal(t, ErrNoResults, f.MakeResults(0x01, 0x02, nil))
}

func TestFrame_ResultsCapacity(t *testing.T) {
	assert.Equal(t, 4, MaxResults)

	recs := make([]Record, MaxResults)
	for i := range recs {
		recs[i] = Record{Source: NodeId(i + 1), Reading: int16(-100 * i)}
	}
	var f Frame
	require.Nil(t, f.MakeResults(0x01, 0x02, recs))
	decoded, err := f.Results()
	require.Nil(t, err)
	assert.Equal(t, recs, decoded)

	err = f.MakeResults(0x01, 0x02, append(recs, Record{Source: 9}))
	assert.True(t, errors.Is(err, ErrTooManyResults))

	f.Content()[0] = MaxResults + 1
	_, err = f.Results()
	assert.True(t, errors.Is(err, ErrTooManyResults))
}

func TestFrame_ResultsWrongType(t *testing.T) {
	var f Frame
	f.MakeAck(0x01, 0x02)
	_, err := f.Results()
	assert.Equal(t, ErrNotResultsFrame, err)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "TEMPERATURE", TypeString(TypeTemperature))
	assert.Equal(t, "UNKNOWN(0x09)", TypeString(0x09))

	var f Frame
	f.MakeTemperature(0x03, 0x01, 21)
	assert.Contains(t, f.String(), "type=TEMPERATURE")
	assert.Contains(t, f.String(), "temp=21")
}
