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

package simhw

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshsense/meshnode/hal"
)

func TestFlash_WriteOnce(t *testing.T) {
	f, err := NewFlash("")
	require.Nil(t, err)

	v, err := f.Read(InfoStart)
	assert.Nil(t, err)
	assert.Equal(t, byte(0xFF), v)

	assert.Nil(t, f.Write(InfoStart, 0x2A))
	err = f.Write(InfoStart, 0x2B)
	assert.True(t, errors.Is(err, hal.ErrNotErased))

	v, _ = f.Read(InfoStart)
	assert.Equal(t, byte(0x2A), v)
}

func TestFlash_EraseSegment(t *testing.T) {
	f, _ := NewFlash("")
	require.Nil(t, f.Write(InfoStart+1, 1))
	require.Nil(t, f.Write(InfoStart+SegmentSize, 2))

	require.Nil(t, f.EraseBlock(InfoStart+5))
	v, _ := f.Read(InfoStart + 1)
	assert.Equal(t, byte(0xFF), v)
	// next segment untouched
	v, _ = f.Read(InfoStart + SegmentSize)
	assert.Equal(t, byte(2), v)
	assert.Equal(t, 1, f.Erases())
}

func TestFlash_Address(t *testing.T) {
	f, _ := NewFlash("")
	_, err := f.Read(InfoStart - 1)
	assert.True(t, errors.Is(err, hal.ErrAddress))
	assert.True(t, errors.Is(f.Write(InfoStart+InfoSize, 0), hal.ErrAddress))
	assert.True(t, errors.Is(f.EraseBlock(0), hal.ErrAddress))
}

func TestFlash_Persistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node1.flash")
	f, err := NewFlash(path)
	require.Nil(t, err)
	require.Nil(t, f.Write(InfoStart, 0x2A))

	f2, err := NewFlash(path)
	require.Nil(t, err)
	v, _ := f2.Read(InfoStart)
	assert.Equal(t, byte(0x2A), v)
}

func TestFlash_Fault(t *testing.T) {
	f, _ := NewFlash("")
	fault := errors.New("programming voltage low")
	f.SetFault(fault)
	assert.Equal(t, fault, f.Write(InfoStart, 1))
	f.SetFault(nil)
	assert.Nil(t, f.Write(InfoStart, 1))
}
