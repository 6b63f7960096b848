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

// Package frame implements the fixed-length radio frame of the sensor mesh and the codecs of its
// content fields.
//
// Wire layout (21 bytes):
//
//	[dest:1][type:1][node_id:1][content:18]
//
// Multi-byte numeric fields in content are big-endian on the wire.
package frame

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"

	. "github.com/meshsense/meshnode/types"
)

const (
	Len        = 21 // total encoded length, for every type
	ContentLen = Len - ByteContent

	ByteDest    = 0
	ByteType    = 1
	ByteNodeId  = 2
	ByteContent = 3
)

// Type is the message type tag.
type Type = uint8

const (
	TypeIdReply     Type = 0x01 // content[0] = announced identity
	TypeTemperature Type = 0x02 // content = 2-byte reading
	TypeAck         Type = 0x03 // content unused
	TypeResults     Type = 0x04 // router -> anchor, content = count + records
	TypeIsRouter    Type = 0x05 // always broadcast, content unused
)

var (
	ErrLength = errors.New("frame length mismatch")
)

// TypeString returns the name of a message type.
func TypeString(t Type) string {
	switch t {
	case TypeIdReply:
		return "ID_REPLY"
	case TypeTemperature:
		return "TEMPERATURE"
	case TypeAck:
		return "ACK"
	case TypeResults:
		return "RESULTS"
	case TypeIsRouter:
		return "IS_ROUTER"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", t)
	}
}

// Frame is one encoded radio frame. The zero value is an all-zero frame.
type Frame [Len]byte

// Decode copies a received buffer into a Frame. The transport delivers fixed-length frames, so
// no checksum or length field is validated beyond the buffer length itself.
func Decode(buf []byte) (Frame, error) {
	var f Frame
	if len(buf) < Len {
		return f, errors.Wrapf(ErrLength, "got %d bytes, want %d", len(buf), Len)
	}
	copy(f[:], buf[:Len])
	return f, nil
}

// Init zero-fills the frame and stamps the sender's identity.
func (f *Frame) Init(src NodeId) {
	*f = Frame{}
	f[ByteNodeId] = src
}

// Bytes returns the encoded frame; it aliases f.
func (f *Frame) Bytes() []byte {
	return f[:]
}

func (f *Frame) Dest() NodeId {
	return f[ByteDest]
}

func (f *Frame) Type() Type {
	return f[ByteType]
}

func (f *Frame) NodeId() NodeId {
	return f[ByteNodeId]
}

// Content returns the content field; it aliases f.
func (f *Frame) Content() []byte {
	return f[ByteContent:]
}

func (f *Frame) SetDest(dest NodeId) {
	f[ByteDest] = dest
}

func (f *Frame) SetType(t Type) {
	f[ByteType] = t
}

// IsBroadcast reports whether the frame is addressed to all nodes.
func (f *Frame) IsBroadcast() bool {
	return f[ByteDest] == BroadcastNodeId
}

// MakeTemperature builds a TEMPERATURE frame carrying reading.
func (f *Frame) MakeTemperature(src, dest NodeId, reading int16) {
	f.Init(src)
	f.SetType(TypeTemperature)
	f.SetDest(dest)
	PutReading(f.Content(), reading)
}

// Temperature decodes the reading of a TEMPERATURE frame.
func (f *Frame) Temperature() int16 {
	return Reading(f.Content())
}

// MakeAck builds an ACK frame addressed to dest.
func (f *Frame) MakeAck(src, dest NodeId) {
	f.Init(src)
	f.SetType(TypeAck)
	f.SetDest(dest)
}

// MakeIsRouter builds the broadcast router advertisement of src.
func (f *Frame) MakeIsRouter(src NodeId) {
	f.Init(src)
	f.SetType(TypeIsRouter)
	f.SetDest(BroadcastNodeId)
}

// MakeIdReply builds a broadcast ID_REPLY announcing id.
func (f *Frame) MakeIdReply(src, id NodeId) {
	f.Init(src)
	f.SetType(TypeIdReply)
	f.SetDest(BroadcastNodeId)
	f.Content()[0] = id
}

// IdReply returns the identity announced by an ID_REPLY frame.
func (f *Frame) IdReply() NodeId {
	return f.Content()[0]
}

func (f Frame) String() string {
	s := fmt.Sprintf("Frame{dst=%02X,type=%s,src=%02X", f.Dest(), TypeString(f.Type()), f.NodeId())
	switch f.Type() {
	case TypeTemperature:
		s += fmt.Sprintf(",temp=%d", f.Temperature())
	case TypeIdReply:
		s += fmt.Sprintf(",id=%02X", f.IdReply())
	case TypeResults:
		s += fmt.Sprintf(",count=%d", f.Content()[0])
	}
	return s + ",raw=" + hex.EncodeToString(f[:]) + "}"
}

// Hex returns the frame as space separated hex bytes, the format used in node logs.
func (f *Frame) Hex() string {
	b := make([]byte, 0, Len*3)
	for i, v := range f {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, fmt.Sprintf("%02X", v)...)
	}
	return string(b)
}
