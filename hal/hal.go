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

// Package hal defines the peripheral driver interfaces the node firmware is written against.
//
// Drivers report hardware events by invoking registered callbacks. Callbacks run in interrupt
// context with respect to the firmware: they must only copy data and set flags.
package hal

import (
	"time"

	"github.com/pkg/errors"
)

// Timer invokes a callback once per period.
type Timer interface {
	RegisterTick(cb func())
	Start(period time.Duration)
}

// ReceiveFunc is called by the radio for each received frame. size is the number of valid bytes
// in buf, or a negative RxCode* value when reception failed.
type ReceiveFunc func(buf []byte, size int, rssi int8)

// Negative receive sizes reported by the radio.
const (
	RxCodeEmpty      = -1
	RxCodeOverflow   = -2
	RxCodeBadCRC     = -3
	RxCodeTxOverflow = -4
)

// Radio is a fixed-length frame transceiver.
type Radio interface {
	// Transmit sends buf; it returns once the transmission is done.
	Transmit(buf []byte) error
	// EnterReceive (re-)arms reception.
	EnterReceive()
	RegisterReceive(cb ReceiveFunc)
}

// UART is a byte-oriented serial link.
type UART interface {
	SendByte(b byte) error
	RegisterReceive(cb func(b byte))
}

// Button reports press edges.
type Button interface {
	RegisterPress(cb func())
	EnableInterrupt()
}

// Sensor is a synchronous analog sampler (temperature).
type Sensor interface {
	Sample() int16
}

// Flash is byte-addressable non-volatile storage organised in erase blocks. Erased cells read 0xFF;
// writing to a cell that is not erased fails with ErrNotErased.
type Flash interface {
	Read(addr uint16) (byte, error)
	Write(addr uint16, v byte) error
	EraseBlock(addr uint16) error
}

// LED is a single on/off indicator.
type LED interface {
	On()
	Off()
	Toggle()
}

// Board bundles the peripherals of one node.
type Board struct {
	Timer    Timer
	Radio    Radio
	UART     UART
	Button   Button
	Sensor   Sensor
	Flash    Flash
	RedLED   LED
	GreenLED LED
}

var (
	ErrRxEmpty    = errors.New("rx empty")
	ErrRxOverflow = errors.New("rx overflow")
	ErrRxBadCRC   = errors.New("rx bad CRC")
	ErrTxOverflow = errors.New("tx overflow")
	ErrNotErased  = errors.New("flash cell not erased")
	ErrAddress    = errors.New("flash address out of range")
)

// RxError translates a non-positive receive size into an error; it returns nil for a positive size.
func RxError(size int) error {
	switch {
	case size > 0:
		return nil
	case size == 0:
		return errors.New("rx size 0")
	case size == RxCodeEmpty:
		return ErrRxEmpty
	case size == RxCodeOverflow:
		return ErrRxOverflow
	case size == RxCodeBadCRC:
		return ErrRxBadCRC
	case size == RxCodeTxOverflow:
		return ErrTxOverflow
	default:
		return errors.Errorf("rx packet error size=%d", size)
	}
}

// Validate checks that every peripheral is present.
func (b *Board) Validate() error {
	missing := ""
	switch {
	case b.Timer == nil:
		missing = "timer"
	case b.Radio == nil:
		missing = "radio"
	case b.UART == nil:
		missing = "uart"
	case b.Button == nil:
		missing = "button"
	case b.Sensor == nil:
		missing = "sensor"
	case b.Flash == nil:
		missing = "flash"
	case b.RedLED == nil, b.GreenLED == nil:
		missing = "led"
	default:
		return nil
	}
	return errors.Errorf("board has no %s driver", missing)
}
