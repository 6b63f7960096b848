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

// Package serialuart binds a node UART to a real serial port, so an operator terminal (or the
// meshavg tool) can talk to a simulated node.
package serialuart

import (
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"

	"github.com/meshsense/meshnode/logger"
)

const (
	DefaultBaud = 9600

	inputQueueSize = 256
	readTimeout    = 100 * time.Millisecond
	idleBackoff    = 10 * time.Millisecond
)

// Port is a hal.UART over an io.ReadWriteCloser. Received bytes are collected by a reader
// goroutine and handed to the receive callback by Poll, on the caller's goroutine.
type Port struct {
	name string
	rw   io.ReadWriteCloser
	in   chan byte
	cb   func(b byte)

	wlock     sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
	readDone  chan struct{}
}

// Open opens the named serial device.
func Open(name string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	sp, err := serial.OpenPort(&serial.Config{Name: name, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, errors.Wrapf(err, "open serial port %s", name)
	}
	return New(name, sp), nil
}

// New wraps rw and starts reading from it.
func New(name string, rw io.ReadWriteCloser) *Port {
	p := &Port{
		name:     name,
		rw:       rw,
		in:       make(chan byte, inputQueueSize),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *Port) readLoop() {
	defer close(p.readDone)

	buf := make([]byte, 64)
	for {
		n, err := p.rw.Read(buf)
		for _, b := range buf[:n] {
			select {
			case p.in <- b:
			case <-p.done:
				return
			default:
				logger.Warnf("serial port %s input overrun, byte 0x%02X dropped", p.name, b)
			}
		}
		select {
		case <-p.done:
			return
		default:
		}
		if err == io.EOF {
			// an idle read timeout looks like EOF on a serial device; keep reading until Close
			if n == 0 {
				select {
				case <-p.done:
					return
				case <-time.After(idleBackoff):
				}
			}
			continue
		}
		if errors.Is(err, io.ErrClosedPipe) {
			logger.Debugf("serial port %s closed", p.name)
			return
		}
		if err != nil {
			logger.Warnf("serial port %s read failed: %v", p.name, err)
			return
		}
	}
}

func (p *Port) SendByte(b byte) error {
	p.wlock.Lock()
	defer p.wlock.Unlock()

	_, err := p.rw.Write([]byte{b})
	return errors.Wrapf(err, "write serial port %s", p.name)
}

func (p *Port) RegisterReceive(cb func(b byte)) {
	p.cb = cb
}

// Poll delivers every byte received so far to the receive callback and returns their number.
func (p *Port) Poll() int {
	n := 0
	for {
		select {
		case b := <-p.in:
			n++
			if p.cb != nil {
				p.cb(b)
			}
		default:
			return n
		}
	}
}

func (p *Port) Name() string {
	return p.name
}

// Close stops the reader and closes the device.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		err = p.rw.Close()
		<-p.readDone
	})
	return err
}
