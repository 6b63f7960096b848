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
	"os"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/hal"
)

// Information memory layout of the simulated flash.
const (
	InfoStart   uint16 = 0x1000
	InfoSize           = 256
	SegmentSize        = 64

	erased byte = 0xFF
)

// Flash simulates the information memory segments of the node MCU. A cell can be written only
// while erased; erasing works on whole segments. When a file path is set, the image is saved to
// it after every change and loaded from it on creation, so it survives a node restart.
type Flash struct {
	mem    [InfoSize]byte
	path   string
	fault  error
	writes int
	erases int
}

// NewFlash creates an erased flash, or loads the image stored at path if that file exists.
func NewFlash(path string) (*Flash, error) {
	f := &Flash{path: path}
	for i := range f.mem {
		f.mem[i] = erased
	}
	if path == "" {
		return f, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, f.save()
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load flash image %s", path)
	}
	if len(data) != InfoSize {
		return nil, errors.Errorf("flash image %s has %d bytes, want %d", path, len(data), InfoSize)
	}
	copy(f.mem[:], data)
	return f, nil
}

func (f *Flash) offset(addr uint16) (int, error) {
	if addr < InfoStart || int(addr-InfoStart) >= InfoSize {
		return 0, errors.Wrapf(hal.ErrAddress, "0x%04X", addr)
	}
	return int(addr - InfoStart), nil
}

func (f *Flash) Read(addr uint16) (byte, error) {
	off, err := f.offset(addr)
	if err != nil {
		return erased, err
	}
	return f.mem[off], nil
}

func (f *Flash) Write(addr uint16, v byte) error {
	off, err := f.offset(addr)
	if err != nil {
		return err
	}
	if f.fault != nil {
		return f.fault
	}
	if f.mem[off] != erased {
		return errors.Wrapf(hal.ErrNotErased, "0x%04X holds 0x%02X", addr, f.mem[off])
	}
	f.mem[off] = v
	f.writes++
	return f.save()
}

// EraseBlock erases the segment containing addr.
func (f *Flash) EraseBlock(addr uint16) error {
	off, err := f.offset(addr)
	if err != nil {
		return err
	}
	start := off / SegmentSize * SegmentSize
	for i := start; i < start+SegmentSize; i++ {
		f.mem[i] = erased
	}
	f.erases++
	return f.save()
}

// SetFault makes every following Write fail with err, or work again for nil.
func (f *Flash) SetFault(err error) {
	f.fault = err
}

func (f *Flash) Writes() int {
	return f.writes
}

func (f *Flash) Erases() int {
	return f.erases
}

// Path returns the backing file, empty for a RAM-only flash.
func (f *Flash) Path() string {
	return f.path
}

func (f *Flash) save() error {
	if f.path == "" {
		return nil
	}
	return errors.Wrapf(os.WriteFile(f.path, f.mem[:], 0644), "save flash image %s", f.path)
}
