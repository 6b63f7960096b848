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

// UART is a simulated serial port. Bytes written by the firmware collect in an output buffer.
type UART struct {
	cb       func(b byte)
	out      []byte
	writeErr error
}

func (u *UART) SendByte(b byte) error {
	if u.writeErr != nil {
		return u.writeErr
	}
	u.out = append(u.out, b)
	return nil
}

func (u *UART) RegisterReceive(cb func(b byte)) {
	u.cb = cb
}

// Input delivers one received byte. It returns false if no receive callback is registered.
func (u *UART) Input(b byte) bool {
	if u.cb == nil {
		return false
	}
	u.cb(b)
	return true
}

// Output returns everything written so far.
func (u *UART) Output() string {
	return string(u.out)
}

// TakeOutput returns and clears the output buffer.
func (u *UART) TakeOutput() string {
	s := string(u.out)
	u.out = u.out[:0]
	return s
}

// SetWriteError makes every following SendByte fail with err, or succeed again for nil.
func (u *UART) SetWriteError(err error) {
	u.writeErr = err
}
