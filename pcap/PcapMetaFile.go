// Copyright (c) 2020-2024, The OTNS Authors.
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

package pcap

import (
	"encoding/binary"
	"os"
)

// metaHeaderSize is the size of the header put in front of each frame of a meta file:
// [version:1][reserved:1][source node:2][receivers:2][reserved:2], big-endian.
const (
	metaHeaderSize    = 8
	metaHeaderVersion = 1
)

type metaFile struct {
	fd *os.File
}

func newMetaFile(filename string) (File, error) {
	fd, err := createFile(filename, dltUser1)
	if err != nil {
		return nil, err
	}
	return &metaFile{fd: fd}, nil
}

func (pf *metaFile) AppendFrame(frame Frame) error {
	header := frameHeader(frame.Timestamp, metaHeaderSize+len(frame.Data))

	var meta [metaHeaderSize]byte
	meta[0] = metaHeaderVersion
	binary.BigEndian.PutUint16(meta[2:4], uint16(frame.Source))
	binary.BigEndian.PutUint16(meta[4:6], uint16(frame.Receivers))

	buf := make([]byte, 0, pcapFrameHeaderSize+metaHeaderSize+len(frame.Data))
	buf = append(buf, header[:]...)
	buf = append(buf, meta[:]...)
	buf = append(buf, frame.Data...)
	_, err := pf.fd.Write(buf)
	return err
}

func (pf *metaFile) Sync() error {
	return pf.fd.Sync()
}

func (pf *metaFile) Close() error {
	return pf.fd.Close()
}
