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

// Package replay records every frame put on the air to a replay file, one prototext encoded
// entry per line, and reads such files back.
package replay

import (
	"bufio"
	"encoding/hex"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/meshsense/meshnode/frame"
	"github.com/meshsense/meshnode/logger"
	. "github.com/meshsense/meshnode/types"
)

var (
	marshalOptions = prototext.MarshalOptions{
		Multiline: false,
	}
	unmarshalOptions = prototext.UnmarshalOptions{}
)

// Entry is one transmission.
type Entry struct {
	Tick      uint64
	Source    SimNodeId
	Receivers int
	Frame     frame.Frame
}

func (e *Entry) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"tick":      e.Tick,
		"src":       e.Source,
		"receivers": e.Receivers,
		"type":      frame.TypeString(e.Frame.Type()),
		"frame":     hex.EncodeToString(e.Frame.Bytes()),
	})
}

func entryFromStruct(s *structpb.Struct) (Entry, error) {
	var e Entry
	fields := s.GetFields()
	data, err := hex.DecodeString(fields["frame"].GetStringValue())
	if err != nil {
		return e, errors.Wrapf(err, "bad frame field")
	}
	if e.Frame, err = frame.Decode(data); err != nil {
		return e, err
	}
	e.Tick = uint64(fields["tick"].GetNumberValue())
	e.Source = SimNodeId(fields["src"].GetNumberValue())
	e.Receivers = int(fields["receivers"].GetNumberValue())
	return e, nil
}

type Replay struct {
	f              *os.File
	fileWriter     *bufio.Writer
	pendingChan    chan *structpb.Struct
	fileWriterDone chan struct{}
}

// NewReplay creates (or truncates) the replay file and starts its writer routine.
func NewReplay(filename string) (*Replay, error) {
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "create replay file")
	}

	rep := &Replay{
		f:              f,
		fileWriter:     bufio.NewWriterSize(f, 8192),
		pendingChan:    make(chan *structpb.Struct, 10000),
		fileWriterDone: make(chan struct{}),
	}

	go rep.fileWriterRoutine()

	return rep, nil
}

func (rep *Replay) Append(entry Entry) {
	s, err := entry.toStruct()
	if err != nil {
		logger.Errorf("replay entry dropped: %v", err)
		return
	}
	rep.pendingChan <- s
}

// Close writes out all pending entries and closes the file.
func (rep *Replay) Close() {
	close(rep.pendingChan)
	<-rep.fileWriterDone
}

func (rep *Replay) fileWriterRoutine() {
	var err error

	defer func() {
		close(rep.fileWriterDone)

		if err != nil {
			logger.Errorf("replay write routine quit unexpectedly: %v", err)
		}
	}()

	defer rep.f.Close()

	for e := range rep.pendingChan {
		var data []byte

		if data, err = marshalOptions.Marshal(e); err != nil {
			break
		}

		if _, err = rep.fileWriter.Write(data); err != nil {
			break
		}

		if _, err = rep.fileWriter.Write([]byte{'\n'}); err != nil {
			break
		}
	}

	if err != nil {
		// drain so that Append never blocks after a write failure
		for range rep.pendingChan {
		}
		return
	}
	err = rep.fileWriter.Flush()
}

// Read calls fn for each entry of the replay file, in file order.
func Read(filename string, fn func(e Entry) error) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(bufio.NewReader(f))
	scanner.Split(bufio.ScanLines)

	line := 0
	for scanner.Scan() {
		line++
		var s structpb.Struct
		if err = unmarshalOptions.Unmarshal(scanner.Bytes(), &s); err != nil {
			return errors.Wrapf(err, "%s:%d", filename, line)
		}
		e, err := entryFromStruct(&s)
		if err != nil {
			return errors.Wrapf(err, "%s:%d", filename, line)
		}
		if err = fn(e); err != nil {
			return err
		}
	}
	return scanner.Err()
}
