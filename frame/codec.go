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
	"encoding/binary"

	"github.com/pkg/errors"

	. "github.com/meshsense/meshnode/types"
)

const (
	ReadingLen = 2

	// RESULTS content: [count:1] then count records of 4 bytes starting at content offset 1:
	//   [source:1][reading:2][pad:1]
	// so readings sit at stride 4 from content offset 2.
	resultsCountOffset  = 0
	resultsRecordOffset = 1
	resultsRecordLen    = 4

	// MaxResults is the number of records that fit in one RESULTS frame.
	MaxResults = (ContentLen - resultsRecordOffset) / resultsRecordLen
)

var (
	ErrNoResults       = errors.New("results payload has no records")
	ErrTooManyResults  = errors.New("too many result records for one frame")
	ErrNotResultsFrame = errors.New("not a RESULTS frame")
)

// PutReading encodes a signed reading into b[0:2] in wire (big-endian) order.
func PutReading(b []byte, reading int16) {
	binary.BigEndian.PutUint16(b[:ReadingLen], uint16(reading))
}

// Reading decodes a signed reading from b[0:2] in wire (big-endian) order.
func Reading(b []byte) int16 {
	return int16(binary.BigEndian.Uint16(b[:ReadingLen]))
}

// Record is one per-node reading inside a RESULTS frame.
type Record struct {
	Source  NodeId
	Reading int16
}

// MakeResults builds a RESULTS frame carrying recs.
func (f *Frame) MakeResults(src, dest NodeId, recs []Record) error {
	if len(recs) == 0 {
		return ErrNoResults
	}
	if len(recs) > MaxResults {
		return errors.Wrapf(ErrTooManyResults, "%d records, max %d", len(recs), MaxResults)
	}

	f.Init(src)
	f.SetType(TypeResults)
	f.SetDest(dest)
	content := f.Content()
	content[resultsCountOffset] = byte(len(recs))
	for i, rec := range recs {
		off := resultsRecordOffset + i*resultsRecordLen
		content[off] = rec.Source
		PutReading(content[off+1:], rec.Reading)
	}
	return nil
}

// Results decodes the records of a RESULTS frame. A zero count is rejected with ErrNoResults.
func (f *Frame) Results() ([]Record, error) {
	if f.Type() != TypeResults {
		return nil, ErrNotResultsFrame
	}

	content := f.Content()
	n := int(content[resultsCountOffset])
	if n == 0 {
		return nil, ErrNoResults
	}
	if n > MaxResults {
		return nil, errors.Wrapf(ErrTooManyResults, "count %d, max %d", n, MaxResults)
	}

	recs := make([]Record, n)
	for i := range recs {
		off := resultsRecordOffset + i*resultsRecordLen
		recs[i] = Record{
			Source:  content[off],
			Reading: Reading(content[off+1:]),
		}
	}
	return recs, nil
}

// Mean returns the arithmetic mean of the readings. An empty slice is rejected with ErrNoResults.
func Mean(recs []Record) (float64, error) {
	if len(recs) == 0 {
		return 0, ErrNoResults
	}
	sum := 0
	for _, r := range recs {
		sum += int(r.Reading)
	}
	return float64(sum) / float64(len(recs)), nil
}
