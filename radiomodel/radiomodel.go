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

// Package radiomodel decides which radios hear a transmission and at what RSSI.
package radiomodel

import (
	"github.com/pkg/errors"

	. "github.com/meshsense/meshnode/types"
)

// RadioModel is the interface of a radio propagation model.
type RadioModel interface {
	AddNode(nodeid SimNodeId, radioNode *RadioNode)
	DeleteNode(nodeid SimNodeId)

	// CheckRadioReachable checks if the src radio can reach the dst radio with a frame right now.
	CheckRadioReachable(src *RadioNode, dst *RadioNode) bool

	// GetTxRssi returns the RSSI in dBm at dst for a frame sent by src.
	GetTxRssi(src *RadioNode, dst *RadioNode) int8

	GetName() string
}

// NewRadioModel creates a new RadioModel with given name.
func NewRadioModel(modelName string) (RadioModel, error) {
	var model RadioModel
	switch modelName {
	case "Ideal", "I", "1":
		model = &RadioModelIdeal{
			Name:      "Ideal",
			FixedRssi: -60,
		}
	case "Ideal_Rssi", "IR", "2", "default":
		model = &RadioModelIdeal{
			Name:            "Ideal_Rssi",
			UseVariableRssi: true,
			params:          newIndoorModelParams(),
		}
	default:
		return nil, errors.Errorf("unknown radio model %q", modelName)
	}
	model.(*RadioModelIdeal).init()
	return model, nil
}
