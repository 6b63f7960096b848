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

package radiomodel

import "math"

// DbValue is a power level or gain in dB or dBm.
type DbValue = float64

const (
	RssiInvalid       DbValue = 127
	RssiMax           DbValue = 126
	RssiMin           DbValue = -126
	RssiMinusInfinity DbValue = -127

	// DefaultTxPowerDbm is the transmit power of the node radios (CC1101-class, 0 dBm).
	DefaultTxPowerDbm DbValue = 0.0

	// DefaultRxSensitivityDbm is the weakest signal a radio still decodes.
	DefaultRxSensitivityDbm DbValue = -100.0

	defaultMeterPerUnit float64 = 0.10
)

// RadioModelParams stores model parameters for the radio model.
type RadioModelParams struct {
	MeterPerUnit float64 // the distance in meters, equivalent to a single distance unit(pixel)
	ExponentDb   DbValue // the exponent (dB) of the path loss model
	FixedLossDb  DbValue // the fixed loss (dB) term of the path loss model
}

// newIndoorModelParams returns the ITU-T indoor model for the 868 MHz band.
func newIndoorModelParams() *RadioModelParams {
	return &RadioModelParams{
		MeterPerUnit: defaultMeterPerUnit,
		ExponentDb:   30.0,
		FixedLossDb:  paround(20.0*math.Log10(868) - 28.0),
	}
}

// custom parameter rounding function
func paround(param float64) float64 {
	return math.Round(param*100.0) / 100.0
}

// computeIndoorRssi computes the RSSI for a receiver at distance dist, using a simple indoor exponent loss model.
// See https://en.wikipedia.org/wiki/ITU_model_for_indoor_attenuation
func computeIndoorRssi(dist float64, txPower DbValue, modelParams *RadioModelParams) DbValue {
	pathloss := 0.0
	distMeters := dist * modelParams.MeterPerUnit
	if distMeters >= 0.01 {
		pathloss = modelParams.ExponentDb*math.Log10(distMeters) + modelParams.FixedLossDb
		if pathloss < 0.0 {
			pathloss = 0.0
		}
	}
	return txPower - pathloss
}

func clipRssi(rssi DbValue) int8 {
	if rssi > RssiMax {
		rssi = RssiMax
	} else if rssi < RssiMin {
		rssi = RssiMinusInfinity
	}
	return int8(math.Round(rssi))
}
