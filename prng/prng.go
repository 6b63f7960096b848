// Copyright (c) 2024, The OTNS Authors.
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

// Package prng owns the simulator's pseudo random generators, so a run with a fixed seed is
// reproducible.
package prng

import (
	"math/rand"
	"time"
)

type RandomSeed int64

var newNodeRandSeedGenerator *rand.Rand
var unitRandGenerator *rand.Rand
var failTimeRandGenerator *rand.Rand

func init() {
	Init(1)
}

// Init initializes the prng package, either with a fixed PRNG seed (rootSeed != 0) or a 'random' time-based PRNG
// seed (if rootSeed == 0).
func Init(rootSeed int64) {
	if rootSeed == 0 {
		rootSeed = time.Now().UnixNano()
	}
	root := rand.New(rand.NewSource(rootSeed))

	newNodeRandSeedGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	unitRandGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
	failTimeRandGenerator = rand.New(rand.NewSource(rootSeed + root.Int63n(1e10)))
}

// NewNodeRandomSeed generates unique random-seeds for newly created nodes.
func NewNodeRandomSeed() RandomSeed {
	return RandomSeed(newNodeRandSeedGenerator.Int63())
}

// NewRand creates a generator for one node from a seed obtained by NewNodeRandomSeed.
func NewRand(seed RandomSeed) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}

// NewUnitRandom generates a new random unit [0, 1) float, which can be used as a random probability.
func NewUnitRandom() float64 {
	return unitRandGenerator.Float64()
}

// NewFailTime picks when, in [0, failStartTimeMax), the next radio outage of a fail cycle starts.
func NewFailTime(failStartTimeMax int) uint64 {
	return uint64(failTimeRandGenerator.Intn(failStartTimeMax))
}
