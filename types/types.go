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

package types

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/simonlingoogle/go-simplelogger"
)

// NodeId is the 8-bit identity a node uses on the radio link.
type NodeId = uint8

// SimNodeId identifies one node instance inside a simulation, independent of its (changeable) NodeId.
type SimNodeId = int

const (
	// BroadcastNodeId is the reserved destination meaning "all nodes in range".
	BroadcastNodeId NodeId = 0x00
	// UnprogrammedNodeId is the value read from erased non-volatile storage.
	UnprogrammedNodeId NodeId = 0xff

	InvalidSimNodeId SimNodeId = 0
	MaxSimNodeId     SimNodeId = 0xffff
)

const (
	// Ever is a tick timestamp that is never reached.
	Ever uint64 = math.MaxUint64

	// DefaultTickPeriod is the period of the hardware timer that advances the soft timers.
	DefaultTickPeriod = 10 * time.Millisecond
)

// Role selects which periodic behaviors and message handling branches a node runs.
// It is fixed for the lifetime of a firmware instance.
type Role int

const (
	RoleTag    Role = 0 ///< Leaf sensor.
	RoleRouter Role = 1 ///< Relay and aggregator.
	RoleAnchor Role = 2 ///< Sink that consumes aggregated results.
)

const (
	TAG    = "tag"
	ROUTER = "router"
	ANCHOR = "anchor"
)

func (r Role) String() string {
	switch r {
	case RoleTag:
		return TAG
	case RoleRouter:
		return ROUTER
	case RoleAnchor:
		return ANCHOR
	default:
		simplelogger.Panicf("invalid node role: %d", int(r))
		return "invalid"
	}
}

// ParseRole parses a role name as used in the CLI and in YAML scenario files.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case TAG, "t":
		return RoleTag, nil
	case ROUTER, "r":
		return RoleRouter, nil
	case ANCHOR, "a":
		return RoleAnchor, nil
	default:
		return RoleTag, errors.Errorf("invalid node role: %s", s)
	}
}

// MarshalYAML encodes the role by name.
func (r Role) MarshalYAML() (interface{}, error) {
	return r.String(), nil
}

// UnmarshalYAML decodes a role name.
func (r *Role) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	role, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// GetNodeName returns the display name of a simulated node.
func GetNodeName(id SimNodeId) string {
	return "node" + strconv.Itoa(id)
}
