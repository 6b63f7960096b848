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

package cli

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	. "github.com/meshsense/meshnode/types"
)

// getUniqueAndSorted returns a unique-ID'd and sorted version of []NodeSelector.
func getUniqueAndSorted(input []NodeSelector) []NodeSelector {
	m := make(map[int]struct{}, len(input))
	u := make([]int, 0, len(input))
	for _, ns := range input {
		if _, ok := m[ns.Id]; ok {
			continue
		}
		m[ns.Id] = struct{}{}
		u = append(u, ns.Id)
	}
	sort.Ints(u)

	n := make([]NodeSelector, 0, len(u))
	for _, id := range u {
		n = append(n, NodeSelector{Id: id})
	}
	return n
}

// parseByte parses a decimal or 0x-prefixed byte value.
func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, errors.Errorf("invalid byte value %s", s)
	}
	return byte(v), nil
}

// parseNodeId parses a firmware node identity; the broadcast address is not a valid identity.
func parseNodeId(s string) (NodeId, error) {
	b, err := parseByte(s)
	if err != nil {
		return 0, err
	}
	if b == BroadcastNodeId {
		return 0, errors.Errorf("node id 0x%02X is reserved for broadcast", b)
	}
	return b, nil
}

// unquote strips the quotes of a string argument, if the lexer left them in place.
func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}
