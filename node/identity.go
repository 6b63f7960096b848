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

package node

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/hal"
	. "github.com/meshsense/meshnode/types"
)

// ErrStorageFatal reports a node id write that failed even after erasing the block.
var ErrStorageFatal = errors.New("non-volatile storage write failed")

// storageError is ErrStorageFatal with the flash error that caused it.
type storageError struct {
	id    NodeId
	addr  uint16
	cause error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%v: write node id 0x%02X at 0x%04X: %v", ErrStorageFatal, e.id, e.addr, e.cause)
}

func (e *storageError) Is(target error) bool {
	return target == ErrStorageFatal
}

func (e *storageError) Unwrap() error {
	return e.cause
}

// AssignIdentity cancels the pending identity request and persists id as the node identity.
// A write to a non-erased cell is retried once after erasing the containing block.
func (c *Context) AssignIdentity(id NodeId) error {
	c.timers.Disable(TimerIdInput)

	addr := c.cfg.NodeIdAddr
	err := c.board.Flash.Write(addr, id)
	if errors.Is(err, hal.ErrNotErased) {
		c.log.Debugf("flash cell 0x%04X not erased, erasing block", addr)
		if err = c.board.Flash.EraseBlock(addr); err == nil {
			err = c.board.Flash.Write(addr, id)
		}
	}
	if err != nil {
		return &storageError{id: id, addr: addr, cause: err}
	}

	c.nodeId = id
	c.stats.IdAssignments++
	c.log.Infof("node id is now 0x%02X", id)
	return nil
}

// UpdateRouterIdentity sets the router identity and reports whether it changed.
func (c *Context) UpdateRouterIdentity(id NodeId) bool {
	if c.routerId == id {
		return false
	}
	c.log.Infof("router id 0x%02X -> 0x%02X", c.routerId, id)
	c.routerId = id
	c.stats.RouterChanges++
	return true
}

func (c *Context) loadIdentity() {
	v, err := c.board.Flash.Read(c.cfg.NodeIdAddr)
	if err != nil {
		c.log.Warnf("read node id: %v, using default 0x%02X", err, c.cfg.DefaultNodeId)
		v = UnprogrammedNodeId
	}
	if v == UnprogrammedNodeId {
		c.nodeId = c.cfg.DefaultNodeId
	} else {
		c.nodeId = v
	}
	c.routerId = c.cfg.DefaultRouterId
}
