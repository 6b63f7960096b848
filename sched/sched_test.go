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

package sched

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type testCtx struct {
	trace []string
	flag  bool
	count int
}

const (
	waitFlag State = iota
	waitCount
)

// waiter blocks on flag, then on count reaching 3, then starts over.
func waiter(c *testCtx, st State) State {
	for {
		switch st {
		case waitFlag:
			if !c.flag {
				return st
			}
			c.trace = append(c.trace, "flag")
			c.flag = false
			c.count = 0
			st = waitCount
		case waitCount:
			if c.count < 3 {
				return st
			}
			c.trace = append(c.trace, "count")
			st = waitFlag
		}
	}
}

func counter(c *testCtx, st State) State {
	c.count++
	return st
}

func TestScheduler_Order(t *testing.T) {
	c := &testCtx{}
	s := New(c)
	s.Add("a", func(c *testCtx, st State) State { c.trace = append(c.trace, "a"); return st })
	s.Add("b", func(c *testCtx, st State) State { c.trace = append(c.trace, "b"); return st })
	s.Add("c", func(c *testCtx, st State) State { c.trace = append(c.trace, "c"); return st })

	s.RunPass()
	s.RunPass()
	assert.Equal(t, []string{"a", "b", "c", "a", "b", "c"}, c.trace)
	assert.Equal(t, uint64(2), s.Passes())
	assert.Equal(t, []string{"a", "b", "c"}, s.TaskNames())
}

func TestScheduler_SuspendAndResume(t *testing.T) {
	c := &testCtx{}
	s := New(c)
	s.Add("waiter", waiter)
	s.Add("counter", counter)

	s.RunPass()
	st, ok := s.TaskState("waiter")
	assert.True(t, ok)
	assert.Equal(t, waitFlag, st)
	assert.Empty(t, c.trace)

	c.flag = true
	s.RunPass()
	st, _ = s.TaskState("waiter")
	assert.Equal(t, waitCount, st)
	assert.Equal(t, []string{"flag"}, c.trace)

	// counter runs after waiter in each pass: count is 1, 2, 3 at the end of passes.
	s.RunPass()
	s.RunPass()
	assert.Equal(t, []string{"flag"}, c.trace)
	s.RunPass()
	assert.Equal(t, []string{"flag", "count"}, c.trace)
	st, _ = s.TaskState("waiter")
	assert.Equal(t, waitFlag, st)
}

func TestScheduler_UnknownTask(t *testing.T) {
	s := New(&testCtx{})
	_, ok := s.TaskState("nope")
	assert.False(t, ok)
}

func TestScheduler_AddAfterStartPanics(t *testing.T) {
	s := New(&testCtx{})
	s.Add("a", counter)
	s.RunPass()
	assert.Panics(t, func() {
		s.Add("b", counter)
	})
}

func TestScheduler_DuplicateNamePanics(t *testing.T) {
	s := New(&testCtx{})
	s.Add("a", counter)
	assert.Panics(t, func() {
		s.Add("a", counter)
	})
}

func TestScheduler_RunStop(t *testing.T) {
	c := &testCtx{}
	s := New(c)
	s.Add("counter", counter)

	stopErr := errors.New("enough")
	err := s.Run(context.Background(), func() error {
		if c.count == 10 {
			return stopErr
		}
		return nil
	})
	assert.True(t, errors.Is(err, stopErr))
	assert.Equal(t, 10, c.count)
	assert.Equal(t, uint64(10), s.Passes())
}

func TestScheduler_RunCancelled(t *testing.T) {
	s := New(&testCtx{})
	s.Add("counter", counter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx, nil)
	assert.Equal(t, context.Canceled, err)
	assert.Equal(t, uint64(0), s.Passes())
}
