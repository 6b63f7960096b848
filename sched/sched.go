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

// Package sched implements a cooperative round-robin scheduler for resumable tasks.
//
// A task is an explicit state machine: a resume function receives the state the task was left
// in and returns the state it suspends at. The scheduler stores one state value per task and
// resumes every task exactly once per pass, in the order the tasks were added. Tasks share
// data only through the context value handed to every resume call.
package sched

import (
	"context"

	"github.com/pkg/errors"

	"github.com/meshsense/meshnode/logger"
)

// State is a task's resumption point. Every task starts at Start.
type State uint8

const (
	Start State = 0
)

// ResumeFunc runs a task from state st until its next suspension point and returns that point.
// It must not loop without reaching a suspension point, or every later task starves.
type ResumeFunc[C any] func(c *C, st State) State

type task[C any] struct {
	name   string
	resume ResumeFunc[C]
	state  State
}

// Scheduler resumes a fixed, ordered list of tasks over a shared context of type C.
type Scheduler[C any] struct {
	ctx     *C
	tasks   []*task[C]
	passes  uint64
	started bool
}

// New creates a scheduler whose tasks share ctx.
func New[C any](ctx *C) *Scheduler[C] {
	logger.AssertNotNil(ctx)
	return &Scheduler[C]{
		ctx: ctx,
	}
}

// Add appends a task to the pass order. Tasks can only be added before the first pass.
func (s *Scheduler[C]) Add(name string, resume ResumeFunc[C]) {
	logger.AssertFalsef(s.started, "task %s added after scheduling started", name)
	for _, t := range s.tasks {
		logger.AssertTruef(t.name != name, "duplicate task name %s", name)
	}
	s.tasks = append(s.tasks, &task[C]{
		name:   name,
		resume: resume,
		state:  Start,
	})
}

// RunPass resumes every task once, in order.
func (s *Scheduler[C]) RunPass() {
	s.started = true
	for _, t := range s.tasks {
		t.state = t.resume(s.ctx, t.state)
	}
	s.passes++
}

// Run executes passes until ctx is done or stop returns a non-nil error after a pass.
// stop may be nil.
func (s *Scheduler[C]) Run(ctx context.Context, stop func() error) error {
	done := ctx.Done()
	for {
		select {
		case <-done:
			return ctx.Err()
		default:
		}

		s.RunPass()

		if stop != nil {
			if err := stop(); err != nil {
				return errors.Wrapf(err, "scheduler stopped after %d passes", s.passes)
			}
		}
	}
}

// Passes returns the number of completed passes.
func (s *Scheduler[C]) Passes() uint64 {
	return s.passes
}

// TaskNames returns the task names in pass order.
func (s *Scheduler[C]) TaskNames() []string {
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.name
	}
	return names
}

// TaskState returns the current resumption state of the named task.
func (s *Scheduler[C]) TaskState(name string) (State, bool) {
	for _, t := range s.tasks {
		if t.name == name {
			return t.state, true
		}
	}
	return Start, false
}
