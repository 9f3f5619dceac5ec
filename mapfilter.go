// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package evalfarm

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/work"
)

// EOF is returned by Seq.Next when the sequence is exhausted. It is a
// sentinel: it signals a graceful end, never an actual failure.
var EOF = stderrors.New("EOF")

// A Seq is a finite, single-pass sequence of values produced by Map or
// Filter. Every chunk it draws from was dispatched when the sequence
// was created; Next realizes results lazily and in input chunk order
// while later chunks keep computing in the background. A Seq must not
// be used from multiple goroutines concurrently.
type Seq struct {
	tasks []*chunkTask
	buf   []interface{}
	err   error
}

type chunkTask struct {
	donec  chan struct{}
	values []interface{}
	err    error
}

// Map applies the registered map function fn to every element of xs,
// partitioned into consecutive chunks of at most chunkSize elements,
// one remote evaluation per chunk. All chunks are dispatched eagerly
// at call time; the returned sequence yields exactly what local
// elementwise application of fn would, in order.
func (c *Cluster) Map(ctx context.Context, limit, chunkSize int, fn string, xs []interface{}) *Seq {
	return c.parallel(ctx, work.OpMap, limit, chunkSize, fn, xs)
}

// Filter is Map's counterpart for the registered filter function fn:
// the returned sequence yields the elements of xs that fn accepts, in
// order.
func (c *Cluster) Filter(ctx context.Context, limit, chunkSize int, fn string, xs []interface{}) *Seq {
	return c.parallel(ctx, work.OpFilter, limit, chunkSize, fn, xs)
}

func (c *Cluster) parallel(ctx context.Context, op work.Op, limit, chunkSize int, fn string, xs []interface{}) *Seq {
	if limit < 1 {
		return &Seq{err: errors.E(errors.Invalid, fmt.Sprintf("evalfarm: concurrency limit %d; must be at least 1", limit))}
	}
	if chunkSize < 1 {
		return &Seq{err: errors.E(errors.Invalid, fmt.Sprintf("evalfarm: chunk size %d; must be at least 1", chunkSize))}
	}
	chunks := partition(xs, chunkSize)
	tasks := make([]*chunkTask, len(chunks))
	for i := range chunks {
		unit := work.NewUnit(op, fn, chunks[i])
		t := &chunkTask{donec: make(chan struct{})}
		tasks[i] = t
		c.stats.Chunks.WithLabelValues(op.String()).Inc()
		go func() {
			defer close(t.donec)
			v, err := c.Eval(ctx, limit, unit)
			if err != nil {
				t.err = err
				return
			}
			values, ok := v.([]interface{})
			if !ok {
				t.err = errors.E(errors.Remote, fmt.Sprintf("evalfarm: %s yielded %T, want a chunk", unit, v))
				return
			}
			t.values = values
		}()
	}
	return &Seq{tasks: tasks}
}

// Next returns the next value of the sequence, waiting for its chunk
// if it has not yet completed. It returns EOF once the sequence is
// exhausted. A chunk dispatch error is returned when that chunk's
// place in the order is reached, and poisons the rest of the sequence.
func (s *Seq) Next(ctx context.Context) (interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	for len(s.buf) == 0 {
		if len(s.tasks) == 0 {
			return nil, EOF
		}
		t := s.tasks[0]
		select {
		case <-t.donec:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if t.err != nil {
			s.err = t.err
			return nil, s.err
		}
		s.tasks = s.tasks[1:]
		s.buf = t.values
	}
	v := s.buf[0]
	s.buf = s.buf[1:]
	return v, nil
}

// Collect drains the remainder of the sequence into a slice.
func (s *Seq) Collect(ctx context.Context) ([]interface{}, error) {
	vs := []interface{}{}
	for {
		v, err := s.Next(ctx)
		if err == EOF {
			return vs, nil
		}
		if err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
}

// partition splits xs into consecutive chunks of at most n elements.
// The chunks alias xs.
func partition(xs []interface{}, n int) [][]interface{} {
	chunks := make([][]interface{}, 0, (len(xs)+n-1)/n)
	for len(xs) > n {
		chunks = append(chunks, xs[:n:n])
		xs = xs[n:]
	}
	if len(xs) > 0 {
		chunks = append(chunks, xs)
	}
	return chunks
}
