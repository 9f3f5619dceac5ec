// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package evalfarm

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/xpe/evalfarm/work"
)

// Eval dispatches one work unit to a worker selected by load and
// returns the first value it yields.
//
// Transport failures are never surfaced: the failing worker is marked
// disconnected and the unit is re-dispatched, in full, to another
// worker, so execution is at least once. The dispatch loop is
// unbounded; it terminates through selection failing with kind
// errors.Unavailable once no usable worker remains. An evaluation that
// completes without yielding a value fails with kind errors.Remote,
// carrying the worker's raw response, and is not retried.
func (c *Cluster) Eval(ctx context.Context, limit int, unit work.Unit) (interface{}, error) {
	if limit < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("evalfarm: concurrency limit %d; must be at least 1", limit))
	}
	for {
		w, err := c.reg.Pick(ctx, limit)
		if err != nil {
			return nil, err
		}
		conn, err := w.Begin()
		if err != nil {
			// The worker was disconnected between selection and claim.
			continue
		}
		active := c.stats.ActiveTasks.WithLabelValues(w.Name())
		active.Inc()
		resp, err := conn.Execute(ctx, unit)
		if err != nil {
			if errors.Is(errors.Net, err) {
				log.Error.Printf("evalfarm: %s: transport failure, failing over %s: %v", w, unit, err)
				w.MarkDisconnected()
				active.Set(0)
				c.stats.Failovers.WithLabelValues(w.Name()).Inc()
				continue
			}
			w.End()
			active.Dec()
			return nil, err
		}
		w.End()
		active.Dec()
		c.stats.Dispatches.WithLabelValues(w.Name()).Inc()
		if len(resp.Values) == 0 {
			c.stats.RemoteFailures.WithLabelValues(w.Name()).Inc()
			return nil, errors.E(errors.Remote, fmt.Sprintf("evalfarm: %s yielded no value on %s: %s", unit, w, resp))
		}
		return resp.Values[0], nil
	}
}

// Call evaluates the registered map function fn on a single value.
func (c *Cluster) Call(ctx context.Context, limit int, fn string, arg interface{}) (interface{}, error) {
	return c.Eval(ctx, limit, work.NewUnit(work.OpCall, fn, []interface{}{arg}))
}
