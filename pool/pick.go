// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"math/rand"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/poll"
)

// PickPolicy governs how long selection waits for a worker to become
// available before giving up.
var PickPolicy = poll.Policy{
	MaxAttempts: 10,
	Initial:     100 * time.Millisecond,
	Multiplier:  1.25,
}

// Pick selects the worker to receive the next unit of work. It polls
// Available under PickPolicy until the set is non-empty, then picks
// uniformly at random among the least-loaded candidates. If no worker
// becomes available within the backoff window, Pick fails with kind
// errors.Unavailable, reporting the time waited.
func (r *Registry) Pick(ctx context.Context, limit int) (*Worker, error) {
	ws, err := poll.Until(ctx, PickPolicy,
		func() []*Worker { return r.Available(limit) },
		func(ws []*Worker) bool { return len(ws) > 0 },
	)
	if err != nil {
		return nil, errors.E(errors.Unavailable, "pool: no available worker", err)
	}
	// The shuffle breaks ties among equally loaded workers uniformly.
	rand.Shuffle(len(ws), func(i, j int) { ws[i], ws[j] = ws[j], ws[i] })
	best, bestActive := ws[0], ws[0].Active()
	for _, w := range ws[1:] {
		if active := w.Active(); active < bestActive {
			best, bestActive = w, active
		}
	}
	return best, nil
}
