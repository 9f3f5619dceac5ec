// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package evalfarm

import (
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/work"
	"golang.org/x/sync/errgroup"
)

// Reduce folds xs with the registered combine function fn. The input
// is partitioned into consecutive chunks of at most chunkSize
// elements; every chunk is dispatched concurrently and folded remotely
// with its first element as the initial accumulator, and the partial
// results are folded locally in chunk order. fn must be associative
// for the result to be independent of chunkSize; the same function
// must also be registered in the driver, which performs the final
// fold. Reduce blocks until all chunk dispatches complete.
func (c *Cluster) Reduce(ctx context.Context, limit, chunkSize int, fn string, xs []interface{}) (interface{}, error) {
	if limit < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("evalfarm: concurrency limit %d; must be at least 1", limit))
	}
	if chunkSize < 1 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("evalfarm: chunk size %d; must be at least 1", chunkSize))
	}
	if len(xs) == 0 {
		return nil, errors.E(errors.Invalid, "evalfarm: reduce of empty input")
	}
	var (
		chunks   = partition(xs, chunkSize)
		partials = make([]interface{}, len(chunks))
		g, gctx  = errgroup.WithContext(ctx)
	)
	for i := range chunks {
		i := i
		c.stats.Chunks.WithLabelValues(work.OpReduce.String()).Inc()
		g.Go(func() error {
			v, err := c.Eval(gctx, limit, work.NewUnit(work.OpReduce, fn, chunks[i]))
			if err != nil {
				return err
			}
			partials[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	acc := partials[0]
	for _, v := range partials[1:] {
		var err error
		acc, err = work.Combine(fn, acc, v)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}
