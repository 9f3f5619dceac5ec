// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package poll implements bounded polling with exponential backoff: a
// producer is invoked repeatedly until a predicate accepts its result,
// with geometrically increasing delays between attempts.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/retry"
)

// delayCap bounds individual delays for retry.Backoff. It is large
// enough that no realistic policy reaches it.
const delayCap = 24 * time.Hour

// A Policy determines how many attempts are made and how long to wait
// between them. Delays follow the sequence Initial, Initial*Multiplier,
// Initial*Multiplier², and so on.
type Policy struct {
	// MaxAttempts is the total number of producer invocations made
	// before giving up.
	MaxAttempts int
	// Initial is the delay after the first unaccepted result.
	Initial time.Duration
	// Multiplier scales the delay after each attempt. It must be
	// greater than 1.
	Multiplier float64
}

// Until invokes produce until ok accepts its result, in which case the
// result is returned immediately. Unaccepted results are retried per
// policy p; when all attempts are exhausted, Until returns an error
// with kind errors.Timeout reporting the total time waited. A policy
// with Multiplier <= 1 or MaxAttempts < 1 is rejected up front with
// kind errors.Invalid. Context cancellation interrupts the wait
// between attempts.
func Until[T any](ctx context.Context, p Policy, produce func() T, ok func(T) bool) (T, error) {
	var zero T
	if p.Multiplier <= 1 {
		return zero, errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("poll: multiplier %v; must be greater than 1", p.Multiplier))
	}
	if p.MaxAttempts < 1 {
		return zero, errors.E(errors.Invalid, errors.Fatal,
			fmt.Sprintf("poll: max attempts %d; must be at least 1", p.MaxAttempts))
	}
	var (
		policy = retry.Backoff(p.Initial, delayCap, p.Multiplier)
		start  = time.Now()
	)
	for n := 0; ; n++ {
		if v := produce(); ok(v) {
			return v, nil
		}
		if n == p.MaxAttempts-1 {
			break
		}
		if err := retry.Wait(ctx, policy, n); err != nil {
			return zero, err
		}
	}
	return zero, errors.E(errors.Timeout,
		fmt.Sprintf("poll: no acceptable result after %d attempts (waited %s)", p.MaxAttempts, time.Since(start)))
}
