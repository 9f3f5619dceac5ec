// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/poll"
)

func fastPickPolicy(t *testing.T) {
	t.Helper()
	saved := PickPolicy
	PickPolicy = poll.Policy{MaxAttempts: 4, Initial: time.Millisecond, Multiplier: 1.25}
	t.Cleanup(func() { PickPolicy = saved })
}

func TestPickLeastLoaded(t *testing.T) {
	ctx := context.Background()
	r, ws := testRegistry(t, 3)
	// w0 and w1 carry load; w2 is idle and must always win.
	for _, w := range ws[:2] {
		if _, err := w.Begin(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 50; i++ {
		w, err := r.Pick(ctx, 5)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := w, ws[2]; got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPickBreaksTiesRandomly(t *testing.T) {
	ctx := context.Background()
	r, ws := testRegistry(t, 2)
	picked := make(map[*Worker]int)
	for i := 0; i < 200; i++ {
		w, err := r.Pick(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		picked[w]++
	}
	for _, w := range ws {
		if picked[w] == 0 {
			t.Errorf("worker %s never picked", w)
		}
	}
}

func TestPickExcludesDisconnected(t *testing.T) {
	ctx := context.Background()
	r, ws := testRegistry(t, 2)
	ws[0].MarkDisconnected()
	for i := 0; i < 20; i++ {
		w, err := r.Pick(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := w, ws[1]; got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPickExcludesLoaded(t *testing.T) {
	ctx := context.Background()
	r, ws := testRegistry(t, 2)
	const limit = 3
	for i := 0; i < limit; i++ {
		if _, err := ws[0].Begin(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 20; i++ {
		w, err := r.Pick(ctx, limit)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := w, ws[1]; got != want {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestPickTimesOut(t *testing.T) {
	fastPickPolicy(t)
	ctx := context.Background()
	r, ws := testRegistry(t, 2)
	for _, w := range ws {
		w.MarkDisconnected()
	}
	start := time.Now()
	_, err := r.Pick(ctx, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(errors.Unavailable, err) {
		t.Errorf("expected unavailable, got %v", err)
	}
	// The full backoff window must elapse: three delays of at least the
	// initial delay each.
	if elapsed := time.Since(start); elapsed < 3*PickPolicy.Initial {
		t.Errorf("gave up too early: %s", elapsed)
	}
}

// TestPickRecovers verifies that selection blocked on a fully loaded
// pool succeeds once capacity frees up within the backoff window.
func TestPickRecovers(t *testing.T) {
	ctx := context.Background()
	r, ws := testRegistry(t, 1)
	if _, err := ws[0].Begin(); err != nil {
		t.Fatal(err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		ws[0].End()
	}()
	w, err := r.Pick(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := w, ws[0]; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}
