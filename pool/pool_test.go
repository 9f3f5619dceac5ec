// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pool

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/xpe/evalfarm/remote"
	"github.com/xpe/evalfarm/work"
)

// stubConn is a connection handle that records whether it was closed.
// The pool never performs I/O on connections; it only owns them.
type stubConn struct {
	addr string

	mu     sync.Mutex
	closed bool
}

func (c *stubConn) Execute(ctx context.Context, u work.Unit) (work.Response, error) {
	return work.Perform(u), nil
}

func (c *stubConn) Addr() string { return c.addr }

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testRegistry(t *testing.T, n int) (*Registry, []*Worker) {
	t.Helper()
	workers := make([]*Worker, n)
	for i := range workers {
		name := fmt.Sprintf("w%d", i)
		workers[i] = NewWorker(name, "localhost", 4640+i, &stubConn{addr: name})
	}
	r, err := NewRegistry(workers)
	if err != nil {
		t.Fatal(err)
	}
	return r, workers
}

func TestRegistryDuplicateName(t *testing.T) {
	_, err := NewRegistry([]*Worker{
		NewWorker("w0", "a", 1, &stubConn{}),
		NewWorker("w0", "b", 2, &stubConn{}),
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestConnectedAvailable(t *testing.T) {
	r, ws := testRegistry(t, 3)
	if got, want := len(r.Connected()), 3; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	ws[1].MarkDisconnected()
	if got, want := len(r.Connected()), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	// Load w0 up to the limit; only w2 remains available.
	for i := 0; i < 2; i++ {
		if _, err := ws[0].Begin(); err != nil {
			t.Fatal(err)
		}
	}
	avail := r.Available(2)
	if got, want := len(avail), 1; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got, want := avail[0], ws[2]; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	// At a higher limit, w0 has spare capacity again.
	if got, want := len(r.Available(3)), 2; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBeginEnd(t *testing.T) {
	_, ws := testRegistry(t, 1)
	w := ws[0]
	conn, err := w.Begin()
	if err != nil {
		t.Fatal(err)
	}
	if conn == nil {
		t.Fatal("no connection")
	}
	if got, want := w.Active(), 1; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	w.End()
	if got, want := w.Active(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	// End never drives the count negative.
	w.End()
	if got, want := w.Active(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBeginDisconnected(t *testing.T) {
	_, ws := testRegistry(t, 1)
	ws[0].MarkDisconnected()
	if _, err := ws[0].Begin(); err == nil {
		t.Fatal("expected error")
	}
}

func TestMarkDisconnected(t *testing.T) {
	_, ws := testRegistry(t, 1)
	w := ws[0]
	conn, err := w.Begin()
	if err != nil {
		t.Fatal(err)
	}
	w.MarkDisconnected()
	if w.Connected() {
		t.Error("still connected")
	}
	if got, want := w.Active(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if !conn.(*stubConn).Closed() {
		t.Error("connection not closed")
	}
	// A stale End from a dispatch that was in flight when the worker
	// failed must not disturb the reset count.
	w.End()
	if got, want := w.Active(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	w.Reconnect(&stubConn{addr: "w0"})
	if !w.Connected() {
		t.Error("not connected")
	}
	if got, want := w.Active(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestCounterRaces exercises concurrent increments and decrements of a
// single worker's task count; run with -race.
func TestCounterRaces(t *testing.T) {
	const (
		G = 16
		N = 1000
	)
	_, ws := testRegistry(t, 1)
	w := ws[0]
	var wg sync.WaitGroup
	for g := 0; g < G; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < N; i++ {
				if _, err := w.Begin(); err != nil {
					t.Error(err)
					return
				}
				if w.Active() < 1 {
					t.Error("active count below in-flight dispatches")
					return
				}
				w.End()
			}
		}()
	}
	wg.Wait()
	if got, want := w.Active(), 0; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

var _ remote.Conn = (*stubConn)(nil)
