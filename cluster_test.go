// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package evalfarm

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/config"
	"github.com/xpe/evalfarm/poll"
	"github.com/xpe/evalfarm/pool"
	"github.com/xpe/evalfarm/remote"
	"github.com/xpe/evalfarm/work"
)

func init() {
	work.RegisterMap("test.inc", func(v interface{}) interface{} { return v.(int) + 1 })
	work.RegisterFilter("test.even", func(v interface{}) bool { return v.(int)%2 == 0 })
	work.RegisterCombine("test.sum", func(a, b interface{}) interface{} { return a.(int) + b.(int) })
	work.RegisterMap("test.boom", func(interface{}) interface{} { panic("boom") })
}

// testConn evaluates units in-process. A failing conn reports a
// severed transport on every execute.
type testConn struct {
	addr     string
	fail     bool
	maxDelay time.Duration

	mu       sync.Mutex
	executed int
	closed   bool
}

func (c *testConn) Execute(ctx context.Context, u work.Unit) (work.Response, error) {
	c.mu.Lock()
	c.executed++
	c.mu.Unlock()
	if c.fail {
		return work.Response{}, errors.E(errors.Net, fmt.Sprintf("%s: connection severed", c.addr))
	}
	if c.maxDelay > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(c.maxDelay))))
	}
	return work.Perform(u), nil
}

func (c *testConn) Addr() string { return c.addr }

func (c *testConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *testConn) Executed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.executed
}

// testDialer hands out testConns, optionally refusing some endpoints
// or handing out conns whose transport fails.
type testDialer struct {
	refuse   map[string]bool
	failing  map[string]bool
	maxDelay time.Duration

	mu    sync.Mutex
	conns map[string][]*testConn
}

func newTestDialer() *testDialer {
	return &testDialer{
		refuse:  make(map[string]bool),
		failing: make(map[string]bool),
		conns:   make(map[string][]*testConn),
	}
}

func (d *testDialer) Dial(ctx context.Context, host string, port int, timeout time.Duration) (remote.Conn, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refuse[addr] {
		return nil, errors.E(errors.Net, fmt.Sprintf("connect %s: refused", addr))
	}
	c := &testConn{addr: addr, fail: d.failing[addr], maxDelay: d.maxDelay}
	d.conns[addr] = append(d.conns[addr], c)
	return c, nil
}

// Conns returns the connections dialed for the i'th test worker.
func (d *testDialer) Conns(i int) []*testConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[testAddr(i)]
}

func testAddr(i int) string { return fmt.Sprintf("mem:%d", 1000+i) }

func testConfig(n int) config.Config {
	c := config.Config{DialTimeout: config.Duration(time.Second)}
	for i := 0; i < n; i++ {
		c.Workers = append(c.Workers, config.Worker{
			Name: fmt.Sprintf("w%d", i),
			Host: "mem",
			Port: 1000 + i,
		})
	}
	return c
}

func testCluster(t *testing.T, n int, d *testDialer) *Cluster {
	t.Helper()
	c, err := Dial(context.Background(), d, testConfig(n))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func fastPickPolicy(t *testing.T) {
	t.Helper()
	saved := pool.PickPolicy
	pool.PickPolicy = poll.Policy{MaxAttempts: 4, Initial: time.Millisecond, Multiplier: 1.25}
	t.Cleanup(func() { pool.PickPolicy = saved })
}

func ints(lo, hi int) []interface{} {
	xs := make([]interface{}, 0, hi-lo)
	for i := lo; i < hi; i++ {
		xs = append(xs, i)
	}
	return xs
}
