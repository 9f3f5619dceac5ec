// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package evalfarm

import (
	"context"
	"fmt"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/xpe/evalfarm/config"
	"github.com/xpe/evalfarm/metrics"
	"github.com/xpe/evalfarm/pool"
	"github.com/xpe/evalfarm/remote"
)

// A Cluster is a handle on a pool of connected workers. Its methods
// are safe for concurrent use; the worker registry is the only shared
// mutable state between concurrent dispatches.
type Cluster struct {
	reg    *pool.Registry
	dialer remote.Dialer
	cfg    config.Config
	stats  *metrics.Metrics
}

// Dial connects to every worker described by cfg and returns a cluster
// ready for evaluation. Workers are dialed concurrently; if any dial
// fails, Dial closes the connections already established and fails.
func Dial(ctx context.Context, dialer remote.Dialer, cfg config.Config) (*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.DialTimeout)
	if timeout == 0 {
		timeout = config.DefaultDialTimeout
	}
	workers := make([]*pool.Worker, len(cfg.Workers))
	err := traverse.Each(len(cfg.Workers), func(i int) error {
		wc := cfg.Workers[i]
		conn, err := dialer.Dial(ctx, wc.Host, wc.Port, timeout)
		if err != nil {
			return errors.E(fmt.Sprintf("evalfarm: connect worker %s", wc.Name), err)
		}
		workers[i] = pool.NewWorker(wc.Name, wc.Host, wc.Port, conn)
		return nil
	})
	if err != nil {
		for _, w := range workers {
			if w != nil {
				w.MarkDisconnected()
			}
		}
		return nil, err
	}
	reg, err := pool.NewRegistry(workers)
	if err != nil {
		for _, w := range workers {
			w.MarkDisconnected()
		}
		return nil, err
	}
	log.Printf("evalfarm: connected %d workers", len(workers))
	return &Cluster{reg: reg, dialer: dialer, cfg: cfg, stats: metrics.Get()}, nil
}

// Registry returns the cluster's worker registry.
func (c *Cluster) Registry() *pool.Registry { return c.reg }

// Reconnect establishes a new connection to the named worker and makes
// it selectable again with an empty task count. If the connection
// cannot be established within the configured dial timeout, Reconnect
// fails and the worker remains disconnected. Reconnection is never
// automatic.
func (c *Cluster) Reconnect(ctx context.Context, name string) error {
	w, ok := c.reg.Get(name)
	if !ok {
		return errors.E(errors.NotExist, fmt.Sprintf("evalfarm: no worker %q", name))
	}
	conn, err := c.dialer.Dial(ctx, w.Host(), w.Port(), time.Duration(c.cfg.DialTimeout))
	if err != nil {
		return errors.E(fmt.Sprintf("evalfarm: reconnect worker %s", name), err)
	}
	w.Reconnect(conn)
	log.Printf("evalfarm: reconnected worker %s", w)
	return nil
}

// Close disconnects every worker. In-flight dispatches fail over and
// then fail with no available worker.
func (c *Cluster) Close() error {
	for _, w := range c.reg.Workers() {
		w.MarkDisconnected()
	}
	return nil
}
