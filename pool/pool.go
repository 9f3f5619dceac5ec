// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package pool implements the shared worker registry: a fixed set of
// remote execution workers with per-worker connection state and
// in-flight task counts, and load-aware selection over them.
package pool

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/remote"
)

// A Worker is one remote execution endpoint. Its mutable state is
// guarded by a per-worker mutex so that unrelated workers never
// contend.
type Worker struct {
	name string
	host string
	port int

	mu        sync.Mutex
	conn      remote.Conn
	connected bool
	active    int
}

// NewWorker returns a worker for the given endpoint, connected through
// conn.
func NewWorker(name, host string, port int, conn remote.Conn) *Worker {
	return &Worker{name: name, host: host, port: port, conn: conn, connected: conn != nil}
}

// Name returns the worker's unique name.
func (w *Worker) Name() string { return w.name }

// Host returns the worker's host.
func (w *Worker) Host() string { return w.host }

// Port returns the worker's port.
func (w *Worker) Port() int { return w.port }

func (w *Worker) String() string {
	return fmt.Sprintf("%s (%s:%d)", w.name, w.host, w.port)
}

// Connected tells whether the worker currently holds a connection.
func (w *Worker) Connected() bool {
	connected, _ := w.state()
	return connected
}

// Active returns the number of in-flight dispatches assigned to w.
func (w *Worker) Active() int {
	_, active := w.state()
	return active
}

func (w *Worker) state() (connected bool, active int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected, w.active
}

// Begin atomically claims one task slot on w and hands out the
// connection to use for it. It fails if the worker was disconnected
// after it was selected; the caller then selects again.
func (w *Worker) Begin() (remote.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected {
		return nil, errors.E(errors.Unavailable, fmt.Sprintf("pool: worker %s is disconnected", w.name))
	}
	w.active++
	return w.conn, nil
}

// End releases a task slot claimed by Begin. It is a no-op on a
// disconnected worker: MarkDisconnected already reset the count.
func (w *Worker) End() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.connected || w.active == 0 {
		return
	}
	w.active--
}

// MarkDisconnected records a transport failure: the connection handle
// is closed and dropped and the in-flight count reset. The worker is
// excluded from selection until Reconnect installs a new connection.
func (w *Worker) MarkDisconnected() {
	w.mu.Lock()
	conn := w.conn
	w.conn, w.connected, w.active = nil, false, 0
	w.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Reconnect installs a newly established connection, making the worker
// selectable again with no in-flight tasks.
func (w *Worker) Reconnect(conn remote.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn, w.connected, w.active = conn, true, 0
}

// A Registry is the shared table of workers, mapped by name. The set
// of workers is fixed at construction; only their state changes. All
// methods are safe for concurrent use.
type Registry struct {
	workers map[string]*Worker
	names   []string
}

// NewRegistry returns a registry over the given workers. Worker names
// must be unique.
func NewRegistry(workers []*Worker) (*Registry, error) {
	r := &Registry{workers: make(map[string]*Worker, len(workers))}
	for _, w := range workers {
		if _, ok := r.workers[w.name]; ok {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("pool: duplicate worker name %q", w.name))
		}
		r.workers[w.name] = w
		r.names = append(r.names, w.name)
	}
	return r, nil
}

// Get returns the named worker.
func (r *Registry) Get(name string) (*Worker, bool) {
	w, ok := r.workers[name]
	return w, ok
}

// Workers returns all workers in their configured order.
func (r *Registry) Workers() []*Worker {
	ws := make([]*Worker, len(r.names))
	for i, name := range r.names {
		ws[i] = r.workers[name]
	}
	return ws
}

// Connected returns a snapshot of the currently connected workers.
func (r *Registry) Connected() []*Worker {
	ws := make([]*Worker, 0, len(r.names))
	for _, name := range r.names {
		if w := r.workers[name]; w.Connected() {
			ws = append(ws, w)
		}
	}
	return ws
}

// Available returns the connected workers with spare capacity under
// the given per-worker concurrency limit.
func (r *Registry) Available(limit int) []*Worker {
	ws := make([]*Worker, 0, len(r.names))
	for _, name := range r.names {
		w := r.workers[name]
		if connected, active := w.state(); connected && active < limit {
			ws = append(ws, w)
		}
	}
	return ws
}
