// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package metrics defines the Prometheus instrumentation for the
// dispatch pipeline and the worker executor.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultRegistry is the registry behind Get and Handler.
var DefaultRegistry = prometheus.NewRegistry()

var (
	once sync.Once
	m    *Metrics
)

// Metrics holds the collectors for one process, driver or worker.
type Metrics struct {
	// Dispatches counts units dispatched successfully, per worker.
	Dispatches *prometheus.CounterVec
	// Failovers counts transport failures that caused a unit to be
	// re-dispatched, per worker that failed.
	Failovers *prometheus.CounterVec
	// RemoteFailures counts evaluations that completed without yielding
	// a value, per worker.
	RemoteFailures *prometheus.CounterVec
	// ActiveTasks tracks in-flight dispatches, per worker.
	ActiveTasks *prometheus.GaugeVec
	// Chunks counts chunks submitted by map, filter, and reduce.
	Chunks *prometheus.CounterVec
	// WorkerExecutes counts units executed by this process's executor.
	WorkerExecutes *prometheus.CounterVec
}

// Get returns the process-wide metrics, registered on DefaultRegistry.
func Get() *Metrics {
	once.Do(func() {
		m = New(DefaultRegistry)
	})
	return m
}

// New creates the collector set on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Dispatches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evalfarm_dispatches_total",
			Help: "Work units dispatched successfully.",
		}, []string{"worker"}),
		Failovers: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evalfarm_dispatch_failovers_total",
			Help: "Transport failures that caused a unit to be re-dispatched.",
		}, []string{"worker"}),
		RemoteFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evalfarm_remote_failures_total",
			Help: "Remote evaluations that yielded no value.",
		}, []string{"worker"}),
		ActiveTasks: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "evalfarm_active_tasks",
			Help: "In-flight dispatches per worker.",
		}, []string{"worker"}),
		Chunks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evalfarm_chunks_total",
			Help: "Chunks submitted by parallel operations.",
		}, []string{"op"}),
		WorkerExecutes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "evalfarm_worker_executes_total",
			Help: "Units executed by this process's executor.",
		}, []string{"op"}),
	}
}

// Handler serves DefaultRegistry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{})
}
