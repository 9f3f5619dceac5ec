// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package evalfarm distributes units of computation across a fixed
// pool of remote execution workers, balancing load by each worker's
// count of in-flight tasks and failing over automatically when a
// worker's transport fails.
//
// A cluster is created from a static pool description and exposes four
// primitives, all built on one dispatch operation: Call evaluates a
// single value remotely; Map and Filter partition a sequence into
// chunks, evaluate each chunk on a worker, and reassemble the results
// lazily in input order; Reduce folds chunks remotely in parallel and
// combines the partial results locally.
//
// Work units carry no code. Driver and worker binaries register the
// same named functions (see package work), and the wire carries only a
// function name, an operation, and gob-encoded data.
//
// Execution is at-least-once: a unit dispatched to a worker whose
// transport fails is re-sent, in full, to another worker. Functions
// must therefore be pure, and combine functions associative. There is
// no cancellation of work already running on a worker; a disconnected
// worker rejoins the pool only through an explicit Reconnect.
package evalfarm
