// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package remote is the boundary to the remote execution service: it
// defines how connections to workers are established and how work
// units are submitted over them, together with the production
// implementation over Go's rpc package on TCP.
//
// Transport-level failures, where the connection to a worker is found
// severed, carry the error kind errors.Net and are distinguished from
// ordinary evaluation failures, which travel inside the response
// envelope. The dispatch layer relies on this distinction for
// failover.
package remote

import (
	"context"
	"time"

	"github.com/xpe/evalfarm/work"
)

// A Conn is an established connection to one worker. A Conn is owned
// by exactly one worker registry entry and is discarded, never reused,
// after a transport failure.
type Conn interface {
	// Execute submits u to the worker and blocks until it replies. The
	// call has no deadline of its own; it returns when the worker
	// replies, when the transport fails (kind errors.Net), or when ctx
	// is done. The unit keeps running remotely in the latter case.
	Execute(ctx context.Context, u work.Unit) (work.Response, error)
	// Addr returns the worker's network address.
	Addr() string
	// Close releases the connection.
	Close() error
}

// A Dialer establishes connections to workers. Dialing is network I/O
// and always happens outside the worker registry, which only stores
// the resulting Conn.
type Dialer interface {
	// Dial connects to the worker at host:port, failing with kind
	// errors.Net if no connection can be established within timeout.
	Dial(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error)
}
