// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package remote

import (
	"context"
	"fmt"
	"net"
	"net/rpc"
	"strconv"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/xpe/evalfarm/work"
)

// NewDialer returns the production dialer, which connects to worker
// executors over TCP and speaks Go's rpc protocol (gob-encoded).
func NewDialer() Dialer {
	return rpcDialer{}
}

type rpcDialer struct{}

func (rpcDialer) Dial(ctx context.Context, host string, port int, timeout time.Duration) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	nc, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.E(errors.Net, fmt.Sprintf("remote: connect %s", addr), err)
	}
	return &rpcConn{addr: addr, client: rpc.NewClient(nc)}, nil
}

type rpcConn struct {
	addr   string
	client *rpc.Client
}

func (c *rpcConn) Addr() string { return c.addr }

func (c *rpcConn) Execute(ctx context.Context, u work.Unit) (work.Response, error) {
	var resp work.Response
	call := c.client.Go("Executor.Execute", u, &resp, nil)
	select {
	case <-ctx.Done():
		return work.Response{}, ctx.Err()
	case <-call.Done:
	}
	if call.Error != nil {
		if _, ok := call.Error.(rpc.ServerError); ok {
			// The worker received the call and replied with an error of
			// its own; the connection is intact.
			return work.Response{}, errors.E(errors.Remote, fmt.Sprintf("remote: execute %s on %s", u, c.addr), call.Error)
		}
		return work.Response{}, errors.E(errors.Net, fmt.Sprintf("remote: execute %s on %s", u, c.addr), call.Error)
	}
	return resp, nil
}

func (c *rpcConn) Close() error {
	return c.client.Close()
}
