// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package remote

import (
	"fmt"
	"net"
	"net/rpc"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/xpe/evalfarm/metrics"
	"github.com/xpe/evalfarm/work"
)

// executor is the RPC service workers expose. Its single method
// evaluates one work unit.
type executor struct{}

func (executor) Execute(u work.Unit, resp *work.Response) error {
	log.Debug.Printf("remote: execute %s", u)
	*resp = work.Perform(u)
	metrics.Get().WorkerExecutes.WithLabelValues(u.Op.String()).Inc()
	if resp.Failed() {
		log.Error.Printf("remote: %s: %s", u, resp.Failure)
	}
	return nil
}

// Serve runs a worker executor on lis, serving each accepted
// connection on its own goroutine until lis fails.
func Serve(lis net.Listener) error {
	srv := rpc.NewServer()
	if err := srv.RegisterName("Executor", executor{}); err != nil {
		return err
	}
	for {
		conn, err := lis.Accept()
		if err != nil {
			return errors.E(errors.Net, "remote: accept", err)
		}
		go srv.ServeConn(conn)
	}
}

// ListenAndServe runs a worker executor on the given TCP address.
func ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.E(errors.Net, fmt.Sprintf("remote: listen %s", addr), err)
	}
	log.Printf("remote: serving executor on %s", lis.Addr())
	return Serve(lis)
}
