// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Farmeval is a demo driver: it dials the worker pool described by a
// YAML configuration and runs a map, a filter, and a reduce over a
// range of integers. The workers must carry the demo functions, as
// farmworker does.
//
// Usage:
//
//	farmeval -config farm.yaml [-limit 5] [-chunk 100] [-n 1000]
package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/grailbio/base/log"
	"github.com/xpe/evalfarm"
	"github.com/xpe/evalfarm/config"
	"github.com/xpe/evalfarm/remote"

	_ "github.com/xpe/evalfarm/internal/demofuncs"
)

func main() {
	var (
		configPath = flag.String("config", "farm.yaml", "worker pool description")
		limit      = flag.Int("limit", 5, "per-worker concurrency limit")
		chunkSize  = flag.Int("chunk", 100, "elements per chunk")
		n          = flag.Int("n", 1000, "size of the input range")
	)
	log.AddFlags()
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	cluster, err := evalfarm.Dial(ctx, remote.NewDialer(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer cluster.Close()

	xs := make([]interface{}, *n)
	for i := range xs {
		xs[i] = i
	}

	squares, err := cluster.Map(ctx, *limit, *chunkSize, "demo.square", xs).Collect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("squared %d values; last: %v\n", len(squares), squares[len(squares)-1])

	evens, err := cluster.Filter(ctx, *limit, *chunkSize, "demo.even", xs).Collect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("kept %d even values\n", len(evens))

	sum, err := cluster.Reduce(ctx, *limit, *chunkSize, "demo.sum", xs)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("sum: %v\n", sum)
}
