// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Farmworker runs one evalfarm worker: an executor to which drivers
// dispatch work units. The functions a worker can apply are the ones
// registered in its binary; this one carries the demo functions.
//
// Usage:
//
//	farmworker -addr :4640 [-metrics :9090]
package main

import (
	"flag"
	"net/http"

	"github.com/grailbio/base/log"
	"github.com/xpe/evalfarm/metrics"
	"github.com/xpe/evalfarm/remote"

	_ "github.com/xpe/evalfarm/internal/demofuncs"
)

func main() {
	var (
		addr        = flag.String("addr", ":4640", "address on which to serve the executor")
		metricsAddr = flag.String("metrics", "", "if set, address on which to serve Prometheus metrics")
	)
	log.AddFlags()
	flag.Parse()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			log.Printf("farmworker: serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error.Printf("farmworker: metrics: %v", err)
			}
		}()
	}
	if err := remote.ListenAndServe(*addr); err != nil {
		log.Fatalf("farmworker: %v", err)
	}
}
