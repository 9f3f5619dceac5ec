// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package demofuncs registers the functions used by the farmeval and
// farmworker demo binaries. Both import it so that drivers and workers
// agree on the registered names.
package demofuncs

import "github.com/xpe/evalfarm/work"

func init() {
	work.RegisterMap("demo.increment", func(v interface{}) interface{} {
		return v.(int) + 1
	})
	work.RegisterMap("demo.square", func(v interface{}) interface{} {
		n := v.(int)
		return n * n
	})
	work.RegisterFilter("demo.even", func(v interface{}) bool {
		return v.(int)%2 == 0
	})
	work.RegisterCombine("demo.sum", func(a, b interface{}) interface{} {
		return a.(int) + b.(int)
	})
	work.RegisterCombine("demo.max", func(a, b interface{}) interface{} {
		if a.(int) > b.(int) {
			return a
		}
		return b
	})
}
