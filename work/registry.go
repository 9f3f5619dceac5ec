// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package work

import (
	"fmt"
	"sync"

	"github.com/grailbio/base/errors"
)

// A MapFunc transforms one value. Map functions must be pure: a unit
// may be re-executed in full on a different worker after a failure.
type MapFunc func(interface{}) interface{}

// A FilterFunc reports whether a value should be kept.
type FilterFunc func(interface{}) bool

// A CombineFunc combines two values into one. Combine functions must
// be associative: chunks are folded independently and the partial
// results folded again.
type CombineFunc func(a, b interface{}) interface{}

var (
	fnMu  sync.Mutex
	funcs = make(map[string]interface{})
)

func register(name string, fn interface{}) {
	if name == "" {
		panic("work: registered func with empty name")
	}
	fnMu.Lock()
	defer fnMu.Unlock()
	if _, ok := funcs[name]; ok {
		panic(fmt.Sprintf("work: func %q already registered", name))
	}
	funcs[name] = fn
}

func lookup(name string) (interface{}, bool) {
	fnMu.Lock()
	defer fnMu.Unlock()
	fn, ok := funcs[name]
	return fn, ok
}

// RegisterMap registers fn under the given name for use by OpCall and
// OpMap units. Names are global to the process; registering the same
// name twice panics. As with gob types, registration belongs in
// package initialization so that driver and worker binaries agree.
func RegisterMap(name string, fn MapFunc) { register(name, fn) }

// RegisterFilter registers fn for use by OpFilter units.
func RegisterFilter(name string, fn FilterFunc) { register(name, fn) }

// RegisterCombine registers fn for use by OpReduce units and by the
// driver's final fold.
func RegisterCombine(name string, fn CombineFunc) { register(name, fn) }

// Combine applies the registered combine function name to a and b. The
// driver uses it for the final fold over per-chunk partial results.
func Combine(name string, a, b interface{}) (interface{}, error) {
	fn, ok := lookup(name)
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("work: combine func %q not registered", name))
	}
	f, ok := fn.(CombineFunc)
	if !ok {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("work: func %q is not a combine func", name))
	}
	return f(a, b), nil
}

// Perform executes u locally, applying its registered function to its
// arguments per its op. Evaluation problems of any sort, including a
// panicking registered function, are reported in the response
// envelope: Perform itself never fails.
func Perform(u Unit) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			resp = Response{Failure: fmt.Sprintf("%s: panic during evaluation: %v", u, p)}
		}
	}()
	fn, ok := lookup(u.Func)
	if !ok {
		return Response{Failure: fmt.Sprintf("%s: func not registered", u)}
	}
	switch u.Op {
	case OpCall:
		f, ok := fn.(MapFunc)
		if !ok {
			return Response{Failure: fmt.Sprintf("%s: func is not a map func", u)}
		}
		if len(u.Args) != 1 {
			return Response{Failure: fmt.Sprintf("%s: call requires exactly one argument", u)}
		}
		return Response{Values: []interface{}{f(u.Args[0])}}
	case OpMap:
		f, ok := fn.(MapFunc)
		if !ok {
			return Response{Failure: fmt.Sprintf("%s: func is not a map func", u)}
		}
		values := make([]interface{}, len(u.Args))
		for i, arg := range u.Args {
			values[i] = f(arg)
		}
		return Response{Values: []interface{}{values}}
	case OpFilter:
		f, ok := fn.(FilterFunc)
		if !ok {
			return Response{Failure: fmt.Sprintf("%s: func is not a filter func", u)}
		}
		kept := make([]interface{}, 0, len(u.Args))
		for _, arg := range u.Args {
			if f(arg) {
				kept = append(kept, arg)
			}
		}
		return Response{Values: []interface{}{kept}}
	case OpReduce:
		f, ok := fn.(CombineFunc)
		if !ok {
			return Response{Failure: fmt.Sprintf("%s: func is not a combine func", u)}
		}
		if len(u.Args) == 0 {
			return Response{Failure: fmt.Sprintf("%s: reduce of empty chunk", u)}
		}
		acc := u.Args[0]
		for _, arg := range u.Args[1:] {
			acc = f(acc, arg)
		}
		return Response{Values: []interface{}{acc}}
	}
	return Response{Failure: fmt.Sprintf("%s: invalid op", u)}
}
