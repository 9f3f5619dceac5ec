// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package work defines the units of computation shipped to workers and
// the registry of functions they name. A unit carries no code, only
// the name of a function and the data it applies to; driver and worker
// binaries must register the same functions, which is guaranteed when
// they are registered at package initialization in shared packages.
package work

import (
	"encoding/gob"
	"fmt"

	"github.com/google/uuid"
)

func init() {
	gob.Register([]interface{}{})
	// Scalar payloads are carried in interface-typed fields and must be
	// registered with gob like any other concrete type.
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(string(""))
	gob.Register(bool(false))
}

// An Op determines how a worker applies a unit's function to its
// arguments.
type Op int

const (
	// OpCall applies a map function to the unit's single argument,
	// yielding one value.
	OpCall Op = iota
	// OpMap applies a map function to each argument, yielding the
	// transformed chunk.
	OpMap
	// OpFilter applies a filter function to each argument, yielding the
	// chunk of arguments it accepted.
	OpFilter
	// OpReduce folds the arguments with a combine function, the first
	// argument seeding the accumulator, and yields the result.
	OpReduce
)

func (o Op) String() string {
	switch o {
	case OpCall:
		return "call"
	case OpMap:
		return "map"
	case OpFilter:
		return "filter"
	case OpReduce:
		return "reduce"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// A Unit is one self-contained piece of remote work. Units are
// gob-serialized in their entirety; argument values of types beyond
// the scalars registered by this package must be registered with gob
// by the program.
type Unit struct {
	// ID correlates the unit in driver and worker logs. A unit retains
	// its ID when it is re-dispatched after a worker failure.
	ID   string
	Op   Op
	Func string
	Args []interface{}
}

// NewUnit returns a unit with a fresh ID.
func NewUnit(op Op, fn string, args []interface{}) Unit {
	return Unit{ID: uuid.NewString(), Op: op, Func: fn, Args: args}
}

func (u Unit) String() string {
	return fmt.Sprintf("%s %s/%d [%s]", u.Op, u.Func, len(u.Args), u.ID)
}

// A Response is the envelope a worker returns for one unit: the values
// the evaluation yielded, or a description of why it yielded none.
type Response struct {
	Values  []interface{}
	Failure string
}

// Failed tells whether the evaluation failed on the worker.
func (r Response) Failed() bool { return r.Failure != "" }

func (r Response) String() string {
	if r.Failed() {
		return fmt.Sprintf("failure: %s", r.Failure)
	}
	return fmt.Sprintf("%d values", len(r.Values))
}
