// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config loads the static description of the worker pool: the
// ordered list of worker endpoints and the connection-establishment
// timeout. The pool composition is fixed for the lifetime of a
// cluster; only worker state changes at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/grailbio/base/errors"
	"gopkg.in/yaml.v3"
)

// DefaultDialTimeout applies when the configuration does not specify a
// dial timeout.
const DefaultDialTimeout = 10 * time.Second

// A Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	dur, err := time.ParseDuration(node.Value)
	if err != nil {
		return errors.E(errors.Invalid, fmt.Sprintf("config: bad duration %q", node.Value), err)
	}
	*d = Duration(dur)
	return nil
}

// A Worker describes one remote execution endpoint.
type Worker struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// A Config describes a worker pool.
type Config struct {
	Workers []Worker `yaml:"workers"`
	// DialTimeout bounds the establishment of each worker connection.
	DialTimeout Duration `yaml:"dial_timeout"`
}

// Load reads and validates a pool description from a YAML file:
//
//	dial_timeout: 5s
//	workers:
//	  - {name: w0, host: 10.0.0.1, port: 4640}
//	  - {name: w1, host: 10.0.0.2, port: 4640}
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.E(fmt.Sprintf("config: read %s", path), err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.E(errors.Invalid, fmt.Sprintf("config: parse %s", path), err)
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = Duration(DefaultDialTimeout)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the pool description for structural problems.
func (c Config) Validate() error {
	if len(c.Workers) == 0 {
		return errors.E(errors.Invalid, "config: no workers")
	}
	seen := make(map[string]bool, len(c.Workers))
	for _, w := range c.Workers {
		switch {
		case w.Name == "":
			return errors.E(errors.Invalid, fmt.Sprintf("config: worker %s:%d has no name", w.Host, w.Port))
		case seen[w.Name]:
			return errors.E(errors.Invalid, fmt.Sprintf("config: duplicate worker name %q", w.Name))
		case w.Host == "":
			return errors.E(errors.Invalid, fmt.Sprintf("config: worker %q has no host", w.Name))
		case w.Port <= 0 || w.Port > 65535:
			return errors.E(errors.Invalid, fmt.Sprintf("config: worker %q has bad port %d", w.Name, w.Port))
		}
		seen[w.Name] = true
	}
	return nil
}
