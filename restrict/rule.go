// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package restrict compiles a declarative restriction predicate over
// node attributes, supplementing the machine package's explicit
// restriction_add_node/restriction_set_nodes API with a rule-based
// form. Grounded on messageProcessor/messageProcessorFuncs.go's
// expr.Run-over-a-map-environment pattern.
package restrict

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Env is the environment a restriction rule expression is evaluated
// against: one node's hostname, type, and partition membership by
// name.
type Env struct {
	Hostname   string
	NodeType   string
	Partitions map[string]bool
}

// Rule is a compiled restriction expression, ready to be matched
// against nodes once bound to the machine's partition list.
type Rule struct {
	program    *vm.Program
	partitions []*fabric.Partition
}

// CompileRule compiles src as a boolean expr-lang/expr program over
// Env. It fails (a structural error) if src does not parse or does
// not type-check as a boolean expression.
func CompileRule(src string) (*Rule, error) {
	program, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("restrict: failed to compile rule: %w", err)
	}
	return &Rule{program: program}, nil
}

// BindPartitions tells the rule which partition names exist, so
// Partitions["name"] resolves correctly per node. It must be called
// before Matches if the rule expression references Partitions.
func (r *Rule) BindPartitions(partitions []*fabric.Partition) {
	r.partitions = partitions
}

// Matches evaluates the rule against a single node.
func (r *Rule) Matches(n *fabric.Node) (bool, error) {
	env := Env{
		Hostname:   n.Hostname,
		NodeType:   n.Type.String(),
		Partitions: make(map[string]bool, len(r.partitions)),
	}
	for _, p := range r.partitions {
		env.Partitions[p.Name] = n.Partitions.Test(p.Index)
	}

	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("restrict: rule evaluation failed for node %s: %w", n.PhysicalID, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("restrict: rule did not evaluate to a bool for node %s", n.PhysicalID)
	}
	return matched, nil
}
