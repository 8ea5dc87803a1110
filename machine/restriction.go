// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package machine

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
)

// AlreadyInRestriction reports that a node was added to the current
// restriction twice.
type AlreadyInRestriction struct {
	Node fabric.PhysicalID
}

func (e *AlreadyInRestriction) Error() string {
	return fmt.Sprintf("machine: node %s is already in the restriction", e.Node)
}

// restrictionSet lazily allocates the machine's active restriction set.
func (m *Machine) restrictionSet() *fabric.Restriction {
	if m.restriction == nil {
		m.restriction = fabric.NewRestriction("current")
	}
	return m.restriction
}

// Restriction returns the machine's current restriction set, or nil if
// no node has ever been restricted.
func (m *Machine) Restriction() *fabric.Restriction {
	return m.restriction
}

// RestrictionAddNode adds a single node to the current restriction.
// It fails with *AlreadyInRestriction if the node is already a member.
func (m *Machine) RestrictionAddNode(n *fabric.Node) error {
	if !m.restrictionSet().Add(n) {
		return &AlreadyInRestriction{Node: n.PhysicalID}
	}
	return nil
}

// RestrictionSetNodes replaces the current restriction wholesale with
// exactly the given nodes. Unlike RestrictionAddNode it never fails
// because a node was already in the previous restriction — it builds a
// fresh restriction from scratch — but it reports AlreadyInRestriction
// if the same node PhysicalID appears twice in the slice, and then
// leaves the current restriction unchanged.
func (m *Machine) RestrictionSetNodes(nodes []*fabric.Node) error {
	fresh := fabric.NewRestriction("current")
	for _, n := range nodes {
		if !fresh.Add(n) {
			return &AlreadyInRestriction{Node: n.PhysicalID}
		}
	}
	m.restriction = fresh
	return nil
}

// RestrictionRule is a compiled restriction predicate, evaluated per
// node by RestrictByRule. It supplements
// RestrictionAddNode/RestrictionSetNodes with a declarative form.
type RestrictionRule interface {
	Matches(n *fabric.Node) (bool, error)
}

// RestrictByRule evaluates r over every host node and restricts each
// match, stopping at the first rule-evaluation error. It is additive
// sugar over RestrictionAddNode, not a replacement: nodes already
// restricted by a prior call are left alone rather than re-added.
func (m *Machine) RestrictByRule(r RestrictionRule) error {
	for _, n := range m.Graph.Nodes {
		if n.Type != fabric.NodeHost {
			continue
		}
		ok, err := r.Matches(n)
		if err != nil {
			return fmt.Errorf("machine: restriction rule evaluation failed for node %s: %w", n.PhysicalID, err)
		}
		if !ok {
			continue
		}
		if err := m.RestrictionAddNode(n); err != nil {
			if _, already := err.(*AlreadyInRestriction); already {
				continue
			}
			return err
		}
	}
	return nil
}
