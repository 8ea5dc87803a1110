// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package query is the read-only surface over a built or loaded
// machine: topology dimensions, a node's fitted coordinates, and
// restriction-aware node lookup. It never mutates the machine.
package query

import (
	"errors"
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/machine"
)

// PartitionRef selects which partition a query targets: a fixed index,
// or Current (the partition of the machine's current-hostname node).
type PartitionRef struct {
	index   int
	current bool
}

// PartitionIndex selects partition idx explicitly.
func PartitionIndex(idx int) PartitionRef {
	return PartitionRef{index: idx}
}

// Current selects the partition of the machine's current-hostname node.
var Current = PartitionRef{current: true}

// Filter scopes a query. A nil Filter means "the queried node's unique
// partition" (see resolvePartition); a non-nil Filter with
// IncludeRestrictedOnly set narrows node listings to the machine's
// current restriction.
type Filter struct {
	Partition             PartitionRef
	IncludeRestrictedOnly bool
}

// ErrAmbiguousPartition is returned when a node's unique partition is
// requested but the node belongs to zero or several partitions.
var ErrAmbiguousPartition = errors.New("query: node does not belong to exactly one partition")

// ErrNoCurrentNode is returned when a query needs the machine's
// current-hostname node but none is found in the graph.
var ErrNoCurrentNode = errors.New("query: machine has no current-hostname node")

// ErrPartitionNotFound is returned for a partition index outside the
// machine's declared range.
var ErrPartitionNotFound = errors.New("query: partition not found")

// resolvePartition applies filter against the machine and, where the
// filter is silent on a node, against n (may be nil when the query has
// no node of its own, e.g. GetTopology).
func resolvePartition(m *machine.Machine, filter *Filter, n *fabric.Node) (int, error) {
	if filter == nil {
		if n == nil {
			return 0, fmt.Errorf("%w: no node given and no filter to select a partition", ErrPartitionNotFound)
		}
		return uniquePartition(n)
	}
	if filter.Partition.current {
		cur := m.CurrentNode()
		if cur == nil {
			return 0, ErrNoCurrentNode
		}
		return uniquePartition(cur)
	}
	if m.Partition(filter.Partition.index) == nil {
		return 0, fmt.Errorf("%w: index %d", ErrPartitionNotFound, filter.Partition.index)
	}
	return filter.Partition.index, nil
}

func uniquePartition(n *fabric.Node) (int, error) {
	bits := n.Partitions.Bits()
	if len(bits) != 1 {
		return 0, fmt.Errorf("%w: node %s belongs to %d partitions", ErrAmbiguousPartition, n.PhysicalID, len(bits))
	}
	return bits[0], nil
}
