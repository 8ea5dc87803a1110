// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package machine provides the Machine root entity: the partitions,
// explicit node graph, and restriction set every other component
// (C1-C5, the XML codec, the query surface) hangs off of once a build
// pass has run. Grounded on netloc's netloc_machine_t lifecycle in
// topology.c, adapted from a C create/destroy pair to Go construction
// and value ownership.
package machine

import (
	"fmt"
	"os"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
	"github.com/ClusterCockpit/cc-netloc/fabric"
)

// Machine is the root of a discovered (or loaded) HPC topology: every
// partition, the explicit host/switch graph, and the current
// restriction set.
type Machine struct {
	Version string

	Graph      *fabric.Graph
	Partitions []*fabric.Partition

	restriction *fabric.Restriction
}

// New returns an empty Machine with an allocated explicit graph, ready
// for discovery to populate it.
func New() *Machine {
	return &Machine{
		Version: "3.0",
		Graph:   fabric.NewGraph(),
	}
}

// AddPartitions appends partitions to the machine in the given order.
// It does not assign Bitset indices; each partition keeps the Index it
// already carries (e.g. from fabric.Graph.AddPartition).
func (m *Machine) AddPartitions(partitions ...*fabric.Partition) {
	m.Partitions = append(m.Partitions, partitions...)
}

// Partition returns the partition with the given index, or nil.
func (m *Machine) Partition(index int) *fabric.Partition {
	for _, p := range m.Partitions {
		if p.Index == index {
			return p
		}
	}
	return nil
}

// FindNodeByName looks up a node by hostname across the explicit
// graph. It returns nil if no node carries that name.
func (m *Machine) FindNodeByName(name string) *fabric.Node {
	for _, n := range m.Graph.Nodes {
		if n.Hostname == name {
			return n
		}
	}
	return nil
}

// CurrentNode returns the node matching the OS-reported hostname of
// the calling machine, or nil if it has no such node (e.g. when
// inspecting a topology loaded on a different host than it describes).
func (m *Machine) CurrentNode() *fabric.Node {
	hostname, err := os.Hostname()
	if err != nil {
		cclog.Warnf("MACHINE > could not determine hostname: %s", err.Error())
		return nil
	}
	return m.FindNodeByName(hostname)
}

// ErrNoSharedPartition is returned by FindSharedPartition when zero or
// more than one partition contains every listed node.
var ErrNoSharedPartition = fmt.Errorf("machine: no single partition contains all listed nodes")

// FindSharedPartition returns the index of the unique partition whose
// membership bit is set on every node in nodes. It is a hard error
// (ErrNoSharedPartition) if no partition qualifies or more than one
// does — an unpartitioned node can never share a partition with
// anything, per the pinned reading of this operation.
func FindSharedPartition(nodes []*fabric.Node) (int, error) {
	if len(nodes) == 0 {
		return 0, ErrNoSharedPartition
	}

	candidate := -1
	for idx := 0; idx < maxPartitionBit(nodes); idx++ {
		sharedByAll := true
		for _, n := range nodes {
			if !n.Partitions.Test(idx) {
				sharedByAll = false
				break
			}
		}
		if sharedByAll {
			if candidate != -1 {
				return 0, ErrNoSharedPartition
			}
			candidate = idx
		}
	}
	if candidate == -1 {
		return 0, ErrNoSharedPartition
	}
	return candidate, nil
}

func maxPartitionBit(nodes []*fabric.Node) int {
	max := 0
	for _, n := range nodes {
		if w := n.Partitions.WordCount(); w*64 > max {
			max = w * 64
		}
	}
	return max
}
