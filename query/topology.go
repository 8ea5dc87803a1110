// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"errors"
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/machine"
)

// ErrNoTopology is returned when the selected partition has not been
// fitted to an abstract topology yet.
var ErrNoTopology = errors.New("query: partition has no fitted topology")

// FlatTopology is a partition's recursive fabric.Topology flattened
// into parallel arrays, one slot per dimension across every nested
// level: Dims[LevelIdx[l]:LevelIdx[l+1]] and the matching slices of
// Types/Costs are level l's own dimension sizes, per-dimension kind,
// and per-dimension cost. LevelIdx has NumLevels+1 entries, the last
// equal to NumCoords.
type FlatTopology struct {
	NumLevels int
	NumCoords int
	Dims      []int
	Types     []int
	LevelIdx  []int
	Costs     []float64
}

// GetTopology flattens the topology fitted to the partition selected
// by filter. A nil filter resolves via Current (get_topology has no
// node of its own to fall back on for a "unique partition" guess).
func GetTopology(m *machine.Machine, filter *Filter) (*FlatTopology, error) {
	if filter == nil {
		filter = &Filter{Partition: Current}
	}
	idx, err := resolvePartition(m, filter, nil)
	if err != nil {
		return nil, err
	}
	p := m.Partition(idx)
	if p == nil {
		return nil, fmt.Errorf("%w: index %d", ErrPartitionNotFound, idx)
	}
	if p.Topology == nil {
		return nil, fmt.Errorf("%w: partition %d (%s)", ErrNoTopology, idx, p.Name)
	}

	ft := &FlatTopology{LevelIdx: []int{0}}
	for t := p.Topology; t != nil; t = t.Sub {
		ft.NumLevels++
		ft.Dims = append(ft.Dims, t.Dims...)
		ft.Costs = append(ft.Costs, t.Costs...)
		for range t.Dims {
			ft.Types = append(ft.Types, int(t.Kind))
		}
		ft.NumCoords += t.NDims
		ft.LevelIdx = append(ft.LevelIdx, ft.NumCoords)
	}
	return ft, nil
}

// GetNodeCoords returns node's fitted coordinate vector for the
// partition selected by filter. Position entries line up with the
// ascending order of a node's set partition bits (the one-partition
// host case, the only one the fitter ever produces, resolves
// trivially); a node with a bit set but no corresponding position
// (e.g. a switch that was never fitted) reports ErrNoTopology.
func GetNodeCoords(m *machine.Machine, filter *Filter, node *fabric.Node) ([]int, error) {
	idx, err := resolvePartition(m, filter, node)
	if err != nil {
		return nil, err
	}
	if !node.Partitions.Test(idx) {
		return nil, fmt.Errorf("query: node %s is not a member of partition %d", node.PhysicalID, idx)
	}
	slot := 0
	for _, bit := range node.Partitions.Bits() {
		if bit == idx {
			break
		}
		slot++
	}
	if slot >= len(node.Positions) {
		return nil, fmt.Errorf("%w: node %s has no fitted position for partition %d", ErrNoTopology, node.PhysicalID, idx)
	}
	return node.Positions[slot].Coords, nil
}
