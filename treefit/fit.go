// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package treefit

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/metrics"
)

// Result is what Fit produces for a partition: the fitted tree
// topology plus each host's position within it, keyed by the host's
// physical id.
type Result struct {
	Topology  *fabric.Topology
	Positions map[fabric.PhysicalID]fabric.Position
}

// Fit attempts to fit the subgraph reachable from hosts, restricted to
// partitionIndex, to a balanced tree. hosts must be every host node
// that belongs to the partition; it returns a *NotATreeError if the
// graph contains a cycle or any node reachable at two different
// levels from the hosts.
//
// mc may be nil; when given, it counts the attempt by outcome.
func Fit(hosts []*fabric.Node, partitionIndex int, mc *metrics.Collectors) (result *Result, err error) {
	if mc != nil {
		defer func() {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			mc.FitAttemptsTotal.WithLabelValues(outcome).Inc()
		}()
	}

	if len(hosts) == 0 {
		return nil, fmt.Errorf("treefit: no hosts given")
	}

	nodeLevel, upEdges, numLevels, err := assignLevels(hosts, partitionIndex)
	if err != nil {
		return nil, err
	}
	for _, h := range hosts {
		if _, ok := nodeLevel[h]; !ok {
			return nil, &NotATreeError{Node: h.PhysicalID}
		}
	}

	// A single host, or hosts with no switch tier above them, form a
	// degenerate tree: NDims 0, and only the first host is placed.
	if len(hosts) == 1 || numLevels < 2 {
		return &Result{
			Topology: &fabric.Topology{Kind: fabric.TopologyTree, NDims: 0},
			Positions: map[fabric.PhysicalID]fabric.Position{
				hosts[0].PhysicalID: {Index: 0, Coords: nil},
			},
		}, nil
	}

	ndims := numLevels - 1
	downDegreesByLevel := make([][]int, numLevels)
	dims := make([]int, ndims)

	recordDegree := func(level, numEdges int) {
		idx := numLevels - 1 - level
		downDegreesByLevel[idx] = append(downDegreesByLevel[idx], numEdges)
		if idx < ndims && numEdges > dims[idx] {
			dims[idx] = numEdges
		}
	}

	root := hosts[0]
	var orderedHosts []*fabric.Node
	orderedHosts = append(orderedHosts, root)

	var downEdgeStack []*fabric.Edge
	var upEdge *fabric.Edge
	for _, e := range root.Edges {
		if inPartition(e.Partitions, partitionIndex) && upEdges[e] {
			upEdge = e
			break
		}
	}

	for {
		if len(downEdgeStack) > 0 {
			edge := downEdgeStack[len(downEdgeStack)-1]
			downEdgeStack = downEdgeStack[:len(downEdgeStack)-1]
			dest := edge.Dest

			if dest.Type == fabric.NodeHost {
				orderedHosts = append(orderedHosts, dest)
				continue
			}

			numEdges := 0
			for _, e := range dest.Edges {
				if !inPartition(e.Partitions, partitionIndex) {
					continue
				}
				if !upEdges[e] {
					downEdgeStack = append(downEdgeStack, e)
					numEdges++
				}
			}
			recordDegree(nodeLevel[dest], numEdges)
			continue
		}

		if upEdge == nil {
			break
		}
		if !inPartition(upEdge.Partitions, partitionIndex) {
			break
		}

		upNode := upEdge.Dest
		cameFrom := upEdge.Source
		var newUpEdge *fabric.Edge
		numEdges := 0
		for _, e := range upNode.Edges {
			if !inPartition(e.Partitions, partitionIndex) {
				continue
			}
			if e.Dest == cameFrom {
				numEdges++
				continue
			}
			if !upEdges[e] {
				downEdgeStack = append(downEdgeStack, e)
				numEdges++
			} else {
				newUpEdge = e
			}
		}
		recordDegree(nodeLevel[upNode], numEdges)
		upEdge = newUpEdge
	}

	archIdx := completeTree(downDegreesByLevel, dims, len(orderedHosts))

	costs := make([]float64, ndims)
	if ndims > 0 {
		const networkCoeff = 2
		costs[ndims-1] = 1
		for i := ndims - 2; i >= 0; i-- {
			costs[i] = costs[i+1] * networkCoeff
		}
	}

	positions := make(map[fabric.PhysicalID]fabric.Position, len(orderedHosts))
	for i, h := range orderedHosts {
		positions[h.PhysicalID] = fabric.Position{
			Index:  archIdx[i],
			Coords: idxToCoords(archIdx[i], dims),
		}
	}

	return &Result{
		Topology: &fabric.Topology{
			Kind:  fabric.TopologyTree,
			NDims: ndims,
			Dims:  dims,
			Costs: costs,
		},
		Positions: positions,
	}, nil
}
