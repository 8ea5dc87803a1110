// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package treefit fits a partition's host/switch graph to a balanced
// tree topology: a BFS from the hosts upward assigns each node a
// level (failing if the graph isn't actually a tree), a DFS from the
// root back down produces the canonical leaf ordering and per-level
// fan-out, and ghost leaves are inserted wherever a subtree's fan-out
// falls short of that level's maximum so every real host still gets a
// coordinate in a rectangular index space. Grounded on
// utils/netloc/topology/tree.c's partition_topology_to_tleaf /
// netloc_arch_tree_complete.
package treefit

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
)

// NotATreeError reports that a partition's graph contains a cycle (or
// a node reachable at two different levels), so it cannot be fit to a
// tree topology.
type NotATreeError struct {
	Node fabric.PhysicalID
}

func (e *NotATreeError) Error() string {
	return fmt.Sprintf("treefit: node %s reached at two different levels, graph is not a tree", e.Node)
}

func inPartition(bits fabric.Bitset, partitionIndex int) bool {
	return bits.Test(partitionIndex)
}

// assignLevels runs the hosts-upward BFS, returning each node's level
// (0 at the hosts) and the set of edges it climbed to get there ("up"
// edges — the edges never visited by the BFS are the tree's "down"
// edges, explored later by the DFS).
func assignLevels(hosts []*fabric.Node, partitionIndex int) (map[*fabric.Node]int, map[*fabric.Edge]bool, int, error) {
	nodeLevel := make(map[*fabric.Node]int)
	upEdge := make(map[*fabric.Edge]bool)

	current := make([]*fabric.Node, len(hosts))
	copy(current, hosts)
	level := 0

	for len(current) > 0 {
		var next []*fabric.Node
		seen := make(map[*fabric.Node]bool)

		for _, n := range current {
			if lv, ok := nodeLevel[n]; ok && lv != level {
				return nil, nil, 0, &NotATreeError{Node: n.PhysicalID}
			}
			nodeLevel[n] = level

			for _, edge := range n.Edges {
				if !inPartition(edge.Partitions, partitionIndex) {
					continue
				}
				dest := edge.Dest
				if dl, ok := nodeLevel[dest]; ok && dl < level {
					continue // an up edge back to an already-visited lower level
				}
				if dl, ok := nodeLevel[dest]; !ok || dl != level {
					upEdge[edge] = true
					if !seen[dest] {
						seen[dest] = true
						next = append(next, dest)
					}
				}
			}
		}

		level++
		current = next
	}

	return nodeLevel, upEdge, level, nil
}

// completeTree runs netloc_arch_tree_complete: it inserts a negative
// "ghost" degree wherever a node's fan-out falls short of its level's
// maximum, then walks the completed last level to compute each real
// host's position in the now-rectangular index space.
func completeTree(downDegreesByLevel [][]int, dims []int, numHosts int) []int {
	ndims := len(dims)
	for l := 0; l < ndims-1; l++ {
		degrees := downDegreesByLevel[l]
		maxDegree := dims[l]
		downLevelMaxDegree := dims[l+1]

		downLevelIdx := 0
		next := make([]int, 0, len(downDegreesByLevel[l+1]))
		next = append(next, downDegreesByLevel[l+1]...)

		for _, degree := range degrees {
			if degree > 0 {
				downLevelIdx += degree
				if degree < maxDegree {
					missing := (degree - maxDegree) * downLevelMaxDegree
					next = insertAt(next, downLevelIdx, missing)
					downLevelIdx++
				}
			} else {
				missing := degree * downLevelMaxDegree
				next = insertAt(next, downLevelIdx, missing)
				downLevelIdx++
			}
		}
		downDegreesByLevel[l+1] = next
	}

	degrees := downDegreesByLevel[ndims-1]
	maxDegree := dims[ndims-1]
	archIdx := make([]int, numHosts)
	ghostIdx := 0
	idx := 0
	for _, degree := range degrees {
		var diff int
		if degree > 0 {
			diff = maxDegree - degree
		} else {
			diff = -degree
		}
		for i := 0; i < degree; i++ {
			archIdx[idx] = ghostIdx
			idx++
			ghostIdx++
		}
		ghostIdx += diff
	}
	return archIdx
}

func insertAt(s []int, i, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// idxToCoords decomposes a flat architecture index into one coordinate
// per tree level, most-significant level first (mixed-radix, matching
// the dims each level was fit with).
func idxToCoords(index int, dims []int) []int {
	coords := make([]int, len(dims))
	for d := len(dims) - 1; d >= 0; d-- {
		coords[d] = index % dims[d]
		index /= dims[d]
	}
	return coords
}
