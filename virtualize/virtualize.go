// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package virtualize collapses switches that are indistinguishable
// from the fabric's point of view — same destinations, same partition
// membership — into a single virtual switch node, the way netloc's
// XML export folds redundant leaf/spine fan-out into one entry so a
// human reading the topology isn't shown forty identical switches.
// Grounded on the "virtual node" handling in netloc's libxml.c /
// nolibxml.c readers and the edge/subedge model in edge.c.
package virtualize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/metrics"
)

// destinationSignature summarizes a switch's neighborhood: the sorted
// list of destination physical ids it has an edge to, alongside the
// partition bitset on each of those edges. Two switches with an
// identical signature are equivalent — collapsing one for the other
// changes nothing an upstream host or query could observe.
func destinationSignature(n *fabric.Node) string {
	dests := make([]string, 0, len(n.Edges))
	for id := range n.Edges {
		dests = append(dests, id.String())
	}
	sort.Strings(dests)

	var b strings.Builder
	for _, d := range dests {
		edge := n.Edges[fabric.NewPhysicalID(d)]
		fmt.Fprintf(&b, "%s|%v;", d, edge.Partitions)
	}
	return b.String()
}

// EquivalenceClasses groups every switch node in g by destinationSignature,
// returning only the groups with more than one member — singleton
// switches have nothing to collapse into. mc may be nil; when given,
// it records the number of classes found.
func EquivalenceClasses(g *fabric.Graph, mc *metrics.Collectors) [][]*fabric.Node {
	groups := make(map[string][]*fabric.Node)
	var order []string

	ids := make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := g.Nodes[fabric.NewPhysicalID(id)]
		if n.Type != fabric.NodeSwitch || n.IsVirtual() {
			continue
		}
		sig := destinationSignature(n)
		if _, ok := groups[sig]; !ok {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], n)
	}

	var classes [][]*fabric.Node
	for _, sig := range order {
		if len(groups[sig]) > 1 {
			classes = append(classes, groups[sig])
		}
	}
	if mc != nil {
		mc.VirtualizeClassesTotal.Set(float64(len(classes)))
	}
	return classes
}
