// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package virtualize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ClusterCockpit/cc-netloc/fabric"
)

// virtualPhysicalID synthesizes a stable identifier for the virtual
// node standing in for class, derived from its members' own ids so
// re-running Collapse on the same equivalence class is idempotent.
func virtualPhysicalID(class []*fabric.Node) fabric.PhysicalID {
	ids := make([]string, len(class))
	for i, n := range class {
		ids[i] = n.PhysicalID.String()
	}
	sort.Strings(ids)
	return fabric.NewPhysicalID("virtual:" + strings.Join(ids, ","))
}

// Collapse merges an equivalence class of switches (as returned by
// EquivalenceClasses) into one virtual switch node in g, following a
// three-step contract per neighbor: gather every member's edge to that
// neighbor as a subedge, fold them into one aggregate edge carrying
// the summed bandwidth and unioned partitions, then rewrite the
// neighbor's own edge table to point at the virtual node instead of
// each individual member — so traversing the graph from either side
// never has to know the merge happened.
func Collapse(g *fabric.Graph, class []*fabric.Node) (*fabric.Node, error) {
	if len(class) < 2 {
		return nil, fmt.Errorf("virtualize: equivalence class needs at least 2 members, got %d", len(class))
	}

	virtual := fabric.NewNode(virtualPhysicalID(class), fabric.NodeSwitch)
	virtual.Subnodes = class

	neighborIDs := make(map[fabric.PhysicalID]bool)
	for _, member := range class {
		for destID := range member.Edges {
			neighborIDs[destID] = true
		}
	}

	for destID := range neighborIDs {
		neighbor, ok := g.Nodes[destID]
		if !ok {
			return nil, fmt.Errorf("virtualize: neighbor %s not found in graph", destID)
		}

		var forward []*fabric.Edge
		var backward []*fabric.Edge
		for _, member := range class {
			fe, ok := member.Edges[destID]
			if !ok {
				return nil, fmt.Errorf("virtualize: member %s has no edge to %s, class is not a true equivalence class",
					member.PhysicalID, destID)
			}
			forward = append(forward, fe)
			if be, ok := neighbor.Edges[member.PhysicalID]; ok {
				backward = append(backward, be)
			}
		}

		fwdEdge := &fabric.Edge{Source: virtual, Dest: neighbor, Subedges: forward}
		for _, fe := range forward {
			fwdEdge.TotalGbits += fe.TotalGbits
			fwdEdge.Partitions.Or(fe.Partitions)
		}
		virtual.Edges[destID] = fwdEdge
		virtual.Partitions.Or(fwdEdge.Partitions)

		if len(backward) > 0 {
			backEdge := &fabric.Edge{Source: neighbor, Dest: virtual, Subedges: backward}
			for _, be := range backward {
				backEdge.TotalGbits += be.TotalGbits
				backEdge.Partitions.Or(be.Partitions)
			}
			fwdEdge.Reverse = backEdge
			backEdge.Reverse = fwdEdge

			for _, member := range class {
				delete(neighbor.Edges, member.PhysicalID)
			}
			neighbor.Edges[virtual.PhysicalID] = backEdge
		}
	}

	for _, member := range class {
		member.VirtualParent = virtual
		delete(g.Nodes, member.PhysicalID)
	}
	g.Nodes[virtual.PhysicalID] = virtual

	return virtual, nil
}
