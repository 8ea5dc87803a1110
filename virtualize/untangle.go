// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package virtualize

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
)

// Untangle reverses a prior Collapse: it restores every subnode as a
// first-class node in g, rewrites each neighbor's edge table back to
// point at the individual subnodes, and removes the virtual node.
// It is the exact inverse of Collapse given the same graph state —
// the subedges Collapse preserved are what make this possible without
// re-running discovery.
func Untangle(g *fabric.Graph, virtual *fabric.Node) error {
	if !virtual.IsVirtual() {
		return fmt.Errorf("virtualize: node %s is not a virtual node", virtual.PhysicalID)
	}

	for destID, fwdEdge := range virtual.Edges {
		neighbor, ok := g.Nodes[destID]
		if !ok {
			return fmt.Errorf("virtualize: neighbor %s not found in graph", destID)
		}

		if fwdEdge.Reverse != nil {
			delete(neighbor.Edges, virtual.PhysicalID)
			for _, be := range fwdEdge.Reverse.Subedges {
				neighbor.Edges[be.Dest.PhysicalID] = be
			}
		}
	}

	for _, member := range virtual.Subnodes {
		member.VirtualParent = nil
		g.Nodes[member.PhysicalID] = member
	}

	delete(g.Nodes, virtual.PhysicalID)
	return nil
}
