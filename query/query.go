// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"fmt"
	"sort"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/machine"
)

// FindNode looks up a node by hostname, or by the machine's own
// hostname when name is empty.
func FindNode(m *machine.Machine, name string) (*fabric.Node, error) {
	var n *fabric.Node
	if name == "" {
		n = m.CurrentNode()
	} else {
		n = m.FindNodeByName(name)
	}
	if n == nil {
		return nil, fmt.Errorf("query: node %q not found", name)
	}
	return n, nil
}

// ListNodes returns every host node in the machine matching filter,
// sorted by hostname. IncludeRestrictedOnly narrows the result to
// nodes the machine's current restriction admits; a machine carrying
// no restriction then yields nothing for that filter, same as asking
// for membership in an empty set.
func ListNodes(m *machine.Machine, filter *Filter) []*fabric.Node {
	restricted := filter != nil && filter.IncludeRestrictedOnly
	var restriction *fabric.Restriction
	if restricted {
		restriction = m.Restriction()
	}

	out := make([]*fabric.Node, 0, len(m.Graph.Nodes))
	for _, n := range m.Graph.Nodes {
		if n.Type != fabric.NodeHost {
			continue
		}
		if restricted {
			if restriction == nil || !restriction.Contains(n) {
				continue
			}
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out
}

// PartitionMembership returns the indices of every partition node
// belongs to, ascending.
func PartitionMembership(node *fabric.Node) []int {
	return node.Partitions.Bits()
}
