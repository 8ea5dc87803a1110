// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fabric holds the network graph data model: the physical
// links and directed edges discovered between hosts and switches, the
// partitions (subnets) they are grouped into, and the abstract
// topology each partition may be fit to. It is grounded on
// netloc's node.c/edge.c/physical_link.c/partition.c/topology.c.
package fabric

// NodeType distinguishes the two kinds of fabric endpoint.
type NodeType int

const (
	NodeHost NodeType = iota
	NodeSwitch
)

func (t NodeType) String() string {
	if t == NodeHost {
		return "host"
	}
	return "switch"
}

// PhysicalID is the fixed-width hardware identifier netloc uses to key
// nodes (a GUID for InfiniBand, a MAC-derived id for Ethernet). It is
// comparable so it can key a map, unlike the source's NUL-padded
// char[20].
type PhysicalID [20]byte

// NewPhysicalID packs a textual identifier (hex GUID, MAC) into a
// PhysicalID, truncating anything longer than the fixed width.
func NewPhysicalID(s string) PhysicalID {
	var id PhysicalID
	copy(id[:], s)
	return id
}

func (id PhysicalID) String() string {
	n := len(id)
	for n > 0 && id[n-1] == 0 {
		n--
	}
	return string(id[:n])
}

// Node is one host or switch in the fabric graph. Edges are keyed by
// destination physical id, mirroring the one-edge-per-destination
// invariant of the source's netloc_node_t edge table.
type Node struct {
	PhysicalID  PhysicalID
	Hostname    string
	LogicalID   int
	Type        NodeType
	Description string

	Edges         map[PhysicalID]*Edge
	PhysicalLinks []uint64

	Partitions Bitset
	Positions  []Position

	// Subnodes hold the real switches absorbed into a virtual switch
	// node (see the virtualize package); nil for an ordinary node.
	Subnodes      []*Node
	VirtualParent *Node

	// HwlocFile indexes into the owning Machine's per-host hwloc dump
	// set; -1 when this node has none (a switch, or a host never probed).
	HwlocFile int
}

// NewNode constructs an empty node ready for edge attachment.
func NewNode(physID PhysicalID, typ NodeType) *Node {
	return &Node{
		PhysicalID: physID,
		Type:       typ,
		Edges:      make(map[PhysicalID]*Edge),
		HwlocFile:  -1,
	}
}

// IsVirtual reports whether this node stands in for a collapsed group
// of isomorphic switches.
func (n *Node) IsVirtual() bool {
	return len(n.Subnodes) > 0
}
