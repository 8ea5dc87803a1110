// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fabric

// PhysicalLink is one directed point-to-point cable/port pairing,
// grounded on physical_link.c. Every link has a reverse counterpart
// running the other way between the same two ports; the builder
// guarantees ReverseID is always resolvable once ingest completes.
type PhysicalLink struct {
	ID uint64

	SrcNode PhysicalID
	SrcPort int
	DstNode PhysicalID
	DstPort int

	Speed string
	Width string
	Gbits float64

	Description string
	Partitions  Bitset

	ReverseID uint64
}

// Edge is the directed aggregate of every PhysicalLink running between
// the same pair of nodes, grounded on edge.c's netloc_edge_t: total
// bandwidth is the sum of its links' Gbits, and every edge has a
// reverse edge running the other way once ResolveReverseEdges has run.
type Edge struct {
	ID uint64

	Source *Node
	Dest   *Node

	TotalGbits float64
	LinkIDs    []uint64

	Partitions Bitset
	Reverse    *Edge

	// Subedges decomposes an edge terminating at a virtual node into
	// the real edges it stands for, one per absorbed subnode.
	Subedges []*Edge
}

// AddLink folds one physical link's bandwidth and partition membership
// into the edge, appending its id to LinkIDs.
func (e *Edge) AddLink(l *PhysicalLink) {
	e.TotalGbits += l.Gbits
	e.LinkIDs = append(e.LinkIDs, l.ID)
	e.Partitions.Or(l.Partitions)
}
