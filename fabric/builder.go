// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fabric

import (
	"fmt"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
)

// LinkRecord is one raw cable/port pairing as read off the wire
// (an IB subnet scan, an Ethernet LLDP walk, ...), the unit the
// Graph builder ingests. Partitions names the partitions (by index)
// this link belongs to.
type LinkRecord struct {
	SrcPhysicalID PhysicalID
	SrcPort       int
	SrcType       NodeType
	SrcHostname   string

	DstPhysicalID PhysicalID
	DstPort       int
	DstType       NodeType
	DstHostname   string

	Speed       string
	Width       string
	Gbits       float64
	Description string
	Partitions  []int
}

// Graph accumulates the nodes, links and edges discovered while
// ingesting a fabric scan, grounded on netloc's topology build pass
// (network_explicit.c/hwloc.c feeding node.c/edge.c/physical_link.c).
// A Graph is not safe for concurrent ingestion; callers serialize
// AddLink calls for a single scan, same as the source's single-pass
// builder.
type Graph struct {
	Nodes      map[PhysicalID]*Node
	Links      map[uint64]*PhysicalLink
	Partitions []*Partition

	nextLinkID uint64
	nextEdgeID uint64
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[PhysicalID]*Node),
		Links: make(map[uint64]*PhysicalLink),
	}
}

// InternNode returns the existing node for physID, creating one of the
// given type if this is the first time it's seen.
func (g *Graph) InternNode(physID PhysicalID, typ NodeType, hostname string) *Node {
	n, ok := g.Nodes[physID]
	if !ok {
		n = NewNode(physID, typ)
		n.Hostname = hostname
		g.Nodes[physID] = n
	}
	return n
}

// AddLink interns both endpoints, creates the forward PhysicalLink,
// folds it into the (possibly new) directed Edge between the two
// nodes, and ORs the link's partition bits up into both the edge and
// the two nodes. It does not create the reverse link; callers ingest
// the scan's own reverse record (every real fabric scan reports both
// directions), and ResolveReverseEdges validates every edge ends up
// with a counterpart once ingestion is complete.
func (g *Graph) AddLink(rec LinkRecord) (*PhysicalLink, error) {
	src := g.InternNode(rec.SrcPhysicalID, rec.SrcType, rec.SrcHostname)
	dst := g.InternNode(rec.DstPhysicalID, rec.DstType, rec.DstHostname)

	var bits Bitset
	for _, p := range rec.Partitions {
		bits.Set(p)
	}

	g.nextLinkID++
	link := &PhysicalLink{
		ID:          g.nextLinkID,
		SrcNode:     rec.SrcPhysicalID,
		SrcPort:     rec.SrcPort,
		DstNode:     rec.DstPhysicalID,
		DstPort:     rec.DstPort,
		Speed:       rec.Speed,
		Width:       rec.Width,
		Gbits:       rec.Gbits,
		Description: rec.Description,
		Partitions:  bits,
	}
	g.Links[link.ID] = link
	src.PhysicalLinks = append(src.PhysicalLinks, link.ID)

	edge, ok := src.Edges[rec.DstPhysicalID]
	if !ok {
		g.nextEdgeID++
		edge = &Edge{ID: g.nextEdgeID, Source: src, Dest: dst}
		src.Edges[rec.DstPhysicalID] = edge
	}
	edge.AddLink(link)

	src.Partitions.Or(bits)
	dst.Partitions.Or(bits)

	return link, nil
}

// ResolveReverseEdges binds every edge to its opposite-direction
// counterpart and every physical link to its reverse link. A missing
// reverse is a structural error: the fabric scan this graph was built
// from reported a one-way connection, which netloc's model treats as
// malformed input rather than something to silently tolerate.
func (g *Graph) ResolveReverseEdges() error {
	for _, link := range g.Links {
		if link.ReverseID != 0 {
			continue
		}
		dst, ok := g.Nodes[link.DstNode]
		if !ok {
			return fmt.Errorf("fabric: link %d destination %s has no node", link.ID, link.DstNode)
		}
		var reverse *PhysicalLink
		for _, candidateID := range dst.PhysicalLinks {
			cand := g.Links[candidateID]
			if cand.DstNode == link.SrcNode && cand.DstPort == link.SrcPort && cand.SrcPort == link.DstPort {
				reverse = cand
				break
			}
		}
		if reverse == nil {
			return fmt.Errorf("fabric: physical link %d (%s:%d -> %s:%d) has no reverse link",
				link.ID, link.SrcNode, link.SrcPort, link.DstNode, link.DstPort)
		}
		link.ReverseID = reverse.ID
		reverse.ReverseID = link.ID
	}

	for _, node := range g.Nodes {
		for destID, edge := range node.Edges {
			if edge.Reverse != nil {
				continue
			}
			dst, ok := g.Nodes[destID]
			if !ok {
				return fmt.Errorf("fabric: edge %d destination %s has no node", edge.ID, destID)
			}
			reverse, ok := dst.Edges[node.PhysicalID]
			if !ok {
				return fmt.Errorf("fabric: edge %d (%s -> %s) has no reverse edge", edge.ID, node.PhysicalID, destID)
			}
			edge.Reverse = reverse
			reverse.Reverse = edge
		}
	}

	cclog.Debugf("fabric: resolved reverse links/edges for %d nodes", len(g.Nodes))
	return nil
}

// AddPartition registers a partition, assigning it the next free
// index, and returns the stored *Partition.
func (g *Graph) AddPartition(name, subnet, transport string) *Partition {
	p := &Partition{Index: len(g.Partitions), Name: name, Subnet: subnet, Transport: transport}
	g.Partitions = append(g.Partitions, p)
	return p
}

// SeedCounters advances the link/edge id counters so that ids minted
// by future AddLink calls never collide with ids restored from a
// previously persisted document (topoxml.Decode populates nodes and
// links directly rather than through AddLink, and must seed the graph
// before handing it back to a caller that may keep ingesting).
func (g *Graph) SeedCounters(maxLinkID, maxEdgeID uint64) {
	if maxLinkID > g.nextLinkID {
		g.nextLinkID = maxLinkID
	}
	if maxEdgeID > g.nextEdgeID {
		g.nextEdgeID = maxEdgeID
	}
}
