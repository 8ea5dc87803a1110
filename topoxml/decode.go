// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package topoxml

import (
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/metrics"
)

// ErrBadMachine marks a structurally invalid machine document: wrong
// version, malformed attribute, or an invariant the codec can check at
// load time (coordinate width mismatch, orphan reverse link,
// out-of-range partition reference). It is never recovered locally, per the
// structural class of the error taxonomy.
var ErrBadMachine = errors.New("topoxml: bad machine document")

// ErrNodeNotFound marks a reference (a restriction entry, a connection
// destination) to a node absent from the document.
var ErrNodeNotFound = errors.New("topoxml: node not found")

func badMachine(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrBadMachine}, args...)...)
}

// Decode parses a machine document and rebuilds its graph. Node
// partition references are checked against the declared partitions,
// and a mismatch is a structural error. A coordinate block's width is
// checked against the partition's topology ndims only for a node with
// exactly one partition and one coordinate block; nodes with several
// partitions or blocks are not width-checked.
//
// Subedge fidelity is asymmetric by construction of the wire format: a
// virtual node's subnodes each carry their own real outgoing edges, so
// the forward (virtual -> neighbor) Subedges list reconstructs
// exactly. The backward (neighbor -> virtual) direction's original
// per-member edges were discarded when the document was written (the
// schema has no field for them), so Decode leaves that side's Subedges
// nil; the aggregate bandwidth and partition bitset are still exact.
//
// mc may be nil; when given, it records the time spent decoding.
func Decode(data []byte, mc *metrics.Collectors) (*Document, error) {
	if mc != nil {
		start := time.Now()
		defer func() { mc.XMLLoadDuration.Observe(time.Since(start).Seconds()) }()
	}

	var m xmlMachine
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMachine, err)
	}
	if m.Version != Version {
		return nil, badMachine("unsupported version %q (want %q)", m.Version, Version)
	}

	g := fabric.NewGraph()
	if m.Partitions != nil {
		for i, xp := range m.Partitions.Partition {
			if xp.Idx != i {
				return nil, badMachine("partitions must be listed in index order: index %d found at position %d", xp.Idx, i)
			}
			p := g.AddPartition(xp.Name, xp.Subnet, xp.Transport)
			if xp.Topology != nil {
				topo, err := topologyFromXML(xp.Topology)
				if err != nil {
					return nil, err
				}
				p.Topology = topo
			}
		}
	}

	flat := make(map[fabric.PhysicalID]*fabric.Node)
	var pending []pendingConnection
	var maxLinkID uint64

	if m.Explicit != nil {
		for _, xn := range m.Explicit.Nodes.Node {
			n, pend, err := decodeNode(xn, g.Partitions, flat, nil)
			if err != nil {
				return nil, err
			}
			g.Nodes[n.PhysicalID] = n
			pending = append(pending, pend...)
		}
	}

	nextEdgeID := uint64(0)
	for _, pc := range pending {
		dest, ok := flat[pc.destID]
		if !ok {
			return nil, fmt.Errorf("%w: connection destination %s", ErrNodeNotFound, pc.destID)
		}
		nextEdgeID++
		edge := &fabric.Edge{ID: nextEdgeID, Source: pc.source, Dest: dest}
		for _, xl := range pc.xc.Link {
			bits, err := parseIntArray(xl.Partitions, false)
			if err != nil {
				return nil, badMachine("link %d partitions: %v", xl.ID, err)
			}
			var pbits fabric.Bitset
			for _, b := range bits {
				pbits.Set(b)
			}
			link := &fabric.PhysicalLink{
				ID:          xl.ID,
				SrcNode:     pc.source.PhysicalID,
				SrcPort:     xl.SrcPort,
				DstNode:     dest.PhysicalID,
				DstPort:     xl.DestPort,
				Speed:       xl.Speed,
				Width:       xl.Width,
				Gbits:       xl.Bandwidth,
				Description: xl.Description,
				Partitions:  pbits,
				ReverseID:   xl.ReverseID,
			}
			g.Links[link.ID] = link
			if link.ID > maxLinkID {
				maxLinkID = link.ID
			}
			edge.AddLink(link)
		}
		if len(pc.xc.Link) == 0 {
			edge.TotalGbits = pc.xc.Bandwidth
		} else if math.Abs(edge.TotalGbits-pc.xc.Bandwidth) > 1e-3 {
			return nil, badMachine("connection %s -> %s bandwidth %.3f does not match sum of its links %.3f",
				pc.source.PhysicalID, dest.PhysicalID, pc.xc.Bandwidth, edge.TotalGbits)
		}
		pc.source.Edges[dest.PhysicalID] = edge
	}

	for _, n := range g.Nodes {
		if !n.IsVirtual() {
			continue
		}
		for destID, edge := range n.Edges {
			var subedges []*fabric.Edge
			for _, sub := range n.Subnodes {
				if se, ok := sub.Edges[destID]; ok {
					subedges = append(subedges, se)
				}
			}
			edge.Subedges = subedges
			if len(edge.LinkIDs) == 0 {
				for _, se := range subedges {
					edge.Partitions.Or(se.Partitions)
				}
			}
		}
	}

	if err := resolveReverses(g); err != nil {
		return nil, err
	}
	g.SeedCounters(maxLinkID, nextEdgeID)

	var restriction *fabric.Restriction
	if m.Restriction != nil {
		restriction = fabric.NewRestriction("loaded")
		byName := make(map[string]*fabric.Node, len(g.Nodes))
		for _, n := range g.Nodes {
			byName[restrictionName(n)] = n
		}
		for _, xrn := range m.Restriction.Node {
			n, ok := byName[xrn.Name]
			if !ok {
				return nil, fmt.Errorf("%w: restriction entry %q", ErrNodeNotFound, xrn.Name)
			}
			restriction.Add(n)
		}
	}

	return &Document{HwlocPath: m.HwlocPath, Graph: g, Restriction: restriction}, nil
}

type pendingConnection struct {
	source *fabric.Node
	destID fabric.PhysicalID
	xc     xmlConnection
}

// decodeNode builds one node (and, recursively, its subnodes) from its
// XML form. Edges are deferred into pending since a destination may be
// declared later in document order; flat collects every node (real or
// subnode) so pending connections can resolve against the whole set.
func decodeNode(xn xmlNode, partitions []*fabric.Partition, flat map[fabric.PhysicalID]*fabric.Node, parent *fabric.Node) (*fabric.Node, []pendingConnection, error) {
	typ, err := nodeTypeFromXML(xn.Type)
	if err != nil {
		return nil, nil, badMachine("node %s: %v", xn.MACAddr, err)
	}
	n := fabric.NewNode(fabric.NewPhysicalID(xn.MACAddr), typ)
	n.Hostname = xn.Name
	n.Description = xn.Description
	n.VirtualParent = parent

	if xn.HwlocFile != "" {
		v, err := strconv.Atoi(xn.HwlocFile)
		if err != nil {
			return nil, nil, badMachine("node %s hwloc_file %q: %v", xn.MACAddr, xn.HwlocFile, err)
		}
		n.HwlocFile = v
	}

	partBits, err := parseIntArray(xn.Partitions, false)
	if err != nil {
		return nil, nil, badMachine("node %s partitions: %v", xn.MACAddr, err)
	}
	for _, b := range partBits {
		if b >= len(partitions) {
			return nil, nil, badMachine("node %s references undeclared partition %d", xn.MACAddr, b)
		}
		n.Partitions.Set(b)
	}

	indexList, err := parseIntArray(xn.Index, false)
	if err != nil {
		return nil, nil, badMachine("node %s index: %v", xn.MACAddr, err)
	}
	coordBlocks, err := parseCoordBlocks(xn.Coords)
	if err != nil {
		return nil, nil, badMachine("node %s coords: %v", xn.MACAddr, err)
	}
	if len(indexList) != len(coordBlocks) {
		return nil, nil, badMachine("node %s: index has %d entries but coords has %d blocks",
			xn.MACAddr, len(indexList), len(coordBlocks))
	}
	// A node's coords blocks line up with its Positions, one per
	// partition it was actually fit into (a switch may carry a
	// partition bit with no position at all). When there is exactly
	// one of each, cross-check the coord width against that partition's
	// declared topology; a node fit into several partitions at once
	// isn't something the source's tree fitter ever produces, so the
	// ambiguous general case is left unchecked.
	if len(partBits) == 1 && len(coordBlocks) == 1 {
		if topo := partitions[partBits[0]].Topology; topo != nil && len(coordBlocks[0]) != topo.NDims {
			return nil, nil, badMachine("node %s coords has %d dims, partition %d topology has %d",
				xn.MACAddr, len(coordBlocks[0]), partBits[0], topo.NDims)
		}
	}
	n.Positions = make([]fabric.Position, len(indexList))
	for i := range indexList {
		n.Positions[i] = fabric.Position{Index: indexList[i], Coords: coordBlocks[i]}
	}

	flat[n.PhysicalID] = n

	var pending []pendingConnection
	if xn.Connections != nil {
		for _, xc := range xn.Connections.Connection {
			pending = append(pending, pendingConnection{
				source: n,
				destID: fabric.NewPhysicalID(xc.Dest),
				xc:     xc,
			})
		}
	}

	if len(xn.Node) > 0 {
		n.Subnodes = make([]*fabric.Node, len(xn.Node))
		for i, xsub := range xn.Node {
			sub, subPending, err := decodeNode(xsub, partitions, flat, n)
			if err != nil {
				return nil, nil, err
			}
			n.Subnodes[i] = sub
			pending = append(pending, subPending...)
		}
		if xn.Size != 0 && xn.Size != len(n.Subnodes) {
			return nil, nil, badMachine("node %s declares size %d but has %d subnodes", xn.MACAddr, xn.Size, len(n.Subnodes))
		}
	}

	return n, pending, nil
}

func topologyFromXML(xt *xmlTopology) (*fabric.Topology, error) {
	dims, err := parseIntArray(xt.Dims, false)
	if err != nil {
		return nil, badMachine("topology dims: %v", err)
	}
	for _, d := range dims {
		if d <= 0 {
			return nil, badMachine("topology dims must be strictly positive, got %d", d)
		}
	}
	costs, err := parseFloatArray(xt.Costs)
	if err != nil {
		return nil, badMachine("topology costs: %v", err)
	}
	if len(dims) != xt.NDims || len(costs) != xt.NDims {
		return nil, badMachine("topology ndims=%d but dims has %d and costs has %d entries", xt.NDims, len(dims), len(costs))
	}

	t := &fabric.Topology{Kind: fabric.TopologyKind(xt.Type), NDims: xt.NDims, Dims: dims, Costs: costs}
	if xt.Sub != nil {
		sub, err := topologyFromXML(xt.Sub)
		if err != nil {
			return nil, err
		}
		t.Sub = sub
	}
	return t, nil
}

// resolveReverses cross-links every pair of edges running opposite
// directions between the same two nodes. A physical link whose
// reverse_id names no link, or names a link that is not its mirror, is
// the structural "orphan reverse link" error; an edge with no opposite
// edge is left with a nil Reverse.
func resolveReverses(g *fabric.Graph) error {
	for _, link := range g.Links {
		reverse, ok := g.Links[link.ReverseID]
		if !ok {
			return badMachine("physical link %d has no reverse link %d", link.ID, link.ReverseID)
		}
		if reverse.ReverseID != link.ID || reverse.SrcNode != link.DstNode || reverse.DstNode != link.SrcNode {
			return badMachine("physical link %d and %d are not a valid reverse pair", link.ID, link.ReverseID)
		}
	}
	for _, n := range g.Nodes {
		for destID, edge := range n.Edges {
			if edge.Reverse != nil {
				continue
			}
			dst, ok := g.Nodes[destID]
			if !ok {
				continue
			}
			reverse, ok := dst.Edges[n.PhysicalID]
			if !ok {
				continue
			}
			edge.Reverse = reverse
			reverse.Reverse = edge
		}
	}
	return nil
}

// Load reads and decodes a machine document from path, transparently
// decompressing a ".gz" suffix. mc may be nil; it is forwarded to
// Decode.
func Load(path string, mc *metrics.Collectors) (*Document, error) {
	if !strings.HasSuffix(path, ".gz") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return Decode(data, mc)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, err
	}
	return Decode(data, mc)
}
