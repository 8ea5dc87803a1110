// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package topoxml

import (
	"compress/gzip"
	"encoding/xml"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/metrics"
)

// Version is the only machine document version this codec understands.
const Version = "3.0"

// Document is the persisted unit: a graph plus its partitions and
// restriction, wrapping the root <machine> element.
type Document struct {
	HwlocPath   string
	Graph       *fabric.Graph
	Restriction *fabric.Restriction
}

// Encode renders doc as a version-3.0 machine document. mc may be nil;
// when given, it records the time spent encoding.
func Encode(doc *Document, mc *metrics.Collectors) ([]byte, error) {
	if mc != nil {
		start := time.Now()
		defer func() { mc.XMLSaveDuration.Observe(time.Since(start).Seconds()) }()
	}

	m := &xmlMachine{Version: Version, HwlocPath: doc.HwlocPath}

	if len(doc.Graph.Partitions) > 0 {
		m.Partitions = &xmlPartitions{Partition: make([]xmlPartition, len(doc.Graph.Partitions))}
		for i, p := range doc.Graph.Partitions {
			m.Partitions.Partition[i] = partitionToXML(p)
		}
	}

	roots := topLevelNodes(doc.Graph)
	if len(roots) > 0 {
		m.Explicit = &xmlExplicit{Nodes: xmlNodes{HwlocPath: doc.HwlocPath}}
		m.Explicit.Nodes.Node = make([]xmlNode, len(roots))
		for i, n := range roots {
			m.Explicit.Nodes.Node[i] = nodeToXML(doc.Graph, n)
		}
	}

	if doc.Restriction != nil && len(doc.Restriction.Nodes) > 0 {
		names := make([]string, 0, len(doc.Restriction.Nodes))
		byName := make(map[string]*fabric.Node, len(doc.Restriction.Nodes))
		for _, n := range doc.Restriction.Nodes {
			name := restrictionName(n)
			names = append(names, name)
			byName[name] = n
		}
		sort.Strings(names)
		m.Restriction = &xmlRestriction{Node: make([]xmlRestrictionNode, len(names))}
		for i, name := range names {
			m.Restriction.Node[i] = xmlRestrictionNode{Name: name}
		}
	}

	out, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func restrictionName(n *fabric.Node) string {
	if n.Hostname != "" {
		return n.Hostname
	}
	return n.PhysicalID.String()
}

// topLevelNodes returns every node not absorbed as a subnode of a
// virtual node, sorted by physical id for deterministic output.
func topLevelNodes(g *fabric.Graph) []*fabric.Node {
	out := make([]*fabric.Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.VirtualParent == nil {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PhysicalID.String() < out[j].PhysicalID.String()
	})
	return out
}

func partitionToXML(p *fabric.Partition) xmlPartition {
	xp := xmlPartition{Idx: p.Index, Transport: p.Transport, Subnet: p.Subnet, Name: p.Name}
	if p.Topology != nil {
		xp.Topology = topologyToXML(p.Topology)
	}
	return xp
}

func topologyToXML(t *fabric.Topology) *xmlTopology {
	xt := &xmlTopology{
		Type:  int(t.Kind),
		NDims: t.NDims,
		Dims:  formatIntArray(t.Dims),
		Costs: formatFloatArray(t.Costs),
	}
	if t.Sub != nil {
		xt.Sub = topologyToXML(t.Sub)
	}
	return xt
}

func nodeToXML(g *fabric.Graph, n *fabric.Node) xmlNode {
	xn := xmlNode{
		MACAddr:     n.PhysicalID.String(),
		Type:        nodeTypeToXML(n.Type),
		Name:        n.Hostname,
		Partitions:  formatIntArray(n.Partitions.Bits()),
		Description: n.Description,
		Index:       formatIntArray(positionIndices(n.Positions)),
		Coords:      formatCoordBlocks(n.Positions),
	}
	if n.HwlocFile >= 0 {
		xn.HwlocFile = strconv.Itoa(n.HwlocFile)
	}
	if n.IsVirtual() {
		xn.Size = len(n.Subnodes)
		subs := append([]*fabric.Node(nil), n.Subnodes...)
		sort.Slice(subs, func(i, j int) bool {
			return subs[i].PhysicalID.String() < subs[j].PhysicalID.String()
		})
		xn.Node = make([]xmlNode, len(subs))
		for i, s := range subs {
			xn.Node[i] = nodeToXML(g, s)
		}
	}

	destIDs := make([]fabric.PhysicalID, 0, len(n.Edges))
	for id := range n.Edges {
		destIDs = append(destIDs, id)
	}
	sort.Slice(destIDs, func(i, j int) bool {
		return destIDs[i].String() < destIDs[j].String()
	})
	if len(destIDs) > 0 {
		xn.Connections = &xmlConnections{Connection: make([]xmlConnection, len(destIDs))}
		for i, destID := range destIDs {
			edge := n.Edges[destID]
			xn.Connections.Connection[i] = connectionToXML(g, edge)
		}
	}

	return xn
}

func positionIndices(positions []fabric.Position) []int {
	out := make([]int, len(positions))
	for i, p := range positions {
		out[i] = p.Index
	}
	return out
}

func connectionToXML(g *fabric.Graph, e *fabric.Edge) xmlConnection {
	linkIDs := append([]uint64(nil), e.LinkIDs...)
	sort.Slice(linkIDs, func(i, j int) bool { return linkIDs[i] < linkIDs[j] })

	xc := xmlConnection{
		Bandwidth: e.TotalGbits,
		Dest:      e.Dest.PhysicalID.String(),
		Link:      make([]xmlLink, len(linkIDs)),
	}
	for i, id := range linkIDs {
		l := g.Links[id]
		xc.Link[i] = xmlLink{
			SrcPort:     l.SrcPort,
			DestPort:    l.DstPort,
			Speed:       l.Speed,
			Width:       l.Width,
			Bandwidth:   l.Gbits,
			ID:          l.ID,
			ReverseID:   l.ReverseID,
			Description: l.Description,
			Partitions:  formatIntArray(l.Partitions.Bits()),
		}
	}
	return xc
}

// Save encodes doc and writes it to path. A ".gz" suffix compresses
// the document in-flight; the persisted-state layout names machine
// documents "IB-<subnet>-nodes.xml" with host hwloc dumps alongside,
// either plain or gzip-compressed. mc may be nil; it is forwarded to
// Encode.
func Save(doc *Document, path string, mc *metrics.Collectors) error {
	data, err := Encode(doc, mc)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(path, ".gz") {
		return os.WriteFile(path, data, 0o644)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}
