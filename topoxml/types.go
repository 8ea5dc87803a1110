// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package topoxml is the bidirectional codec between a machine's
// in-memory model (fabric.Graph, fabric.Partition, fabric.Restriction)
// and the persisted `<machine version="3.0">` XML document. The
// source carries two independent readers (libxml- and hand-rolled)
// and two independent writers; this collapses both to one codec built
// on Go's single encoding/xml DOM-style struct tagging, per the
// "collapse to one codec" design note.
package topoxml

import "encoding/xml"

type xmlMachine struct {
	XMLName     xml.Name        `xml:"machine"`
	Version     string          `xml:"version,attr"`
	HwlocPath   string          `xml:"hwloc_path,attr,omitempty"`
	Partitions  *xmlPartitions  `xml:"partitions,omitempty"`
	Explicit    *xmlExplicit    `xml:"explicit,omitempty"`
	Restriction *xmlRestriction `xml:"restriction,omitempty"`
}

type xmlPartitions struct {
	Partition []xmlPartition `xml:"partition"`
}

type xmlPartition struct {
	Idx       int          `xml:"idx,attr"`
	Transport string       `xml:"transport,attr"`
	Subnet    string       `xml:"subnet,attr"`
	Name      string       `xml:"name,attr"`
	Topology  *xmlTopology `xml:"topology,omitempty"`
}

// xmlTopology may recurse via Sub, matching "possibly recursing via
// child <topology>" in the normative schema; the codec does not limit
// the nesting depth.
type xmlTopology struct {
	Type  int          `xml:"type,attr"`
	NDims int          `xml:"ndims,attr"`
	Dims  string       `xml:"dims,attr"`
	Costs string       `xml:"costs,attr"`
	Sub   *xmlTopology `xml:"topology,omitempty"`
}

type xmlExplicit struct {
	Nodes xmlNodes `xml:"nodes"`
}

type xmlNodes struct {
	HwlocPath string    `xml:"hwloc_path,attr,omitempty"`
	Node      []xmlNode `xml:"node"`
}

// xmlNode recurses into Node for virtual nodes' subnodes, written
// depth-first immediately after the virtual parent they belong to.
type xmlNode struct {
	MACAddr     string           `xml:"mac_addr,attr"`
	Type        string           `xml:"type,attr"`
	Name        string           `xml:"name,attr"`
	HwlocFile   string           `xml:"hwloc_file,attr,omitempty"`
	Partitions  string           `xml:"partitions,attr,omitempty"`
	Description string           `xml:"description,attr,omitempty"`
	Index       string           `xml:"index,attr,omitempty"`
	Coords      string           `xml:"coords,attr,omitempty"`
	Size        int              `xml:"size,attr,omitempty"`
	Connections *xmlConnections  `xml:"connections,omitempty"`
	Node        []xmlNode        `xml:"node,omitempty"`
}

type xmlConnections struct {
	Connection []xmlConnection `xml:"connection"`
}

type xmlConnection struct {
	Bandwidth float64   `xml:"bandwidth,attr"`
	Dest      string    `xml:"dest,attr"`
	Link      []xmlLink `xml:"link"`
}

type xmlLink struct {
	SrcPort     int     `xml:"srcport,attr"`
	DestPort    int     `xml:"destport,attr"`
	Speed       string  `xml:"speed,attr"`
	Width       string  `xml:"width,attr"`
	Bandwidth   float64 `xml:"bandwidth,attr"`
	ID          uint64  `xml:"id,attr"`
	ReverseID   uint64  `xml:"reverse_id,attr"`
	Description string  `xml:"description,attr,omitempty"`
	Partitions  string  `xml:"partitions,attr,omitempty"`
}

type xmlRestriction struct {
	Node []xmlRestrictionNode `xml:"node"`
}

type xmlRestrictionNode struct {
	Name string `xml:"name,attr"`
}
