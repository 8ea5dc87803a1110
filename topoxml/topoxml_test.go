// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package topoxml_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/metrics"
	"github.com/ClusterCockpit/cc-netloc/topoxml"
	"github.com/prometheus/client_golang/prometheus"
)

func twoHostOneSwitchGraph(t *testing.T) *fabric.Graph {
	t.Helper()
	g := fabric.NewGraph()
	g.AddPartition("ib0", "10.0.0.0/24", "IB")

	recs := []fabric.LinkRecord{
		{
			SrcPhysicalID: fabric.NewPhysicalID("host0"), SrcPort: 1, SrcType: fabric.NodeHost, SrcHostname: "host0",
			DstPhysicalID: fabric.NewPhysicalID("switch0"), DstPort: 1, DstType: fabric.NodeSwitch,
			Speed: "QDR", Width: "4x", Gbits: 40, Partitions: []int{0},
		},
		{
			SrcPhysicalID: fabric.NewPhysicalID("switch0"), SrcPort: 1, SrcType: fabric.NodeSwitch,
			DstPhysicalID: fabric.NewPhysicalID("host0"), DstPort: 1, DstType: fabric.NodeHost, DstHostname: "host0",
			Speed: "QDR", Width: "4x", Gbits: 40, Partitions: []int{0},
		},
		{
			SrcPhysicalID: fabric.NewPhysicalID("host1"), SrcPort: 1, SrcType: fabric.NodeHost, SrcHostname: "host1",
			DstPhysicalID: fabric.NewPhysicalID("switch0"), DstPort: 2, DstType: fabric.NodeSwitch,
			Speed: "QDR", Width: "4x", Gbits: 40, Partitions: []int{0},
		},
		{
			SrcPhysicalID: fabric.NewPhysicalID("switch0"), SrcPort: 2, SrcType: fabric.NodeSwitch,
			DstPhysicalID: fabric.NewPhysicalID("host1"), DstPort: 1, DstType: fabric.NodeHost, DstHostname: "host1",
			Speed: "QDR", Width: "4x", Gbits: 40, Partitions: []int{0},
		},
	}
	for _, rec := range recs {
		if _, err := g.AddLink(rec); err != nil {
			t.Fatalf("AddLink: %v", err)
		}
	}
	if err := g.ResolveReverseEdges(); err != nil {
		t.Fatalf("ResolveReverseEdges: %v", err)
	}

	g.Partitions[0].Topology = &fabric.Topology{
		Kind: fabric.TopologyTree, NDims: 1, Dims: []int{2}, Costs: []float64{1},
	}
	for _, name := range []string{"host0", "host1"} {
		n := g.Nodes[fabric.NewPhysicalID(name)]
		n.Partitions.Set(0)
	}
	g.Nodes[fabric.NewPhysicalID("host0")].Positions = []fabric.Position{{Index: 0, Coords: []int{0}}}
	g.Nodes[fabric.NewPhysicalID("host1")].Positions = []fabric.Position{{Index: 1, Coords: []int{1}}}

	return g
}

func TestEncodeDecodeRecordsMetrics(t *testing.T) {
	g := twoHostOneSwitchGraph(t)
	doc := &topoxml.Document{HwlocPath: "/opt/hwloc", Graph: g}

	mc := metrics.New("")
	reg := prometheus.NewRegistry()
	if err := mc.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}

	data, err := topoxml.Encode(doc, mc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := topoxml.Decode(data, mc); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var sawSave, sawLoad bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "cc_netloc_xml_save_duration_seconds":
			sawSave = true
			if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
				t.Errorf("expected xml_save_duration_seconds sample count == 1, got %v", got)
			}
		case "cc_netloc_xml_load_duration_seconds":
			sawLoad = true
			if got := mf.GetMetric()[0].GetHistogram().GetSampleCount(); got != 1 {
				t.Errorf("expected xml_load_duration_seconds sample count == 1, got %v", got)
			}
		}
	}
	if !sawSave {
		t.Error("cc_netloc_xml_save_duration_seconds metric not found after Encode")
	}
	if !sawLoad {
		t.Error("cc_netloc_xml_load_duration_seconds metric not found after Decode")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	g := twoHostOneSwitchGraph(t)
	doc := &topoxml.Document{HwlocPath: "/opt/hwloc", Graph: g}

	data, err := topoxml.Encode(doc, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := topoxml.Decode(data, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if len(got.Graph.Partitions) != 1 || got.Graph.Partitions[0].Name != "ib0" {
		t.Fatalf("expected one partition named ib0, got %+v", got.Graph.Partitions)
	}
	if got.Graph.Partitions[0].Topology == nil || got.Graph.Partitions[0].Topology.NDims != 1 {
		t.Fatalf("expected a 1-dim topology to survive the round trip")
	}

	if len(got.Graph.Nodes) != 3 {
		t.Fatalf("expected 3 nodes (2 hosts + 1 switch), got %d", len(got.Graph.Nodes))
	}
	host0 := got.Graph.Nodes[fabric.NewPhysicalID("host0")]
	if host0 == nil {
		t.Fatal("expected host0 to survive the round trip")
	}
	if len(host0.Positions) != 1 || host0.Positions[0].Index != 0 || host0.Positions[0].Coords[0] != 0 {
		t.Errorf("expected host0 position {0,[0]}, got %+v", host0.Positions)
	}
	if !host0.Partitions.Test(0) {
		t.Error("expected host0 to carry partition 0")
	}

	sw := got.Graph.Nodes[fabric.NewPhysicalID("switch0")]
	if sw == nil {
		t.Fatal("expected switch0 to survive the round trip")
	}
	edge := sw.Edges[fabric.NewPhysicalID("host0")]
	if edge == nil || edge.TotalGbits != 40 {
		t.Fatalf("expected switch0 -> host0 edge carrying 40 Gbit, got %+v", edge)
	}
	if edge.Reverse == nil || edge.Reverse.Source != host0 {
		t.Error("expected the decoded edge to be bound to its reverse")
	}
	if len(got.Graph.Links) != 4 {
		t.Errorf("expected 4 physical links, got %d", len(got.Graph.Links))
	}
}

func TestSaveLoadGzipRoundTrip(t *testing.T) {
	g := twoHostOneSwitchGraph(t)
	doc := &topoxml.Document{Graph: g}

	path := filepath.Join(t.TempDir(), "IB-ib0-nodes.xml.gz")
	if err := topoxml.Save(doc, path, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected compressed file to exist: %v", err)
	}

	got, err := topoxml.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Graph.Nodes) != 3 {
		t.Errorf("expected 3 nodes after gzip round trip, got %d", len(got.Graph.Nodes))
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	_, err := topoxml.Decode([]byte(`<machine version="2.0"/>`), nil)
	if !errors.Is(err, topoxml.ErrBadMachine) {
		t.Fatalf("expected ErrBadMachine for a wrong version, got %v", err)
	}
}

func TestDecodeRejectsUndeclaredPartitionReference(t *testing.T) {
	doc := `<machine version="3.0">
		<explicit>
			<nodes>
				<node mac_addr="host0" type="CA" name="host0" partitions="0"/>
			</nodes>
		</explicit>
	</machine>`
	_, err := topoxml.Decode([]byte(doc), nil)
	if !errors.Is(err, topoxml.ErrBadMachine) {
		t.Fatalf("expected ErrBadMachine for an undeclared partition reference, got %v", err)
	}
}

func TestDecodeRejectsCoordDimensionMismatch(t *testing.T) {
	doc := `<machine version="3.0">
		<partitions>
			<partition idx="0" transport="IB" subnet="10.0.0.0/24" name="ib0">
				<topology type="0" ndims="2" dims="2 2" costs="2 1"/>
			</partition>
		</partitions>
		<explicit>
			<nodes>
				<node mac_addr="host0" type="CA" name="host0" partitions="0" index="0" coords="0"/>
			</nodes>
		</explicit>
	</machine>`
	_, err := topoxml.Decode([]byte(doc), nil)
	if !errors.Is(err, topoxml.ErrBadMachine) {
		t.Fatalf("expected ErrBadMachine for a coords/ndims mismatch, got %v", err)
	}
}

func TestDecodeRejectsOrphanReverseLink(t *testing.T) {
	doc := `<machine version="3.0">
		<explicit>
			<nodes>
				<node mac_addr="host0" type="CA" name="host0">
					<connections>
						<connection bandwidth="40" dest="switch0">
							<link srcport="1" destport="1" speed="QDR" width="4x" bandwidth="40" id="1" reverse_id="2"/>
						</connection>
					</connections>
				</node>
				<node mac_addr="switch0" type="SW" name="switch0"/>
			</nodes>
		</explicit>
	</machine>`
	_, err := topoxml.Decode([]byte(doc), nil)
	if !errors.Is(err, topoxml.ErrBadMachine) {
		t.Fatalf("expected ErrBadMachine for an orphan reverse link, got %v", err)
	}
}

func TestDecodeRejectsRestrictionOnUnknownNode(t *testing.T) {
	doc := `<machine version="3.0">
		<explicit>
			<nodes>
				<node mac_addr="host0" type="CA" name="host0"/>
			</nodes>
		</explicit>
		<restriction>
			<node name="host9"/>
		</restriction>
	</machine>`
	_, err := topoxml.Decode([]byte(doc), nil)
	if !errors.Is(err, topoxml.ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound for an unresolvable restriction entry, got %v", err)
	}
}
