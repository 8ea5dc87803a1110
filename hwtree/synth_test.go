// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hwtree_test

import (
	"testing"

	"github.com/ClusterCockpit/cc-netloc/cpuid"
	"github.com/ClusterCockpit/cc-netloc/hwtree"
)

// twoSocketEightCoreSMT2 builds 32 ProcInfo records (2 packages x 8
// cores x 2 threads) each carrying a shared L3 (one per package) and a
// private L2 (one per core), mirroring a typical Intel desktop/server
// layout.
func twoSocketEightCoreSMT2() []*cpuid.ProcInfo {
	var infos []*cpuid.ProcInfo
	for pkg := uint32(0); pkg < 2; pkg++ {
		for core := uint32(0); core < 8; core++ {
			for thread := uint32(0); thread < 2; thread++ {
				apic := (pkg << 5) | (core << 1) | thread
				infos = append(infos, &cpuid.ProcInfo{
					Present:     true,
					APICID:      apic,
					PackageID:   pkg,
					CoreID:      core,
					ThreadID:    thread,
					MaxLogProc:  32,
					Caches: []cpuid.Cache{
						{Level: 2, Type: cpuid.CacheTypeUnified, NBThreadSharing: 2, Size: 1 << 20},
						{Level: 3, Type: cpuid.CacheTypeUnified, NBThreadSharing: 16, Size: 16 << 20},
					},
				})
			}
		}
	}
	return infos
}

func TestSynthesizeBuildsExpectedTreeShape(t *testing.T) {
	root, err := hwtree.Synthesize(twoSocketEightCoreSMT2(), nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}

	if root.Type != hwtree.ObjMachine {
		t.Fatalf("expected root to be a machine object, got %v", root.Type)
	}
	if root.LogicalProcessors.Weight() != 32 {
		t.Errorf("expected root to span 32 PUs, got %d", root.LogicalProcessors.Weight())
	}

	packages := root.ByType(hwtree.ObjPackage)
	if len(packages) != 2 {
		t.Fatalf("expected 2 packages, got %d", len(packages))
	}
	for _, pkg := range packages {
		if pkg.LogicalProcessors.Weight() != 16 {
			t.Errorf("expected each package to span 16 PUs, got %d", pkg.LogicalProcessors.Weight())
		}
	}

	l3s := root.ByType(hwtree.ObjL3Cache)
	if len(l3s) != 2 {
		t.Fatalf("expected 2 L3 caches, got %d", len(l3s))
	}
	l2s := root.ByType(hwtree.ObjL2Cache)
	if len(l2s) != 16 {
		t.Fatalf("expected 16 L2 caches, got %d", len(l2s))
	}
	cores := root.ByType(hwtree.ObjCore)
	if len(cores) != 16 {
		t.Fatalf("expected 16 cores, got %d", len(cores))
	}
	hwthreads := root.ByType(hwtree.ObjHwthread)
	if len(hwthreads) != 32 {
		t.Fatalf("expected 32 hwthreads, got %d", len(hwthreads))
	}

	// Every L3 must be an ancestor of exactly 8 cores.
	for _, l3 := range l3s {
		if got := len(l3.ByType(hwtree.ObjCore)); got != 8 {
			t.Errorf("expected each L3 to contain 8 cores, got %d", got)
		}
	}
	// Every core must be an ancestor of exactly 2 hwthreads.
	for _, core := range cores {
		if got := len(core.ByType(hwtree.ObjHwthread)); got != 2 {
			t.Errorf("expected each core to contain 2 hwthreads, got %d", got)
		}
	}
}

func TestSynthesizeSkipsAbsentThreads(t *testing.T) {
	infos := twoSocketEightCoreSMT2()
	infos[0] = &cpuid.ProcInfo{Present: false}

	root, err := hwtree.Synthesize(infos, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got := len(root.ByType(hwtree.ObjHwthread)); got != 31 {
		t.Errorf("expected 31 hwthreads after dropping one, got %d", got)
	}
}

func TestSynthesizeRejectsAllAbsent(t *testing.T) {
	infos := make([]*cpuid.ProcInfo, 4)
	for i := range infos {
		infos[i] = &cpuid.ProcInfo{Present: false}
	}
	if _, err := hwtree.Synthesize(infos, nil); err == nil {
		t.Error("expected an error when every processor record is absent")
	}
}

func TestSynthesizeWithNUMA(t *testing.T) {
	infos := twoSocketEightCoreSMT2()
	numaOfPU := make(map[int]int)
	for i := range infos {
		numaOfPU[i] = i / 16 // one NUMA node per package, matching the grouping above
	}

	root, err := hwtree.Synthesize(infos, numaOfPU)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	numas := root.ByType(hwtree.ObjNUMANode)
	if len(numas) != 2 {
		t.Fatalf("expected 2 NUMA nodes, got %d", len(numas))
	}
	for _, n := range numas {
		if n.LogicalProcessors.Weight() != 16 {
			t.Errorf("expected each NUMA node to span 16 PUs, got %d", n.LogicalProcessors.Weight())
		}
	}
}

func TestSynthesizePackageDirectlyParentsCores(t *testing.T) {
	infos := []*cpuid.ProcInfo{
		{Present: true, APICID: 0, PackageID: 0, CoreID: 0, MaxLogProc: 1},
		{Present: true, APICID: 1, PackageID: 0, CoreID: 1, MaxLogProc: 1},
	}
	root, err := hwtree.Synthesize(infos, nil)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// Cores are inserted before any shared cache is added (there are
	// none in this fixture) — this instead checks that the package
	// ends up as a direct parent of both cores, with no phantom level.
	pkg := root.ByType(hwtree.ObjPackage)[0]
	if len(pkg.Children) != 2 {
		t.Fatalf("expected package to directly parent 2 cores, got %d children", len(pkg.Children))
	}
}
