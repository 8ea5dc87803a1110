// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hwtree

import (
	"fmt"
	"sort"

	"github.com/ClusterCockpit/cc-netloc/cpuid"
)

// cacheKey identifies one cache instance across the hwthreads sharing
// it, per the identity rule (package_id, (apicid mod max_log_proc) /
// nbthreads_sharing, level, type): hwthreads landing on the same key
// are attached to the very same cache object.
type cacheKey struct {
	packageID uint32
	group     uint32
	level     int
	typ       cpuid.CacheType
}

func cacheObjType(level int, typ cpuid.CacheType) ObjType {
	switch {
	case level == 1 && typ == cpuid.CacheTypeInstruction:
		return ObjL1ICache
	case level == 1:
		return ObjL1Cache
	case level == 2:
		return ObjL2Cache
	default:
		return ObjL3Cache
	}
}

// Synthesize builds the intra-node object tree from one ProcInfo per
// OS logical processor (infos[i].Present == false leaves i out of the
// tree entirely, mirroring a hwthread CPUID could not be probed on).
// numaOfPU optionally maps an OS logical-processor index to a NUMA
// node id; pass nil if that mapping isn't available (it comes from
// sysfs, not CPUID, so it is the caller's responsibility to supply).
func Synthesize(infos []*cpuid.ProcInfo, numaOfPU map[int]int) (*Object, error) {
	if len(infos) == 0 {
		return nil, fmt.Errorf("hwtree: no processor records given")
	}

	var allPUs CPUSet
	for i, info := range infos {
		if info != nil && info.Present {
			allPUs.Set(i)
		}
	}
	if allPUs.Weight() == 0 {
		return nil, fmt.Errorf("hwtree: every processor record is absent")
	}

	root := newObject(ObjMachine, allPUs)

	packagePUs := make(map[uint32]CPUSet)
	corePUs := make(map[[2]uint32]CPUSet)
	cachePUs := make(map[cacheKey]CPUSet)
	numaPUs := make(map[int]CPUSet)

	for i, info := range infos {
		if info == nil || !info.Present {
			continue
		}

		pkg := packagePUs[info.PackageID]
		pkg.Set(i)
		packagePUs[info.PackageID] = pkg

		ck := [2]uint32{info.PackageID, info.CoreID}
		core := corePUs[ck]
		core.Set(i)
		corePUs[ck] = core

		if numaOfPU != nil {
			if node, ok := numaOfPU[i]; ok {
				s := numaPUs[node]
				s.Set(i)
				numaPUs[node] = s
			}
		}

		for _, c := range info.Caches {
			if c.NBThreadSharing == 0 {
				continue
			}
			group := uint32(0)
			if info.MaxLogProc > 0 {
				group = (info.APICID % info.MaxLogProc) / uint32(c.NBThreadSharing)
			}
			key := cacheKey{packageID: info.PackageID, group: group, level: c.Level, typ: c.Type}
			s := cachePUs[key]
			s.Set(i)
			cachePUs[key] = s
		}
	}

	for _, pkgID := range sortedUint32Keys(packagePUs) {
		insertObject(root, ObjPackage, packagePUs[pkgID])
	}

	for _, node := range sortedIntKeys(numaPUs) {
		insertObject(root, ObjNUMANode, numaPUs[node])
	}

	for _, key := range sortedCacheKeys(cachePUs) {
		insertObject(root, cacheObjType(key.level, key.typ), cachePUs[key])
	}

	for _, key := range sortedCoreKeys(corePUs) {
		insertObject(root, ObjCore, corePUs[key])
	}

	for i, info := range infos {
		if info == nil || !info.Present {
			continue
		}
		pu := insertObject(root, ObjHwthread, NewCPUSet(i))
		pu.OSIndex = i
		pu.Attrs["apicid"] = fmt.Sprintf("%d", info.APICID)
	}

	assignLogicalIndices(root)
	return root, nil
}

func sortedUint32Keys(m map[uint32]CPUSet) []uint32 {
	out := make([]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedIntKeys(m map[int]CPUSet) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func sortedCoreKeys(m map[[2]uint32]CPUSet) [][2]uint32 {
	out := make([][2]uint32, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func sortedCacheKeys(m map[cacheKey]CPUSet) []cacheKey {
	out := make([]cacheKey, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	// Largest level first so outer caches are inserted before the
	// inner ones they must end up containing.
	sort.Slice(out, func(i, j int) bool {
		if out[i].level != out[j].level {
			return out[i].level > out[j].level
		}
		if out[i].packageID != out[j].packageID {
			return out[i].packageID < out[j].packageID
		}
		return out[i].group < out[j].group
	})
	return out
}
