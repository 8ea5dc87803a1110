// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cpuid

// decodeCaches dispatches on vendor/feature availability exactly as
// the source table does: AMD topology-extension leaf 0x8000001D first,
// then Intel leaf 4, then the legacy AMD 0x80000005/6 fallback.
func decodeCaches(info *ProcInfo, src Source, highestLeaf, highestExtLeaf, features uint32) {
	if info.Vendor != VendorIntel && hasTopoExt(features) {
		decodeAMDTopoExtCaches(info, src)
		return
	}
	if info.Vendor != VendorAMD && highestLeaf >= 4 {
		decodeIntelLeaf4Caches(info, src)
		return
	}
	if info.Vendor != VendorIntel {
		decodeLegacyAMDCaches(info, src, highestExtLeaf)
	}
}

func decodeAMDTopoExtCaches(info *ProcInfo, src Source) {
	for n := uint32(0); ; n++ {
		regs := cpuid(src, 0x8000001D, n)
		typ := regs.EAX & 0x1f
		if typ == 0 {
			break
		}

		linesize := int((regs.EBX & 0xfff) + 1)
		linepart := int(((regs.EBX >> 12) & 0x3ff) + 1)
		waysRaw := int(((regs.EBX >> 22) & 0x3ff) + 1)
		sets := int(regs.ECX + 1)

		ways := waysRaw
		if regs.EAX&(1<<9) != 0 {
			ways = -1
		}

		c := Cache{
			Type:            CacheType(typ),
			Level:           int((regs.EAX >> 5) & 0x7),
			NBThreadSharing: int(((regs.EAX >> 14) & 0xfff) + 1),
			LineSize:        linesize,
			LinePart:        linepart,
			Ways:            ways,
			Sets:            sets,
			Inclusive:       regs.EDX&0x2 != 0,
		}
		c.Size = uint64(linesize) * uint64(linepart) * uint64(waysIgnoringFull(ways)) * uint64(sets)
		info.Caches = append(info.Caches, c)
	}
}

func waysIgnoringFull(ways int) int {
	if ways < 0 {
		return 1
	}
	return ways
}

func decodeIntelLeaf4Caches(info *ProcInfo, src Source) {
	for n := uint32(0); ; n++ {
		regs := cpuid(src, 4, n)
		typ := regs.EAX & 0x1f
		if typ == 0 {
			break
		}
		if n == 0 {
			info.MaxNBCores = ((regs.EAX >> 26) & 0x3f) + 1
			if info.MaxNBCores > 0 {
				info.MaxNBThreads = info.MaxLogProc / info.MaxNBCores
				if info.MaxNBThreads == 0 {
					info.MaxNBThreads = 1
				}
			}
			info.ThreadID = info.LogProcID % info.MaxNBThreads
			info.CoreID = info.LogProcID / info.MaxNBThreads
		}

		linesize := int((regs.EBX & 0xfff) + 1)
		linepart := int(((regs.EBX >> 12) & 0x3ff) + 1)
		waysRaw := int(((regs.EBX >> 22) & 0x3ff) + 1)
		sets := int(regs.ECX + 1)

		c := Cache{
			Type:            CacheType(typ),
			Level:           int((regs.EAX >> 5) & 0x7),
			NBThreadSharing: int(((regs.EAX >> 14) & 0xfff) + 1),
			LineSize:        linesize,
			LinePart:        linepart,
			Ways:            waysRaw,
			Sets:            sets,
			Inclusive:       regs.EDX&0x2 != 0,
		}
		c.Size = uint64(linesize) * uint64(linepart) * uint64(waysRaw) * uint64(sets)
		info.Caches = append(info.Caches, c)
	}
}

var legacyAMDWaysTable = [16]int{0, 1, 2, 0, 4, 0, 8, 0, 16, 0, 32, 48, 64, 96, 128, -1}

func decodeLegacyAMDCaches(info *ProcInfo, src Source, highestExtLeaf uint32) {
	if highestExtLeaf >= 0x80000005 {
		regs := cpuid(src, 0x80000005, 0)
		appendLegacyAMDCache(info, 1, CacheTypeData, regs.ECX)
		appendLegacyAMDCache(info, 1, CacheTypeInstruction, regs.EDX)
	}
	if highestExtLeaf >= 0x80000006 {
		regs := cpuid(src, 0x80000006, 0)
		if regs.ECX&0xf000 != 0 {
			appendLegacyAMDCache(info, 2, CacheTypeUnified, regs.ECX)
		}
		if regs.EDX&0xf000 != 0 {
			appendLegacyAMDCache(info, 3, CacheTypeUnified, regs.EDX)
		}
	}
}

func appendLegacyAMDCache(info *ProcInfo, level int, typ CacheType, reg uint32) {
	var size uint64
	switch level {
	case 1:
		size = uint64(reg>>24) << 10
	case 2:
		size = uint64(reg>>16) << 10
	case 3:
		size = uint64(reg>>18) << 19
	}
	if size == 0 {
		return
	}

	c := Cache{Type: typ, Level: level}
	if level <= 2 {
		c.NBThreadSharing = 1
	} else {
		c.NBThreadSharing = int(info.MaxLogProc)
	}
	c.LineSize = int(reg & 0xff)

	if level == 1 {
		ways := int((reg >> 16) & 0xff)
		if ways == 0xff {
			ways = -1
		}
		c.Ways = ways
	} else {
		c.Ways = legacyAMDWaysTable[(reg>>12)&0xf]
	}
	c.Size = size

	// Family 0x10 model 0x9 (AMD Magny-Cours) reports an L3 shared
	// across the whole package, but it is actually split in two halves
	// per die; halve size/ways/sharers (capping the reported sharer
	// count at 12 first) to reflect the real per-die L3.
	if info.FamilyNumber == 0x10 && info.ModelNumber == 0x9 && level == 3 &&
		(c.Ways == -1 || c.Ways%2 == 0) && c.NBThreadSharing >= 8 {
		if c.NBThreadSharing == 16 {
			c.NBThreadSharing = 12
		}
		c.NBThreadSharing /= 2
		c.Size /= 2
		if c.Ways != -1 {
			c.Ways /= 2
		}
	}

	info.Caches = append(info.Caches, c)
}
