// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cpuid

import (
	"math/bits"
	"strings"
	"time"

	"github.com/ClusterCockpit/cc-netloc/metrics"
)

func cpuid(src Source, leaf, subleaf uint32) Registers {
	regs, ok := src.CPUID(leaf, subleaf)
	if !ok {
		return Registers{}
	}
	return regs
}

func regsToString(order ...uint32) string {
	var b strings.Builder
	for _, r := range order {
		for i := 0; i < 4; i++ {
			c := byte(r >> (8 * i))
			if c == 0 {
				break
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

func vendorFromLeaf0(src Source) Vendor {
	regs := cpuid(src, 0, 0)
	name := regsToString(regs.EBX, regs.EDX, regs.ECX)
	switch name {
	case "GenuineIntel":
		return VendorIntel
	case "AuthenticAMD":
		return VendorAMD
	default:
		return VendorUnknown
	}
}

// Decode turns the raw CPUID leaves reachable through src into a
// ProcInfo for one hardware thread. Present is always true on success;
// callers applying the discovery-soft policy substitute a
// ProcInfo{Present: false} of their own when a probe cannot be made at
// all (binding failure, missing dump entry).
//
// mc may be nil; when given, the probe's outcome and wall-clock time
// are recorded against it.
func Decode(src Source, mc *metrics.Collectors) (info *ProcInfo, err error) {
	if mc != nil {
		start := time.Now()
		defer func() {
			mc.CPUIDProbeDuration.Observe(time.Since(start).Seconds())
			result := "ok"
			if err != nil {
				result = "error"
			}
			mc.CPUIDProbeTotal.WithLabelValues(result).Inc()
		}()
	}

	info = &ProcInfo{Present: true}

	highestLeaf := cpuid(src, 0, 0).EAX
	info.Vendor = vendorFromLeaf0(src)

	highestExtLeaf := cpuid(src, 0x80000000, 0).EAX

	// Leaf 1: APIC id, HT max_log_proc, family/model/stepping.
	leaf1 := cpuid(src, 1, 0)
	info.APICID = leaf1.EBX >> 24
	if leaf1.EDX&(1<<28) != 0 {
		maxLP := (leaf1.EBX >> 16) & 0xff
		if maxLP > 1 {
			info.MaxLogProc = 1 << bits.Len32(maxLP-1)
		} else {
			info.MaxLogProc = 1
		}
	} else {
		info.MaxLogProc = 1
	}
	info.PackageID = info.APICID / info.MaxLogProc
	info.LogProcID = info.APICID % info.MaxLogProc

	model := (leaf1.EAX >> 4) & 0xf
	extModel := (leaf1.EAX >> 16) & 0xf
	family := (leaf1.EAX >> 8) & 0xf
	extFamily := (leaf1.EAX >> 20) & 0xff
	if family == 0xf {
		info.FamilyNumber = family + extFamily
	} else {
		info.FamilyNumber = family
	}
	if (info.Vendor == VendorIntel && (family == 0x6 || family == 0xf)) ||
		(info.Vendor == VendorAMD && family == 0xf) {
		info.ModelNumber = model | (extModel << 4)
	} else {
		info.ModelNumber = model
	}
	info.Family = info.FamilyNumber
	info.Stepping = leaf1.EAX & 0xf

	// Brand string from leaves 0x80000002-4.
	if highestExtLeaf >= 0x80000004 {
		r2 := cpuid(src, 0x80000002, 0)
		r3 := cpuid(src, 0x80000003, 0)
		r4 := cpuid(src, 0x80000004, 0)
		brand := regsToString(r2.EAX, r2.EBX, r2.ECX, r2.EDX,
			r3.EAX, r3.EBX, r3.ECX, r3.EDX,
			r4.EAX, r4.EBX, r4.ECX, r4.EDX)
		info.Model = strings.TrimSpace(brand)
	}

	// Leaf 0x80000008: non-Intel core-id sizing, recomputes package/thread ids.
	if info.Vendor != VendorIntel && highestExtLeaf >= 0x80000008 {
		leaf8 := cpuid(src, 0x80000008, 0)
		coreIDSize := (leaf8.ECX >> 12) & 0xf
		if coreIDSize == 0 {
			info.MaxNBCores = (leaf8.ECX & 0xff) + 1
		} else {
			info.MaxNBCores = 1 << coreIDSize
		}
		info.MaxNBThreads = 1
		info.PackageID = info.APICID / info.MaxNBCores
		info.LogProcID = info.APICID % info.MaxNBCores
		info.ThreadID = info.LogProcID % info.MaxNBThreads
		info.CoreID = info.LogProcID / info.MaxNBThreads
	}

	var features uint32
	if highestExtLeaf >= 0x80000001 {
		features = cpuid(src, 0x80000001, 0).ECX
	}
	decodeCaches(info, src, highestLeaf, highestExtLeaf, features)
	decodeTLBs(info, src, highestLeaf, highestExtLeaf)
	decodeX2APIC(info, src)

	return info, nil
}

const amdTopoExtBit = 1 << 22

func hasTopoExt(features uint32) bool {
	return features&amdTopoExtBit != 0
}

// decodeX2APIC implements CPUID leaf 0xB topology enumeration, used by
// Intel processors that expose it. It returns without reading the leaf
// for any other vendor.
func decodeX2APIC(info *ProcInfo, src Source) {
	if info.Vendor != VendorIntel {
		return
	}
	var shift uint32
	var level uint32
	for {
		regs := cpuid(src, 0xB, level)
		if regs.EAX == 0 && regs.EBX == 0 {
			break
		}
		nextShift := regs.EAX & 0x1f
		levelType := (regs.ECX >> 8) & 0xff
		width := nextShift - shift
		var id uint32
		if width > 0 && width < 32 {
			id = (info.APICID >> shift) & ((1 << width) - 1)
		} else {
			id = info.APICID >> shift
		}
		switch levelType {
		case 1:
			info.ThreadID = id
		case 2:
			info.CoreID = id
		default:
			info.OtherIDs = append(info.OtherIDs, id)
		}
		info.Levels++
		shift = nextShift
		level++
	}
	if info.Levels > 0 {
		info.PackageID = info.APICID >> shift
	}
}
