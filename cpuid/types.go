// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cpuid decodes raw x86 CPUID leaves — either read live from a
// pinned hardware thread or replayed from a dumped transcript — into a
// per-thread ProcInfo record. It implements the Intel/AMD cache and TLB
// tables and the APIC-id bit-slicing rules hwtree needs to synthesize
// the intra-node object tree.
package cpuid

// Vendor identifies the manufacturer that decided which CPUID leaves
// are meaningful and how their bitfields are packed.
type Vendor int

const (
	VendorUnknown Vendor = iota
	VendorIntel
	VendorAMD
)

func (v Vendor) String() string {
	switch v {
	case VendorIntel:
		return "Intel"
	case VendorAMD:
		return "AMD"
	default:
		return "Unknown"
	}
}

// CacheType mirrors the type field CPUID leaf 4 / 0x8000001D return:
// 1 data, 2 instruction, 3 unified.
type CacheType int

const (
	CacheTypeData CacheType = iota + 1
	CacheTypeInstruction
	CacheTypeUnified
)

// Cache describes one level of the cache hierarchy as seen by a single
// hardware thread.
type Cache struct {
	Level           int
	Type            CacheType
	Size            uint64 // bytes
	LineSize        int
	LinePart        int
	Ways            int // -1 means fully associative
	Sets            int
	NBThreadSharing int // number of logical processors sharing this cache
	Inclusive       bool
}

// TLBType follows the source table's encoding: 0 instruction, 1 data,
// 2 shared L2, 3 L2 instruction, 4 L2 data.
type TLBType int

const (
	TLBInstruction TLBType = iota
	TLBData
	TLBSharedL2
	TLBL2Instruction
	TLBL2Data
)

// TLB describes one translation-lookaside-buffer entry. Counts of zero
// mean that page size is not covered by this entry.
type TLB struct {
	Type          TLBType
	Entries4K     int
	Entries2M     int
	Entries4M     int
	Entries1G     int
	Associativity int // 0 means fully associative
}

// ProcInfo is the per-hardware-thread record the x86 synthesizer (C2)
// consumes. Present is false when the thread could not be probed
// (binding failure, or a missing dump entry) — every other field is
// then zero and must not be trusted.
type ProcInfo struct {
	Present bool

	APICID    uint32
	PackageID uint32
	NodeID    uint32
	UnitID    uint32
	CoreID    uint32
	ThreadID  uint32
	LogProcID uint32

	MaxLogProc  uint32
	MaxNBCores  uint32
	MaxNBThreads uint32

	// Levels counts every x2APIC leaf 0xB level enumerated; OtherIDs
	// holds the ids of the levels whose type did not map to
	// ThreadID/CoreID (e.g. a "module" or "tile" level).
	Levels   int
	OtherIDs []uint32

	Caches []Cache
	TLBs   []TLB

	Vendor   Vendor
	Model    string
	Family   uint32
	Stepping uint32

	FamilyNumber uint32
	ModelNumber  uint32
}
