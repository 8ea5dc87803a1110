// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cpuid

// intelTLBDescriptor is one row of the fixed Intel leaf-2 descriptor
// table: a one-byte id maps to a TLB geometry. Rows with all four
// entry counts at zero are not TLB descriptors (cache or prefetch
// descriptors sharing the same byte-code space) and are skipped.
type intelTLBDescriptor struct {
	typ                                     TLBType
	entries4K, entries2M, entries4M, entries1G int
	associativity                              int
}

// Descriptor 0xC3's 1G-page field is pinned at 16 (see DESIGN.md open
// question c), preserving the source table's value even though some
// Intel manuals list 0 for that field.
var intelTLBTable = map[byte]intelTLBDescriptor{
	0x01: {TLBInstruction, 32, 0, 0, 0, 4},
	0x02: {TLBInstruction, 0, 0, 2, 0, 0},
	0x03: {TLBData, 64, 0, 0, 0, 4},
	0x04: {TLBData, 0, 0, 8, 0, 4},
	0x05: {TLBData, 0, 0, 32, 0, 4},
	0x0B: {TLBInstruction, 0, 0, 4, 0, 4},
	0x4F: {TLBInstruction, 32, 0, 0, 0, 1},
	0x50: {TLBInstruction, 64, 64, 64, 0, 1},
	0x51: {TLBInstruction, 128, 128, 128, 0, 1},
	0x52: {TLBInstruction, 256, 256, 256, 0, 1},
	0x55: {TLBInstruction, 0, 7, 7, 0, 0},
	0x56: {TLBData, 0, 0, 16, 0, 4},
	0x57: {TLBData, 16, 0, 0, 0, 4},
	0x59: {TLBData, 16, 0, 0, 0, 0},
	0x5A: {TLBData, 0, 32, 32, 0, 4},
	0x5B: {TLBData, 64, 0, 64, 0, 1},
	0x5C: {TLBData, 128, 0, 128, 0, 1},
	0x5D: {TLBData, 256, 0, 256, 0, 1},
	0x61: {TLBInstruction, 48, 0, 0, 0, 0},
	0x63: {TLBData, 0, 0, 0, 4, 4},
	0x76: {TLBInstruction, 0, 8, 8, 0, 0},
	0xA0: {TLBData, 32, 0, 0, 0, 0},
	0xB0: {TLBInstruction, 128, 0, 0, 0, 4},
	0xB1: {TLBInstruction, 0, 8, 4, 0, 4},
	0xB2: {TLBInstruction, 64, 0, 0, 0, 4},
	0xB3: {TLBData, 128, 0, 0, 0, 4},
	0xB4: {TLBData, 256, 0, 0, 0, 4},
	0xB5: {TLBInstruction, 64, 0, 0, 0, 8},
	0xB6: {TLBInstruction, 128, 0, 0, 0, 8},
	0xBA: {TLBData, 64, 0, 0, 0, 4},
	0xC0: {TLBData, 8, 0, 8, 0, 4},
	0xC1: {TLBSharedL2, 1024, 1024, 0, 0, 8},
	0xC2: {TLBData, 16, 16, 0, 0, 4},
	0xC3: {TLBSharedL2, 1536, 1536, 0, 16, 6},
	0xCA: {TLBSharedL2, 512, 0, 0, 0, 4},
}

func decodeIntelLeaf2TLBs(info *ProcInfo, src Source) {
	regs := cpuid(src, 2, 0)
	values := [4]uint32{regs.EAX, regs.EBX, regs.ECX, regs.EDX}
	for i, v := range values {
		if v&(1<<31) != 0 {
			continue // reserved register
		}
		for j := 0; j < 4; j++ {
			id := byte(v >> (8 * j))
			if id == 0x01 && i == 0 && j == 0 {
				continue // least-significant byte of EAX is always 0x01 and must be ignored
			}
			d, ok := intelTLBTable[id]
			if !ok {
				continue
			}
			if d.entries4K == 0 && d.entries2M == 0 && d.entries4M == 0 && d.entries1G == 0 {
				continue
			}
			info.TLBs = append(info.TLBs, TLB{
				Type:          d.typ,
				Entries4K:     d.entries4K,
				Entries2M:     d.entries2M,
				Entries4M:     d.entries4M,
				Entries1G:     d.entries1G,
				Associativity: d.associativity,
			})
		}
	}
}

// amdAssocTable decodes the enum-coded associativity AMD uses for L2
// TLBs and L1 1G-page TLBs. The caller handles the two special codes
// before indexing: 0 means the TLB is disabled, 0xF means fully
// associative (recorded as associativity 0).
var amdAssocTable = map[uint32]int{
	0x1: 1, 0x2: 2, 0x4: 4, 0x6: 8, 0x8: 16, 0xA: 32, 0xB: 48, 0xC: 64, 0xD: 96, 0xE: 128,
}

// addTLBFromAMDRegister decodes one (register, type, size) TLB record
// per the AMD leaf layout: type 0/1 are plain L1 instruction/data
// (8-bit entries + 8-bit associativity, data packed in the high half),
// type >=2 or 1G-page entries use 12-bit entries + 4-bit associativity
// enum. Returns true if a valid (non-disabled) TLB was appended.
func addTLBFromAMDRegister(tlbs *[]TLB, reg uint32, typ TLBType, size int) bool {
	r := reg
	if typ == TLBData || typ == TLBL2Data {
		r = reg >> 16
	}

	var assoc int
	wide := typ == TLBSharedL2 || typ == TLBL2Instruction || typ == TLBL2Data || size == 2
	if wide {
		enc := (r >> 12) & 0xF
		if enc == 0 {
			return false
		}
		if enc == 0xF {
			assoc = 0
		} else if a, ok := amdAssocTable[enc]; ok {
			assoc = a
		} else {
			return false
		}
	} else {
		enc := (r >> 8) & 0xFF
		if enc == 0 {
			return false
		}
		if enc == 0xFF {
			assoc = 0
		} else {
			assoc = int(enc)
		}
	}

	t := TLB{Type: typ, Associativity: assoc}
	mask := uint32(0xFF)
	if wide {
		mask = 0xFFF
	}
	switch size {
	case 0:
		t.Entries4K = int(r & mask)
	case 1:
		t.Entries2M = int(r & mask)
		t.Entries4M = t.Entries2M / 2
	case 2:
		t.Entries1G = int(r & 0xFFF)
	}
	*tlbs = append(*tlbs, t)
	return true
}

func decodeAMDTLBs(info *ProcInfo, src Source, highestExtLeaf uint32) {
	foundL2InstructionTLB := false

	if highestExtLeaf >= 0x80000005 {
		regs := cpuid(src, 0x80000005, 0)
		addTLBFromAMDRegister(&info.TLBs, regs.EBX, TLBInstruction, 0)
		addTLBFromAMDRegister(&info.TLBs, regs.EAX, TLBInstruction, 1)
		addTLBFromAMDRegister(&info.TLBs, regs.EBX, TLBData, 0)
		addTLBFromAMDRegister(&info.TLBs, regs.EAX, TLBData, 1)
	}
	if highestExtLeaf >= 0x80000006 {
		regs := cpuid(src, 0x80000006, 0)
		addTLBFromAMDRegister(&info.TLBs, regs.EBX, TLBL2Instruction, 0)
		if addTLBFromAMDRegister(&info.TLBs, regs.EAX, TLBL2Instruction, 1) {
			foundL2InstructionTLB = true
		}
		addTLBFromAMDRegister(&info.TLBs, regs.EBX, TLBL2Data, 0)
		addTLBFromAMDRegister(&info.TLBs, regs.EAX, TLBL2Data, 1)
	}
	if highestExtLeaf >= 0x80000019 {
		regs := cpuid(src, 0x80000019, 0)
		addTLBFromAMDRegister(&info.TLBs, regs.EAX, TLBInstruction, 2)
		addTLBFromAMDRegister(&info.TLBs, regs.EAX, TLBData, 2)
		if addTLBFromAMDRegister(&info.TLBs, regs.EBX, TLBL2Instruction, 2) {
			foundL2InstructionTLB = true
		}
		addTLBFromAMDRegister(&info.TLBs, regs.EBX, TLBL2Data, 2)
	}

	// Erratum 658: "CPUID Incorrectly Reports Large Page Support in L2
	// Instruction TLB" on family 0x15 models <= 0xF. If CPUID never
	// surfaced an L2 instruction TLB for 2M/4M/1G pages, synthesize one.
	if !foundL2InstructionTLB && info.FamilyNumber == 0x15 && info.ModelNumber <= 0xF {
		info.TLBs = append(info.TLBs, TLB{
			Type:          TLBL2Instruction,
			Associativity: 6,
			Entries2M:     1024,
			Entries4M:     512,
			Entries1G:     1024,
		})
	}
}

func decodeTLBs(info *ProcInfo, src Source, highestLeaf, highestExtLeaf uint32) {
	if info.Vendor != VendorIntel && highestExtLeaf >= 0x80000005 {
		decodeAMDTLBs(info, src, highestExtLeaf)
		return
	}
	if info.Vendor != VendorAMD && highestLeaf >= 2 {
		decodeIntelLeaf2TLBs(info, src)
	}
}
