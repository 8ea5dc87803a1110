// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build amd64

package cpuid

// asmCPUID executes the raw CPUID instruction with the given leaf in
// EAX and subleaf in ECX. Implemented in cpuid_amd64.s, analogous to
// hwloc's own inline-asm cpuid() helper.
func asmCPUID(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)
