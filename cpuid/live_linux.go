// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && amd64

package cpuid

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
	"github.com/ClusterCockpit/cc-netloc/metrics"
)

// LiveSource issues the raw CPUID instruction on whatever hardware
// thread the calling goroutine is currently pinned to. It never fails
// to produce registers (every leaf/subleaf combination is legal to
// issue, even if the CPU reports zeros for an unsupported one), so
// CPUID always reports ok == true.
type LiveSource struct{}

func (LiveSource) CPUID(leaf, subleaf uint32) (Registers, bool) {
	eax, ebx, ecx, edx := asmCPUID(leaf, subleaf)
	return Registers{EAX: eax, EBX: ebx, ECX: ecx, EDX: edx}, true
}

// ProbeLocal decodes ProcInfo for every hardware thread 0..nbProcs-1 of
// the local machine by pinning the calling OS thread to each target in
// turn. The surrounding OS affinity is saved before the first probe and
// restored on every exit path, including on error, per the scoped
// affinity-acquisition discipline. A single thread's binding failure is
// discovery-soft: it is logged and that thread's ProcInfo.Present stays
// false; lack of any CPUID capability at all (SchedGetaffinity failing
// outright) is a hard failure.
//
// mc may be nil; when given, it receives one Decode observation per
// hardware thread actually probed.
func ProbeLocal(nbProcs int, mc *metrics.Collectors) ([]*ProcInfo, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var original unix.CPUSet
	if err := unix.SchedGetaffinity(0, &original); err != nil {
		return nil, fmt.Errorf("cpuid: reading current CPU affinity: %w", err)
	}
	defer func() {
		if err := unix.SchedSetaffinity(0, &original); err != nil {
			cclog.Errorf("cpuid: failed to restore CPU affinity: %v", err)
		}
	}()

	out := make([]*ProcInfo, nbProcs)
	for i := 0; i < nbProcs; i++ {
		var set unix.CPUSet
		set.Zero()
		set.Set(i)
		if err := unix.SchedSetaffinity(0, &set); err != nil {
			cclog.Warnf("cpuid: failed to bind to hardware thread %d: %v", i, err)
			out[i] = &ProcInfo{Present: false}
			continue
		}
		info, err := Decode(LiveSource{}, mc)
		if err != nil {
			cclog.Warnf("cpuid: decode failed for hardware thread %d: %v", i, err)
			out[i] = &ProcInfo{Present: false}
			continue
		}
		out[i] = info
	}
	return out, nil
}
