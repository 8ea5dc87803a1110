// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cpuid

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
	"github.com/ClusterCockpit/cc-netloc/util"
)

// Registers is the four-tuple a single CPUID call returns.
type Registers struct {
	EAX, EBX, ECX, EDX uint32
}

// Source abstracts where raw CPUID registers come from: a live probe
// pinned to a hardware thread, or a previously dumped transcript. A
// missing record is not an error here — it is reported through the ok
// return so callers can apply the discovery-soft "zero registers and
// warn" policy themselves.
type Source interface {
	CPUID(leaf, subleaf uint32) (Registers, bool)
}

// dumpRecord is one line of a dumped transcript:
// "inmask ineax inebx inecx inedx => outeax outebx outecx outedx".
// inmask selects, bit per input register (eax,ebx,ecx,edx), which
// inputs must match for the record to apply; in practice only eax
// (the leaf) and ecx (the subleaf) are ever masked in.
type dumpRecord struct {
	mask uint32
	in   Registers
	out  Registers
}

// DumpSource replays CPUID leaves from a directory produced by a prior
// discovery run: one file per hardware thread named "pu<idx>", plus a
// "hwloc-cpuid-info" file whose first line must read
// "Architecture: x86".
type DumpSource struct {
	records []dumpRecord
}

// LoadDumpDir validates and opens a CPUID dump directory for all
// nbProcs hardware threads, returning one DumpSource per thread index.
// PU indices must form the contiguous range [0, nbProcs); a short
// directory is a structural failure, but an unreadable individual "pu"
// file is discovery-soft (logged, that thread's Source is nil).
func LoadDumpDir(dir string, nbProcs int) ([]*DumpSource, error) {
	if !util.CheckFileExists(dir) {
		return nil, fmt.Errorf("cpuid dump directory %q does not exist", dir)
	}

	archFile := filepath.Join(dir, "hwloc-cpuid-info")
	first, err := firstLine(archFile)
	if err != nil {
		return nil, fmt.Errorf("cpuid dump directory %q missing hwloc-cpuid-info: %w", dir, err)
	}
	if strings.TrimSpace(first) != "Architecture: x86" {
		return nil, fmt.Errorf("cpuid dump directory %q is not an x86 dump (got %q)", dir, first)
	}

	if got := util.GetFilecount(dir); got < nbProcs {
		return nil, fmt.Errorf("cpuid dump directory %q has %d entries, want at least %d", dir, got, nbProcs)
	}

	out := make([]*DumpSource, nbProcs)
	for i := 0; i < nbProcs; i++ {
		puFile := filepath.Join(dir, fmt.Sprintf("pu%d", i))
		src, err := loadDumpFile(puFile)
		if err != nil {
			cclog.Warnf("cpuid: dump entry for pu%d missing or unreadable: %v", i, err)
			continue
		}
		out[i] = src
	}
	return out, nil
}

func firstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return sc.Text(), nil
	}
	return "", sc.Err()
}

func loadDumpFile(path string) (*DumpSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src := &DumpSource{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parseDumpLine(line)
		if err != nil {
			cclog.Warnf("cpuid: skipping malformed dump line %q: %v", line, err)
			continue
		}
		src.records = append(src.records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return src, nil
}

func parseDumpLine(line string) (dumpRecord, error) {
	parts := strings.SplitN(line, "=>", 2)
	if len(parts) != 2 {
		return dumpRecord{}, fmt.Errorf("missing '=>' separator")
	}
	inFields := strings.Fields(parts[0])
	outFields := strings.Fields(parts[1])
	if len(inFields) != 5 || len(outFields) != 4 {
		return dumpRecord{}, fmt.Errorf("expected 'mask eax ebx ecx edx => eax ebx ecx edx'")
	}

	vals := make([]uint32, 0, 9)
	for _, f := range append(inFields, outFields...) {
		v, err := strconv.ParseUint(strings.TrimPrefix(f, "0x"), 16, 32)
		if err != nil {
			return dumpRecord{}, err
		}
		vals = append(vals, uint32(v))
	}

	return dumpRecord{
		mask: vals[0],
		in:   Registers{EAX: vals[1], EBX: vals[2], ECX: vals[3], EDX: vals[4]},
		out:  Registers{EAX: vals[5], EBX: vals[6], ECX: vals[7], EDX: vals[8]},
	}, nil
}

// CPUID replays the dumped transcript: the first record whose input
// EAX equals leaf (when mask bit 0 is set) and whose input ECX equals
// subleaf (when mask bit 2 is set) wins; EBX and EDX inputs are not
// compared. A dump with no
// matching record returns ok == false (the discovery-soft "missing
// entry" case).
func (s *DumpSource) CPUID(leaf, subleaf uint32) (Registers, bool) {
	want := Registers{EAX: leaf, ECX: subleaf}
	for _, r := range s.records {
		if r.mask&1 != 0 && r.in.EAX != want.EAX {
			continue
		}
		if r.mask&(1<<2) != 0 && r.in.ECX != want.ECX {
			continue
		}
		return r.out, true
	}
	return Registers{}, false
}
