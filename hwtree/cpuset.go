// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package hwtree synthesizes a node-local hardware object tree
// (packages, NUMA nodes, caches, cores, hwthreads, accelerators) from
// decoded CPUID records, grounded on hwloc's object model as exposed
// by ccTopology.Object and the x86 backend's cache/topology-id
// assembly in topology-x86.c.
package hwtree

// CPUSet is a logical-processor membership bitmap, the Go analogue of
// hwloc_bitmap_t / hwloc_cpuset_t: every Object in the synthesized tree
// carries one, and the insertion algorithm is driven entirely by
// subset/superset comparisons between them.
type CPUSet struct {
	words []uint64
}

const cpuSetWordBits = 64

// NewCPUSet returns a set containing exactly the given logical
// processor indices.
func NewCPUSet(pus ...int) CPUSet {
	var s CPUSet
	for _, pu := range pus {
		s.Set(pu)
	}
	return s
}

func (s *CPUSet) ensure(bit int) {
	need := bit/cpuSetWordBits + 1
	for len(s.words) < need {
		s.words = append(s.words, 0)
	}
}

// Set adds pu to the set.
func (s *CPUSet) Set(pu int) {
	s.ensure(pu)
	s.words[pu/cpuSetWordBits] |= 1 << uint(pu%cpuSetWordBits)
}

// Test reports whether pu is a member.
func (s CPUSet) Test(pu int) bool {
	idx := pu / cpuSetWordBits
	if idx >= len(s.words) {
		return false
	}
	return s.words[idx]&(1<<uint(pu%cpuSetWordBits)) != 0
}

// Or returns the union of s and other.
func (s CPUSet) Or(other CPUSet) CPUSet {
	n := len(s.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	out := CPUSet{words: make([]uint64, n)}
	for i := 0; i < n; i++ {
		if i < len(s.words) {
			out.words[i] |= s.words[i]
		}
		if i < len(other.words) {
			out.words[i] |= other.words[i]
		}
	}
	return out
}

// SubsetOf reports whether every bit set in s is also set in other.
func (s CPUSet) SubsetOf(other CPUSet) bool {
	for i, w := range s.words {
		var ow uint64
		if i < len(other.words) {
			ow = other.words[i]
		}
		if w&^ow != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether s and other contain exactly the same members.
func (s CPUSet) Equal(other CPUSet) bool {
	return s.SubsetOf(other) && other.SubsetOf(s)
}

// Intersects reports whether s and other share at least one member.
func (s CPUSet) Intersects(other CPUSet) bool {
	n := len(s.words)
	if len(other.words) < n {
		n = len(other.words)
	}
	for i := 0; i < n; i++ {
		if s.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

// Weight returns the number of members.
func (s CPUSet) Weight() int {
	n := 0
	for _, w := range s.words {
		for w != 0 {
			w &= w - 1
			n++
		}
	}
	return n
}
