// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hwtree

// ObjType enumerates the object kinds the synthesizer can place in the
// tree, a trimmed analogue of ccTopology's HWLOC_OBJ_TYPE restricted to
// what CPUID and NVML can actually tell us about.
type ObjType int

const (
	ObjMachine ObjType = iota
	ObjPackage
	ObjNUMANode
	ObjL3Cache
	ObjL2Cache
	ObjL1Cache
	ObjL1ICache
	ObjCore
	ObjHwthread
	ObjAccelerator
)

func (t ObjType) String() string {
	switch t {
	case ObjMachine:
		return "machine"
	case ObjPackage:
		return "socket"
	case ObjNUMANode:
		return "memoryDomain"
	case ObjL3Cache:
		return "L3Cache"
	case ObjL2Cache:
		return "L2Cache"
	case ObjL1Cache:
		return "L1Cache"
	case ObjL1ICache:
		return "L1ICache"
	case ObjCore:
		return "core"
	case ObjHwthread:
		return "hwthread"
	case ObjAccelerator:
		return "accelerator"
	default:
		return "unknown"
	}
}

// Object is one node of the synthesized hardware tree. LogicalProcessors
// is the set of hwthreads (by OS logical-processor index, the index
// into the ProcInfo slice Synthesize was given) contained in this
// object's subtree; it is what insertion compares to find the right
// parent.
type Object struct {
	Type                ObjType
	OSIndex              int // meaningful only for ObjHwthread/ObjAccelerator
	LogicalIndex         int // pre-order position among all objects of the same type in the tree, assigned after synthesis
	Attrs                map[string]string

	LogicalProcessors CPUSet
	Children          []*Object
	Parent            *Object
}

func newObject(typ ObjType, cpus CPUSet) *Object {
	return &Object{Type: typ, OSIndex: -1, LogicalProcessors: cpus, Attrs: make(map[string]string)}
}

// Walk calls f for every object in the subtree rooted at o, in
// pre-order (o itself first).
func (o *Object) Walk(f func(*Object)) {
	f(o)
	for _, c := range o.Children {
		c.Walk(f)
	}
}

// Find returns the first object in the subtree for which match returns
// true, or nil.
func (o *Object) Find(match func(*Object) bool) *Object {
	if match(o) {
		return o
	}
	for _, c := range o.Children {
		if found := c.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// ByType collects every object of the given type in the subtree.
func (o *Object) ByType(typ ObjType) []*Object {
	var out []*Object
	o.Walk(func(n *Object) {
		if n.Type == typ {
			out = append(out, n)
		}
	})
	return out
}
