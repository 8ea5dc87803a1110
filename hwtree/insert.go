// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hwtree

// findDeepestSuperset descends from o into whichever child's
// LogicalProcessors is a superset of cpus, repeating until no child
// qualifies. The result is the tightest existing ancestor an object
// with the given cpuset can be inserted under.
func findDeepestSuperset(o *Object, cpus CPUSet) *Object {
	for _, c := range o.Children {
		if cpus.SubsetOf(c.LogicalProcessors) {
			return findDeepestSuperset(c, cpus)
		}
	}
	return o
}

// insertObject places a new object of the given type and cpuset into
// the tree rooted at root, per the smallest-superset-parent rule: it
// attaches under the tightest existing ancestor whose own cpuset
// contains cpus, and any of that ancestor's existing children whose
// cpuset is in turn contained in cpus are re-homed underneath the new
// object (so a cache discovered after its cores have already been
// inserted still ends up as their parent, not their sibling).
//
// If an object of the same type and cpuset already exists, it is
// returned unchanged rather than duplicated. An equal cpuset is also a
// superset, so such an object is the chosen parent or one of its
// ancestors.
func insertObject(root *Object, typ ObjType, cpus CPUSet) *Object {
	parent := findDeepestSuperset(root, cpus)

	for o := parent; o != nil; o = o.Parent {
		if o.Type == typ && o.LogicalProcessors.Equal(cpus) {
			return o
		}
	}

	node := newObject(typ, cpus)
	var remaining []*Object
	for _, c := range parent.Children {
		if c.LogicalProcessors.SubsetOf(cpus) && !c.LogicalProcessors.Equal(cpus) {
			c.Parent = node
			node.Children = append(node.Children, c)
		} else {
			remaining = append(remaining, c)
		}
	}
	remaining = append(remaining, node)
	parent.Children = remaining
	node.Parent = parent
	return node
}

// assignLogicalIndices numbers every object among its same-type
// siblings-across-the-tree in a stable pre-order walk, the same
// "logical index" convention ccTopology.Object exposes.
func assignLogicalIndices(root *Object) {
	counters := make(map[ObjType]int)
	root.Walk(func(o *Object) {
		o.LogicalIndex = counters[o.Type]
		counters[o.Type]++
	})
}
