// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package restrict

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/hostlist"
)

// HostlistRule restricts by explicit hostname-set membership, expanded
// once at compile time from a compact range expression (e.g.
// "cn[001-128]"). It supplements the expr-lang Rule for the common
// case of "these exact nodes", where writing out a boolean expression
// per hostname would be unwieldy.
type HostlistRule struct {
	names map[string]bool
}

// CompileHostlist expands src via hostlist.ExpandSet and returns a
// Rule matching exactly the resulting hostnames.
func CompileHostlist(src string) (*HostlistRule, error) {
	names, err := hostlist.ExpandSet(src)
	if err != nil {
		return nil, fmt.Errorf("restrict: failed to expand hostlist %q: %w", src, err)
	}
	return &HostlistRule{names: names}, nil
}

// Matches reports whether n's hostname is a member of the expanded
// hostlist.
func (r *HostlistRule) Matches(n *fabric.Node) (bool, error) {
	return r.names[n.Hostname], nil
}
