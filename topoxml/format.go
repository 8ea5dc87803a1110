// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package topoxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ClusterCockpit/cc-netloc/fabric"
)

func formatIntArray(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}

// parseIntArray parses a space-separated decimal array. allowNegative
// must be false for dimension arrays (strictly positive) and anything
// else the schema calls non-negative; it is true only for raw integer
// fields with no such constraint.
func parseIntArray(s string, allowNegative bool) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Fields(s)
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("topoxml: invalid integer %q in array %q: %w", f, s, err)
		}
		if !allowNegative && v < 0 {
			return nil, fmt.Errorf("topoxml: negative value %d not allowed in array %q", v, s)
		}
		out[i] = v
	}
	return out, nil
}

func formatFloatArray(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

func parseFloatArray(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("topoxml: invalid float %q in array %q: %w", f, s, err)
		}
		out[i] = v
	}
	return out, nil
}

// formatCoordBlocks joins one partition's coordinates per block,
// separating blocks with ';' and coordinates within a block with ' '.
func formatCoordBlocks(positions []fabric.Position) string {
	blocks := make([]string, len(positions))
	for i, p := range positions {
		blocks[i] = formatIntArray(p.Coords)
	}
	return strings.Join(blocks, ";")
}

func parseCoordBlocks(s string) ([][]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	blocks := strings.Split(s, ";")
	out := make([][]int, len(blocks))
	for i, block := range blocks {
		coords, err := parseIntArray(block, false)
		if err != nil {
			return nil, fmt.Errorf("topoxml: invalid coords block %d: %w", i, err)
		}
		out[i] = coords
	}
	return out, nil
}

func nodeTypeToXML(t fabric.NodeType) string {
	if t == fabric.NodeSwitch {
		return "SW"
	}
	return "CA"
}

func nodeTypeFromXML(s string) (fabric.NodeType, error) {
	switch s {
	case "CA":
		return fabric.NodeHost, nil
	case "SW":
		return fabric.NodeSwitch, nil
	default:
		return 0, fmt.Errorf("topoxml: unknown node type %q (want CA or SW)", s)
	}
}
