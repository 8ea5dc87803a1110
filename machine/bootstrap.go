// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package machine

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
	"github.com/ClusterCockpit/cc-netloc/ccconfig"
	"github.com/ClusterCockpit/cc-netloc/fabric"
	"github.com/ClusterCockpit/cc-netloc/util"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*
var schemaFiles embed.FS

// BootstrapPartition is one partition entry of the bootstrap document,
// mirrored into a fabric.Partition once the graph builder assigns it a
// Bitset index.
type BootstrapPartition struct {
	Name      string `json:"name"`
	Subnet    string `json:"subnet"`
	Transport string `json:"transport"`
}

// Bootstrap is the "cluster" section of the ccconfig-loaded
// configuration file: everything needed to start a discovery pass
// before any node has been probed.
type Bootstrap struct {
	Partitions   []BootstrapPartition `json:"partitions"`
	CPUIDDumpDir string                `json:"cpuidDumpDir,omitempty"`
	TopoDir      string                `json:"topoDir,omitempty"`
}

func compileClusterSchema() (*jsonschema.Schema, error) {
	jsonschema.Loaders["embedfs"] = func(s string) (io.ReadCloser, error) {
		f := filepath.Join("schemas", strings.Split(s, "//")[1])
		return schemaFiles.Open(f)
	}
	return jsonschema.Compile("embedfs://cluster.schema.json")
}

// LoadBootstrap runs ccconfig.Init against filename, then validates and
// decodes the "cluster" section against the embedded JSON Schema. A
// missing "cluster" key, a schema violation, or malformed JSON are all
// structural errors — discovery must not begin against an invalid
// bootstrap document.
func LoadBootstrap(filename string) (*Bootstrap, error) {
	ccconfig.Init(filename)

	raw := ccconfig.GetPackageConfig("cluster")
	if raw == nil {
		return nil, fmt.Errorf("machine: bootstrap document %q has no \"cluster\" section", filename)
	}

	schema, err := compileClusterSchema()
	if err != nil {
		cclog.Errorf("MACHINE > failed to compile cluster schema: %s", err.Error())
		return nil, err
	}

	var v any
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return nil, fmt.Errorf("machine: cluster section is not valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("machine: cluster section failed schema validation: %w", err)
	}

	var b Bootstrap
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("machine: could not decode cluster section: %w", err)
	}
	return &b, nil
}

// RestrictionRuleSource returns the raw restriction-rule expression
// string from the bootstrap document's "restrictionRule" key, and
// whether one was present at all (the key is optional).
func RestrictionRuleSource() (string, bool) {
	return stringConfigKey("restrictionRule")
}

// RestrictionHostlistSource returns the raw compact hostlist expression
// from the bootstrap document's "restrictionHostlist" key, and whether
// one was present at all (the key is optional). It is the simpler
// sibling of RestrictionRuleSource for the common case of restricting
// to an explicit, named set of hosts rather than a boolean predicate.
func RestrictionHostlistSource() (string, bool) {
	return stringConfigKey("restrictionHostlist")
}

// stringConfigKey reads an optional top-level string key. It checks
// HasKey first so a key that was simply never declared in the bootstrap
// document (the common case for restrictionRule/restrictionHostlist)
// doesn't also trigger GetPackageConfig's "key not found" info log.
func stringConfigKey(key string) (string, bool) {
	if !ccconfig.HasKey(key) {
		return "", false
	}
	raw := ccconfig.GetPackageConfig(key)
	if raw == nil {
		return "", false
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		cclog.Warnf("MACHINE > %q key is not a JSON string: %s", key, err.Error())
		return "", false
	}
	return value, true
}

// StageTopoDir copies b.TopoDir into a "topo" subdirectory of workDir
// and returns the staged path, so a discovery pass can mutate its own
// copy of previously persisted C7 documents without disturbing the
// directory named in the bootstrap document. It is a no-op returning
// ("", nil) when the bootstrap document declared no TopoDir.
func (b *Bootstrap) StageTopoDir(workDir string) (string, error) {
	if b.TopoDir == "" {
		return "", nil
	}
	staged := filepath.Join(workDir, "topo")
	if err := util.CopyDir(b.TopoDir, staged); err != nil {
		return "", fmt.Errorf("machine: staging topoDir %q: %w", b.TopoDir, err)
	}
	return staged, nil
}

// ApplyPartitions registers every bootstrap partition on g via
// AddPartition, in declaration order, and returns the resulting
// fabric.Partition values (which now carry their assigned Bitset
// index).
func (b *Bootstrap) ApplyPartitions(g *fabric.Graph) []*fabric.Partition {
	out := make([]*fabric.Partition, len(b.Partitions))
	for i, p := range b.Partitions {
		out[i] = g.AddPartition(p.Name, p.Subnet, p.Transport)
	}
	return out
}
