// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package redfish is a discovery source that populates the node/port
// half of C3's ingest triples from Redfish-enumerable chassis and
// network-interface data. It does not construct links or edges itself
// — that requires a link-layer discovery source such as a
// subnet-manager dump — so its output is handed to fabric.Graph's
// builder alongside whatever discovers the actual cabling. Grounded on
// receivers/redfishReceiver.go's gofish.ClientConfig usage and
// discovery-soft error handling.
package redfish

import (
	"context"
	"fmt"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
	"github.com/stmcginnis/gofish"
)

// PortRecord describes one network port discovered on a chassis.
type PortRecord struct {
	Name     string
	MACAddr  string
	LinkedID string // identifier of the adapter/interface the port belongs to
}

// HostRecord is one discovered host: its stable identity plus every
// port Redfish reported for it.
type HostRecord struct {
	PhysicalID string
	Hostname   string
	Ports      []PortRecord
}

// DiscoverHosts connects to every configured Redfish service and
// collects a HostRecord per chassis. A service that cannot be
// connected to, or whose chassis list cannot be read, is logged and
// skipped (discovery-soft); a chassis whose network adapters cannot be
// read is logged and kept with no ports. The only error returned is for
// an empty configs list: if every service is skipped, the result is an
// empty list and a nil error.
func DiscoverHosts(ctx context.Context, configs []gofish.ClientConfig) ([]HostRecord, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("redfish: no client configs given")
	}

	var hosts []HostRecord
	for _, cfg := range configs {
		cfg := cfg
		c, err := gofish.ConnectContext(ctx, cfg)
		if err != nil {
			cclog.Warnf("REDFISH > could not connect to %s: %s", cfg.Endpoint, err.Error())
			continue
		}

		chassisList, err := c.Service.Chassis()
		if err != nil {
			cclog.Warnf("REDFISH > %s: listing chassis failed: %s", cfg.Endpoint, err.Error())
			c.Logout()
			continue
		}

		for _, chassis := range chassisList {
			rec := HostRecord{
				PhysicalID: chassis.SerialNumber,
				Hostname:   chassis.Name,
			}
			if rec.PhysicalID == "" {
				rec.PhysicalID = chassis.ID
			}

			adapters, err := chassis.NetworkAdapters()
			if err != nil {
				cclog.Warnf("REDFISH > %s: chassis %s: NetworkAdapters() failed: %s", cfg.Endpoint, chassis.ID, err.Error())
				adapters = nil
			}
			for _, adapter := range adapters {
				rec.Ports = append(rec.Ports, PortRecord{
					Name:     adapter.Name,
					LinkedID: adapter.ID,
				})
			}

			hosts = append(hosts, rec)
		}

		c.Logout()
	}

	return hosts, nil
}
