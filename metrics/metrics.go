// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics collects prometheus instrumentation for a discovery
// build pass: CPUID probing, virtualization, topology fitting, and XML
// persistence. The core never serves these over HTTP itself — it only
// registers them against a prometheus.Registerer the caller owns,
// mirroring sinks/prometheusSink.go's gauge/counter bookkeeping minus
// the bundled HTTP server.
package metrics

import (
	"errors"

	"github.com/ClusterCockpit/cc-netloc/util"
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors bundles every metric this package exposes.
type Collectors struct {
	CPUIDProbeTotal        *prometheus.CounterVec
	CPUIDProbeDuration     prometheus.Histogram
	VirtualizeClassesTotal prometheus.Gauge
	FitAttemptsTotal       *prometheus.CounterVec
	XMLLoadDuration        prometheus.Histogram
	XMLSaveDuration        prometheus.Histogram
	TopoDirBytes           prometheus.GaugeFunc
}

// New builds a fresh, unregistered set of collectors. topoDir may be
// empty, in which case TopoDirBytes always reports 0 (no directory to
// measure, e.g. before C7 has ever written anything).
func New(topoDir string) *Collectors {
	return &Collectors{
		CPUIDProbeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cc_netloc",
			Name:      "cpuid_probe_total",
			Help:      "Number of CPUID probes attempted, by result.",
		}, []string{"result"}),
		CPUIDProbeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cc_netloc",
			Name:      "cpuid_probe_duration_seconds",
			Help:      "Time spent probing a single hardware thread's CPUID leaves.",
		}),
		VirtualizeClassesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cc_netloc",
			Name:      "virtualize_classes_total",
			Help:      "Number of switch equivalence classes found in the last virtualization pass.",
		}),
		FitAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cc_netloc",
			Name:      "fit_attempts_total",
			Help:      "Number of tree-fit attempts, by result.",
		}, []string{"result"}),
		XMLLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cc_netloc",
			Name:      "xml_load_duration_seconds",
			Help:      "Time spent decoding a machine topology document.",
		}),
		XMLSaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cc_netloc",
			Name:      "xml_save_duration_seconds",
			Help:      "Time spent encoding a machine topology document.",
		}),
		TopoDirBytes: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cc_netloc",
			Name:      "topodir_bytes",
			Help:      "Total size in bytes of the persisted topology directory.",
		}, func() float64 {
			if topoDir == "" {
				return 0
			}
			return util.DiskUsage(topoDir)
		}),
	}
}

// Register adds every collector to reg. It is idempotent: registering
// the same Collectors instance (or an equivalent one, by metric
// descriptor) twice against the same Registerer succeeds both times,
// since a prometheus.AlreadyRegisteredError is swallowed rather than
// returned.
func (c *Collectors) Register(reg prometheus.Registerer) error {
	for _, collector := range []prometheus.Collector{
		c.CPUIDProbeTotal,
		c.CPUIDProbeDuration,
		c.VirtualizeClassesTotal,
		c.FitAttemptsTotal,
		c.XMLLoadDuration,
		c.XMLSaveDuration,
		c.TopoDirBytes,
	} {
		if err := reg.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
