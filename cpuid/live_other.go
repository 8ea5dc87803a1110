// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !linux || !amd64

package cpuid

import (
	"fmt"

	"github.com/ClusterCockpit/cc-netloc/metrics"
)

// ProbeLocal is only implemented on linux/amd64, where the raw CPUID
// instruction and Linux's sched_setaffinity are both available. On any
// other platform, discovery must go through a dumped transcript
// (LoadDumpDir) instead.
func ProbeLocal(nbProcs int, mc *metrics.Collectors) ([]*ProcInfo, error) {
	return nil, fmt.Errorf("cpuid: live probing is only supported on linux/amd64")
}
