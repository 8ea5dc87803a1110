// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-lib.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package hwtree

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	cclog "github.com/ClusterCockpit/cc-netloc/cclog"
)

// AddAccelerators enumerates the NVML-visible GPUs on the local host
// and attaches one ObjAccelerator leaf per device directly under root.
// Enumeration is discovery-soft: a node with no NVML library, no
// driver, or no GPUs is not an error — it simply gets no accelerator
// children, matching the policy the cpuid live probe uses for an
// unreachable hardware thread.
func AddAccelerators(root *Object) error {
	ret := nvml.Init()
	if ret != nvml.SUCCESS {
		cclog.Warnf("hwtree: NVML unavailable, skipping accelerator enumeration: %v", nvml.ErrorString(ret))
		return nil
	}
	defer func() {
		if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
			cclog.Warnf("hwtree: NVML shutdown failed: %v", nvml.ErrorString(ret))
		}
	}()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return fmt.Errorf("hwtree: NVML device count: %v", nvml.ErrorString(ret))
	}

	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			cclog.Warnf("hwtree: NVML device handle %d: %v", i, nvml.ErrorString(ret))
			continue
		}

		acc := newObject(ObjAccelerator, CPUSet{})
		acc.OSIndex = i

		if uuid, ret := dev.GetUUID(); ret == nvml.SUCCESS {
			acc.Attrs["uuid"] = uuid
		}
		if name, ret := dev.GetName(); ret == nvml.SUCCESS {
			acc.Attrs["name"] = name
		}
		if mem, ret := dev.GetMemoryInfo(); ret == nvml.SUCCESS {
			acc.Attrs["memory_bytes"] = fmt.Sprintf("%d", mem.Total)
		}

		acc.Parent = root
		root.Children = append(root.Children, acc)
	}

	assignLogicalIndices(root)
	return nil
}
