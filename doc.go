// Package rhi is the frontend of a multi-backend rendering hardware
// interface. It wraps the hal backend contract with reference-counted
// resource handles, deferred deletion, a validated command-list state
// machine, per-frame contexts tying swapchain acquisition to descriptor
// pool cycling, and environment-driven configuration.
//
// A renderer is written once against this package and runs on either
// backend:
//
//	import (
//		"github.com/gogpu/rhi"
//		_ "github.com/gogpu/rhi/hal/legacy"
//		_ "github.com/gogpu/rhi/hal/modern"
//	)
//
//	device, err := rhi.Init(rhi.ConfigFromEnv())
//	if err != nil { ... }
//	defer device.Destroy()
//
// Supporting subsystems live in their own packages: memory (tiered
// allocator), renderqueue (game-to-render-thread dispatch), fileio
// (async disk reads), streaming (texture mip streaming).
package rhi
