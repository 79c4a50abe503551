package rhi_test

import (
	"sync"
	"testing"

	"github.com/gogpu/rhi"
	"github.com/gogpu/rhi/renderqueue"
	"github.com/gogpu/rhi/types"
)

// TestRenderThreadDrainsQueue verifies producer commands run on the
// render thread within the frame lifecycle, in FIFO order.
func TestRenderThreadDrainsQueue(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)
	newTestSwapchain(t, device)

	rt := rhi.NewRenderThread(device)
	defer rt.Stop()

	var mu sync.Mutex
	var order []int
	const n = 100
	for i := 0; i < n; i++ {
		i := i
		rt.Queue().Enqueue("RecordIndex", func(ctx *renderqueue.Context) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	var sawList bool
	status := rt.RenderFrame(func(cl *rhi.CommandList) {
		sawList = cl != nil
	})
	if status != types.SwapchainOK {
		t.Fatalf("RenderFrame status %v", status)
	}
	if !sawList {
		t.Error("record callback did not receive the command list")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != n {
		t.Fatalf("executed %d commands, want %d", len(order), n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d", i, v, i)
		}
	}
}

// TestRenderThreadResize verifies a host resize lands at the next frame
// boundary: one skipped frame, then recovery at the new size.
func TestRenderThreadResize(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)
	sc := newTestSwapchain(t, device)

	rt := rhi.NewRenderThread(device)
	defer rt.Stop()

	if status := rt.RenderFrame(nil); status != types.SwapchainOK {
		t.Fatalf("first frame: %v", status)
	}

	rt.RequestResize(1920, 1080)
	if status := rt.RenderFrame(nil); status != types.SwapchainOutOfDate {
		t.Fatalf("resize frame: status %v, want OutOfDate (skipped)", status)
	}
	if status := rt.RenderFrame(nil); status != types.SwapchainOK {
		t.Fatalf("frame after resize: %v", status)
	}
	if w, h := sc.Dimensions(); w != 1920 || h != 1080 {
		t.Errorf("dimensions = %dx%d, want 1920x1080", w, h)
	}
}

// TestRenderThreadFlushBlocks verifies Flush waits for the consumer.
func TestRenderThreadFlushBlocks(t *testing.T) {
	device := newTestDevice(t, types.PreferModern)
	newTestSwapchain(t, device)

	rt := rhi.NewRenderThread(device)
	defer rt.Stop()

	ran := false
	rt.Queue().Enqueue("SetFlag", func(*renderqueue.Context) { ran = true })
	rt.Flush()
	if !ran {
		t.Error("Flush returned before the command ran")
	}
}
