package legacy

import "github.com/gogpu/rhi/hal"

func init() {
	hal.RegisterBackend(API{})
}
