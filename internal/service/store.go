package service

import (
	"context"
	"time"
)

// storeContext bounds a single store call. A zero timeout leaves ctx's own deadline in charge.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
