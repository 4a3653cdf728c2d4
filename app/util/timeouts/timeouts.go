package timeouts

import (
	"context"
	"time"
)

// Remaining caps timeout by what is left until the ctx deadline.
func Remaining(ctx context.Context, timeout time.Duration) time.Duration {
	if d, ok := ctx.Deadline(); ok {
		if left := time.Until(d); left < timeout {
			return max(left, time.Millisecond)
		}
	}

	return timeout
}
