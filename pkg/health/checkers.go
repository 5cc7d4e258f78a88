package health

import (
	"context"
	"fmt"
	"runtime"
)

// GoroutineCountCheck returns a liveness check that fails when the number of
// goroutines exceeds max, a cheap proxy for leaks and runaway load.
func GoroutineCountCheck(max int) CheckFunc {
	return func(ctx context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return fmt.Errorf("too many goroutines: %d > %d", n, max)
		}
		return nil
	}
}
