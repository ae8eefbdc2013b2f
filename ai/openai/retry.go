// Copyright 2026 Mathieu Wauters
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"log/slog"
	"time"
)

// retryLinear runs operation up to maxRetries+1 times. Attempt n (1-based
// among the retries) waits n * delay first, so waits grow linearly. The
// last error is returned when every attempt fails; context cancellation
// cuts the loop short, including mid-wait.
func retryLinear(ctx context.Context, operation func() error, maxRetries int, delay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if attempt > 0 {
			timer := time.NewTimer(time.Duration(attempt) * delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 0 {
				slog.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		slog.Debug("operation failed", "attempt", attempt+1, "maxRetries", maxRetries, "err", lastErr)
	}
	return lastErr
}
