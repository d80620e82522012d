// Copyright 2025 Plenum Systems
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


package transcribe

import (
	"context"
	"log/slog"
	"time"

	"github.com/plenumhq/plenum/core"
)

// DefaultRetryDelays is the escalating wait ladder between transcription
// attempts.
var DefaultRetryDelays = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// RetryTransient runs operation up to len(delays) times, sleeping the
// ladder's delay between attempts. Only failures classified as transient
// (see core.IsTransient) are retried; any other failure returns
// immediately. Returns the error from the last attempt if all attempts
// fail.
func RetryTransient(ctx context.Context, operation func() error, delays []time.Duration) error {
	if len(delays) == 0 {
		return ErrNoRetryDelays
	}

	maxAttempts := len(delays)
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if !core.IsTransient(lastErr) {
			return lastErr
		}

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		slog.Debug("transient failure, will retry",
			"attempt", attempt, "maxAttempts", maxAttempts,
			"delay", delays[attempt-1], "error", lastErr)

		// Sleep with context awareness
		timer := time.NewTimer(delays[attempt-1])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
