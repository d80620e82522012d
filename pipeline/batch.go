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

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/plenumhq/plenum/core"
)

// DefaultConcurrency is how many sessions process at once by default.
const DefaultConcurrency = 3

// SessionProcessor runs one URL through the pipeline.
type SessionProcessor interface {
	Process(ctx context.Context, url string) (*core.Session, error)
}

// BatchProgressFunc observes batch progress after every finished URL,
// success or failure.
type BatchProgressFunc func(completed, total int, url string)

// URLResult is the outcome for one URL in a batch.
type URLResult struct {
	URL        string
	SessionKey string
	Status     core.Status
	Detail     string
}

// Summary is the outcome of a whole batch run.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	Results   map[string]URLResult
}

// Coordinator fans the pipeline out over many URLs with bounded
// concurrency. Sessions are independent; one failure never blocks or
// cancels the rest.
type Coordinator struct {
	processor   SessionProcessor
	concurrency int
	progress    BatchProgressFunc
	logger      *slog.Logger
}

// NewCoordinator creates a batch coordinator. concurrency <= 0 falls back
// to DefaultConcurrency; progress may be nil.
func NewCoordinator(processor SessionProcessor, concurrency int, progress BatchProgressFunc) *Coordinator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Coordinator{
		processor:   processor,
		concurrency: concurrency,
		progress:    progress,
		logger:      slog.Default().With("component", "batch"),
	}
}

// Run processes every URL and returns a per-URL summary. The error return
// covers coordinator setup only; per-URL failures land in the summary.
func (c *Coordinator) Run(ctx context.Context, urls []string) (*Summary, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	pool, err := ants.NewPool(c.concurrency)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	c.logger.Info("starting batch", "urls", len(urls), "concurrency", c.concurrency)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
		results   = make(map[string]URLResult, len(urls))
	)

	for _, u := range urls {
		u := u
		wg.Add(1)
		submit := func() {
			defer wg.Done()
			result := c.processOne(ctx, u)

			mu.Lock()
			results[u] = result
			completed++
			done := completed
			mu.Unlock()

			if c.progress != nil {
				c.progress(done, len(urls), u)
			}
		}
		if err := pool.Submit(submit); err != nil {
			// Pool refused the task; record the URL as failed instead of
			// losing it.
			wg.Done()
			mu.Lock()
			results[u] = URLResult{URL: u, Status: core.StatusFailed, Detail: err.Error()}
			completed++
			mu.Unlock()
		}
	}
	wg.Wait()

	summary := &Summary{Total: len(urls), Results: results}
	for _, r := range results {
		if r.Status == core.StatusCompleted {
			summary.Completed++
		} else {
			summary.Failed++
		}
	}

	c.logger.Info("batch finished",
		"total", summary.Total, "completed", summary.Completed, "failed", summary.Failed)
	return summary, nil
}

func (c *Coordinator) processOne(ctx context.Context, url string) URLResult {
	session, err := c.processor.Process(ctx, url)

	result := URLResult{URL: url}
	if session != nil {
		result.SessionKey = session.Key
		result.Status = session.Status
		result.Detail = session.ErrorMessage
	}
	if err != nil {
		result.Status = core.StatusFailed
		if result.Detail == "" {
			result.Detail = err.Error()
		}
	}
	return result
}
