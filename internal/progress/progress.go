// Package progress renders live progress for batch submissions: a status
// message that is edited in place as hostnames complete, plus the bounded
// concurrent runner that drives it.
package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"golang.org/x/sync/errgroup"
)

const barWidth = 20

// Sink receives progress text. Publish creates the status message, Update
// replaces its text in place.
type Sink interface {
	Publish(ctx context.Context, text string) error
	Update(ctx context.Context, text string) error
}

// Tracker accumulates batch completion counts and renders the progress
// text. Updates are throttled so message edits stay under chat rate limits;
// a throttled update is silently dropped, the next one repaints everything.
type Tracker struct {
	mu          sync.Mutex
	sink        Sink
	total       int
	completed   int
	failed      int
	started     time.Time
	lastUpdate  time.Time
	updateDelay time.Duration
}

// NewTracker creates a tracker for a batch of the given size
func NewTracker(sink Sink, total int, updateDelay time.Duration) *Tracker {
	return &Tracker{
		sink:        sink,
		total:       total,
		started:     time.Now(),
		updateDelay: updateDelay,
	}
}

// Start publishes the initial progress message
func (t *Tracker) Start(ctx context.Context) error {
	return t.sink.Publish(ctx, t.render())
}

// Record counts one completed hostname and repaints the progress message
// unless the previous repaint was too recent
func (t *Tracker) Record(ctx context.Context, succeeded bool) {
	t.mu.Lock()
	t.completed++
	if !succeeded {
		t.failed++
	}
	now := time.Now()
	throttled := t.completed < t.total && now.Sub(t.lastUpdate) < t.updateDelay
	if !throttled {
		t.lastUpdate = now
	}
	text := t.render()
	t.mu.Unlock()

	if throttled {
		return
	}
	if err := t.sink.Update(ctx, text); err != nil {
		gologger.Debug().Msgf("Progress update failed: %v", err)
	}
}

// Finish repaints the final state and returns the summary text
func (t *Tracker) Finish(ctx context.Context) string {
	t.mu.Lock()
	elapsed := time.Since(t.started).Round(time.Second)
	succeeded := t.completed - t.failed
	summary := fmt.Sprintf("✅ Batch finished: %d/%d succeeded, %d failed in %s",
		succeeded, t.total, t.failed, elapsed)
	t.mu.Unlock()

	if err := t.sink.Update(ctx, summary); err != nil {
		gologger.Debug().Msgf("Final progress update failed: %v", err)
	}
	return summary
}

func (t *Tracker) render() string {
	percent := 0
	if t.total > 0 {
		percent = t.completed * 100 / t.total
	}

	filled := barWidth * t.completed
	if t.total > 0 {
		filled /= t.total
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	lines := []string{
		fmt.Sprintf("⏳ Checking %d hostnames…", t.total),
		fmt.Sprintf("%s %d%%", bar, percent),
		fmt.Sprintf("Done: %d/%d, failed: %d", t.completed, t.total, t.failed),
	}

	elapsed := time.Since(t.started)
	lines = append(lines, fmt.Sprintf("Elapsed: %s", elapsed.Round(time.Second)))
	if t.completed > 0 && t.completed < t.total {
		eta := time.Duration(float64(elapsed) / float64(t.completed) * float64(t.total-t.completed))
		lines = append(lines, fmt.Sprintf("ETA: ~%s", eta.Round(time.Second)))
	}

	return strings.Join(lines, "\n")
}

// CheckFunc runs one hostname check and returns the rendered result and
// whether it was served from cache
type CheckFunc func(ctx context.Context, domain string) (result string, cached bool, err error)

// BatchResult summarizes one batch run
type BatchResult struct {
	Successful int
	Failed     int
	Cached     int
	Errors     map[string]string
}

// BatchProcessor runs hostname checks with bounded concurrency, reporting
// progress through a tracker
type BatchProcessor struct {
	check       CheckFunc
	concurrency int
}

// NewBatchProcessor creates a batch processor running at most concurrency
// checks at once
func NewBatchProcessor(check CheckFunc, concurrency int) *BatchProcessor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &BatchProcessor{check: check, concurrency: concurrency}
}

// Run checks every hostname, recording each completion with the tracker.
// Individual failures are collected rather than aborting the batch.
func (p *BatchProcessor) Run(ctx context.Context, domains []string, tracker *Tracker) *BatchResult {
	result := &BatchResult{Errors: make(map[string]string)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, domain := range domains {
		domain := domain
		g.Go(func() error {
			_, cached, err := p.check(gctx, domain)

			mu.Lock()
			if err != nil {
				result.Failed++
				result.Errors[domain] = err.Error()
			} else {
				result.Successful++
				if cached {
					result.Cached++
				}
			}
			mu.Unlock()

			if tracker != nil {
				tracker.Record(ctx, err == nil)
			}
			return nil
		})
	}

	g.Wait()
	return result
}
