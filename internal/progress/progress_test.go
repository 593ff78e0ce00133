package progress

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu        sync.Mutex
	published []string
	updated   []string
}

func (s *recordingSink) Publish(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published = append(s.published, text)
	return nil
}

func (s *recordingSink) Update(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updated = append(s.updated, text)
	return nil
}

func (s *recordingSink) lastUpdate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.updated) == 0 {
		return ""
	}
	return s.updated[len(s.updated)-1]
}

func TestTrackerLifecycle(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, 2, 0)
	ctx := context.Background()

	if err := tracker.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if len(sink.published) != 1 {
		t.Fatalf("Expected one published message, got %d", len(sink.published))
	}
	if !strings.Contains(sink.published[0], "0%") {
		t.Errorf("Expected initial 0%% progress, got %q", sink.published[0])
	}

	tracker.Record(ctx, true)
	tracker.Record(ctx, false)

	last := sink.lastUpdate()
	if !strings.Contains(last, "100%") {
		t.Errorf("Expected 100%% after all completions, got %q", last)
	}
	if !strings.Contains(last, "Done: 2/2, failed: 1") {
		t.Errorf("Expected completion counts, got %q", last)
	}

	summary := tracker.Finish(ctx)
	if !strings.Contains(summary, "1/2 succeeded, 1 failed") {
		t.Errorf("Expected summary counts, got %q", summary)
	}
}

func TestTrackerThrottlesIntermediateUpdates(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, 100, time.Hour)
	ctx := context.Background()

	for i := 0; i < 99; i++ {
		tracker.Record(ctx, true)
	}

	// First record painted, the rest fell inside the throttle window
	if len(sink.updated) != 1 {
		t.Errorf("Expected 1 throttled update, got %d", len(sink.updated))
	}

	// The final completion always paints
	tracker.Record(ctx, true)
	if len(sink.updated) != 2 {
		t.Errorf("Expected final completion to paint, got %d updates", len(sink.updated))
	}
}

func TestBatchProcessorCollectsResults(t *testing.T) {
	check := func(ctx context.Context, domain string) (string, bool, error) {
		switch domain {
		case "bad.example":
			return "", false, errors.New("probe failed")
		case "cached.example":
			return "report", true, nil
		default:
			return "report", false, nil
		}
	}

	processor := NewBatchProcessor(check, 3)
	domains := []string{"a.example", "b.example", "cached.example", "bad.example"}

	result := processor.Run(context.Background(), domains, nil)

	if result.Successful != 3 {
		t.Errorf("Expected 3 successes, got %d", result.Successful)
	}
	if result.Failed != 1 {
		t.Errorf("Expected 1 failure, got %d", result.Failed)
	}
	if result.Cached != 1 {
		t.Errorf("Expected 1 cached result, got %d", result.Cached)
	}
	if result.Errors["bad.example"] != "probe failed" {
		t.Errorf("Expected error recorded for bad.example, got %v", result.Errors)
	}
}

func TestBatchProcessorBoundsConcurrency(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0

	check := func(ctx context.Context, domain string) (string, bool, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return "report", false, nil
	}

	processor := NewBatchProcessor(check, 2)
	domains := []string{"a.example", "b.example", "c.example", "d.example", "e.example", "f.example"}
	processor.Run(context.Background(), domains, nil)

	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent checks, observed %d", peak)
	}
}

func TestBatchProcessorReportsProgress(t *testing.T) {
	sink := &recordingSink{}
	tracker := NewTracker(sink, 3, 0)

	check := func(ctx context.Context, domain string) (string, bool, error) {
		return "report", false, nil
	}

	processor := NewBatchProcessor(check, 1)
	processor.Run(context.Background(), []string{"a.example", "b.example", "c.example"}, tracker)

	if !strings.Contains(sink.lastUpdate(), "Done: 3/3") {
		t.Errorf("Expected tracker driven to completion, got %q", sink.lastUpdate())
	}
}
