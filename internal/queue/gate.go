// Package queue implements the submission side of the dispatch pipeline:
// hostname extraction, duplicate suppression and the enqueue handshake.
package queue

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/WhyMan1/bot-reality/internal/checker"
	"github.com/WhyMan1/bot-reality/internal/common"
	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/WhyMan1/bot-reality/internal/models"
	"github.com/WhyMan1/bot-reality/internal/retry"
	"github.com/WhyMan1/bot-reality/internal/store"
	"github.com/projectdiscovery/gologger"
)

var hostnamePattern = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

// SubmitResult describes the outcome of a submission attempt
type SubmitResult int

const (
	// Accepted means the task record was enqueued
	Accepted SubmitResult = iota
	// Duplicate means a check for the same (hostname, user) is in flight
	Duplicate
)

// Origin carries the chat context a submission came from, so the result
// can be routed back to the right place
type Origin struct {
	ChatID    int64
	MessageID int64
	ThreadID  int64
}

// Gate validates submissions, suppresses duplicates with the shared dedup
// marker and hands accepted tasks to the dispatch queue
type Gate struct {
	store    *store.Store
	retryCfg config.RetryConfig
}

// NewGate creates a submission gate using the store retry profile
func NewGate(st *store.Store, retryCfg config.RetryConfig) *Gate {
	return &Gate{store: st, retryCfg: retryCfg}
}

// Submit validates the hostname, claims the dedup marker and enqueues the
// task record. The marker is claimed before the push so that a second
// submission racing this one observes Duplicate; if the push then fails the
// marker is released to permit resubmission.
func (g *Gate) Submit(ctx context.Context, rawInput string, port int, userID int64, shortMode bool, origin Origin) (SubmitResult, error) {
	hostname, err := ExtractHostname(rawInput)
	if err != nil {
		return 0, err
	}
	if port != 0 && (port < 1 || port > 65535) {
		return 0, common.NewValidationError("port", fmt.Sprintf("invalid port %d", port))
	}

	claimed, err := g.store.TryMarkPending(ctx, hostname, userID)
	if err != nil {
		return 0, err
	}
	if !claimed {
		gologger.Debug().Msgf("Duplicate submission of %s by user %d suppressed", hostname, userID)
		return Duplicate, nil
	}

	task := &models.TaskRecord{
		Domain:    hostname,
		Port:      port,
		UserID:    userID,
		ShortMode: shortMode,
		ChatID:    origin.ChatID,
		MessageID: origin.MessageID,
		ThreadID:  origin.ThreadID,
	}
	if task.ChatID == 0 {
		task.ChatID = userID
	}

	payload, err := task.Encode()
	if err != nil {
		g.releaseMarker(ctx, hostname, userID)
		return 0, err
	}

	err = retry.Do(ctx, g.retryCfg, func(ctx context.Context) error {
		return g.store.Enqueue(ctx, payload)
	})
	if err != nil {
		g.releaseMarker(ctx, hostname, userID)
		return 0, err
	}

	gologger.Info().Msgf("Enqueued check of %s for user %d", hostname, userID)
	return Accepted, nil
}

// CachedResult returns the cached report for a hostname in the requested
// form. Short requests are served by structural extraction from the cached
// full text; an extraction failure is treated as a cache miss.
func (g *Gate) CachedResult(ctx context.Context, rawInput string, shortMode bool) (string, bool, error) {
	hostname, err := ExtractHostname(rawInput)
	if err != nil {
		return "", false, err
	}

	text, found, err := g.store.CachedResult(ctx, hostname)
	if err != nil || !found {
		return "", false, err
	}

	if shortMode {
		short, ok := checker.DeriveShort(text)
		if !ok {
			gologger.Warning().Msgf("Cached report for %s is not extractable, treating as miss", hostname)
			return "", false, nil
		}
		return short, true, nil
	}
	return text, true, nil
}

func (g *Gate) releaseMarker(ctx context.Context, hostname string, userID int64) {
	err := retry.Do(ctx, g.retryCfg, func(ctx context.Context) error {
		return g.store.ClearPending(ctx, hostname, userID)
	})
	if err != nil {
		gologger.Warning().Msgf("Failed to release dedup marker for %s/%d: %v", hostname, userID, err)
	}
}

// ExtractHostname normalizes raw user input into a bare hostname: scheme,
// path, query and port decorations are stripped, the remainder is
// lower-cased and validated against the hostname grammar.
func ExtractHostname(rawInput string) (string, error) {
	input := strings.TrimSpace(rawInput)
	if input == "" {
		return "", common.NewValidationError("hostname", "hostname is required")
	}

	if idx := strings.Index(input, "://"); idx != -1 {
		input = input[idx+3:]
	}
	for _, sep := range []string{"/", "?", "#"} {
		if idx := strings.Index(input, sep); idx != -1 {
			input = input[:idx]
		}
	}
	if idx := strings.LastIndex(input, ":"); idx != -1 {
		if _, err := strconv.Atoi(input[idx+1:]); err == nil {
			input = input[:idx]
		}
	}

	hostname := strings.ToLower(strings.TrimSuffix(input, "."))
	if !hostnamePattern.MatchString(hostname) {
		return "", common.NewValidationError("hostname", fmt.Sprintf("invalid hostname %q", rawInput))
	}
	return hostname, nil
}
