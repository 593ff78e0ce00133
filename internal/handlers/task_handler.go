// Package handlers contains the per-task execution logic run by the worker
// loop: probe, cache, history and delivery for one dequeued task record.
package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/WhyMan1/bot-reality/internal/checker"
	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/WhyMan1/bot-reality/internal/delivery"
	"github.com/WhyMan1/bot-reality/internal/models"
	"github.com/WhyMan1/bot-reality/internal/retry"
	"github.com/WhyMan1/bot-reality/internal/store"
	"github.com/google/uuid"
	"github.com/projectdiscovery/gologger"
)

// TaskHandler processes one dequeued task end to end
type TaskHandler struct {
	cfg     *config.Config
	store   *store.Store
	checker *checker.Checker
	router  *delivery.Router
}

// NewTaskHandler creates a task handler
func NewTaskHandler(cfg *config.Config, st *store.Store, chk *checker.Checker, router *delivery.Router) *TaskHandler {
	return &TaskHandler{
		cfg:     cfg,
		store:   st,
		checker: chk,
		router:  router,
	}
}

// HandleTask runs the probe pipeline for the task under the check deadline,
// caches and records the outcome, releases the dedup marker and delivers
// the result. The marker is released on both success and failure so the
// user can always resubmit.
func (h *TaskHandler) HandleTask(ctx context.Context, task *models.TaskRecord) error {
	runID := uuid.New().String()[:8]
	gologger.Info().Msgf("[%s] Checking %s (user %d, short=%v)", runID, task.Domain, task.UserID, task.ShortMode)

	checkCtx, cancel := context.WithTimeout(ctx, time.Duration(h.cfg.App.CheckDeadline)*time.Second)
	defer cancel()

	var report *checker.Report
	err := retry.Do(checkCtx, h.cfg.Retry.Check, func(ctx context.Context) error {
		var runErr error
		report, runErr = h.checker.Run(ctx, task.Domain, task.TargetPort())
		return runErr
	})

	if err != nil {
		gologger.Error().Msgf("[%s] Check of %s failed: %v", runID, task.Domain, err)
		h.clearPending(ctx, task)
		h.router.Deliver(ctx, task, fmt.Sprintf("❌ Error checking %s: %v", task.Domain, err))
		return err
	}

	threshold := h.checker.PingThresholdMs()
	fullText := report.Render(true, threshold)

	// The cache always holds the full form so later short requests can be
	// served by extraction
	h.withStoreRetry(ctx, runID, "cache result", func(ctx context.Context) error {
		return h.store.CacheResult(ctx, task.Domain, fullText)
	})

	if h.cfg.App.SaveApprovedDomains && strings.Contains(fullText, checker.VerdictSuitable) {
		h.withStoreRetry(ctx, runID, "record approved domain", func(ctx context.Context) error {
			return h.store.AddApproved(ctx, task.Domain)
		})
	}

	entry := fmt.Sprintf("%s - %s", time.Now().Format("15:04"), task.Domain)
	h.withStoreRetry(ctx, runID, "record history", func(ctx context.Context) error {
		return h.store.RecordHistory(ctx, task.UserID, entry)
	})

	h.clearPending(ctx, task)

	text := fullText
	if task.ShortMode {
		text = report.Render(false, threshold)
	}
	if err := h.router.Deliver(ctx, task, text); err != nil {
		return err
	}

	gologger.Info().Msgf("[%s] Completed check of %s", runID, task.Domain)
	return nil
}

func (h *TaskHandler) clearPending(ctx context.Context, task *models.TaskRecord) {
	err := retry.Do(ctx, h.cfg.Retry.Store, func(ctx context.Context) error {
		return h.store.ClearPending(ctx, task.Domain, task.UserID)
	})
	if err != nil {
		gologger.Warning().Msgf("Failed to release dedup marker for %s/%d: %v", task.Domain, task.UserID, err)
	}
}

func (h *TaskHandler) withStoreRetry(ctx context.Context, runID, what string, op retry.Operation) {
	if err := retry.Do(ctx, h.cfg.Retry.Store, op); err != nil {
		gologger.Warning().Msgf("[%s] Failed to %s: %v", runID, what, err)
	}
}
