package delivery

import (
	"context"

	"github.com/WhyMan1/bot-reality/internal/checker"
	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/WhyMan1/bot-reality/internal/models"
	"github.com/WhyMan1/bot-reality/internal/retry"
	"github.com/projectdiscovery/gologger"
)

const (
	groupShortHint = "\n\n💡 <i>For a full report, request it in the bot's DM.</i>"
	dmShortHint    = "\n\n💡 <i>For a full report, send the request again with the 'full' parameter.</i>"
)

// Router decides what form a report takes for its destination and sends it.
// Group chats are constrained by the configured group output mode; direct
// messages honor the mode the submitter asked for.
type Router struct {
	messenger       Messenger
	groupOutputMode string
	retryCfg        config.RetryConfig
}

// NewRouter creates a delivery router
func NewRouter(messenger Messenger, groupOutputMode string, retryCfg config.RetryConfig) *Router {
	return &Router{
		messenger:       messenger,
		groupOutputMode: groupOutputMode,
		retryCfg:        retryCfg,
	}
}

// Deliver sends the report to the task's origin. The text may be either
// form; group short mode derives the short form from a full text when
// needed. Sends go through the delivery retry profile.
func (r *Router) Deliver(ctx context.Context, task *models.TaskRecord, report string) error {
	if task.IsGroup() {
		return r.deliverToGroup(ctx, task, report)
	}

	text := report
	if task.ShortMode {
		text += dmShortHint
	}
	return r.send(ctx, func(ctx context.Context) error {
		return r.messenger.SendMessage(ctx, task.ChatID, text)
	})
}

func (r *Router) deliverToGroup(ctx context.Context, task *models.TaskRecord, report string) error {
	text := report
	if r.groupOutputMode == "short" {
		if short, ok := checker.DeriveShort(report); ok {
			text = short
		}
		text += groupShortHint
	}

	return r.send(ctx, func(ctx context.Context) error {
		return r.messenger.SendGroupReply(ctx, task.ChatID, task.MessageID, task.ThreadID, text)
	})
}

func (r *Router) send(ctx context.Context, op retry.Operation) error {
	err := retry.Do(ctx, r.retryCfg, op)
	if err != nil {
		gologger.Error().Msgf("Delivery failed after retries: %v", err)
	}
	return err
}
