// Package delivery routes rendered reports back to the chat a submission
// came from, over the Telegram Bot API.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/WhyMan1/bot-reality/internal/common"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/ratelimit"
)

const defaultAPIBase = "https://api.telegram.org"

// Messenger sends chat messages. The production implementation talks to the
// Telegram Bot API; tests substitute a fake.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendGroupReply(ctx context.Context, chatID, messageID, threadID int64, text string) error
	EditMessage(ctx context.Context, chatID, messageID int64, text string) error
	DeleteAfter(ctx context.Context, chatID, messageID int64, delay time.Duration)
}

// TelegramSender sends messages through the Bot API, throttled to the
// documented 30 messages per second bot-wide limit
type TelegramSender struct {
	token      string
	apiBase    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
}

// NewTelegramSender creates a sender for the given bot token
func NewTelegramSender(ctx context.Context, token string) *TelegramSender {
	return &TelegramSender{
		token:      token,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.New(ctx, 30, time.Second),
	}
}

type messagePayload struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text,omitempty"`
	ParseMode        string `json:"parse_mode,omitempty"`
	MessageID        int64  `json:"message_id,omitempty"`
	MessageThreadID  int64  `json:"message_thread_id,omitempty"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendMessage delivers a plain message to the chat
func (t *TelegramSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	return t.call(ctx, "sendMessage", messagePayload{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
}

// SendGroupReply delivers a threaded reply to the original group message.
// When the reply form is rejected (original message deleted, thread gone)
// it falls back to a plain send so the result is not lost.
func (t *TelegramSender) SendGroupReply(ctx context.Context, chatID, messageID, threadID int64, text string) error {
	err := t.call(ctx, "sendMessage", messagePayload{
		ChatID:           chatID,
		Text:             text,
		ParseMode:        "HTML",
		MessageThreadID:  threadID,
		ReplyToMessageID: messageID,
	})
	if err == nil {
		return nil
	}
	gologger.Debug().Msgf("Group reply to chat %d failed (%v), falling back to plain send", chatID, err)
	return t.SendMessage(ctx, chatID, text)
}

// EditMessage replaces the text of a previously sent message
func (t *TelegramSender) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	return t.call(ctx, "editMessageText", messagePayload{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: "HTML",
	})
}

// DeleteAfter schedules a message deletion. Failures are expected (the user
// may delete first) and only logged.
func (t *TelegramSender) DeleteAfter(ctx context.Context, chatID, messageID int64, delay time.Duration) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		err := t.call(ctx, "deleteMessage", messagePayload{
			ChatID:    chatID,
			MessageID: messageID,
		})
		if err != nil {
			gologger.Debug().Msgf("Deferred delete of message %d in chat %d failed: %v", messageID, chatID, err)
		}
	}()
}

func (t *TelegramSender) call(ctx context.Context, method string, payload messagePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return common.NewInternalError("failed to encode API payload", err)
	}

	t.limiter.Take()

	url := fmt.Sprintf("%s/bot%s/%s", t.apiBase, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return common.NewInternalError("failed to build API request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return common.NewNetworkError(fmt.Sprintf("telegram %s request failed", method), err)
	}
	defer resp.Body.Close()

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return common.NewNetworkError(fmt.Sprintf("telegram %s response unreadable", method), err)
	}
	if !result.OK {
		return common.NewNetworkError(fmt.Sprintf("telegram %s rejected: %s", method, result.Description), nil)
	}
	return nil
}

// NoopMessenger discards all messages. Used when no bot token is configured
// so the worker can still drain the queue in development.
type NoopMessenger struct{}

func (NoopMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	gologger.Info().Msgf("Delivery disabled, dropping message for chat %d", chatID)
	return nil
}

func (NoopMessenger) SendGroupReply(ctx context.Context, chatID, messageID, threadID int64, text string) error {
	gologger.Info().Msgf("Delivery disabled, dropping group reply for chat %d", chatID)
	return nil
}

func (NoopMessenger) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	return nil
}

func (NoopMessenger) DeleteAfter(ctx context.Context, chatID, messageID int64, delay time.Duration) {}
