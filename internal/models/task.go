package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultPort is the TLS port probed when the submission names none.
const DefaultPort = 443

// TaskRecord represents the structure of task messages in the dispatch queue.
// Records are immutable once enqueued and consumed exactly once by a worker pop.
type TaskRecord struct {
	Domain    string `json:"domain"`
	Port      int    `json:"port,omitempty"`
	UserID    int64  `json:"user_id"`
	ShortMode bool   `json:"short_mode"`
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id,omitempty"`
	ThreadID  int64  `json:"thread_id,omitempty"`
}

// Encode serializes the record to the JSON wire format
func (t *TaskRecord) Encode() (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode task record: %w", err)
	}
	return string(data), nil
}

// IsGroup reports whether the task originated in a shared chat context
func (t *TaskRecord) IsGroup() bool {
	return t.ChatID != t.UserID
}

// TargetPort returns the port to probe, applying the default
func (t *TaskRecord) TargetPort() int {
	if t.Port > 0 {
		return t.Port
	}
	return DefaultPort
}

// DecodeTask parses a queued task record. The JSON object format is
// authoritative; the legacy positional "domain:user_id:short_mode" encoding
// is still accepted for records enqueued by older producers.
func DecodeTask(payload string) (*TaskRecord, error) {
	var task TaskRecord
	if err := json.Unmarshal([]byte(payload), &task); err == nil && task.Domain != "" {
		if task.ChatID == 0 {
			task.ChatID = task.UserID
		}
		return &task, nil
	}

	return decodeLegacyTask(payload)
}

// decodeLegacyTask parses the colon-delimited triple used by old producers
func decodeLegacyTask(payload string) (*TaskRecord, error) {
	parts := strings.Split(payload, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("unrecognized task record: %q", payload)
	}

	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid user id in legacy task record: %q", parts[1])
	}

	shortMode := parts[2] == "True" || parts[2] == "true"

	return &TaskRecord{
		Domain:    parts[0],
		UserID:    userID,
		ShortMode: shortMode,
		ChatID:    userID,
	}, nil
}
