package delivery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type apiCall struct {
	method  string
	payload messagePayload
}

func newTestSender(t *testing.T, handler func(method string, payload messagePayload) apiResponse) (*TelegramSender, *[]apiCall) {
	t.Helper()

	var mu sync.Mutex
	calls := &[]apiCall{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(r.URL.Path, "/")
		method := parts[len(parts)-1]

		var payload messagePayload
		json.NewDecoder(r.Body).Decode(&payload)

		mu.Lock()
		*calls = append(*calls, apiCall{method: method, payload: payload})
		mu.Unlock()

		json.NewEncoder(w).Encode(handler(method, payload))
	}))
	t.Cleanup(server.Close)

	sender := NewTelegramSender(context.Background(), "test-token")
	sender.apiBase = server.URL
	return sender, calls
}

func TestSendMessage(t *testing.T) {
	sender, calls := newTestSender(t, func(method string, payload messagePayload) apiResponse {
		return apiResponse{OK: true}
	})

	if err := sender.SendMessage(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if len(*calls) != 1 {
		t.Fatalf("Expected 1 API call, got %d", len(*calls))
	}
	call := (*calls)[0]
	if call.method != "sendMessage" {
		t.Errorf("Expected sendMessage method, got %s", call.method)
	}
	if call.payload.ChatID != 42 || call.payload.Text != "hello" {
		t.Errorf("Payload mismatch: %+v", call.payload)
	}
	if call.payload.ParseMode != "HTML" {
		t.Errorf("Expected HTML parse mode, got %q", call.payload.ParseMode)
	}
}

func TestSendMessageSurfacesAPIRejection(t *testing.T) {
	sender, _ := newTestSender(t, func(method string, payload messagePayload) apiResponse {
		return apiResponse{OK: false, Description: "chat not found"}
	})

	err := sender.SendMessage(context.Background(), 42, "hello")
	if err == nil {
		t.Fatal("Expected error for rejected send")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Expected API description in error, got %v", err)
	}
}

func TestSendGroupReplyCarriesThreadAndReply(t *testing.T) {
	sender, calls := newTestSender(t, func(method string, payload messagePayload) apiResponse {
		return apiResponse{OK: true}
	})

	if err := sender.SendGroupReply(context.Background(), -100123, 7, 3, "report"); err != nil {
		t.Fatalf("SendGroupReply failed: %v", err)
	}

	call := (*calls)[0]
	if call.payload.ReplyToMessageID != 7 || call.payload.MessageThreadID != 3 {
		t.Errorf("Expected reply/thread ids, got %+v", call.payload)
	}
}

func TestSendGroupReplyFallsBackToPlainSend(t *testing.T) {
	sender, calls := newTestSender(t, func(method string, payload messagePayload) apiResponse {
		// Reject the threaded reply, accept the plain retry
		if payload.ReplyToMessageID != 0 {
			return apiResponse{OK: false, Description: "message to be replied not found"}
		}
		return apiResponse{OK: true}
	})

	if err := sender.SendGroupReply(context.Background(), -100123, 7, 0, "report"); err != nil {
		t.Fatalf("Expected fallback to succeed, got %v", err)
	}

	if len(*calls) != 2 {
		t.Fatalf("Expected reply attempt plus fallback, got %d calls", len(*calls))
	}
	if (*calls)[1].payload.ReplyToMessageID != 0 {
		t.Error("Expected fallback without reply id")
	}
}

func TestEditMessage(t *testing.T) {
	sender, calls := newTestSender(t, func(method string, payload messagePayload) apiResponse {
		return apiResponse{OK: true}
	})

	if err := sender.EditMessage(context.Background(), 42, 9, "updated"); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}

	call := (*calls)[0]
	if call.method != "editMessageText" {
		t.Errorf("Expected editMessageText method, got %s", call.method)
	}
	if call.payload.MessageID != 9 || call.payload.Text != "updated" {
		t.Errorf("Payload mismatch: %+v", call.payload)
	}
}
