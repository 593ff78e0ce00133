package delivery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/WhyMan1/bot-reality/internal/config"
	"github.com/WhyMan1/bot-reality/internal/models"
)

type fakeMessenger struct {
	sentChatID   int64
	sentText     string
	groupReply   bool
	replyChatID  int64
	replyMsgID   int64
	replyThread  int64
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.sentChatID = chatID
	f.sentText = text
	return nil
}

func (f *fakeMessenger) SendGroupReply(ctx context.Context, chatID, messageID, threadID int64, text string) error {
	f.groupReply = true
	f.replyChatID = chatID
	f.replyMsgID = messageID
	f.replyThread = threadID
	f.sentText = text
	return nil
}

func (f *fakeMessenger) EditMessage(ctx context.Context, chatID, messageID int64, text string) error {
	return nil
}

func (f *fakeMessenger) DeleteAfter(ctx context.Context, chatID, messageID int64, delay time.Duration) {
}

func fastRetry() config.RetryConfig {
	return config.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func fullReportFixture() string {
	return strings.Join([]string{
		"🔍 Checking example.com:",
		"✅ A: 93.184.216.34",
		"🟢 Ping: ~12.3 ms",
		"",
		"🔒 TLS",
		"✅ TLS 1.3 supported",
		"",
		"🌐 HTTP",
		"✅ HTTP/2 supported",
		"🛡 WAF not detected",
		"🟢 No CDN detected",
		"",
		"🛰 Suitability assessment",
		"✅ Suitable for Reality",
	}, "\n")
}

func TestDeliverDMFullVerbatim(t *testing.T) {
	messenger := &fakeMessenger{}
	router := NewRouter(messenger, "short", fastRetry())
	task := &models.TaskRecord{Domain: "example.com", UserID: 42, ChatID: 42}

	if err := router.Deliver(context.Background(), task, fullReportFixture()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if messenger.groupReply {
		t.Error("Expected plain send for DM task")
	}
	if messenger.sentChatID != 42 {
		t.Errorf("Expected delivery to chat 42, got %d", messenger.sentChatID)
	}
	if messenger.sentText != fullReportFixture() {
		t.Error("Expected full report delivered verbatim to DM")
	}
}

func TestDeliverDMShortAppendsHint(t *testing.T) {
	messenger := &fakeMessenger{}
	router := NewRouter(messenger, "short", fastRetry())
	task := &models.TaskRecord{Domain: "example.com", UserID: 42, ChatID: 42, ShortMode: true}

	shortText := "🔍 Checking example.com:\n🛰 ✅ Suitable for Reality"
	if err := router.Deliver(context.Background(), task, shortText); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if !strings.HasSuffix(messenger.sentText, dmShortHint) {
		t.Errorf("Expected DM short hint appended, got:\n%s", messenger.sentText)
	}
}

func TestDeliverGroupShortModeDerivesAndHints(t *testing.T) {
	messenger := &fakeMessenger{}
	router := NewRouter(messenger, "short", fastRetry())
	task := &models.TaskRecord{Domain: "example.com", UserID: 42, ChatID: -100123, MessageID: 7, ThreadID: 3}

	if err := router.Deliver(context.Background(), task, fullReportFixture()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if !messenger.groupReply {
		t.Fatal("Expected group reply for group task")
	}
	if messenger.replyChatID != -100123 || messenger.replyMsgID != 7 || messenger.replyThread != 3 {
		t.Errorf("Group reply routing mismatch: chat=%d msg=%d thread=%d",
			messenger.replyChatID, messenger.replyMsgID, messenger.replyThread)
	}
	if strings.Contains(messenger.sentText, "Suitability assessment") {
		t.Errorf("Expected derived short form in group, got:\n%s", messenger.sentText)
	}
	if !strings.HasSuffix(messenger.sentText, groupShortHint) {
		t.Errorf("Expected group hint appended, got:\n%s", messenger.sentText)
	}
}

func TestDeliverGroupFullModeVerbatim(t *testing.T) {
	messenger := &fakeMessenger{}
	router := NewRouter(messenger, "full", fastRetry())
	task := &models.TaskRecord{Domain: "example.com", UserID: 42, ChatID: -100123}

	if err := router.Deliver(context.Background(), task, fullReportFixture()); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if messenger.sentText != fullReportFixture() {
		t.Error("Expected full report delivered verbatim in full-mode group")
	}
}

func TestDeliverGroupShortModeUnparsableTextStaysWhole(t *testing.T) {
	messenger := &fakeMessenger{}
	router := NewRouter(messenger, "short", fastRetry())
	task := &models.TaskRecord{Domain: "example.com", UserID: 42, ChatID: -100123}

	errText := "❌ Error checking example.com: probe failed"
	if err := router.Deliver(context.Background(), task, errText); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}

	if !strings.HasPrefix(messenger.sentText, errText) {
		t.Errorf("Expected error text preserved, got:\n%s", messenger.sentText)
	}
}
