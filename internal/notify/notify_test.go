package notify

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogNotifierRecordsDelivery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	if err := n.SendVerificationCode(context.Background(), "ana@example.com", "ana", "123456"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := logs.FilterMessage("verification code issued").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["email"]; got != "ana@example.com" {
		t.Fatalf("unexpected email field %v", got)
	}
}
