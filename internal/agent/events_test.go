package agent_test

import (
	"testing"

	"github.com/p-n-ai/pai-ask/internal/agent"
)

func TestMemoryEventLogger_LogEvent(t *testing.T) {
	logger := agent.NewMemoryEventLogger()

	err := logger.LogEvent(agent.Event{
		UserID:    "user-1",
		RequestID: "req-1",
		EventType: agent.EventQuestionAnswered,
		Data: map[string]any{
			"source": "fuzzy",
		},
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := logger.Events()
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].EventType != agent.EventQuestionAnswered {
		t.Errorf("EventType = %q, want question_answered", events[0].EventType)
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestMemoryEventLogger_RequiresType(t *testing.T) {
	logger := agent.NewMemoryEventLogger()
	if err := logger.LogEvent(agent.Event{UserID: "u"}); err == nil {
		t.Fatal("expected error for missing event type")
	}
}

func TestPostgresEventLogger_LogEvent_NilPool(t *testing.T) {
	logger := agent.NewPostgresEventLogger(nil)

	err := logger.LogEvent(agent.Event{
		UserID:    "user-1",
		EventType: agent.EventSubjectSelected,
	})
	if err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestFingerprint(t *testing.T) {
	a := agent.Fingerprint("What is photosynthesis?")
	b := agent.Fingerprint("WHAT IS PHOTOSYNTHESIS?")
	c := agent.Fingerprint("What is dark matter?")

	if a != b {
		t.Errorf("Fingerprint should ignore case: %s != %s", a, b)
	}
	if a == c {
		t.Error("different questions should have different fingerprints")
	}
	if len(a) != 32 {
		t.Errorf("len(Fingerprint) = %d, want 32 hex chars", len(a))
	}
}
