package chat_test

import (
	"strings"
	"testing"

	"github.com/p-n-ai/pai-ask/internal/chat"
)

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxLen    int
		wantParts int
	}{
		{"short answer", "x = 5", 4096, 1},
		{"exact", "x = 5", 5, 1},
		{"split on spaces", "Photosynthesis turns light into chemical energy", 16, 4},
		{"empty", "", 4096, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := chat.SplitMessage(tt.text, tt.maxLen)
			if len(parts) != tt.wantParts {
				t.Errorf("SplitMessage() = %d parts %q, want %d", len(parts), parts, tt.wantParts)
			}
		})
	}
}

func TestSplitMessage_PreservesText(t *testing.T) {
	text := "I found this information: Dark matter is matter that does not interact with light.\n\nSource: https://example.org/dark-matter"
	maxLen := 24
	parts := chat.SplitMessage(text, maxLen)

	for i, part := range parts {
		if len(part) > maxLen {
			t.Errorf("part[%d] len=%d exceeds maxLen=%d: %q", i, len(part), maxLen, part)
		}
	}
	if joined := strings.Join(parts, ""); joined != text {
		t.Errorf("joined parts = %q, want original text", joined)
	}
}

func TestNewTelegramChannel(t *testing.T) {
	if _, err := chat.NewTelegramChannel(""); err == nil {
		t.Error("NewTelegramChannel() should error with empty token")
	}

	ch, err := chat.NewTelegramChannel("test-token")
	if err != nil {
		t.Fatalf("NewTelegramChannel() error = %v", err)
	}
	var _ chat.Channel = ch
}
