package chat

import "testing"

func TestMapTelegramInbound_TextMessage(t *testing.T) {
	msg, ok := mapTelegramInbound(tgUpdate{
		UpdateID: 1,
		Message: &tgMessage{
			MessageID: 42,
			Text:      "  What is photosynthesis?  ",
			Chat:      tgChat{ID: 123},
			From:      tgUser{ID: 456, Username: "u1", FirstName: "Ada", LanguageCode: "en"},
		},
	})
	if !ok {
		t.Fatal("expected text update to map")
	}
	if msg.Text != "What is photosynthesis?" {
		t.Fatalf("Text = %q, want trimmed question", msg.Text)
	}
	if msg.Channel != "telegram" {
		t.Errorf("Channel = %q, want telegram", msg.Channel)
	}
	if msg.UserID != "123" || msg.ExternalID != "456" {
		t.Errorf("UserID/ExternalID = %q/%q, want 123/456", msg.UserID, msg.ExternalID)
	}
	if msg.RequestID != "tg-123-42" {
		t.Errorf("RequestID = %q, want tg-123-42", msg.RequestID)
	}
	if msg.FirstName != "Ada" || msg.Language != "en" {
		t.Errorf("sender fields not mapped: %+v", msg)
	}
}

func TestMapTelegramInbound_NoMessageID(t *testing.T) {
	msg, ok := mapTelegramInbound(tgUpdate{
		UpdateID: 2,
		Message: &tgMessage{
			Text: "/science",
			Chat: tgChat{ID: 1},
		},
	})
	if !ok {
		t.Fatal("expected command update to map")
	}
	if msg.RequestID != "" {
		t.Errorf("RequestID = %q, want empty", msg.RequestID)
	}
}

func TestMapTelegramInbound_Ignored(t *testing.T) {
	tests := []struct {
		name   string
		update tgUpdate
	}{
		{"no message", tgUpdate{UpdateID: 3}},
		{"empty text", tgUpdate{UpdateID: 4, Message: &tgMessage{Chat: tgChat{ID: 1}, From: tgUser{ID: 2}}}},
		{"whitespace", tgUpdate{UpdateID: 5, Message: &tgMessage{Text: " \n\t", Chat: tgChat{ID: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := mapTelegramInbound(tt.update); ok {
				t.Fatal("expected update to be ignored")
			}
		})
	}
}
