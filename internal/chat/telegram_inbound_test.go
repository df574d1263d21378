package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMapTelegramInbound_TextMessage(t *testing.T) {
	msg, ok := mapTelegramInbound(tgUpdate{
		UpdateID: 1,
		Message: &tgMessage{
			Text: "  next  ",
			Chat: tgChat{ID: 123},
			From: tgUser{ID: 456, Username: "u1", FirstName: "Ada"},
		},
	})
	if !ok {
		t.Fatal("expected text update to map")
	}
	if msg.Text != "next" {
		t.Fatalf("Text = %q, want next", msg.Text)
	}
	if msg.UserID != "123" || msg.ExternalID != "456" {
		t.Fatalf("UserID/ExternalID = %q/%q, want 123/456", msg.UserID, msg.ExternalID)
	}
	if msg.Channel != "telegram" || msg.FirstName != "Ada" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestMapTelegramInbound_Ignored(t *testing.T) {
	tests := []struct {
		name string
		u    tgUpdate
	}{
		{"no message", tgUpdate{UpdateID: 2}},
		{"empty text", tgUpdate{UpdateID: 3, Message: &tgMessage{Chat: tgChat{ID: 1}, From: tgUser{ID: 2}}}},
		{"whitespace", tgUpdate{UpdateID: 4, Message: &tgMessage{Text: " \n ", Chat: tgChat{ID: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := mapTelegramInbound(tt.u); ok {
				t.Fatal("expected update to be ignored")
			}
		})
	}
}

func TestTelegramChannel_GetUpdates(t *testing.T) {
	var gotOffset string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOffset = r.URL.Query().Get("offset")
		_, _ = w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":"topics","chat":{"id":9},"from":{"id":9}}}]}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), offset: 7, stop: make(chan struct{})}
	updates, err := ch.getUpdates(context.Background())
	if err != nil {
		t.Fatalf("getUpdates() error = %v", err)
	}
	if gotOffset != "7" {
		t.Errorf("offset = %q, want 7", gotOffset)
	}
	if len(updates) != 1 || updates[0].Message.Text != "topics" {
		t.Errorf("updates = %+v", updates)
	}
}

func TestTelegramChannel_SendMessageSplits(t *testing.T) {
	var texts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		texts = append(texts, r.Form.Get("text"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	ch := &TelegramChannel{baseURL: server.URL, client: server.Client(), stop: make(chan struct{})}
	long := make([]byte, telegramMaxMessageLen+10)
	for i := range long {
		long[i] = 'a'
	}

	if err := ch.SendMessage(context.Background(), "1", OutboundMessage{Text: string(long)}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if len(texts) != 2 {
		t.Fatalf("sent %d parts, want 2", len(texts))
	}
}
