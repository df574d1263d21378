package agent_test

import (
	"testing"
	"time"

	"github.com/p-n-ai/pai-tutor/internal/agent"
)

func TestConversationStore_Interface(t *testing.T) {
	store := agent.NewMemoryStore()

	id, err := store.CreateConversation(agent.Conversation{
		UserID:     "123",
		Channel:    "telegram",
		TutorialID: "python",
	})
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if id == "" {
		t.Error("CreateConversation() returned empty ID")
	}

	err = store.AddMessage(id, agent.StoredMessage{
		Role:    "user",
		Content: "topics",
	})
	if err != nil {
		t.Fatalf("AddMessage() error = %v", err)
	}

	got, err := store.GetConversation(id)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if len(got.Messages) != 1 {
		t.Errorf("Messages count = %d, want 1", len(got.Messages))
	}
	if got.Messages[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if got.StartedAt.IsZero() {
		t.Error("StartedAt should be set")
	}
}

func TestConversationStore_RequiresUser(t *testing.T) {
	store := agent.NewMemoryStore()

	if _, err := store.CreateConversation(agent.Conversation{}); err == nil {
		t.Error("CreateConversation() should require a user id")
	}
}

func TestConversationStore_GetActiveForUser(t *testing.T) {
	store := agent.NewMemoryStore()

	_, err := store.CreateConversation(agent.Conversation{UserID: "123"})
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}

	active, found := store.GetActiveConversation("123")
	if !found {
		t.Fatal("GetActiveConversation() should find active conversation")
	}
	if active.UserID != "123" {
		t.Errorf("UserID = %q, want 123", active.UserID)
	}
}

func TestConversationStore_GetActiveForUser_NotFound(t *testing.T) {
	store := agent.NewMemoryStore()

	_, found := store.GetActiveConversation("nonexistent")
	if found {
		t.Error("GetActiveConversation() should not find non-existent user")
	}
}

func TestConversationStore_CreateReplacesActive(t *testing.T) {
	store := agent.NewMemoryStore()

	first, _ := store.CreateConversation(agent.Conversation{UserID: "123", TutorialID: "python"})
	second, _ := store.CreateConversation(agent.Conversation{UserID: "123", TutorialID: "cpp"})

	active, found := store.GetActiveConversation("123")
	if !found || active.ID != second {
		t.Fatalf("active conversation = %v, want %s", active, second)
	}
	if _, err := store.GetConversation(first); err == nil {
		t.Error("previous conversation should be released")
	}
	if store.Len() != 1 {
		t.Errorf("Len() = %d, want 1", store.Len())
	}
}

func TestConversationStore_EndConversation(t *testing.T) {
	store := agent.NewMemoryStore()

	id, _ := store.CreateConversation(agent.Conversation{UserID: "123"})
	conv, _ := store.GetConversation(id)

	if err := store.EndConversation(id); err != nil {
		t.Fatalf("EndConversation() error = %v", err)
	}

	_, found := store.GetActiveConversation("123")
	if found {
		t.Error("GetActiveConversation() should not find ended conversation")
	}
	if conv.EndedAt == nil {
		t.Error("EndedAt should be set")
	}
	if _, err := store.GetConversation(id); err == nil {
		t.Error("ended conversation should be released")
	}
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestConversationStore_RepeatedSessionsDoNotAccumulate(t *testing.T) {
	store := agent.NewMemoryStore()

	for i := 0; i < 3; i++ {
		if _, err := store.CreateConversation(agent.Conversation{UserID: "u"}); err != nil {
			t.Fatalf("CreateConversation() error = %v", err)
		}
	}
	active, _ := store.GetActiveConversation("u")
	if err := store.EndConversation(active.ID); err != nil {
		t.Fatalf("EndConversation() error = %v", err)
	}

	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestConversationStore_IdleConversations(t *testing.T) {
	store := agent.NewMemoryStore()

	stale, _ := store.CreateConversation(agent.Conversation{UserID: "a"})
	cutoff := time.Now()
	fresh, _ := store.CreateConversation(agent.Conversation{UserID: "b"})
	_ = store.AddMessage(fresh, agent.StoredMessage{Role: "user", Content: "hi", CreatedAt: cutoff.Add(time.Minute)})

	idle := store.IdleConversations(cutoff)
	if len(idle) != 1 || idle[0].ID != stale {
		t.Errorf("IdleConversations() = %v, want only %s", idle, stale)
	}
}

func TestConversationStore_EndConversation_NotFound(t *testing.T) {
	store := agent.NewMemoryStore()

	if err := store.EndConversation("nonexistent"); err == nil {
		t.Error("EndConversation() should error for non-existent conversation")
	}
}

func TestConversationStore_MultipleMessages(t *testing.T) {
	store := agent.NewMemoryStore()

	id, _ := store.CreateConversation(agent.Conversation{UserID: "123"})

	_ = store.AddMessage(id, agent.StoredMessage{Role: "user", Content: "topics"})
	_ = store.AddMessage(id, agent.StoredMessage{Role: "assistant", Content: "Available Python Topics"})
	_ = store.AddMessage(id, agent.StoredMessage{Role: "user", Content: "1"})

	msgs, err := store.Messages(id)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("Messages count = %d, want 3", len(msgs))
	}

	msgs[0].Content = "mutated"
	again, _ := store.Messages(id)
	if again[0].Content != "topics" {
		t.Error("Messages() should return a copy")
	}
}

func TestConversationStore_AddMessage_NotFound(t *testing.T) {
	store := agent.NewMemoryStore()

	err := store.AddMessage("nonexistent", agent.StoredMessage{Role: "user", Content: "Hello"})
	if err == nil {
		t.Error("AddMessage() should error for non-existent conversation")
	}
}
