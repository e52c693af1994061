package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func sampleConversation() domain.Conversation {
	return domain.Conversation{
		ID:        "m1",
		Title:     "best indie tools 2024",
		CreatedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		UserID:    "u1",
		Messages: []domain.Message{
			{ID: "m1", Role: domain.RoleUser, Content: "best indie tools 2024"},
			{
				ID:      "a1",
				Role:    domain.RoleAssistant,
				Content: "Indie makers love automation.",
				Sources: []domain.TextSource{{URL: "https://a", Title: "A", Content: "alpha"}},
				Images:  []domain.ImageSource{{URL: "https://img"}},
				Related: "What tools help solo founders?",
			},
		},
	}
}

func TestSQLiteStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	conv := sampleConversation()
	if err := store.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	got, err := store.GetConversation(ctx, "m1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if got.UserID != "u1" || got.Title != conv.Title || !got.CreatedAt.Equal(conv.CreatedAt) {
		t.Fatalf("unexpected conversation: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[1].Related != "What tools help solo founders?" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Messages[1].Sources[0].Content != "alpha" || got.Messages[1].Images[0].URL != "https://img" {
		t.Fatalf("sources/images not round-tripped: %+v", got.Messages[1])
	}
}

func TestSQLiteStoreUpsertKeepsOwnerAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	conv := sampleConversation()
	if err := store.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	conv.Messages = append(conv.Messages,
		domain.Message{ID: "m2", Role: domain.RoleUser, Content: "and for marketing?"},
		domain.Message{ID: "a2", Role: domain.RoleAssistant, Content: "Try newsletters."},
	)
	conv.CreatedAt = time.Now()
	if err := store.SaveConversation(ctx, conv); err != nil {
		t.Fatalf("second SaveConversation failed: %v", err)
	}

	got, err := store.GetConversation(ctx, "m1")
	if err != nil {
		t.Fatalf("GetConversation failed: %v", err)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got.Messages))
	}
	if !got.CreatedAt.Equal(sampleConversation().CreatedAt) {
		t.Fatalf("created_at changed on update: %v", got.CreatedAt)
	}

	intruder := sampleConversation()
	intruder.UserID = "u2"
	err = store.SaveConversation(ctx, intruder)
	if !errors.Is(err, ErrOwnership) {
		t.Fatalf("expected ErrOwnership, got %v", err)
	}
}

func TestSQLiteStoreNotFoundAndValidation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	if _, err := store.GetConversation(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	conv := sampleConversation()
	conv.UserID = ""
	if err := store.SaveConversation(ctx, conv); err == nil {
		t.Fatalf("expected validation error for empty user")
	}
	conv = sampleConversation()
	conv.ID = ""
	if err := store.SaveConversation(ctx, conv); err == nil {
		t.Fatalf("expected validation error for empty id")
	}
}

func TestSQLiteStoreListConversations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"c1", "c2", "c3"} {
		conv := sampleConversation()
		conv.ID = id
		conv.Title = "title " + id
		conv.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.SaveConversation(ctx, conv); err != nil {
			t.Fatalf("SaveConversation failed: %v", err)
		}
	}
	other := sampleConversation()
	other.ID = "x1"
	other.UserID = "u2"
	if err := store.SaveConversation(ctx, other); err != nil {
		t.Fatalf("SaveConversation failed: %v", err)
	}

	list, err := store.ListConversations(ctx, "u1", 2)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c3" || list[1].ID != "c2" {
		t.Fatalf("unexpected list: %+v", list)
	}
	if list[0].CreatedAt != base.Add(2*time.Hour).UnixMilli() {
		t.Fatalf("unexpected created_at: %d", list[0].CreatedAt)
	}

	empty, err := store.ListConversations(ctx, "nobody", 0)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}
}
