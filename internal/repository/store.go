// Package repository persists search conversations.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

var (
	// ErrNotFound is returned when a conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrOwnership is returned when saving over another user's conversation.
	ErrOwnership = errors.New("conversation belongs to another user")
)

// Store is the conversation persistence boundary.
type Store interface {
	// SaveConversation inserts or replaces the conversation with the same ID.
	SaveConversation(ctx context.Context, conv domain.Conversation) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	// ListConversations returns a user's conversations, newest first.
	ListConversations(ctx context.Context, userID string, limit int) ([]domain.ConversationSummary, error)
	Close() error
}

func encodeMessages(messages []domain.Message) (string, error) {
	if messages == nil {
		messages = []domain.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encode messages: %w", err)
	}
	return string(data), nil
}

func decodeMessages(raw string) ([]domain.Message, error) {
	var messages []domain.Message
	if raw == "" {
		return messages, nil
	}
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return messages, nil
}

func validate(conv domain.Conversation) error {
	if conv.ID == "" {
		return errors.New("conversation id is required")
	}
	if conv.UserID == "" {
		return errors.New("conversation user id is required")
	}
	return nil
}
