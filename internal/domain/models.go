package domain

import (
	"time"
	"unicode/utf8"
)

// TitleLength is the number of runes of the first message kept as a conversation title.
const TitleLength = 50

// TextSource is a retrieved snippet used to ground an answer.
// Position in a source list is the citation index (1-based) in prompts.
type TextSource struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ImageSource is a retrieved image reference.
type ImageSource struct {
	URL string `json:"url"`
}

// Message represents one turn in a conversation.
type Message struct {
	ID      string        `json:"id"`
	Role    Role          `json:"role"`
	Content string        `json:"content"`
	Sources []TextSource  `json:"sources,omitempty"`
	Images  []ImageSource `json:"images,omitempty"`
	Related string        `json:"related,omitempty"`
}

// Conversation is the persisted form of a search thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
}

// CacheEntry is the memoized retrieval result for one cache key.
type CacheEntry struct {
	Texts []TextSource `json:"texts"`
}

// TitleFrom returns the title seed derived from a message content.
func TitleFrom(content string) string {
	if utf8.RuneCountInString(content) <= TitleLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:TitleLength])
}
