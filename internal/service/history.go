package service

import (
	"strings"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// History depth per tier, in messages.
const (
	StandardHistoryDepth = 2
	ElevatedHistoryDepth = 6
)

// HistoryText renders the turns before the latest message as "role: content"
// lines, keeping only the most recent ones allowed for tier.
func HistoryText(messages []domain.Message, tier domain.Tier) string {
	if len(messages) <= 1 {
		return ""
	}
	prior := messages[:len(messages)-1]

	depth := StandardHistoryDepth
	if tier == domain.TierElevated {
		depth = ElevatedHistoryDepth
	}
	if len(prior) > depth {
		prior = prior[len(prior)-depth:]
	}

	lines := make([]string, 0, len(prior))
	for _, msg := range prior {
		lines = append(lines, string(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}
