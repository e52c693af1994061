package domain

// UserInfo is the caller record forwarded by the presentation layer.
// Identity is established upstream; this service only reads it.
type UserInfo struct {
	ID                     string `json:"id"`
	StripePriceID          string `json:"stripe_price_id,omitempty"`
	StripeCurrentPeriodEnd int64  `json:"stripe_current_period_end,omitempty"` // Unix milliseconds
}

// SearchRequest is the body of a search submission.
type SearchRequest struct {
	Messages []Message      `json:"messages"`
	Source   SearchCategory `json:"source,omitempty"`
	User     *UserInfo      `json:"user,omitempty"`
}

// UserID returns the caller id, or "" for anonymous requests.
func (r SearchRequest) UserID() string {
	if r.User == nil {
		return ""
	}
	return r.User.ID
}

// ConversationSummary is a listing entry for a user's conversations.
type ConversationSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"` // Unix milliseconds
}
