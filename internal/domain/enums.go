// Package domain defines the core records exchanged by the search orchestrator.
package domain

// Role is the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SearchCategory selects both the search filter and the answer prompt.
type SearchCategory string

const (
	CategoryAll        SearchCategory = "all"
	CategoryAcademic   SearchCategory = "academic"
	CategoryNews       SearchCategory = "news"
	CategoryImages     SearchCategory = "images"
	CategoryIndieMaker SearchCategory = "indie_maker"
	CategoryHackerNews SearchCategory = "hacker_news"
	CategoryWebPage    SearchCategory = "web_page"
)

// Valid reports whether c is a known category.
func (c SearchCategory) Valid() bool {
	switch c {
	case CategoryAll, CategoryAcademic, CategoryNews, CategoryImages,
		CategoryIndieMaker, CategoryHackerNews, CategoryWebPage:
		return true
	}
	return false
}

// Tier is the caller class used to size generation budgets.
type Tier string

const (
	TierStandard Tier = "standard"
	TierElevated Tier = "elevated"
)

// EventKind tags a StreamEvent.
type EventKind string

const (
	EventStatus  EventKind = "status"
	EventSources EventKind = "sources"
	EventAnswer  EventKind = "answer"
	EventImages  EventKind = "images"
	EventRelated EventKind = "related"
	EventError   EventKind = "error"
	EventDone    EventKind = "done"
)

// Status texts attached to streamed events.
const (
	StatusThinking   = "Thinking ..."
	StatusAnswering  = "Answering ..."
	StatusRelated    = "Generating related questions ..."
	StatusFailed     = "Failed"
	GenericErrorText = "Something went wrong while searching, please try again later"
)
