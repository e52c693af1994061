package domain

// Event is one partial result of an orchestration run.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind    EventKind
	Status  string
	Text    string
	Sources []TextSource
	Images  []ImageSource
}

// SourcesEvent announces the grounding sources.
func SourcesEvent(sources []TextSource, status string) Event {
	if sources == nil {
		sources = []TextSource{}
	}
	return Event{Kind: EventSources, Sources: sources, Status: status}
}

// AnswerEvent carries one answer fragment.
func AnswerEvent(text string) Event {
	return Event{Kind: EventAnswer, Text: text, Status: StatusAnswering}
}

// ImagesEvent carries the filtered image list.
func ImagesEvent(images []ImageSource) Event {
	if images == nil {
		images = []ImageSource{}
	}
	return Event{Kind: EventImages, Images: images}
}

// RelatedEvent carries one related-questions fragment.
func RelatedEvent(text string) Event {
	return Event{Kind: EventRelated, Text: text, Status: StatusRelated}
}

// ErrorEvent carries a user-facing error text.
func ErrorEvent(text string) Event {
	return Event{Kind: EventError, Text: text, Status: StatusFailed}
}

// DoneEvent is the terminal event.
func DoneEvent() Event {
	return Event{Kind: EventDone}
}

// Terminal reports whether e closes the stream.
func (e Event) Terminal() bool {
	return e.Kind == EventDone
}
