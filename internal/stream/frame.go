package stream

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// DoneMarker is the SSE terminal data line.
const DoneMarker = "[DONE]"

// Frame is the client-side view of one wire payload.
type Frame struct {
	Sources []domain.TextSource  `json:"sources,omitempty"`
	Images  []domain.ImageSource `json:"images,omitempty"`
	Answer  *string              `json:"answer,omitempty"`
	Related *string              `json:"related,omitempty"`
	Error   *string              `json:"error,omitempty"`
	Status  string               `json:"status,omitempty"`
	Done    bool                 `json:"done,omitempty"`

	hasSources bool
	hasImages  bool
}

// ParseFrame decodes a payload. The SSE done marker decodes to a Done frame.
func ParseFrame(data []byte) (Frame, error) {
	if strings.TrimSpace(string(data)) == DoneMarker {
		return Frame{Done: true}, nil
	}

	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err == nil {
		_, f.hasSources = keys["sources"]
		_, f.hasImages = keys["images"]
	}
	return f, nil
}

// Kind reports which event the frame carries.
func (f Frame) Kind() domain.EventKind {
	switch {
	case f.Done:
		return domain.EventDone
	case f.Error != nil:
		return domain.EventError
	case f.hasSources || f.Sources != nil:
		return domain.EventSources
	case f.hasImages || f.Images != nil:
		return domain.EventImages
	case f.Answer != nil:
		return domain.EventAnswer
	case f.Related != nil:
		return domain.EventRelated
	}
	return domain.EventStatus
}
