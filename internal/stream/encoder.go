// Package stream encodes orchestration events into their wire form and
// writes them to SSE or WebSocket clients.
package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/xiaot623/gogo/searchstream/internal/domain"
)

// ErrClosed is returned for events emitted after the terminal event.
var ErrClosed = errors.New("stream closed")

// Sink writes encoded frames to a client.
type Sink interface {
	WriteEvent(data []byte) error
	// WriteDone writes the terminal signal.
	WriteDone() error
}

type sourcesPayload struct {
	Sources []domain.TextSource `json:"sources"`
	Status  string              `json:"status"`
}

type answerPayload struct {
	Answer string `json:"answer"`
	Status string `json:"status"`
}

type imagesPayload struct {
	Images []domain.ImageSource `json:"images"`
}

type relatedPayload struct {
	Related string `json:"related"`
	Status  string `json:"status"`
}

type errorPayload struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// Marshal encodes a non-terminal event as its JSON payload.
func Marshal(e domain.Event) ([]byte, error) {
	var v interface{}
	switch e.Kind {
	case domain.EventSources:
		sources := e.Sources
		if sources == nil {
			sources = []domain.TextSource{}
		}
		v = sourcesPayload{Sources: sources, Status: e.Status}
	case domain.EventAnswer:
		v = answerPayload{Answer: e.Text, Status: e.Status}
	case domain.EventImages:
		images := e.Images
		if images == nil {
			images = []domain.ImageSource{}
		}
		v = imagesPayload{Images: images}
	case domain.EventRelated:
		v = relatedPayload{Related: e.Text, Status: e.Status}
	case domain.EventError:
		v = errorPayload{Error: e.Text, Status: e.Status}
	default:
		return nil, fmt.Errorf("cannot marshal %q event", e.Kind)
	}
	return json.Marshal(v)
}

// Encoder projects events onto a Sink in emission order. After the terminal
// event every Emit returns ErrClosed and nothing reaches the sink.
type Encoder struct {
	mu     sync.Mutex
	sink   Sink
	closed bool
}

// NewEncoder creates an encoder writing to sink.
func NewEncoder(sink Sink) *Encoder {
	return &Encoder{sink: sink}
}

// Emit writes one event.
func (enc *Encoder) Emit(e domain.Event) error {
	enc.mu.Lock()
	defer enc.mu.Unlock()

	if enc.closed {
		return ErrClosed
	}
	if e.Terminal() {
		enc.closed = true
		return enc.sink.WriteDone()
	}

	data, err := Marshal(e)
	if err != nil {
		return err
	}
	return enc.sink.WriteEvent(data)
}

// Closed reports whether the terminal event has been emitted.
func (enc *Encoder) Closed() bool {
	enc.mu.Lock()
	defer enc.mu.Unlock()
	return enc.closed
}
