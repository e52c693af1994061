package helpers

import (
	"sync"

	"github.com/xiaot623/gogo/searchstream/internal/stream"
)

// Recorder is an in-memory stream.Sink.
type Recorder struct {
	mu     sync.Mutex
	frames [][]byte
	done   int
	Err    error // returned from every write when set
}

func (r *Recorder) WriteEvent(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.frames = append(r.frames, append([]byte(nil), data...))
	return nil
}

func (r *Recorder) WriteDone() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	return r.Err
}

// Frames returns the decoded non-terminal frames in write order.
func (r *Recorder) Frames() []stream.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stream.Frame, 0, len(r.frames))
	for _, data := range r.frames {
		f, err := stream.ParseFrame(data)
		if err != nil {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Raw returns the raw frames in write order.
func (r *Recorder) Raw() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.frames))
	for i, data := range r.frames {
		out[i] = string(data)
	}
	return out
}

// DoneCount returns how many terminal signals were written.
func (r *Recorder) DoneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
