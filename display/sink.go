// Package display - Text sinks for feedback, status and countdown output.
package display

import (
	"sync"
)

// Sink accepts text to show to the user. Show is fire-and-forget.
type Sink interface {
	Show(text string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(text string)

// Show calls f(text).
func (f SinkFunc) Show(text string) {
	f(text)
}

// Discard drops everything it is shown.
var Discard Sink = SinkFunc(func(string) {})

// Fanout forwards every message to all of its sinks in order.
type Fanout []Sink

// Show forwards text to each sink.
func (f Fanout) Show(text string) {
	for _, s := range f {
		if s != nil {
			s.Show(text)
		}
	}
}

// Prefixed prepends a fixed prefix to every message.
func Prefixed(prefix string, sink Sink) Sink {
	return SinkFunc(func(text string) {
		sink.Show(prefix + text)
	})
}

// Recorder keeps every message it is shown. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	messages []string
	notify   chan string
}

// NewRecorder creates a recorder whose Messages channel buffers up to size messages.
//
// Arguments:
//   - size: Capacity of the notification channel; messages beyond it are not signalled.
//
// Returns:
//   - *Recorder: The recorder.
func NewRecorder(size int) *Recorder {
	return &Recorder{notify: make(chan string, size)}
}

// Show records the message.
func (r *Recorder) Show(text string) {
	r.mu.Lock()
	r.messages = append(r.messages, text)
	r.mu.Unlock()

	if r.notify == nil {
		return
	}
	select {
	case r.notify <- text:
	default:
	}
}

// Messages returns a channel signalled with each recorded message.
func (r *Recorder) Messages() <-chan string {
	return r.notify
}

// All returns a copy of every recorded message.
func (r *Recorder) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message, empty if none.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return ""
	}
	return r.messages[len(r.messages)-1]
}

// Count returns how many times text was recorded.
func (r *Recorder) Count(text string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m == text {
			n++
		}
	}
	return n
}
