// Package training - Reference pose storage and the delayed reference capture.
package training

import (
	"sync/atomic"
	"time"

	"github.com/nvr-ai/go-posture/pose"
)

// Reference is a captured reference pose and when it was taken.
type Reference struct {
	Frame      pose.Frame
	CapturedAt time.Time
}

// Store holds at most one reference pose.
//
// Writes replace the whole reference atomically. A comparison that loaded the
// previous reference keeps using it; the next Load sees the new one.
type Store struct {
	ref atomic.Pointer[Reference]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load returns the current reference frame, nil when none was captured.
func (s *Store) Load() *pose.Frame {
	ref := s.ref.Load()
	if ref == nil {
		return nil
	}
	return &ref.Frame
}

// Reference returns the current reference with its capture time.
func (s *Store) Reference() (Reference, bool) {
	ref := s.ref.Load()
	if ref == nil {
		return Reference{}, false
	}
	return *ref, true
}

// Set replaces the reference.
func (s *Store) Set(frame pose.Frame) {
	s.ref.Store(&Reference{Frame: frame, CapturedAt: time.Now()})
}

// Clear removes the reference.
func (s *Store) Clear() {
	s.ref.Store(nil)
}
