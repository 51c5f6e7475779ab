package tasks

import (
	"sync"

	"github.com/desertthunder/vidx/internal/models"
)

// PreferenceStore is the process-wide preference record. Updates go through [models.Preferences.Merge].
type PreferenceStore struct {
	mu sync.RWMutex
	p  models.Preferences
}

func NewPreferenceStore(initial models.Preferences) *PreferenceStore {
	return &PreferenceStore{p: initial}
}

func (s *PreferenceStore) Get() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.p
}

// Apply merges u into the record and returns the result.
func (s *PreferenceStore) Apply(u models.PreferencesUpdate) models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = s.p.Merge(u)
	return s.p
}
