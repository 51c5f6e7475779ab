package tasks

import (
	"sync"

	"github.com/desertthunder/vidx/internal/models"
)

// ProgressMap holds the latest progress sample per task id. Samples are replaced whole, never merged.
type ProgressMap struct {
	mu      sync.RWMutex
	samples map[int64]models.DownloadProgress
}

func NewProgressMap() *ProgressMap {
	return &ProgressMap{samples: make(map[int64]models.DownloadProgress)}
}

// Apply stores p as the sample for p.ID.
func (m *ProgressMap) Apply(p models.DownloadProgress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[p.ID] = p
}

func (m *ProgressMap) Get(id int64) (models.DownloadProgress, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.samples[id]
	return p, ok
}

// Snapshot copies the samples for ids. Ids without a sample are omitted.
func (m *ProgressMap) Snapshot(ids []int64) map[int64]models.DownloadProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]models.DownloadProgress, len(ids))
	for _, id := range ids {
		if p, ok := m.samples[id]; ok {
			out[id] = p
		}
	}
	return out
}

func (m *ProgressMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.samples)
}
