package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vidx/internal/engine"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// DefaultPageSize is used when no page size is configured.
const DefaultPageSize = 50

// Store fetches pages of tasks from the engine and holds the last applied page.
//
// Every fetch takes a sequence number. A response only replaces the page when its sequence is newer than the
// last resolved one, so a slow fetch can never overwrite a fresher result. Fetches replace the page wholesale and
// are safe to run concurrently.
type Store struct {
	engine engine.Commands
	logger *log.Logger

	mu       sync.Mutex
	req      models.PageRequest
	page     models.Page
	seq      uint64 // last issued
	resolved uint64 // newest resolved, successful or not
	inflight int
	loaded   bool

	onApply  func(models.Page)
	onChange func()
}

// NewStore creates a store for the active list filter, starting at page 1.
func NewStore(c engine.Commands, pageSize int, logger *log.Logger) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = shared.NopLogger()
	}
	return &Store{
		engine: c,
		logger: logger,
		req:    models.PageRequest{Current: 1, PageSize: pageSize, Filter: models.FilterList},
		page:   models.Page{List: []models.DownloadItem{}},
	}
}

// Request returns the parameters of the current view.
func (s *Store) Request() models.PageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req
}

// Page returns a copy of the last applied page.
func (s *Store) Page() models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Page{List: append([]models.DownloadItem(nil), s.page.List...), Total: s.page.Total}
}

// Loading reports whether any fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// Loaded reports whether a page has been applied at least once.
func (s *Store) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// Refresh re-issues the current request.
func (s *Store) Refresh(ctx context.Context) error {
	return s.fetch(ctx, s.Request())
}

// SetFilter switches the view to f and refetches from the first page. Setting the current filter is a no-op.
func (s *Store) SetFilter(ctx context.Context, f models.DownloadFilter) error {
	s.mu.Lock()
	if s.req.Filter == f {
		s.mu.Unlock()
		return nil
	}
	s.req.Filter = f
	s.req.Current = 1
	req := s.req
	s.mu.Unlock()

	return s.fetch(ctx, req)
}

// SetPage moves to the 1-based page current and fetches it.
func (s *Store) SetPage(ctx context.Context, current int) error {
	if current < 1 {
		return fmt.Errorf("%w: page %d", shared.ErrInvalidInput, current)
	}

	s.mu.Lock()
	s.req.Current = current
	req := s.req
	s.mu.Unlock()

	return s.fetch(ctx, req)
}

// Pages returns the number of pages for the last applied total, at least 1.
func (s *Store) Pages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page.Total <= 0 || s.req.PageSize <= 0 {
		return 1
	}
	return (s.page.Total + s.req.PageSize - 1) / s.req.PageSize
}

func (s *Store) fetch(ctx context.Context, req models.PageRequest) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.inflight++
	s.mu.Unlock()
	s.changed()

	page, err := s.engine.FetchPage(ctx, req)

	s.mu.Lock()
	s.inflight--
	stale := seq <= s.resolved
	if !stale {
		s.resolved = seq
		if err == nil {
			if page.List == nil {
				page.List = []models.DownloadItem{}
			}
			s.page = page
			s.loaded = true
		}
	}
	onApply := s.onApply
	s.mu.Unlock()

	if stale {
		s.logger.Debug("discarding stale page", "seq", seq, "filter", req.Filter)
	} else if err == nil && onApply != nil {
		onApply(page)
	}
	s.changed()

	if err != nil {
		return fmt.Errorf("failed to fetch %s page %d: %w", req.Filter, req.Current, err)
	}
	return nil
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
