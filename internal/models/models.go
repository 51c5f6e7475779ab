// package models defines the data model shared by the engine boundary and the task list
package models

import (
	"fmt"
	"strings"
)

// DownloadStatus is the engine-controlled lifecycle state of a task.
type DownloadStatus string

const (
	StatusReady       DownloadStatus = "ready"
	StatusDownloading DownloadStatus = "downloading"
	StatusSuccess     DownloadStatus = "success"
	StatusFailed      DownloadStatus = "failed"
	StatusWaiting     DownloadStatus = "waiting"
	StatusStopped     DownloadStatus = "stopped"
)

func (s DownloadStatus) String() string { return string(s) }

// Valid reports whether s is one of the known statuses.
func (s DownloadStatus) Valid() bool {
	switch s {
	case StatusReady, StatusDownloading, StatusSuccess, StatusFailed, StatusWaiting, StatusStopped:
		return true
	default:
		return false
	}
}

// DownloadType tags the protocol/format of a task source.
type DownloadType string

const (
	TypeM3U8 DownloadType = "m3u8"
)

// DownloadFilter selects one of the two list views.
type DownloadFilter string

const (
	FilterList DownloadFilter = "list" // everything not yet downloaded
	FilterDone DownloadFilter = "done" // completed downloads
)

// ParseFilter converts user input into a [DownloadFilter].
func ParseFilter(s string) (DownloadFilter, error) {
	switch DownloadFilter(strings.ToLower(strings.TrimSpace(s))) {
	case FilterList, "":
		return FilterList, nil
	case FilterDone:
		return FilterDone, nil
	default:
		return "", fmt.Errorf("unknown filter %q (want list or done)", s)
	}
}

// DownloadItem is a single download task as reported by the engine.
//
// ID is assigned by the engine and never generated client-side.
type DownloadItem struct {
	ID      int64          `json:"id"`
	Name    string         `json:"name"`
	URL     string         `json:"url"`
	Headers string         `json:"headers,omitempty"`
	Type    DownloadType   `json:"type"`
	Status  DownloadStatus `json:"status"`
	Exist   bool           `json:"exist"`  // artifact still present on disk
	IsLive  bool           `json:"isLive"` // source keeps growing; never reaches success on its own
}

// NewDownloadItem is the payload for creating a task. The engine assigns the id.
type NewDownloadItem struct {
	Name    string       `json:"name"`
	URL     string       `json:"url"`
	Headers string       `json:"headers,omitempty"`
	Type    DownloadType `json:"type"`
}

// EditDownloadItem is the payload for editing the user-editable metadata of a task.
type EditDownloadItem struct {
	ID      int64        `json:"id"`
	Name    string       `json:"name"`
	URL     string       `json:"url"`
	Headers string       `json:"headers,omitempty"`
	Type    DownloadType `json:"type"`
}

// Validate checks the fields required by the engine.
func (n NewDownloadItem) Validate() error {
	if strings.TrimSpace(n.URL) == "" {
		return fmt.Errorf("url is required")
	}
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// Validate checks the fields required by the engine.
func (e EditDownloadItem) Validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("invalid id %d", e.ID)
	}
	return NewDownloadItem{Name: e.Name, URL: e.URL}.Validate()
}

// PageRequest identifies one page of one filtered view. Current is 1-based.
type PageRequest struct {
	Current  int            `json:"current"`
	PageSize int            `json:"pageSize"`
	Filter   DownloadFilter `json:"filter"`
}

// Page is the engine's answer to a [PageRequest].
type Page struct {
	List  []DownloadItem `json:"list"`
	Total int            `json:"total"`
}

// IDs returns the ids of the page's items in order.
func (p Page) IDs() []int64 {
	ids := make([]int64, len(p.List))
	for i, item := range p.List {
		ids[i] = item.ID
	}
	return ids
}
