package tasks

import (
	"slices"
	"testing"

	"github.com/desertthunder/vidx/internal/models"
)

func actionKinds(r Row) []ActionKind {
	kinds := make([]ActionKind, len(r.Actions))
	for i, a := range r.Actions {
		kinds[i] = a.Kind
	}
	return kinds
}

func TestComposeRowActions(t *testing.T) {
	tc := []struct {
		name         string
		item         models.DownloadItem
		showTerminal bool
		want         []ActionKind
		note         string
	}{
		{
			name: "ready",
			item: models.DownloadItem{Status: models.StatusReady},
			want: []ActionKind{ActionEdit, ActionDownload},
		},
		{
			name:         "ready with terminal",
			item:         models.DownloadItem{Status: models.StatusReady},
			showTerminal: true,
			want:         []ActionKind{ActionLog, ActionEdit, ActionDownload},
		},
		{
			name: "downloading",
			item: models.DownloadItem{Status: models.StatusDownloading},
			want: []ActionKind{ActionStop},
		},
		{
			name: "failed",
			item: models.DownloadItem{Status: models.StatusFailed},
			want: []ActionKind{ActionEdit, ActionRedownload},
		},
		{
			name:         "stopped",
			item:         models.DownloadItem{Status: models.StatusStopped},
			showTerminal: true,
			want:         []ActionKind{ActionLog, ActionEdit, ActionContinue},
		},
		{
			name: "waiting",
			item: models.DownloadItem{Status: models.StatusWaiting},
			want: []ActionKind{},
			note: "waiting",
		},
		{
			name: "success with file",
			item: models.DownloadItem{Status: models.StatusSuccess, Exist: true},
			want: []ActionKind{ActionPlay, ActionConvert},
		},
		{
			name: "success without file",
			item: models.DownloadItem{Status: models.StatusSuccess, Exist: false},
			want: []ActionKind{ActionConvert},
		},
		{
			name: "unknown status",
			item: models.DownloadItem{Status: "merging"},
			want: []ActionKind{},
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			row := ComposeRow(tt.item, ComposeInput{Filter: models.FilterList, ShowTerminal: tt.showTerminal})
			if got := actionKinds(row); !slices.Equal(got, tt.want) {
				t.Errorf("actions = %v, want %v", got, tt.want)
			}
			if row.Note != tt.note {
				t.Errorf("note = %q, want %q", row.Note, tt.note)
			}
		})
	}
}

func TestComposeRowPlayVisibility(t *testing.T) {
	present := ComposeRow(models.DownloadItem{Status: models.StatusSuccess, Exist: true}, ComposeInput{})
	if !present.Enabled(ActionPlay) {
		t.Error("expected play on a downloaded file")
	}

	missing := ComposeRow(models.DownloadItem{Status: models.StatusSuccess, Exist: false}, ComposeInput{})
	if _, ok := missing.Action(ActionPlay); ok {
		t.Error("expected no play action when the file is gone")
	}
	if !missing.TitleDisabled {
		t.Error("expected title disabled when the file is gone")
	}
}

func TestComposeRowTags(t *testing.T) {
	tc := []struct {
		item models.DownloadItem
		want []string
	}{
		{item: models.DownloadItem{Status: models.StatusReady}, want: nil},
		{item: models.DownloadItem{Status: models.StatusDownloading, IsLive: true}, want: []string{"downloading", "live"}},
		{item: models.DownloadItem{Status: models.StatusSuccess, Exist: true}, want: []string{"downloaded"}},
		{item: models.DownloadItem{Status: models.StatusSuccess}, want: []string{"file missing"}},
		{item: models.DownloadItem{Status: models.StatusFailed}, want: []string{"failed"}},
		{item: models.DownloadItem{Status: models.StatusStopped}, want: []string{"paused"}},
	}

	for _, tt := range tc {
		t.Run(string(tt.item.Status), func(t *testing.T) {
			row := ComposeRow(tt.item, ComposeInput{})
			var got []string
			for _, tag := range row.Tags {
				got = append(got, tag.Label)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("tags = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComposeRowProgress(t *testing.T) {
	item := models.DownloadItem{ID: 4, URL: "http://example.com/live.m3u8", Status: models.StatusDownloading}

	tc := []struct {
		name     string
		filter   models.DownloadFilter
		sample   *models.DownloadProgress
		wantBar  bool
		wantPct  int
		wantDesc string
	}{
		{
			name:    "bar from sample",
			filter:  models.FilterList,
			sample:  &models.DownloadProgress{ID: 4, Cur: 1, Total: 3, Speed: "1 MB/s"},
			wantBar: true,
			wantPct: 33,
		},
		{
			name:     "zero total shows url",
			filter:   models.FilterList,
			sample:   &models.DownloadProgress{ID: 4, Cur: 3, Total: 0},
			wantDesc: item.URL,
		},
		{
			name:     "no sample shows url",
			filter:   models.FilterList,
			wantDesc: item.URL,
		},
		{
			name:     "done view never shows a bar",
			filter:   models.FilterDone,
			sample:   &models.DownloadProgress{ID: 4, Cur: 1, Total: 2},
			wantDesc: item.URL,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			in := ComposeInput{Filter: tt.filter, Progress: map[int64]models.DownloadProgress{}}
			if tt.sample != nil {
				in.Progress[tt.sample.ID] = *tt.sample
			}

			row := ComposeRow(item, in)
			if (row.Progress != nil) != tt.wantBar {
				t.Fatalf("progress bar = %v, want %v", row.Progress != nil, tt.wantBar)
			}
			if tt.wantBar && row.Progress.Percent != tt.wantPct {
				t.Errorf("percent = %d, want %d", row.Progress.Percent, tt.wantPct)
			}
			if !tt.wantBar && row.Description != tt.wantDesc {
				t.Errorf("description = %q, want %q", row.Description, tt.wantDesc)
			}
		})
	}
}

func TestComposeRowConverting(t *testing.T) {
	item := models.DownloadItem{ID: 2, Status: models.StatusSuccess, Exist: true}

	row := ComposeRow(item, ComposeInput{Converting: map[int64]bool{2: true}})
	if a, ok := row.Action(ActionConvert); !ok || !a.Disabled {
		t.Errorf("expected convert disabled while converting, got %+v", a)
	}

	row = ComposeRow(item, ComposeInput{})
	if !row.Enabled(ActionConvert) {
		t.Error("expected convert enabled when idle")
	}
}
