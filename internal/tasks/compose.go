package tasks

import (
	"github.com/desertthunder/vidx/internal/models"
)

// Tone is the display intent of a [Tag].
type Tone int

const (
	ToneDefault Tone = iota
	ToneProgress
	ToneSuccess
	ToneWarning
	ToneError
	ToneLive
)

// Tag is a short status label shown next to a title.
type Tag struct {
	Label string
	Tone  Tone
}

// ActionKind enumerates the per-row actions.
type ActionKind int

const (
	ActionLog ActionKind = iota
	ActionEdit
	ActionDownload
	ActionRedownload
	ActionContinue
	ActionStop
	ActionPlay
	ActionConvert
)

func (k ActionKind) String() string {
	switch k {
	case ActionLog:
		return "log"
	case ActionEdit:
		return "edit"
	case ActionDownload:
		return "download"
	case ActionRedownload:
		return "redownload"
	case ActionContinue:
		return "continue"
	case ActionStop:
		return "stop"
	case ActionPlay:
		return "play"
	case ActionConvert:
		return "convert"
	default:
		return ""
	}
}

// Action is an action button on a row.
type Action struct {
	Kind     ActionKind
	Disabled bool
}

// RowProgress is the progress bar of a row.
type RowProgress struct {
	Percent int
	Speed   string
}

// Row is the display form of one task.
type Row struct {
	Item          models.DownloadItem
	Title         string
	TitleDisabled bool
	Tags          []Tag
	Description   string       // shown when Progress is nil
	Progress      *RowProgress // nil when no bar is shown
	Actions       []Action
	Note          string // replaces the actions for queued tasks
	Selected      bool
}

// Action returns the action of kind k, if the row exposes it.
func (r Row) Action(k ActionKind) (Action, bool) {
	for _, a := range r.Actions {
		if a.Kind == k {
			return a, true
		}
	}
	return Action{}, false
}

// Enabled reports whether the row exposes k and it is not disabled.
func (r Row) Enabled(k ActionKind) bool {
	a, ok := r.Action(k)
	return ok && !a.Disabled
}

// ComposeInput is the state a row is derived from besides the item itself.
type ComposeInput struct {
	Filter       models.DownloadFilter
	Progress     map[int64]models.DownloadProgress
	Converting   map[int64]bool
	Selected     map[int64]bool
	ShowTerminal bool
}

// Compose derives rows for items in order.
func Compose(items []models.DownloadItem, in ComposeInput) []Row {
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = ComposeRow(item, in)
	}
	return rows
}

// ComposeRow derives the row for one item.
//
// The status mapping is presentational. A status the view does not know yields a row with a plain tag and no
// actions rather than an error.
func ComposeRow(item models.DownloadItem, in ComposeInput) Row {
	row := Row{
		Item:        item,
		Title:       item.Name,
		Description: item.URL,
		Selected:    in.Selected[item.ID],
	}

	switch item.Status {
	case models.StatusDownloading:
		row.Tags = append(row.Tags, Tag{Label: "downloading", Tone: ToneProgress})
	case models.StatusSuccess:
		if item.Exist {
			row.Tags = append(row.Tags, Tag{Label: "downloaded", Tone: ToneSuccess})
		} else {
			row.Tags = append(row.Tags, Tag{Label: "file missing", Tone: ToneWarning})
			row.TitleDisabled = true
		}
	case models.StatusFailed:
		row.Tags = append(row.Tags, Tag{Label: "failed", Tone: ToneError})
	case models.StatusStopped:
		row.Tags = append(row.Tags, Tag{Label: "paused", Tone: ToneDefault})
	case models.StatusReady, models.StatusWaiting:
	default:
		row.Tags = append(row.Tags, Tag{Label: string(item.Status), Tone: ToneDefault})
	}
	if item.IsLive {
		row.Tags = append(row.Tags, Tag{Label: "live", Tone: ToneLive})
	}

	if in.Filter == models.FilterList {
		if p, ok := in.Progress[item.ID]; ok {
			if pct, ok := p.Percent(); ok {
				row.Progress = &RowProgress{Percent: min(max(pct, 0), 100), Speed: p.Speed}
			}
		}
	}

	var logs []Action
	if in.ShowTerminal {
		logs = []Action{{Kind: ActionLog}}
	}

	switch item.Status {
	case models.StatusReady:
		row.Actions = append(logs, Action{Kind: ActionEdit}, Action{Kind: ActionDownload})
	case models.StatusDownloading:
		row.Actions = append(logs, Action{Kind: ActionStop})
	case models.StatusFailed:
		row.Actions = append(logs, Action{Kind: ActionEdit}, Action{Kind: ActionRedownload})
	case models.StatusStopped:
		row.Actions = append(logs, Action{Kind: ActionEdit}, Action{Kind: ActionContinue})
	case models.StatusWaiting:
		row.Note = "waiting"
	case models.StatusSuccess:
		if item.Exist {
			row.Actions = append(row.Actions, Action{Kind: ActionPlay})
		}
		row.Actions = append(row.Actions, Action{Kind: ActionConvert, Disabled: in.Converting[item.ID]})
	}
	return row
}
