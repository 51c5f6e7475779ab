package engine

import (
	"context"
	"fmt"

	"github.com/desertthunder/vidx/internal/models"
)

// EventKind enumerates the push events emitted by the engine.
type EventKind int

const (
	EventProgress EventKind = iota
	EventSuccess
	EventFailed
	EventStart
	EventItem
	EventItemNotifier
	EventLiveStatusChange
)

// EventKinds lists every kind in declaration order.
var EventKinds = []EventKind{
	EventProgress,
	EventSuccess,
	EventFailed,
	EventStart,
	EventItem,
	EventItemNotifier,
	EventLiveStatusChange,
}

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventSuccess:
		return "success"
	case EventFailed:
		return "failed"
	case EventStart:
		return "start"
	case EventItem:
		return "item-event"
	case EventItemNotifier:
		return "item-notifier"
	case EventLiveStatusChange:
		return "live-status-change"
	default:
		return ""
	}
}

// ParseEventKind maps a wire name back to its kind.
func ParseEventKind(name string) (EventKind, error) {
	for _, k := range EventKinds {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", name)
}

// Event is a push notification from the engine. The set of implementations is closed.
type Event interface {
	Kind() EventKind
}

var (
	_ Event = ProgressEvent{}
	_ Event = SuccessEvent{}
	_ Event = FailedEvent{}
	_ Event = StartEvent{}
	_ Event = ItemEvent{}
	_ Event = ItemNotifierEvent{}
	_ Event = LiveStatusChangeEvent{}
)

// ProgressEvent carries the latest progress sample of a task.
type ProgressEvent struct{ Progress models.DownloadProgress }

// SuccessEvent reports a finished download.
type SuccessEvent struct{ ID int64 }

// FailedEvent reports a failed download.
type FailedEvent struct {
	ID      int64
	Message string
}

// StartEvent reports that a download began.
type StartEvent struct{ ID int64 }

// ItemEvent carries an action chosen from an engine-side item menu.
type ItemEvent struct{ Action ItemAction }

// ItemNotifierEvent reports a task created out-of-band (e.g. from another window).
type ItemNotifierEvent struct{}

// LiveStatusChangeEvent reports that a task's isLive flag changed.
type LiveStatusChangeEvent struct {
	ID     int64
	IsLive bool
}

func (ProgressEvent) Kind() EventKind         { return EventProgress }
func (SuccessEvent) Kind() EventKind          { return EventSuccess }
func (FailedEvent) Kind() EventKind           { return EventFailed }
func (StartEvent) Kind() EventKind            { return EventStart }
func (ItemEvent) Kind() EventKind             { return EventItem }
func (ItemNotifierEvent) Kind() EventKind     { return EventItemNotifier }
func (LiveStatusChangeEvent) Kind() EventKind { return EventLiveStatusChange }

// ItemActionHandler receives item actions. Implementing it is the exhaustive match over [ItemAction]:
// a new variant adds a method here and every handler stops compiling until it handles it.
type ItemActionHandler interface {
	SelectItem(id int64) error
	DownloadItem(ctx context.Context, id int64) error
	RefreshItems(ctx context.Context) error
	DeleteItem(ctx context.Context, id int64) error
}

// ItemAction is the tagged union of item menu actions.
type ItemAction interface {
	// Apply dispatches the action to the matching handler method.
	Apply(ctx context.Context, h ItemActionHandler) error
	// Name is the wire tag of the variant.
	Name() string
}

var (
	_ ItemAction = SelectAction{}
	_ ItemAction = DownloadAction{}
	_ ItemAction = RefreshAction{}
	_ ItemAction = DeleteAction{}
)

// SelectAction adds a task to the selection.
type SelectAction struct{ ID int64 }

// DownloadAction starts a task.
type DownloadAction struct{ ID int64 }

// RefreshAction refetches the current page.
type RefreshAction struct{}

// DeleteAction deletes a task and refetches.
type DeleteAction struct{ ID int64 }

func (a SelectAction) Apply(_ context.Context, h ItemActionHandler) error { return h.SelectItem(a.ID) }
func (a DownloadAction) Apply(ctx context.Context, h ItemActionHandler) error {
	return h.DownloadItem(ctx, a.ID)
}
func (RefreshAction) Apply(ctx context.Context, h ItemActionHandler) error { return h.RefreshItems(ctx) }
func (a DeleteAction) Apply(ctx context.Context, h ItemActionHandler) error {
	return h.DeleteItem(ctx, a.ID)
}

func (SelectAction) Name() string   { return "select" }
func (DownloadAction) Name() string { return "download" }
func (RefreshAction) Name() string  { return "refresh" }
func (DeleteAction) Name() string   { return "delete" }

// NewItemAction builds the variant named by action. RefreshAction ignores the payload.
func NewItemAction(action string, payload int64) (ItemAction, error) {
	switch action {
	case "select":
		return SelectAction{ID: payload}, nil
	case "download":
		return DownloadAction{ID: payload}, nil
	case "refresh":
		return RefreshAction{}, nil
	case "delete":
		return DeleteAction{ID: payload}, nil
	default:
		return nil, fmt.Errorf("unknown item action %q", action)
	}
}

// actionPayload returns the id carried by a, or zero for variants without one.
func actionPayload(a ItemAction) int64 {
	switch a := a.(type) {
	case SelectAction:
		return a.ID
	case DownloadAction:
		return a.ID
	case DeleteAction:
		return a.ID
	default:
		return 0
	}
}
