package engine

import (
	"encoding/json"
	"fmt"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// Request method names.
const (
	MethodFetchPage      = "fetchPage"
	MethodStartDownload  = "startDownload"
	MethodStopDownload   = "stopDownload"
	MethodDeleteItem     = "deleteItem"
	MethodEditItem       = "editItem"
	MethodAddItem        = "addItem"
	MethodAddItems       = "addItems"
	MethodConvertToAudio = "convertToAudio"
	MethodGetLog         = "getLog"
	MethodOpenDir        = "openDir"
	MethodOpenURL        = "openUrl"
	MethodGetLocalIP     = "getLocalIP"
	MethodShowWindow     = "showWindow"
	MethodContextMenu    = "contextMenu"
)

// envelope is the single frame shape on the wire.
//
// Requests set ID, Method and Params. Responses echo ID and set Result or Error.
// Events set Event and Data and never carry an ID.
type envelope struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	Event  string          `json:"event,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type idParams struct {
	ID int64 `json:"id"`
}

type pathParams struct {
	Path string `json:"path"`
}

type urlParams struct {
	URL string `json:"url"`
}

type statusData struct {
	ID      int64  `json:"id"`
	Message string `json:"message,omitempty"`
}

type itemEventData struct {
	Action  string `json:"action"`
	Payload int64  `json:"payload"`
}

type liveData struct {
	ID     int64 `json:"id"`
	IsLive bool  `json:"isLive"`
}

// RemoteError is a rejection reported by the engine. Error returns the engine's message verbatim.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Unwrap() error { return shared.ErrRequestFailed }

func encodeEvent(ev Event) (envelope, error) {
	var data any
	switch ev := ev.(type) {
	case ProgressEvent:
		data = ev.Progress
	case SuccessEvent:
		data = statusData{ID: ev.ID}
	case FailedEvent:
		data = statusData{ID: ev.ID, Message: ev.Message}
	case StartEvent:
		data = statusData{ID: ev.ID}
	case ItemEvent:
		data = itemEventData{Action: ev.Action.Name(), Payload: actionPayload(ev.Action)}
	case ItemNotifierEvent:
		data = struct{}{}
	case LiveStatusChangeEvent:
		data = liveData{ID: ev.ID, IsLive: ev.IsLive}
	default:
		return envelope{}, fmt.Errorf("%w: unknown event type %T", shared.ErrInvalidInput, ev)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return envelope{}, fmt.Errorf("failed to marshal %s event: %w", ev.Kind(), err)
	}
	return envelope{Event: ev.Kind().String(), Data: raw}, nil
}

func decodeEvent(env envelope) (Event, error) {
	kind, err := ParseEventKind(env.Event)
	if err != nil {
		return nil, err
	}

	switch kind {
	case EventProgress:
		var p models.DownloadProgress
		if err := unmarshalData(env.Data, &p); err != nil {
			return nil, err
		}
		return ProgressEvent{Progress: p}, nil
	case EventSuccess, EventFailed, EventStart:
		var d statusData
		if err := unmarshalData(env.Data, &d); err != nil {
			return nil, err
		}
		switch kind {
		case EventSuccess:
			return SuccessEvent{ID: d.ID}, nil
		case EventFailed:
			return FailedEvent{ID: d.ID, Message: d.Message}, nil
		default:
			return StartEvent{ID: d.ID}, nil
		}
	case EventItem:
		var d itemEventData
		if err := unmarshalData(env.Data, &d); err != nil {
			return nil, err
		}
		action, err := NewItemAction(d.Action, d.Payload)
		if err != nil {
			return nil, err
		}
		return ItemEvent{Action: action}, nil
	case EventItemNotifier:
		return ItemNotifierEvent{}, nil
	case EventLiveStatusChange:
		var d liveData
		if err := unmarshalData(env.Data, &d); err != nil {
			return nil, err
		}
		return LiveStatusChangeEvent{ID: d.ID, IsLive: d.IsLive}, nil
	}

	return nil, fmt.Errorf("unhandled event %q", env.Event)
}

func unmarshalData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
