package engine

import (
	"context"

	"github.com/desertthunder/vidx/internal/models"
)

// Commands are the request/response operations fulfilled by the engine.
type Commands interface {
	FetchPage(ctx context.Context, req models.PageRequest) (models.Page, error)
	StartDownload(ctx context.Context, id int64) error
	StopDownload(ctx context.Context, id int64) error
	DeleteItem(ctx context.Context, id int64) error
	EditItem(ctx context.Context, item models.EditDownloadItem) error
	AddItem(ctx context.Context, item models.NewDownloadItem) (models.DownloadItem, error)
	AddItems(ctx context.Context, items []models.NewDownloadItem) ([]models.DownloadItem, error)
	// ConvertToAudio fails with a user-presentable message.
	ConvertToAudio(ctx context.Context, id int64) error
	GetLog(ctx context.Context, id int64) (string, error)
	OpenDir(ctx context.Context, path string) error
	OpenURL(ctx context.Context, url string) error
	GetLocalIP(ctx context.Context) (string, error)
	ShowWindow(ctx context.Context) error
	ContextMenu(ctx context.Context, id int64) error
}

// Subscriber registers push event handlers.
type Subscriber interface {
	On(kind EventKind, h Handler) Subscription
	Off(sub Subscription)
}

// Engine is the full external collaborator: commands plus push events.
type Engine interface {
	Commands
	Subscriber
}
