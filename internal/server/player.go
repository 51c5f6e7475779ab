package server

import (
	"context"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/vidx/internal/models"
)

// PageFetcher is the slice of the engine the player page reads from.
type PageFetcher interface {
	FetchPage(ctx context.Context, req models.PageRequest) (models.Page, error)
}

const playerPageSize = 100

var playerTemplate = template.Must(template.New("player").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>vidx</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               margin: 0; background: #f5f5f5; }
        h1 { font-size: 1.25rem; margin: 0; padding: 1rem; background: #7D56F4; color: white; }
        ul { list-style: none; margin: 0; padding: 0; }
        li { background: white; margin: 0.5rem; padding: 0.75rem 1rem; border-radius: 6px;
             box-shadow: 0 1px 2px rgba(0,0,0,0.1); }
        .name { font-weight: 600; }
        .missing { color: #999; text-decoration: line-through; }
        .live { color: #E5484D; font-size: 0.8rem; margin-left: 0.5rem; }
        .url { display: block; color: #666; font-size: 0.8rem; word-break: break-all; margin-top: 0.25rem; }
        p { color: #666; padding: 1rem; }
    </style>
</head>
<body>
    <h1>Downloads ({{.Total}})</h1>
    {{if .List}}
    <ul>
        {{range .List}}
        <li>
            <span class="name{{if not .Exist}} missing{{end}}">{{.Name}}</span>
            {{if .IsLive}}<span class="live">live</span>{{end}}
            <a class="url" href="{{.URL}}">{{.URL}}</a>
        </li>
        {{end}}
    </ul>
    {{else}}
    <p>Nothing has finished downloading yet.</p>
    {{end}}
</body>
</html>
`))

// PlayerHandler renders the finished downloads for a phone on the local network.
type PlayerHandler struct {
	fetcher PageFetcher
	logger  *log.Logger
}

// NewPlayerHandler creates a [PlayerHandler] reading from fetcher.
func NewPlayerHandler(fetcher PageFetcher, logger *log.Logger) *PlayerHandler {
	return &PlayerHandler{fetcher: fetcher, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *PlayerHandler) Routes() []string {
	return []string{"/player", "/player/"}
}

func (h *PlayerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	page, err := h.fetcher.FetchPage(r.Context(), models.PageRequest{
		Current:  1,
		PageSize: playerPageSize,
		Filter:   models.FilterDone,
	})
	if err != nil {
		h.logger.Error("failed to load finished downloads", "error", err)
		http.Error(w, "Failed to load downloads", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := playerTemplate.Execute(w, page); err != nil {
		h.logger.Error("failed to render player page", "error", err)
	}
}

// HealthHandler answers liveness probes.
type HealthHandler struct{}

// Routes returns the HTTP routes this handler serves.
func (HealthHandler) Routes() []string { return []string{"/healthz"} }

func (HealthHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}
