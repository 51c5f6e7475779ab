package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

const sendBuffer = 256

// Server exposes an [Engine] over websocket using the same framing as [Client].
//
// Every engine event is broadcast to all connected peers. Each request is handled on its own goroutine so a slow
// command never holds up the connection's read loop.
type Server struct {
	engine   Engine
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*serverConn]struct{}
	subs   []Subscription
	closed bool
}

type serverConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *serverConn) close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// enqueue hands data to the write pump, or gives up once the peer is gone.
func (c *serverConn) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	}
}

// NewServer wraps e and subscribes to all of its events.
func NewServer(e Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NopLogger()
	}

	s := &Server{
		engine: e,
		logger: logger.With("component", "engine-server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		conns: make(map[*serverConn]struct{}),
	}

	for _, kind := range EventKinds {
		s.subs = append(s.subs, e.On(kind, s.broadcast))
	}
	return s
}

// Routes lists the paths the server should be mounted on.
func (s *Server) Routes() []string { return []string{"/ws"} }

// Connections returns the number of connected peers.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close unsubscribes from the engine and drops every peer.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.engine.Off(sub)
	}
	for _, c := range conns {
		c.close()
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}

	c := &serverConn{ws: ws, send: make(chan []byte, sendBuffer), done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ws.Close()
		return
	}
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug("peer connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		c.close()
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		s.logger.Debug("peer disconnected", "remote", r.RemoteAddr)
	}()

	go s.writePump(c)
	s.readPump(ctx, c)
}

func (s *Server) readPump(ctx context.Context, c *serverConn) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("read error", "error", err)
			}
			return
		}

		var req envelope
		if err := json.Unmarshal(message, &req); err != nil {
			s.logger.Warn("failed to parse request", "error", err)
			continue
		}
		if req.Method == "" || req.ID == "" {
			continue
		}

		go func(req envelope) {
			data, err := json.Marshal(s.respond(ctx, req))
			if err != nil {
				s.logger.Error("failed to marshal response", "method", req.Method, "error", err)
				return
			}
			c.enqueue(data)
		}(req)
	}
}

// writePump owns all data writes on the connection.
func (s *Server) writePump(c *serverConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) broadcast(ev Event) {
	env, err := encodeEvent(ev)
	if err != nil {
		s.logger.Error("failed to encode event", "error", err)
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		s.logger.Error("failed to marshal event", "event", env.Event, "error", err)
		return
	}

	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.enqueue(data)
	}
}

func (s *Server) respond(ctx context.Context, req envelope) envelope {
	result, err := s.dispatch(ctx, req.Method, req.Params)
	if err != nil {
		s.logger.Debug("request failed", "method", req.Method, "error", err)
		return envelope{ID: req.ID, Error: err.Error()}
	}

	resp := envelope{ID: req.ID}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return envelope{ID: req.ID, Error: fmt.Sprintf("failed to marshal result: %v", err)}
		}
		resp.Result = raw
	}
	return resp
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, fmt.Errorf("%w: missing params", shared.ErrInvalidInput)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return v, nil
}

func (s *Server) dispatch(ctx context.Context, method string, raw json.RawMessage) (any, error) {
	e := s.engine

	switch method {
	case MethodFetchPage:
		req, err := decodeParams[models.PageRequest](raw)
		if err != nil {
			return nil, err
		}
		return e.FetchPage(ctx, req)
	case MethodStartDownload, MethodStopDownload, MethodDeleteItem,
		MethodConvertToAudio, MethodGetLog, MethodContextMenu:
		p, err := decodeParams[idParams](raw)
		if err != nil {
			return nil, err
		}
		switch method {
		case MethodStartDownload:
			return nil, e.StartDownload(ctx, p.ID)
		case MethodStopDownload:
			return nil, e.StopDownload(ctx, p.ID)
		case MethodDeleteItem:
			return nil, e.DeleteItem(ctx, p.ID)
		case MethodConvertToAudio:
			return nil, e.ConvertToAudio(ctx, p.ID)
		case MethodGetLog:
			return e.GetLog(ctx, p.ID)
		default:
			return nil, e.ContextMenu(ctx, p.ID)
		}
	case MethodEditItem:
		item, err := decodeParams[models.EditDownloadItem](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.EditItem(ctx, item)
	case MethodAddItem:
		item, err := decodeParams[models.NewDownloadItem](raw)
		if err != nil {
			return nil, err
		}
		return e.AddItem(ctx, item)
	case MethodAddItems:
		items, err := decodeParams[[]models.NewDownloadItem](raw)
		if err != nil {
			return nil, err
		}
		return e.AddItems(ctx, items)
	case MethodOpenDir:
		p, err := decodeParams[pathParams](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.OpenDir(ctx, p.Path)
	case MethodOpenURL:
		p, err := decodeParams[urlParams](raw)
		if err != nil {
			return nil, err
		}
		return nil, e.OpenURL(ctx, p.URL)
	case MethodGetLocalIP:
		return e.GetLocalIP(ctx)
	case MethodShowWindow:
		return nil, e.ShowWindow(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown method %q", shared.ErrNotSupported, method)
	}
}
