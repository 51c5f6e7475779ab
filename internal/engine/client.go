package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 * 1024
)

// ClientOptions configures [Dial].
type ClientOptions struct {
	RequestTimeout time.Duration // per-call deadline; zero means the caller's context decides
	Header         http.Header
	Logger         *log.Logger
}

// Client is an [Engine] reached over a websocket connection.
//
// Requests are correlated with their responses by a uuid. Push events are decoded and published on the
// client's [Bus] from the read goroutine.
type Client struct {
	conn    *websocket.Conn
	bus     *Bus
	logger  *log.Logger
	timeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan envelope
	err     error

	done      chan struct{}
	closeOnce sync.Once
}

var _ Engine = (*Client)(nil)

// Dial connects to the engine websocket at rawURL.
func Dial(ctx context.Context, rawURL string, opts ClientOptions) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, rawURL, opts.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", shared.ErrEngineUnavailable, rawURL, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NopLogger()
	}

	c := &Client{
		conn:    conn,
		bus:     NewBus(),
		logger:  logger.With("component", "engine-client"),
		timeout: opts.RequestTimeout,
		pending: make(map[string]chan envelope),
		done:    make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	go c.readPump()
	go c.pingPump()

	c.logger.Info("connected", "url", rawURL)
	return c, nil
}

// On implements [Subscriber].
func (c *Client) On(kind EventKind, h Handler) Subscription { return c.bus.On(kind, h) }

// Off implements [Subscriber].
func (c *Client) Off(sub Subscription) { c.bus.Off(sub) }

// Done is closed once the connection is gone.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the connection closed, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close sends a close frame and tears the connection down. In-flight calls fail with [shared.ErrDisconnected].
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	c.writeMu.Unlock()

	c.shutdown(shared.ErrDisconnected)
	return nil
}

func (c *Client) shutdown(reason error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = reason
		c.mu.Unlock()

		close(c.done)
		c.conn.Close()
	})
}

func (c *Client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			c.shutdown(fmt.Errorf("%w: %v", shared.ErrDisconnected, err))
			return
		}

		var env envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Warn("failed to parse message", "error", err)
			continue
		}

		if env.Event != "" {
			ev, err := decodeEvent(env)
			if err != nil {
				c.logger.Warn("dropping event", "event", env.Event, "error", err)
				continue
			}
			c.bus.Publish(ev)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[env.ID]
		delete(c.pending, env.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("response without caller", "id", env.ID)
			continue
		}
		ch <- env
	}
}

func (c *Client) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				c.shutdown(fmt.Errorf("%w: ping failed: %v", shared.ErrDisconnected, err))
				return
			}
		}
	}
}

func (c *Client) write(env envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("%w: write failed: %v", shared.ErrDisconnected, err)
	}
	return nil
}

// call sends one request and waits for its response, the connection closing, or ctx.
func (c *Client) call(ctx context.Context, method string, params, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal %s params: %w", method, err)
		}
		raw = data
	}

	id := uuid.NewString()
	ch := make(chan envelope, 1)

	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(envelope{ID: id, Method: method, Params: raw}); err != nil {
		return err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			return &RemoteError{Method: method, Message: resp.Error}
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("%w: malformed %s result: %v", shared.ErrRequestFailed, method, err)
			}
		}
		return nil
	case <-c.done:
		return c.Err()
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s", shared.ErrTimeout, method)
		}
		return ctx.Err()
	}
}

func (c *Client) FetchPage(ctx context.Context, req models.PageRequest) (models.Page, error) {
	var page models.Page
	err := c.call(ctx, MethodFetchPage, req, &page)
	return page, err
}

func (c *Client) StartDownload(ctx context.Context, id int64) error {
	return c.call(ctx, MethodStartDownload, idParams{ID: id}, nil)
}

func (c *Client) StopDownload(ctx context.Context, id int64) error {
	return c.call(ctx, MethodStopDownload, idParams{ID: id}, nil)
}

func (c *Client) DeleteItem(ctx context.Context, id int64) error {
	return c.call(ctx, MethodDeleteItem, idParams{ID: id}, nil)
}

func (c *Client) EditItem(ctx context.Context, item models.EditDownloadItem) error {
	return c.call(ctx, MethodEditItem, item, nil)
}

func (c *Client) AddItem(ctx context.Context, item models.NewDownloadItem) (models.DownloadItem, error) {
	var created models.DownloadItem
	err := c.call(ctx, MethodAddItem, item, &created)
	return created, err
}

func (c *Client) AddItems(ctx context.Context, items []models.NewDownloadItem) ([]models.DownloadItem, error) {
	var created []models.DownloadItem
	err := c.call(ctx, MethodAddItems, items, &created)
	return created, err
}

func (c *Client) ConvertToAudio(ctx context.Context, id int64) error {
	return c.call(ctx, MethodConvertToAudio, idParams{ID: id}, nil)
}

func (c *Client) GetLog(ctx context.Context, id int64) (string, error) {
	var text string
	err := c.call(ctx, MethodGetLog, idParams{ID: id}, &text)
	return text, err
}

func (c *Client) OpenDir(ctx context.Context, path string) error {
	return c.call(ctx, MethodOpenDir, pathParams{Path: path}, nil)
}

func (c *Client) OpenURL(ctx context.Context, url string) error {
	return c.call(ctx, MethodOpenURL, urlParams{URL: url}, nil)
}

func (c *Client) GetLocalIP(ctx context.Context) (string, error) {
	var ip string
	err := c.call(ctx, MethodGetLocalIP, nil, &ip)
	return ip, err
}

func (c *Client) ShowWindow(ctx context.Context) error {
	return c.call(ctx, MethodShowWindow, nil, nil)
}

func (c *Client) ContextMenu(ctx context.Context, id int64) error {
	return c.call(ctx, MethodContextMenu, idParams{ID: id}, nil)
}
