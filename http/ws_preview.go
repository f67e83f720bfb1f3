package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"obesitycheck/predictor"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 << 10
	previewTimeout = 5 * time.Second
)

// previewReply is sent for every form the client pushes.
type previewReply struct {
	Type   string                 `json:"type"`
	Result *predictor.Result      `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
	Status int                    `json:"status,omitempty"`
	Fields []predictor.FieldError `json:"fields,omitempty"`
}

// previewClient is one live preview connection.
type previewClient struct {
	conn *websocket.Conn
	send chan []byte
	id   string
}

// PreviewHub tracks live preview connections so they can be closed on
// shutdown. Each message a client sends is a form; each reply is the
// prediction for it or an error envelope.
type PreviewHub struct {
	svc      *predictor.Service
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*previewClient]struct{}
}

func NewPreviewHub(svc *predictor.Service, logger *zap.Logger) *PreviewHub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreviewHub{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*previewClient]struct{}),
	}
}

// Count returns the number of open preview connections.
func (h *PreviewHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll drops every open connection.
func (h *PreviewHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *PreviewHub) register(c *previewClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("preview client connected", zap.String("client", c.id), zap.Int("total", n))
}

func (h *PreviewHub) unregister(c *previewClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("preview client disconnected", zap.String("client", c.id), zap.Int("total", n))
}

// HandleWebSocket upgrades the request and serves previews until the
// client goes away.
func (h *PreviewHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &previewClient{
		conn: conn,
		send: make(chan []byte, 16),
		id:   GetRequestID(r.Context()),
	}
	h.register(client)

	// one goroutine per direction
	go client.writePump(h.logger)
	go h.readPump(client)
}

// readPump decodes forms and queues a reply for each.
func (h *PreviewHub) readPump(c *previewClient) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		h.unregister(c)
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", zap.String("client", c.id), zap.Error(err))
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := h.preview(ctx, data)
		out, err := json.Marshal(reply)
		if err != nil {
			h.logger.Error("encode preview reply", zap.Error(err))
			continue
		}
		select {
		case c.send <- out:
		default:
			h.logger.Warn("preview client too slow, dropping reply", zap.String("client", c.id))
		}
	}
}

// preview decodes one message onto the default form, so a client may send
// only the fields it changed.
func (h *PreviewHub) preview(ctx context.Context, data []byte) previewReply {
	f := predictor.DefaultForm()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return previewReply{Type: "error", Error: "invalid form: " + err.Error(), Status: http.StatusBadRequest}
	}

	ctx, cancel := context.WithTimeout(ctx, previewTimeout)
	defer cancel()
	result, err := h.svc.Preview(ctx, f)
	if err != nil {
		body := errorPayload(err)
		return previewReply{Type: "error", Error: body.Error, Status: statusFor(err), Fields: body.Fields}
	}
	return previewReply{Type: "result", Result: &result}
}

// writePump writes queued replies and pings the client.
func (c *previewClient) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write error", zap.String("client", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
