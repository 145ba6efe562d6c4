package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/stratocompute/stratos/backend/internal/domain/memory"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/monitoring"
	"github.com/stratocompute/stratos/backend/internal/logging"
	"github.com/stratocompute/stratos/backend/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Interval bounds for client-requested pacing.
const (
	minInterval = 100 * time.Millisecond
	maxInterval = time.Minute
)

// Message is one inbound client frame.
type Message struct {
	Type       string `json:"type"`
	IntervalMs int    `json:"interval_ms,omitempty"`
}

// frame is one outbound server frame.
type frame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	StreamID  string      `json:"stream_id,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Handler manages WebSocket overview streams.
type Handler struct {
	manager  *memory.Manager
	metrics  *monitoring.Metrics
	interval time.Duration
	log      *logging.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(manager *memory.Manager, metrics *monitoring.Metrics, interval time.Duration, log *logging.Logger) *Handler {
	if interval <= 0 {
		interval = time.Second
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		manager:  manager,
		metrics:  metrics,
		interval: interval,
		log:      log.WithComponent("ws"),
	}
}

// HandleConnection upgrades the request and streams overview snapshots
// until the client goes away. All writes happen on this goroutine; the
// read loop only feeds control frames back.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	streamID := id.NewStreamID().String()
	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	reqCtx := c.Request.Context()

	h.send(conn, frame{
		Type:     "system",
		Message:  "Connected to StratOS Memory Service (Go)",
		StreamID: streamID,
	})

	ctrl := make(chan Message, 4)
	readErr := make(chan error, 1)
	go h.readLoop(conn, ctrl, readErr)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.pushOverview(conn, reqCtx)

	paused := false
	for {
		select {
		case <-ticker.C:
			if paused {
				continue
			}
			h.pushOverview(conn, reqCtx)

		case msg := <-ctrl:
			switch msg.Type {
			case "ping":
				h.send(conn, frame{Type: "pong"})
			case "subscribe":
				if msg.IntervalMs > 0 {
					ticker.Reset(clampInterval(time.Duration(msg.IntervalMs) * time.Millisecond))
				}
				paused = false
				h.pushOverview(conn, reqCtx)
			case "unsubscribe":
				paused = true
			default:
				h.sendError(conn, "unknown message type")
			}

		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("stream closed", zap.String("stream_id", streamID), zap.Error(err))
			}
			return
		}
	}
}

// readLoop feeds inbound control frames to the write loop. Malformed
// frames surface as an unknown-type control so the client hears back.
func (h *Handler) readLoop(conn *websocket.Conn, ctrl chan<- Message, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			msg = Message{Type: "malformed"}
		}
		h.metrics.RecordWSMessage("in", msg.Type)
		ctrl <- msg
	}
}

// pushOverview sends one overview snapshot, bounded by the stream
// interval so a slow display fetch cannot stack pushes.
func (h *Handler) pushOverview(conn *websocket.Conn, reqCtx context.Context) {
	ctx, cancel := context.WithTimeout(reqCtx, h.interval)
	overview := h.manager.Overview(ctx)
	cancel()

	h.send(conn, frame{
		Type: "overview",
		Data: overview,
	})
}

func (h *Handler) send(conn *websocket.Conn, f frame) error {
	f.Timestamp = time.Now().Unix()

	data, err := sonic.Marshal(f)
	if err != nil {
		h.log.Error("frame marshal failed", zap.Error(err))
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	h.metrics.RecordWSMessage("out", f.Type)
	return nil
}

func (h *Handler) sendError(conn *websocket.Conn, msg string) error {
	return h.send(conn, frame{
		Type:    "error",
		Message: msg,
	})
}

func clampInterval(d time.Duration) time.Duration {
	if d < minInterval {
		return minInterval
	}
	if d > maxInterval {
		return maxInterval
	}
	return d
}
