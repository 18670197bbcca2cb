package ws

import (
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sproutlabs/sprout/runtime/internal/domain/runtime"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/logging"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin policy is enforced by the CORS layer in front
	},
}

// Message is the wire format in both directions.
type Message struct {
	Type    string         `json:"type"`
	Key     string         `json:"key,omitempty"`
	Value   any            `json:"value,omitempty"`
	Changes map[string]any `json:"changes,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Handler manages WebSocket connections to one runtime instance.
type Handler struct {
	instance *runtime.Instance
	logger   *logging.Logger
}

// NewHandler creates a new WebSocket handler.
func NewHandler(instance *runtime.Instance, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{instance: instance, logger: logger}
}

// HandleConnection upgrades the request and serves one client until it
// disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(msg Message) {
		data, err := sonic.Marshal(msg)
		if err != nil {
			h.logger.Error("websocket marshal failed", zap.Error(err))
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
		}
	}

	send(Message{Type: "hello", Value: h.instance.ID()})

	// One flush observer per connection: one message per batch.
	unsub := h.instance.OnFlush(func(batch map[string]any) {
		send(Message{Type: "batch", Changes: batch})
	})
	defer unsub()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			send(Message{Type: "error", Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case "set":
			if err := h.instance.SetValue(msg.Key, msg.Value); err != nil {
				send(Message{Type: "error", Key: msg.Key, Error: err.Error()})
			}
		case "get":
			send(Message{Type: "value", Key: msg.Key, Value: h.instance.GetValue(msg.Key, nil)})
		case "ping":
			send(Message{Type: "pong"})
		default:
			send(Message{Type: "error", Error: "unknown message type"})
		}
	}
}
