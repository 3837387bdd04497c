package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aescanero/wfdiag/pkg/domain"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the API binds to loopback by default
	},
}

// Streamer provides the progress of a session.
type Streamer interface {
	Subscribe(ctx context.Context, id uuid.UUID) (<-chan domain.ProgressUpdate, error)
	Progress(ctx context.Context, id uuid.UUID) (domain.ProgressUpdate, error)
}

// Handler handles WebSocket connections
type Handler struct {
	streamer Streamer
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(streamer Streamer, logger *zap.Logger) *Handler {
	return &Handler{
		streamer: streamer,
		logger:   logger,
	}
}

// HandleSessionStream streams the progress updates of one session as JSON
// text messages. The stream ends with the first terminal update, after which
// the server closes the connection normally.
func (h *Handler) HandleSessionStream(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid session id"})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before reading the current state so no terminal update can
	// slip between the two.
	updates, err := h.streamer.Subscribe(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	logger := h.logger.With(zap.String("session_id", id.String()))
	logger.Info("WebSocket connection established", zap.String("client", c.ClientIP()))

	// The reader only notices the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	current, err := h.streamer.Progress(ctx, id)
	if err != nil {
		logger.Error("failed to read session progress", zap.Error(err))
		return
	}
	if !h.send(conn, logger, current) {
		return
	}
	if current.Status.IsTerminal() {
		h.close(conn)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			// buffered before the snapshot was taken
			if update.Timestamp.Before(current.Timestamp) {
				continue
			}
			if !h.send(conn, logger, update) {
				return
			}
			if update.Status.IsTerminal() {
				h.close(conn)
				return
			}
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, logger *zap.Logger, update domain.ProgressUpdate) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(update); err != nil {
		logger.Error("failed to write message", zap.Error(err))
		return false
	}
	return true
}

func (h *Handler) close(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session finished")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
