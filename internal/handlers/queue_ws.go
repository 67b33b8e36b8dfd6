package handlers

import (
	"net/http"
	"time"

	"curequeue-server/internal/logging"
	"curequeue-server/internal/realtime"
	"curequeue-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	queueWriteWait  = 10 * time.Second
	queuePongWait   = 60 * time.Second
	queuePingPeriod = (queuePongWait * 9) / 10
	queueSendBuffer = 16
)

// QueueStreamHandler pushes live queue changes to display boards.
type QueueStreamHandler struct {
	Hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewQueueStreamHandler creates a handler that accepts browser connections
// from allowedOrigin. Clients that send no Origin header are always accepted.
func NewQueueStreamHandler(hub *realtime.Hub, allowedOrigin string) *QueueStreamHandler {
	return &QueueStreamHandler{
		Hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowedOrigin == "*" || origin == allowedOrigin
			},
		},
	}
}

// Stream upgrades GET /ws/queue?doctorId=&date= and forwards matching
// queue events until the client goes away.
func (h *QueueStreamHandler) Stream(c *gin.Context) {
	doctorID := c.Query("doctorId")
	if doctorID == "" {
		utils.BadRequest(c, "doctorId query parameter is required")
		return
	}

	logger := logging.FromContext(c.Request.Context())
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("queue stream upgrade failed")
		return
	}

	client := &realtime.Client{
		ID:   uuid.NewString(),
		Send: make(chan []byte, queueSendBuffer),
		Subscription: realtime.Subscription{
			DoctorID: doctorID,
			Date:     c.Query("date"),
		},
	}
	h.Hub.Register(client)
	logger.Debug().Str("client_id", client.ID).Str("doctor_id", doctorID).Msg("queue stream opened")

	go writeQueueEvents(conn, client)

	// Clients only listen; reading keeps pong handling alive and notices close.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(queuePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(queuePongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.Hub.Unregister(client)
	logger.Debug().Str("client_id", client.ID).Msg("queue stream closed")
}

func writeQueueEvents(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(queuePingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(queueWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(queueWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
