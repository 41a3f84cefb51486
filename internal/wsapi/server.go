package wsapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dotbot-project/fleet-controller/internal/controller"
	"github.com/dotbot-project/fleet-controller/internal/notify"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Server upgrades /ws/status connections and feeds every controller
// notification to every connected client as a msgpack-encoded envelope.
type Server struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// New builds a Server and subscribes its hub to ctrl's notifications. Call
// go Hub.Run() and serve HandleStatus to bring it up.
func New(ctrl *controller.Controller, logger *zap.Logger) *Server {
	hub := NewHub(logger)
	s := &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
	ctrl.AddListener(func(n notify.Notification) {
		payload, err := notify.EncodeMsgpack(n)
		if err != nil {
			logger.Error("encode notification", zap.Error(err))
			return
		}
		hub.Broadcast(payload)
	})
	return s
}

// Hub exposes the underlying broadcast hub so callers can start its loop.
func (s *Server) Hub() *Hub { return s.hub }

// HandleStatus upgrades the request to a WebSocket and streams notifications
// to it until the client disconnects.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	c := newClient()
	s.hub.register <- c
	s.logger.Info("ws client connected", zap.String("client_id", c.id), zap.String("remote_addr", conn.RemoteAddr().String()))

	go s.writePump(conn, c)
	go s.readPump(conn, c)
}

// readPump only watches for disconnect/pong; the status stream is
// server-to-client only, so inbound payloads are discarded.
func (s *Server) readPump(conn *websocket.Conn, c *client) {
	defer func() {
		s.hub.unregister <- c
		conn.Close()
	}()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("ws read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
