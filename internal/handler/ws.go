package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/psds-microservice/portal-service/internal/auth"
	"github.com/psds-microservice/portal-service/internal/errs"
	"github.com/psds-microservice/portal-service/internal/middleware"
	"github.com/psds-microservice/portal-service/internal/relay"
	"github.com/psds-microservice/portal-service/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin dashboard connections are filtered by the CORS layer;
	// the upgrade itself accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WSHandler struct {
	svc service.ChatServicer
	hub *relay.Hub
}

func NewWSHandler(svc service.ChatServicer, hub *relay.Hub) *WSHandler {
	return &WSHandler{svc: svc, hub: hub}
}

// wsConn is one live dashboard connection. It may join several sessions;
// every joined session's events funnel into the single send channel.
type wsConn struct {
	id   string
	conn *websocket.Conn
	send chan relay.Event
	done chan struct{}
}

// Serve upgrades the request and runs the read/write pumps until the peer
// disconnects. Clients only ever send join frames; messages themselves go
// through the REST API so they are durably written before any fan-out.
func (h *WSHandler) Serve(c *gin.Context) {
	identity, _ := middleware.GetIdentity(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "websocket upgrade failed"})
		return
	}
	wc := &wsConn{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan relay.Event, 32),
		done: make(chan struct{}),
	}
	go wc.writePump()
	h.readPump(c, wc, identity)
}

func (h *WSHandler) readPump(c *gin.Context, wc *wsConn, identity auth.Identity) {
	defer func() {
		h.hub.LeaveAll(wc.id)
		close(wc.done)
		wc.conn.Close()
	}()
	for {
		_, raw, err := wc.conn.ReadMessage()
		if err != nil {
			return
		}
		var ev relay.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("relay: malformed frame from %s: %v", wc.id, err)
			continue
		}
		switch ev.Type {
		case relay.EventJoin:
			if err := h.authorizeJoin(c, identity, ev.SessionID); err != nil {
				log.Printf("relay: join session %d refused for user %d", ev.SessionID, identity.UserID)
				continue
			}
			events := h.hub.Join(ev.SessionID, wc.id)
			go wc.forward(events)
		default:
			log.Printf("relay: unknown frame type %q from %s", ev.Type, wc.id)
		}
	}
}

// forward drains one session subscription into the connection's send channel.
// It exits when the hub closes the subscription (Leave/LeaveAll).
func (wc *wsConn) forward(events <-chan relay.Event) {
	for ev := range events {
		select {
		case wc.send <- ev:
		case <-wc.done:
			return
		}
	}
}

func (wc *wsConn) writePump() {
	defer wc.conn.Close()
	for {
		select {
		case ev := <-wc.send:
			body, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := wc.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				return
			}
		case <-wc.done:
			wc.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (h *WSHandler) authorizeJoin(c *gin.Context, identity auth.Identity, sessionID uint64) error {
	session, err := h.svc.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		return err
	}
	if !identity.Role.IsStaff() && session.ClientID != identity.UserID {
		return errs.ErrForbidden
	}
	return nil
}
