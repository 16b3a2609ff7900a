package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = 25 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Displays are served from other origins; the stream is read-only.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEvents upgrades to a websocket and relays the battle's paced event
// stream: the retained history first, then live events until battle_ended.
// The stream is read-only and open to spectators.
func (h *BattleHandler) StreamEvents(c *gin.Context) {
	id := c.Param("battleID")
	history, events, cancel, err := h.battles.Subscribe(id)
	if err != nil {
		writeBattleError(c, err, constants.ErrStreamUpgrade)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("stream upgrade failed", logging.Fields{constants.LogFieldBattleID: id, "error": err.Error()})
		return
	}
	defer conn.Close()

	// Reads only serve pong and close frames; a read error means the peer
	// went away.
	gone := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, ev := range history {
		if err := writeEvent(conn, ev); err != nil {
			return
		}
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "battle stream closed"))
				return
			}
			if err := writeEvent(conn, ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			logging.Debug("stream subscriber left", logging.Fields{constants.LogFieldBattleID: id})
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, ev game.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(ev)
}
