package websocket

import (
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/util/common"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	readLimit  = 512
)

// Serve registers client, pumps hub messages to conn and blocks until the peer goes away.
// Clients only listen; anything they send is discarded.
func (h *Hub) Serve(conn *gws.Conn, client *Client) {
	h.Register(client)
	go writePump(conn, client)

	defer func() {
		h.Unregister(client)
		_ = conn.Close()
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if gws.IsUnexpectedCloseError(err, gws.CloseGoingAway, gws.CloseNormalClosure) {
				logger.Debugf("WebSocket client %s read error: %v", client.ID, err)
			}
			return
		}
	}
}

func writePump(conn *gws.Conn, client *Client) {
	defer common.Recover("websocket writer " + client.ID)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(gws.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gws.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gws.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
