package controller

import (
	"github.com/postscript-blog/postscript/logger"
	"github.com/postscript-blog/postscript/web/websocket"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
)

// WebSocketController upgrades /ws and hands the connection to the hub.
type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(g *gin.RouterGroup, hub *websocket.Hub) *WebSocketController {
	w := &WebSocketController{hub: hub}
	w.initRouter(g)
	return w
}

func (w *WebSocketController) initRouter(g *gin.RouterGroup) {
	g.GET("/ws", w.handleWebSocket)
}

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func (w *WebSocketController) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed:", err)
		return
	}
	w.hub.Serve(conn, websocket.NewClient(uuid.NewString(), websocket.MessageTypeLike))
}
