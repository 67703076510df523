package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/zhanyysh/Chat02/internal/auth"
	"github.com/zhanyysh/Chat02/internal/ws"
)

type WSHandler struct {
	Registry             *ws.Registry
	Router               *ws.Router
	Resolver             auth.IdentityResolver
	Log                  *zap.SugaredLogger
	WSInsecureSkipVerify bool
}

// Handle upgrades the connection, registers it as the user's live endpoint
// and serves its read loop. Each inbound frame is processed to completion
// before the next one is read.
func (h *WSHandler) Handle(c *gin.Context) {
	// Browser websockets cannot set an Authorization header, so the
	// credential rides in the query string.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing token"})
		return
	}

	userID, err := h.Resolver.Resolve(tokenStr)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid token"})
		return
	}

	opts := &websocket.AcceptOptions{}
	if h.WSInsecureSkipVerify {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		return // Accept already wrote the error response
	}

	client := ws.NewClient(userID, conn)
	h.Registry.Connect(client)
	client.Run()
	defer h.Registry.Disconnect(client)

	for {
		_, data, err := conn.Read(client.Context())
		if err != nil {
			h.Log.Debugw("read loop ended", "user_id", userID, "error", err)
			return
		}
		h.Router.HandleFrame(userID, data)
	}
}
