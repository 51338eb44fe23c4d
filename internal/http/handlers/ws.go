package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// SocketServer runs one websocket per call until the peer goes away.
type SocketServer interface {
	Serve(up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, userID string) error
}

type RealtimeHandler struct {
	hub      SocketServer
	upgrader *websocket.Upgrader
}

func NewRealtimeHandler(hub SocketServer, upgrader *websocket.Upgrader) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, upgrader: upgrader}
}

// Connect upgrades GET /api/ws. A failed upgrade has already written its
// own response.
func (h *RealtimeHandler) Connect(ctx *gin.Context) {
	userID, ok := callerID(ctx)
	if !ok {
		return
	}

	if !websocket.IsWebSocketUpgrade(ctx.Request) {
		RespondBadRequest(ctx, "Websocket upgrade required", nil)
		return
	}

	if err := h.hub.Serve(h.upgrader, ctx.Writer, ctx.Request, userID); err != nil {
		slog.Default().WarnContext(ctx.Request.Context(), "ws_upgrade_failed",
			"user_id", userID,
			"request_id", requestIDFrom(ctx),
			"err", err,
		)
		ctx.Abort()
	}
}
