package api

import (
	"net/http"

	"go-chat-im/internal/presence"
	"go-chat-im/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PresenceHandler struct {
	store presence.OnlineSet
}

func NewPresenceHandler(store presence.OnlineSet) *PresenceHandler {
	return &PresenceHandler{store: store}
}

// GetOnlineUsers 返回共享存储中的在线用户列表，
// 跨实例可见，允许短暂滞后。
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		return
	}

	userIDs, err := h.store.ListOnline(c.Request.Context())
	if err != nil {
		logger.L.Error("Failed to list online users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list online users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"online_user_ids": userIDs})
}
