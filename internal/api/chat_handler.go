package api

import (
	"go-chat-im/internal/service"
	"go-chat-im/pkg/logger"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 处理聊天历史相关的HTTP请求。
// 消息的发送只走WebSocket，这里只读。
type ChatHandler struct {
	historyService *service.HistoryService
}

// 创建一个新的聊天处理器实例
func NewChatHandler(historyService *service.HistoryService) *ChatHandler {
	return &ChatHandler{
		historyService: historyService,
	}
}

// 获取与指定用户的私聊历史记录
func (h *ChatHandler) GetChatHistory(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	// 获取对话用户ID
	otherIDStr := c.Param("other_user_id")
	otherID, err := strconv.ParseUint(otherIDStr, 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid otherUserID parameter"})
		return
	}

	if userID == uint(otherID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot fetch chat history with oneself"})
		return
	}

	limit, offset, ok := getPaginationParams(c)
	if !ok {
		return
	}

	messages, err := h.historyService.GetChatHistory(userID, uint(otherID), limit, offset)
	if err != nil {
		logger.L.Error("Error getting chat history from service", zap.Error(err),
			zap.Uint("userID", userID), zap.Uint("otherID", uint(otherID)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve chat history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
