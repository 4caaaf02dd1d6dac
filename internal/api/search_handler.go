package api

import (
	"net/http"

	"go-chat-im/internal/search"
	"go-chat-im/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SearchHandler struct {
	indexer *search.Indexer
}

func NewSearchHandler(indexer *search.Indexer) *SearchHandler {
	return &SearchHandler{indexer: indexer}
}

// SearchMessages 按关键字搜索消息内容
func (h *SearchHandler) SearchMessages(c *gin.Context) {
	if _, ok := getUserIDFromContext(c); !ok {
		return
	}

	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "keyword is required"})
		return
	}

	limit, _, ok := getPaginationParams(c)
	if !ok {
		return
	}

	hits, err := h.indexer.Search(c.Request.Context(), keyword, limit)
	if err != nil {
		logger.L.Error("Message search failed", zap.String("keyword", keyword), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": hits})
}
