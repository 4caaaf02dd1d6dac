package api

import (
	"net/http"

	"go-chat-im/internal/interfaces"
	"go-chat-im/internal/model"
	internalws "go-chat-im/internal/websocket"
	"go-chat-im/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该配置具体的域名
		return true // 允许所有来源
	},
}

type WSHandler struct {
	registry interfaces.ConnectionRegistry
	router   interfaces.MessageHandler
	events   interfaces.ConnectionEventHandler
}

func NewWSHandler(registry interfaces.ConnectionRegistry,
	router interfaces.MessageHandler,
	events interfaces.ConnectionEventHandler) *WSHandler {
	return &WSHandler{
		registry: registry,
		router:   router,
		events:   events,
	}
}

// HandleConnection 鉴权由中间件完成，这里只负责升级连接并注册。
// 同一用户已有连接时新连接直接覆盖，旧连接自然失效。
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return
	}

	displayName := ""
	if userValue, exists := c.Get("user"); exists {
		if user, ok := userValue.(*model.User); ok {
			displayName = user.Username
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.L.Error("Failed to upgrade WebSocket connection", zap.Uint("userID", userID), zap.Error(err))
		return
	}
	logger.L.Info("WebSocket connection upgraded", zap.Uint("userID", userID))

	client := internalws.NewClient(userID, displayName, conn, h.router, h.registry, h.events)
	h.registry.Connect(userID, client)

	// 在线状态存储失败只记录，不中断已建立的连接：
	// 聊天路由不依赖共享集合，受影响的只是上下线信号
	if err := h.events.HandleUserConnected(userID, displayName); err != nil {
		logger.L.Error("Presence store failure on connect",
			zap.Uint("userID", userID), zap.Error(err))
	}

	go client.WritePump()
	go client.ReadPump()
}
