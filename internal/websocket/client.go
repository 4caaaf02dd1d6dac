package websocket

import (
	"errors"
	"sync"
	"time"

	"go-chat-im/internal/interfaces"
	"go-chat-im/pkg/config"
	"go-chat-im/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait      = 10 * time.Second // 写超时
	defaultPongWait       = 60 * time.Second // 等待pong的最大时间
	defaultMaxMessageSize = 4096             // 消息最大长度
)

type Client struct {
	UserID      uint
	DisplayName string
	Conn        *websocket.Conn
	Send        chan []byte

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64

	mu        sync.Mutex
	closeOnce sync.Once
	handler   interfaces.MessageHandler
	registry  interfaces.ConnectionRegistry
	events    interfaces.ConnectionEventHandler
}

func NewClient(userID uint, displayName string, conn *websocket.Conn,
	handler interfaces.MessageHandler, registry interfaces.ConnectionRegistry,
	events interfaces.ConnectionEventHandler) *Client {

	cfg := config.GlobalConfig.WebSocket
	bufferSize := cfg.SendBufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}
	writeWait := defaultWriteWait
	if cfg.WriteWaitSeconds > 0 {
		writeWait = time.Duration(cfg.WriteWaitSeconds) * time.Second
	}
	pongWait := defaultPongWait
	if cfg.PongWaitSeconds > 0 {
		pongWait = time.Duration(cfg.PongWaitSeconds) * time.Second
	}
	maxMessageSize := int64(defaultMaxMessageSize)
	if cfg.MaxMessageSize > 0 {
		maxMessageSize = int64(cfg.MaxMessageSize)
	}
	return &Client{
		UserID:         userID,
		DisplayName:    displayName,
		Conn:           conn,
		Send:           make(chan []byte, bufferSize),
		writeWait:      writeWait,
		pongWait:       pongWait,
		maxMessageSize: maxMessageSize,
		handler:        handler,
		registry:       registry,
		events:         events,
	}
}

func (c *Client) GetUserID() uint {
	return c.UserID
}

func (c *Client) GetDisplayName() string {
	return c.DisplayName
}

// QueueBytes 将消息放入发送队列，不阻塞调用方。
// 队列满时返回错误，只影响该连接，由调用方决定是否记录。
func (c *Client) QueueBytes(data []byte) error {
	select {
	case c.Send <- data:
		return nil
	default:
		return errors.New("client send buffer is full")
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

func (c *Client) ReadPump() {
	defer func() {
		// 只有注册表确认移除的是当前连接才广播下线，
		// 被取代的旧连接在这里退出时什么都不会发生
		if c.registry.Disconnect(c.UserID, c) {
			if err := c.events.HandleUserDisconnected(c.UserID, c.DisplayName); err != nil {
				logger.L.Error("Presence store failure on disconnect",
					zap.Uint("userID", c.UserID), zap.Error(err))
			}
		}
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		messageType, messageBytes, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.L.Warn("Unexpected close error", zap.Uint("userID", c.UserID), zap.Error(err))
			} else {
				logger.L.Debug("Read loop exiting", zap.Uint("userID", c.UserID), zap.Error(err))
			}
			break
		}

		if messageType == websocket.TextMessage {
			c.handler.HandleMessage(messageBytes, c.UserID)
		} else {
			logger.L.Warn("Received non-text message type, ignoring",
				zap.Int("messageType", messageType), zap.Uint("userID", c.UserID))
		}
	}
}

func (c *Client) WritePump() {
	// 发送ping的周期要短于对端的pong超时
	ticker := time.NewTicker((c.pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case messageBytes, ok := <-c.Send:
			if !ok {
				// Send 通道已关闭
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))

			c.mu.Lock()
			err := c.Conn.WriteMessage(websocket.TextMessage, messageBytes)
			c.mu.Unlock()
			if err != nil {
				logger.L.Warn("Failed to write message",
					zap.Uint("userID", c.UserID), zap.Error(err))
				return
			}

			// 把积压的消息一并写出
			c.mu.Lock()
			n := len(c.Send)
			for range n {
				batchBytes, ok := <-c.Send
				if !ok {
					c.mu.Unlock()
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, batchBytes); err != nil {
					logger.L.Warn("Failed to write batched message",
						zap.Uint("userID", c.UserID), zap.Error(err))
					c.mu.Unlock()
					return
				}
			}
			c.mu.Unlock()

		case <-ticker.C:
			c.mu.Lock()
			c.Conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			err := c.Conn.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()
			if err != nil {
				logger.L.Debug("Failed to send ping", zap.Uint("userID", c.UserID), zap.Error(err))
				return
			}
		}
	}
}
