package presence

import (
	"context"

	"go-chat-im/internal/interfaces"
	"go-chat-im/internal/protocol"
	"go-chat-im/pkg/logger"

	"go.uber.org/zap"
)

// Broadcaster 在连接建立/断开时向其他在线连接推送上下线通知，
// 并维护共享在线集合。实现 interfaces.ConnectionEventHandler。
type Broadcaster struct {
	registry interfaces.ConnectionRegistry
	store    OnlineSet
}

func NewBroadcaster(registry interfaces.ConnectionRegistry, store OnlineSet) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		store:    store,
	}
}

// HandleUserConnected 先读共享集合再写：
// 只有连接前不在线才广播，随后才标记在线。
// 同一用户快速重连时旧状态仍是在线，不会重复广播。
func (b *Broadcaster) HandleUserConnected(userID uint, displayName string) error {
	ctx := context.Background()

	wasOnline, err := b.store.IsOnline(ctx, userID)
	if err != nil {
		return err
	}

	if !wasOnline {
		b.broadcast(protocol.NewPresence(protocol.KindPresenceOnline, userID, displayName), userID)
		logger.L.Info("User online", zap.Uint("userID", userID))
	} else {
		logger.L.Debug("User reconnected, skipping online broadcast", zap.Uint("userID", userID))
	}

	return b.store.MarkOnline(ctx, userID)
}

// HandleUserDisconnected 只应在注册表确认移除当前连接后调用
func (b *Broadcaster) HandleUserDisconnected(userID uint, displayName string) error {
	b.broadcast(protocol.NewPresence(protocol.KindPresenceOffline, userID, displayName), userID)
	logger.L.Info("User offline", zap.Uint("userID", userID))

	return b.store.MarkOffline(context.Background(), userID)
}

// broadcast 向除主体外的所有本地连接尽力投递，
// 单个连接失败不影响其他连接，也不向上返回错误。
func (b *Broadcaster) broadcast(env *protocol.Envelope, subjectID uint) {
	data, err := env.Encode()
	if err != nil {
		logger.L.Error("Failed to encode presence envelope", zap.Error(err))
		return
	}

	for _, userID := range b.registry.UserIDs() {
		if userID == subjectID {
			continue
		}
		client, ok := b.registry.Get(userID)
		if !ok {
			continue
		}
		if err := client.QueueBytes(data); err != nil {
			logger.L.Warn("Failed to queue presence envelope",
				zap.Uint("targetUserID", userID), zap.Error(err))
		}
	}
}
