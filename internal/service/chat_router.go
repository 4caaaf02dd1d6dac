package service

import (
	"go-chat-im/internal/interfaces"
	"go-chat-im/internal/model"
	"go-chat-im/internal/protocol"
	"go-chat-im/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageStore 是路由器触发落库的持久化协作方，路由器只写不读
type MessageStore interface {
	Create(message *model.Message) error
}

// GroupMembership 提供群成员关系的只读视图
type GroupMembership interface {
	IsMember(groupID, userID uint) (bool, error)
	MemberIDs(groupID uint) ([]uint, error)
}

// MessageIndexer 是尽力而为的搜索索引协作方，失败不影响任何其他动作
type MessageIndexer interface {
	Index(message *model.Message) error
}

// ChatRouter 消费入站信封并完成分类、投递、触发落库与索引。
// 除注册表/成员关系查询外不在信封之间保留状态，
// 同一连接的消息按到达顺序处理，不同连接之间互不阻塞。
type ChatRouter struct {
	registry interfaces.ConnectionRegistry
	members  GroupMembership
	messages MessageStore
	indexer  MessageIndexer
}

func NewChatRouter(registry interfaces.ConnectionRegistry, members GroupMembership,
	messages MessageStore, indexer MessageIndexer) *ChatRouter {
	return &ChatRouter{
		registry: registry,
		members:  members,
		messages: messages,
		indexer:  indexer,
	}
}

// HandleMessage 处理一帧入站消息。
// 格式非法或种类未知时直接丢弃，不回包也不中断连接。
func (r *ChatRouter) HandleMessage(message []byte, senderID uint) {
	env, err := protocol.Decode(message)
	if err != nil {
		logger.L.Warn("Dropping malformed envelope", zap.Uint("senderID", senderID), zap.Error(err))
		return
	}

	// 发送者身份以握手鉴权为准，不信任信封自带的值
	env.FromUserID = senderID
	if env.ContentKind == "" {
		env.ContentKind = protocol.ContentKindText
	}

	switch env.Kind {
	case protocol.KindPrivateChat:
		r.routePrivate(env)
	case protocol.KindGroupChat:
		r.routeGroup(env)
	default:
		// presence 种类只由服务端生成，客户端发来的一律丢弃
		logger.L.Debug("Dropping envelope of unexpected kind",
			zap.String("kind", env.Kind), zap.Uint("senderID", senderID))
	}
}

// routePrivate 先尝试在线投递，落库与索引作为相互独立的
// 异步动作分发出去，三者成败互不影响。
func (r *ChatRouter) routePrivate(env *protocol.Envelope) {
	if env.ToUserID == 0 {
		logger.L.Warn("Dropping private chat without recipient", zap.Uint("senderID", env.FromUserID))
		return
	}

	data, err := env.Encode()
	if err != nil {
		logger.L.Error("Failed to re-encode private envelope", zap.Error(err))
		return
	}

	if client, ok := r.registry.Get(env.ToUserID); ok {
		if err := client.QueueBytes(data); err != nil {
			logger.L.Warn("Failed to queue private message",
				zap.Uint("targetUserID", env.ToUserID), zap.Error(err))
		}
	} else {
		// 接收方不在线不是错误，历史记录由落库兜底
		logger.L.Debug("Recipient not connected, skipping live delivery",
			zap.Uint("targetUserID", env.ToUserID))
	}

	go r.persistAndIndex(envToMessage(env))
}

// routeGroup 校验发送者群成员身份后向除发送者外的在线成员扇出
func (r *ChatRouter) routeGroup(env *protocol.Envelope) {
	if env.GroupID == 0 {
		logger.L.Warn("Dropping group chat without group id", zap.Uint("senderID", env.FromUserID))
		return
	}

	isMember, err := r.members.IsMember(env.GroupID, env.FromUserID)
	if err != nil {
		logger.L.Error("Failed to check group membership, dropping message",
			zap.Uint("groupID", env.GroupID), zap.Uint("senderID", env.FromUserID), zap.Error(err))
		return
	}
	if !isMember {
		// 非成员消息静默丢弃：不投递、不落库
		logger.L.Warn("Dropping group chat from non-member",
			zap.Uint("groupID", env.GroupID), zap.Uint("senderID", env.FromUserID))
		return
	}

	go r.persistAndIndex(envToMessage(env))

	memberIDs, err := r.members.MemberIDs(env.GroupID)
	if err != nil {
		logger.L.Error("Failed to list group members, skipping fan-out",
			zap.Uint("groupID", env.GroupID), zap.Error(err))
		return
	}

	data, err := env.Encode()
	if err != nil {
		logger.L.Error("Failed to re-encode group envelope", zap.Error(err))
		return
	}

	for _, memberID := range memberIDs {
		if memberID == env.FromUserID {
			continue
		}
		client, ok := r.registry.Get(memberID)
		if !ok {
			// 本地未注册的成员直接跳过，跨节点投递不在路由器职责内
			continue
		}
		if err := client.QueueBytes(data); err != nil {
			// 单个成员投递失败不影响其余成员
			logger.L.Warn("Failed to queue group message",
				zap.Uint("groupID", env.GroupID),
				zap.Uint("targetUserID", memberID), zap.Error(err))
		}
	}
}

// persistAndIndex 落库和索引各自尽力完成，错误只记日志
func (r *ChatRouter) persistAndIndex(message *model.Message) {
	if err := r.messages.Create(message); err != nil {
		logger.L.Error("Failed to persist message",
			zap.String("messageID", message.MessageID), zap.Error(err))
	}
	if err := r.indexer.Index(message); err != nil {
		logger.L.Warn("Failed to index message",
			zap.String("messageID", message.MessageID), zap.Error(err))
	}
}

func envToMessage(env *protocol.Envelope) *model.Message {
	return &model.Message{
		MessageID:   uuid.NewString(),
		Content:     env.Content,
		ContentKind: env.ContentKind,
		SenderID:    env.FromUserID,
		ReceiverID:  env.ToUserID,
		GroupID:     env.GroupID,
	}
}
