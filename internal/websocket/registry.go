package websocket

import (
	"sync"

	"go-chat-im/internal/interfaces"
	"go-chat-im/pkg/logger"

	"go.uber.org/zap"
)

// Registry 维护本进程内 userID 到当前活跃连接的映射。
// 同一用户重连时新连接直接覆盖旧连接，旧连接不在这里关闭，
// 由其读写循环超时或出错后自行退出。
type Registry struct {
	mu      sync.RWMutex
	clients map[uint]interfaces.Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint]interfaces.Client),
	}
}

// Connect 存入新连接并返回被取代的旧连接（没有则为nil）
func (r *Registry) Connect(userID uint, client interfaces.Client) interfaces.Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.clients[userID]
	r.clients[userID] = client
	if prev != nil {
		logger.L.Info("Connection superseded, old connection left to expire",
			zap.Uint("userID", userID))
	}
	return prev
}

// Disconnect 仅当存储的仍是同一个连接对象时移除映射。
// 被取代的旧连接稍后报告关闭时，这里是no-op。
func (r *Registry) Disconnect(userID uint, client interfaces.Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.clients[userID]
	if !ok || current != client {
		return false
	}
	delete(r.clients, userID)
	return true
}

func (r *Registry) Get(userID uint) (interfaces.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[userID]
	return client, ok
}

func (r *Registry) Contains(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[userID]
	return ok
}

func (r *Registry) UserIDs() []uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	return ids
}
