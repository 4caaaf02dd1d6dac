package presence

import (
	"context"
	"fmt"
	"strconv"

	"go-chat-im/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Redis set 的键，跨实例共享
const onlineUsersKey = "chat:online_users"

// OnlineSet 是共享在线用户集合的抽象。
// 与持久化/索引不同，这里的错误是真实错误，必须返回给调用方。
type OnlineSet interface {
	MarkOnline(ctx context.Context, userID uint) error
	MarkOffline(ctx context.Context, userID uint) error
	IsOnline(ctx context.Context, userID uint) (bool, error)
	ListOnline(ctx context.Context) ([]uint, error)
}

// Store 用 Redis set 实现 OnlineSet。
// 所有操作都是单条原子命令，本地不做读改写。
type Store struct {
	rdb *redis.Client
}

func NewStore() *Store {
	cfg := config.GlobalConfig.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Store{rdb: rdb}
}

// NewStoreWithClient 测试时注入已有客户端
func NewStoreWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to reach presence store: %w", err)
	}
	return nil
}

func (s *Store) MarkOnline(ctx context.Context, userID uint) error {
	if err := s.rdb.SAdd(ctx, onlineUsersKey, member(userID)).Err(); err != nil {
		return fmt.Errorf("failed to mark user %d online: %w", userID, err)
	}
	return nil
}

func (s *Store) MarkOffline(ctx context.Context, userID uint) error {
	if err := s.rdb.SRem(ctx, onlineUsersKey, member(userID)).Err(); err != nil {
		return fmt.Errorf("failed to mark user %d offline: %w", userID, err)
	}
	return nil
}

func (s *Store) IsOnline(ctx context.Context, userID uint) (bool, error) {
	online, err := s.rdb.SIsMember(ctx, onlineUsersKey, member(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check online state of user %d: %w", userID, err)
	}
	return online, nil
}

func (s *Store) ListOnline(ctx context.Context) ([]uint, error) {
	members, err := s.rdb.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list online users: %w", err)
	}
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 32)
		if err != nil {
			// 集合里出现脏数据，跳过而不是让整个列表失败
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

func member(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
