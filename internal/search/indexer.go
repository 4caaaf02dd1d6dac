package search

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go-chat-im/internal/model"
	"go-chat-im/pkg/config"

	"github.com/blugelabs/bluge"
)

// Indexer 把聊天消息写入本地 bluge 全文索引。
// 路由器对它的调用是尽力而为：失败只记日志，不影响投递和入库。
type Indexer struct {
	mu     sync.Mutex
	writer *bluge.Writer
}

func NewIndexer() (*Indexer, error) {
	cfg := config.GlobalConfig.Search

	var blugeCfg bluge.Config
	if cfg.InMemory {
		blugeCfg = bluge.InMemoryOnlyConfig()
	} else {
		blugeCfg = bluge.DefaultConfig(cfg.IndexDir)
	}

	writer, err := bluge.OpenWriter(blugeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	return &Indexer{writer: writer}, nil
}

func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.writer.Close()
}

// Index 以 MessageID 为文档主键，重复索引同一条消息会覆盖旧文档
func (i *Indexer) Index(message *model.Message) error {
	doc := bluge.NewDocument(message.MessageID).
		AddField(bluge.NewTextField("content", message.Content).StoreValue()).
		AddField(bluge.NewKeywordField("sender_id", formatID(message.SenderID)).StoreValue()).
		AddField(bluge.NewKeywordField("receiver_id", formatID(message.ReceiverID)).StoreValue()).
		AddField(bluge.NewKeywordField("group_id", formatID(message.GroupID)).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", message.CreatedAt).StoreValue())

	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("failed to index message %s: %w", message.MessageID, err)
	}
	return nil
}

// Hit 是一条搜索命中结果
type Hit struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
	SenderID  uint   `json:"sender_id"`
	GroupID   uint   `json:"group_id,omitempty"`
}

// Search 按关键字匹配消息内容
func (i *Indexer) Search(ctx context.Context, keyword string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}

	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(keyword).SetField("content")
	request := bluge.NewTopNSearch(limit, query)

	iter, err := reader.Search(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var hits []Hit
	for {
		match, err := iter.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate search results: %w", err)
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "content":
				hit.Content = string(value)
			case "sender_id":
				hit.SenderID = parseID(value)
			case "group_id":
				hit.GroupID = parseID(value)
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read stored fields: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func parseID(value []byte) uint {
	id, err := strconv.ParseUint(string(value), 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}
