package model

import (
	"time"

	"gorm.io/gorm"
)

// Message 既承载私聊也承载群聊记录：
// 私聊时 ReceiverID 非零、GroupID 为零，群聊时相反。
type Message struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	MessageID   string         `gorm:"type:varchar(36);uniqueIndex" json:"message_id"`
	Content     string         `gorm:"type:text" json:"content"`
	ContentKind string         `gorm:"type:varchar(20);default:'text'" json:"content_kind"`
	SenderID    uint           `gorm:"index" json:"sender_id"`
	ReceiverID  uint           `gorm:"index" json:"receiver_id"`
	GroupID     uint           `gorm:"index" json:"group_id"`
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
