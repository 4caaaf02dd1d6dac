package protocol

import (
	"encoding/json"
	"fmt"
)

// 信封种类。presence 两种由服务端生成，客户端只发送聊天类。
const (
	KindPrivateChat     = "private_chat"
	KindGroupChat       = "group_chat"
	KindPresenceOnline  = "presence_online"
	KindPresenceOffline = "presence_offline"
)

const (
	ContentKindText  = "text"
	ContentKindImage = "image"
)

// Envelope 是连接上传输的扁平消息对象。
// presence 类信封用 FromUserID 表示主体，不携带 Content/ToUserID。
type Envelope struct {
	Kind        string `json:"kind"`
	FromUserID  uint   `json:"fromUserId"`
	ToUserID    uint   `json:"toUserId,omitempty"`
	GroupID     uint   `json:"groupId,omitempty"`
	Content     string `json:"content,omitempty"`
	ContentKind string `json:"contentKind,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Decode 解析一帧入站消息。格式非法时返回错误，由调用方丢弃。
func Decode(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("envelope missing kind")
	}
	return &env, nil
}

func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope: %w", err)
	}
	return data, nil
}

// NewPresence 构造上线/下线通知信封
func NewPresence(kind string, subjectID uint, displayName string) *Envelope {
	return &Envelope{
		Kind:        kind,
		FromUserID:  subjectID,
		DisplayName: displayName,
	}
}
