package service

import (
	"errors"
	"fmt"

	"go-chat-im/internal/model"
	"go-chat-im/internal/repository"
)

// 历史记录查询。路由器只写消息，读取全部走这里。
type HistoryService struct {
	messageRepo     *repository.MessageRepository
	groupMemberRepo *repository.GroupMemberRepository
}

func NewHistoryService(messageRepo *repository.MessageRepository,
	groupMemberRepo *repository.GroupMemberRepository) *HistoryService {
	return &HistoryService{
		messageRepo:     messageRepo,
		groupMemberRepo: groupMemberRepo,
	}
}

// 获取两个用户之间的私聊历史
func (s *HistoryService) GetChatHistory(userID1, userID2 uint, limit, offset int) ([]model.Message, error) {
	messages, err := s.messageRepo.FindMessagesBetweenUsers(userID1, userID2, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chat history: %w", err)
	}
	return messages, nil
}

// 获取群聊历史，仅限成员查看
func (s *HistoryService) GetGroupChatHistory(groupID, requesterID uint, limit, offset int) ([]model.Message, error) {
	isMember, err := s.groupMemberRepo.IsMember(groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, errors.New("you are not a member of this group")
	}

	messages, err := s.messageRepo.FindGroupMessages(groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve group chat history: %w", err)
	}
	return messages, nil
}
