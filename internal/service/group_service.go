package service

import (
	"errors"
	"fmt"

	"go-chat-im/internal/model"
	"go-chat-im/internal/repository"
	"go-chat-im/pkg/logger"

	"go.uber.org/zap"
)

// 处理群组的创建与成员管理
type GroupService struct {
	groupRepo       *repository.GroupRepository
	groupMemberRepo *repository.GroupMemberRepository
	userRepo        *repository.UserRepository
}

func NewGroupService(groupRepo *repository.GroupRepository,
	groupMemberRepo *repository.GroupMemberRepository,
	userRepo *repository.UserRepository) *GroupService {
	return &GroupService{
		groupRepo:       groupRepo,
		groupMemberRepo: groupMemberRepo,
		userRepo:        userRepo,
	}
}

type CreateGroupRequest struct {
	Name      string `json:"name" binding:"required,min=1,max=100"`
	MemberIDs []uint `json:"member_ids"`
}

type AddGroupMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

// 创建群组并把创建者设为owner，初始成员一并加入
func (s *GroupService) CreateGroup(ownerID uint, req CreateGroupRequest) (*model.Group, error) {
	existing, err := s.groupRepo.FindByOwnerAndName(ownerID, req.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("you already have a group with this name")
	}

	group := &model.Group{
		Name:    req.Name,
		OwnerID: ownerID,
	}
	if err := s.groupRepo.Create(group); err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	// 初始成员加入失败不回滚群组，逐个记录
	for _, memberID := range req.MemberIDs {
		if memberID == ownerID {
			continue
		}
		if err := s.groupMemberRepo.AddMember(group.ID, memberID, "member"); err != nil {
			logger.L.Warn("Failed to add initial group member",
				zap.Uint("groupID", group.ID), zap.Uint("userID", memberID), zap.Error(err))
		}
	}

	return group, nil
}

func (s *GroupService) GetUserGroups(userID uint) ([]model.Group, error) {
	return s.groupRepo.FindUserGroups(userID)
}

// 获取群组详情，仅限成员查看
func (s *GroupService) GetGroupInfo(groupID, requesterID uint) (*model.Group, error) {
	member, err := s.groupMemberRepo.FindMember(groupID, requesterID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, errors.New("you are not a member of this group")
	}

	group, err := s.groupRepo.FindByID(groupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, errors.New("group not found")
	}
	return group, nil
}

// 添加群成员，仅owner/admin可操作
func (s *GroupService) AddGroupMember(groupID, targetUserID, requesterID uint) error {
	requester, err := s.groupMemberRepo.FindMember(groupID, requesterID)
	if err != nil {
		return err
	}
	if requester == nil {
		return errors.New("requester is not a member or group not found")
	}
	if requester.Role != "owner" && requester.Role != "admin" {
		return errors.New("only the group owner or admin can add members")
	}

	targetUser, err := s.userRepo.FindByID(targetUserID)
	if err != nil {
		return err
	}
	if targetUser == nil {
		return errors.New("target user does not exist")
	}

	existing, err := s.groupMemberRepo.FindMember(groupID, targetUserID)
	if err != nil {
		return err
	}
	if existing != nil {
		return errors.New("user is already a member of this group")
	}

	return s.groupMemberRepo.AddMember(groupID, targetUserID, "member")
}

// 移除群成员：owner/admin可移除他人，任何成员可自行退出
func (s *GroupService) RemoveGroupMember(groupID, targetUserID, requesterID uint) error {
	requester, err := s.groupMemberRepo.FindMember(groupID, requesterID)
	if err != nil {
		return err
	}
	if requester == nil {
		return errors.New("requester is not a member or group not found")
	}

	target, err := s.groupMemberRepo.FindMember(groupID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return errors.New("target user is not a member or group not found")
	}
	if target.Role == "owner" {
		return errors.New("cannot remove the group owner")
	}

	if requesterID != targetUserID &&
		requester.Role != "owner" && requester.Role != "admin" {
		return errors.New("only the group owner or admin can remove other members")
	}

	return s.groupMemberRepo.RemoveMember(groupID, targetUserID)
}
