package repository

import (
	"errors"
	"go-chat-im/internal/model"
	"go-chat-im/pkg/db"
	"go-chat-im/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type GroupMemberRepository struct {
	db *gorm.DB
}

func NewGroupMemberRepository() *GroupMemberRepository {
	return &GroupMemberRepository{db: db.DB}
}

// 将用户添加到群组
func (r *GroupMemberRepository) AddMember(groupID, userID uint, role string) error {
	if role == "" {
		role = "member"
	}
	member := &model.GroupMember{
		GroupID: groupID,
		UserID:  userID,
		Role:    role,
	}
	return r.db.FirstOrCreate(&member).Error
}

// 将用户从群组中移除
func (r *GroupMemberRepository) RemoveMember(groupID, userID uint) error {
	var member model.GroupMember
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.L.Warn("member not found in group", zap.Error(err))
			return errors.New("member not found in group")
		}
		logger.L.Error("RemoveMember: failed to find member",
			zap.Uint("groupID", groupID),
			zap.Uint("userID", userID))
		return err
	}
	if member.Role == "owner" {
		logger.L.Error("cannot remove group owner")
		return errors.New("cannot remove group owner")
	}

	return r.db.Where("group_id = ? AND user_id = ?", groupID, userID).Delete(&model.GroupMember{}).Error
}

// 查找特定群组的特定成员
func (r *GroupMemberRepository) FindMember(groupID, userID uint) (*model.GroupMember, error) {
	var member model.GroupMember
	err := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// 判断用户是否是群组成员（路由群聊消息前的鉴权）
func (r *GroupMemberRepository) IsMember(groupID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// 获取群组所有成员的ID列表
func (r *GroupMemberRepository) MemberIDs(groupID uint) ([]uint, error) {
	var userIDs []uint
	err := r.db.Model(&model.GroupMember{}).Where("group_id = ?", groupID).Pluck("user_id", &userIDs).Error
	return userIDs, err
}

// 更新成员 role（需要权限检查）
func (r *GroupMemberRepository) UpdateMemberRole(groupID, userID uint, newRole string) error {
	return r.db.Model(&model.GroupMember{}).Where("group_id = ? AND user_id = ?", groupID, userID).Update("role", newRole).Error
}
