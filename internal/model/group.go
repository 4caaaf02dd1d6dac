package model

import (
	"time"

	"gorm.io/gorm"
)

type Group struct {
	ID        uint   `gorm:"primaryKey"`
	// 群名在同一个群主下唯一，不同群主可以重名
	Name      string `gorm:"type:varchar(100);not null;uniqueIndex:idx_owner_group_name"`
	OwnerID   uint   `gorm:"not null;uniqueIndex:idx_owner_group_name"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`

	Owner   User          `gorm:"foreignKey:OwnerID"`
	Members []GroupMember `gorm:"foreignKey:GroupID"`
}
