package models

import (
	"time"
)

// DeletedBody replaces the body of a soft-deleted comment.
const DeletedBody = "Deleted by user"

// RootID is the implicit parent of every top-level comment.
const RootID int64 = 0

type Comment struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ParentID  int64     `gorm:"not null;index" json:"parentId"` // 0 for top-level comments
	Body      string    `gorm:"type:text;not null" json:"body"`
	User      string    `gorm:"column:user_name;size:255;not null" json:"user"`
	Level     int       `gorm:"not null" json:"level"`
	IsDeleted bool      `gorm:"not null" json:"isDeleted"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}
