package models

import (
	"strings"
	"time"
)

type ReactionType string

const (
	ReactionLike    ReactionType = "LIKE"
	ReactionDislike ReactionType = "DISLIKE"
)

// AllReactionTypes lists every supported reaction, in response order.
var AllReactionTypes = []ReactionType{ReactionLike, ReactionDislike}

func (t ReactionType) Valid() bool {
	for _, rt := range AllReactionTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// ParseReactionType accepts the canonical upper-case name in any case.
func ParseReactionType(s string) (ReactionType, bool) {
	t := ReactionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

// Reaction is the single reaction a user holds on a comment.
type Reaction struct {
	CommentID    int64        `gorm:"primaryKey;autoIncrement:false" json:"commentId"`
	User         string       `gorm:"primaryKey;column:user_name;size:255" json:"user"`
	ReactionType ReactionType `gorm:"type:varchar(16);not null;index" json:"reactionType"`
	Seq          uint64       `gorm:"not null" json:"-"` // last-affected order
	CreatedAt    time.Time    `json:"created"`
	UpdatedAt    time.Time    `json:"updated"`
}

// ReactionCount is the materialised aggregate written behind by the count sync worker.
type ReactionCount struct {
	CommentID    int64        `gorm:"primaryKey;autoIncrement:false" json:"commentId"`
	ReactionType ReactionType `gorm:"primaryKey;type:varchar(16)" json:"reactionType"`
	Count        int64        `gorm:"not null" json:"count"`
}

// ReactionCounts is the live per-type aggregate of a comment.
type ReactionCounts map[ReactionType]int64

func (c ReactionCounts) Likes() int64 {
	return c[ReactionLike]
}

func (c ReactionCounts) Dislikes() int64 {
	return c[ReactionDislike]
}
