package persist

import (
	"context"

	"commentservice/internal/models"
)

// Store is the durable side of the comment and reaction stores. Every write
// is idempotent for the same record so a retried call is safe, including one
// whose first attempt committed but lost its reply.
type Store interface {
	InsertComment(ctx context.Context, c models.Comment) error
	UpdateComment(ctx context.Context, c models.Comment) error
	SaveReaction(ctx context.Context, r models.Reaction) error
	DeleteReaction(ctx context.Context, commentID int64, user string) error
	SaveReactionCounts(ctx context.Context, counts []models.ReactionCount) error
	Load(ctx context.Context) (*Snapshot, error)
}

// Snapshot is everything needed to rebuild the in-memory stores.
type Snapshot struct {
	Comments  []models.Comment
	Reactions []models.Reaction
}

// Nop keeps nothing. It backs the pure in-memory mode.
type Nop struct{}

var _ Store = Nop{}

func (Nop) InsertComment(context.Context, models.Comment) error {
	return nil
}

func (Nop) UpdateComment(context.Context, models.Comment) error {
	return nil
}

func (Nop) SaveReaction(context.Context, models.Reaction) error {
	return nil
}

func (Nop) DeleteReaction(context.Context, int64, string) error {
	return nil
}

func (Nop) SaveReactionCounts(context.Context, []models.ReactionCount) error {
	return nil
}

func (Nop) Load(context.Context) (*Snapshot, error) {
	return &Snapshot{}, nil
}
