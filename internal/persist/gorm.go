package persist

import (
	"context"
	"errors"

	"commentservice/internal/apperr"
	"commentservice/internal/models"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
)

// GormStore persists comments and reactions in PostgreSQL.
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translate(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict(err, format, args...)
	}
	return pkgerrors.Wrapf(err, format, args...)
}

// InsertComment writes a new comment row. A row already stored under the same
// id with the same content counts as written, so a retry after a lost reply
// succeeds; a different row under that id is a Conflict.
func (s *GormStore) InsertComment(ctx context.Context, c models.Comment) error {
	res := s.db.WithContext(ctx).Exec(
		`INSERT INTO comments (id, parent_id, body, user_name, level, is_deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		c.ID, c.ParentID, c.Body, c.User, c.Level, c.IsDeleted, c.CreatedAt, c.UpdatedAt,
	)
	if res.Error != nil {
		return translate(res.Error, "insert comment %d", c.ID)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var stored models.Comment
	if err := s.db.WithContext(ctx).Where("id = ?", c.ID).Take(&stored).Error; err != nil {
		return translate(err, "read back comment %d", c.ID)
	}
	if !sameComment(stored, c) {
		return apperr.Conflict(nil, "comment %d is already stored with other content", c.ID)
	}
	return nil
}

func sameComment(a, b models.Comment) bool {
	return a.ID == b.ID &&
		a.ParentID == b.ParentID &&
		a.Body == b.Body &&
		a.User == b.User &&
		a.Level == b.Level &&
		a.IsDeleted == b.IsDeleted
}

func (s *GormStore) UpdateComment(ctx context.Context, c models.Comment) error {
	res := s.db.WithContext(ctx).Exec(
		`UPDATE comments SET body = ?, is_deleted = ?, updated_at = ? WHERE id = ?`,
		c.Body, c.IsDeleted, c.UpdatedAt, c.ID,
	)
	if res.Error != nil {
		return translate(res.Error, "update comment %d", c.ID)
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Errorf("update comment %d: no row", c.ID)
	}
	return nil
}

func (s *GormStore) SaveReaction(ctx context.Context, r models.Reaction) error {
	err := s.db.WithContext(ctx).Exec(
		`INSERT INTO reactions (comment_id, user_name, reaction_type, seq, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (comment_id, user_name)
		DO UPDATE SET reaction_type = EXCLUDED.reaction_type, seq = EXCLUDED.seq, updated_at = EXCLUDED.updated_at`,
		r.CommentID, r.User, string(r.ReactionType), r.Seq, r.CreatedAt, r.UpdatedAt,
	).Error
	return translate(err, "save reaction of %q on comment %d", r.User, r.CommentID)
}

func (s *GormStore) DeleteReaction(ctx context.Context, commentID int64, user string) error {
	err := s.db.WithContext(ctx).Exec(
		`DELETE FROM reactions WHERE comment_id = ? AND user_name = ?`,
		commentID, user,
	).Error
	return translate(err, "delete reaction of %q on comment %d", user, commentID)
}

// SaveReactionCounts upserts a batch of aggregates in one transaction.
func (s *GormStore) SaveReactionCounts(ctx context.Context, counts []models.ReactionCount) error {
	if len(counts) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rc := range counts {
			err := tx.Exec(
				`INSERT INTO reaction_counts (comment_id, reaction_type, count)
				VALUES (?, ?, ?)
				ON CONFLICT (comment_id, reaction_type) DO UPDATE SET count = EXCLUDED.count`,
				rc.CommentID, string(rc.ReactionType), rc.Count,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	return translate(err, "save %d reaction counts", len(counts))
}

// Load reads every comment in id order and every reaction in seq order.
func (s *GormStore) Load(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	db := s.db.WithContext(ctx)
	if err := db.Order("id").Find(&snap.Comments).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "load comments")
	}
	if err := db.Order("seq").Find(&snap.Reactions).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "load reactions")
	}
	return snap, nil
}
