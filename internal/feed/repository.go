package feed

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
)

// ListFeedInput filters and paginates the public feed.
type ListFeedInput struct {
	AuthorID   *uuid.UUID
	Tag        string
	Pagination pagination.Params
}

// Repository wires together feed persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreatePost inserts a new post.
func (r *Repository) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// FindPostByID loads a post with its comments in posting order.
func (r *Repository) FindPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		First(&post, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost soft-deletes an author's post.
func (r *Repository) DeletePost(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPosts returns one cursor page ordered by newest first.
func (r *Repository) ListPosts(ctx context.Context, input ListFeedInput) ([]models.Post, error) {
	query := r.db.WithContext(ctx).Model(&models.Post{})

	if input.AuthorID != nil {
		query = query.Where("author_id = ?", *input.AuthorID)
	}
	if input.Tag != "" {
		// text[] membership on postgres, LIKE fallback elsewhere.
		if r.db.Dialector.Name() == "postgres" {
			query = query.Where("? = ANY(tags)", input.Tag)
		} else {
			query = query.Where("tags LIKE ?", "%"+input.Tag+"%")
		}
	}

	cursor, err := pagination.ParseCursor(input.Pagination.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var posts []models.Post
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(input.Pagination.Limit)).
		Find(&posts).Error
	return posts, err
}

// CreateComment inserts a comment row.
func (r *Repository) CreateComment(ctx context.Context, comment *models.PostComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// CreateLike inserts a like row; the unique index rejects duplicates.
func (r *Repository) CreateLike(ctx context.Context, like *models.PostLike) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// DeleteLike removes a user's like and reports whether a row existed.
func (r *Repository) DeleteLike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&models.PostLike{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasLike reports whether the user has liked the post.
func (r *Repository) HasLike(ctx context.Context, postID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// LikedPostIDs returns which of the given posts the user has liked.
func (r *Repository) LikedPostIDs(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	liked := make(map[uuid.UUID]bool, len(postIDs))
	if len(postIDs) == 0 {
		return liked, nil
	}
	var rows []models.PostLike
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		liked[row.PostID] = true
	}
	return liked, nil
}

// BumpLikeCount adjusts the denormalized like counter, clamping at zero.
func (r *Repository) BumpLikeCount(ctx context.Context, postID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE posts
		 SET like_count = CASE WHEN like_count + ? >= 0 THEN like_count + ? ELSE 0 END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, delta, postID,
	).Error
}

// BumpCommentCount adjusts the denormalized comment counter.
func (r *Repository) BumpCommentCount(ctx context.Context, postID uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE posts
		 SET comment_count = CASE WHEN comment_count + ? >= 0 THEN comment_count + ? ELSE 0 END,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		delta, delta, postID,
	).Error
}
