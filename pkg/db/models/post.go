package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Post is a feed entry. LikeCount is denormalized and maintained by the feed
// service alongside the PostLike rows.
type Post struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	AuthorID     uuid.UUID      `gorm:"column:author_id;type:uuid;not null;index"`
	Body         string         `gorm:"column:body;not null"`
	Tags         pq.StringArray `gorm:"column:tags;type:text[]"`
	LikeCount    int            `gorm:"column:like_count;not null;default:0"`
	CommentCount int            `gorm:"column:comment_count;not null;default:0"`
	Comments     []PostComment  `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (p *Post) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PostComment is a flat comment on a post.
type PostComment struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PostID    uuid.UUID `gorm:"column:post_id;type:uuid;not null;index"`
	AuthorID  uuid.UUID `gorm:"column:author_id;type:uuid;not null"`
	Body      string    `gorm:"column:body;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (c *PostComment) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// PostLike records one user's like; the unique index makes likes idempotent.
type PostLike struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	PostID    uuid.UUID `gorm:"column:post_id;type:uuid;not null;uniqueIndex:uniq_post_like"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uniq_post_like"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (l *PostLike) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
