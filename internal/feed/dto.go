package feed

import (
	"time"

	"github.com/google/uuid"

	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
)

// CommentDTO is the API representation of a post comment.
type CommentDTO struct {
	ID        uuid.UUID `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDTO is the API representation of a feed post. Liked reflects whether
// the requesting user has liked the post and is filled per request.
type PostDTO struct {
	ID           uuid.UUID    `json:"id"`
	AuthorID     uuid.UUID    `json:"author_id"`
	Body         string       `json:"body"`
	Tags         []string     `json:"tags"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	Liked        bool         `json:"liked"`
	Comments     []CommentDTO `json:"comments,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FeedResult is one cursor page of posts.
type FeedResult struct {
	Posts      []PostDTO `json:"posts"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// NewPostDTO maps the persistence model onto the API shape.
func NewPostDTO(post *models.Post, liked bool) *PostDTO {
	dto := &PostDTO{
		ID:           post.ID,
		AuthorID:     post.AuthorID,
		Body:         post.Body,
		Tags:         post.Tags,
		LikeCount:    post.LikeCount,
		CommentCount: post.CommentCount,
		Liked:        liked,
		CreatedAt:    post.CreatedAt,
		UpdatedAt:    post.UpdatedAt,
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	for i := range post.Comments {
		dto.Comments = append(dto.Comments, newCommentDTO(&post.Comments[i]))
	}
	return dto
}

func newCommentDTO(comment *models.PostComment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		PostID:    comment.PostID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	}
}
