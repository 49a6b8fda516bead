package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
)

// Service exposes the social feed: posts, comments and likes.
type Service interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (*PostDTO, error)
	GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*PostDTO, error)
	DeletePost(ctx context.Context, authorID, postID uuid.UUID) error
	ListFeed(ctx context.Context, viewerID uuid.UUID, input ListFeedInput) (*FeedResult, error)
	AddComment(ctx context.Context, authorID, postID uuid.UUID, body string) (*PostDTO, error)
	Like(ctx context.Context, userID, postID uuid.UUID) (*PostDTO, error)
	Unlike(ctx context.Context, userID, postID uuid.UUID) (*PostDTO, error)
}

// CreatePostInput holds the validated payload for a new post.
type CreatePostInput struct {
	Body string
	Tags []string
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs a feed service instance.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("feed repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// CreatePost publishes a new post for the author.
func (s *service) CreatePost(ctx context.Context, authorID uuid.UUID, input CreatePostInput) (*PostDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "post body is required")
	}

	post := &models.Post{
		AuthorID: authorID,
		Body:     body,
		Tags:     normalizeTags(input.Tags),
	}
	if _, err := s.repo.CreatePost(ctx, post); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert post")
	}
	return NewPostDTO(post, false), nil
}

// GetPost loads one post with its comments and the viewer's like state.
func (s *service) GetPost(ctx context.Context, viewerID, postID uuid.UUID) (*PostDTO, error) {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	liked, err := s.repo.HasLike(ctx, postID, viewerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load like state")
	}
	return NewPostDTO(post, liked), nil
}

// DeletePost removes a post. Only the author may delete it; other callers
// see the post as missing.
func (s *service) DeletePost(ctx context.Context, authorID, postID uuid.UUID) error {
	post, err := s.loadPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != authorID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
	}
	if err := s.repo.DeletePost(ctx, postID); err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete post")
	}
	return nil
}

// ListFeed returns one cursor page of posts, newest first, annotated with
// the viewer's like state.
func (s *service) ListFeed(ctx context.Context, viewerID uuid.UUID, input ListFeedInput) (*FeedResult, error) {
	rows, err := s.repo.ListPosts(ctx, input)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "list feed")
	}

	limit := pagination.NormalizeLimit(input.Pagination.Limit)
	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}
	liked := map[uuid.UUID]bool{}
	if viewerID != uuid.Nil {
		liked, err = s.repo.LikedPostIDs(ctx, viewerID, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load like states")
		}
	}

	result := &FeedResult{Posts: make([]PostDTO, 0, len(rows))}
	for i := range rows {
		result.Posts = append(result.Posts, *NewPostDTO(&rows[i], liked[rows[i].ID]))
	}
	if hasMore {
		last := rows[len(rows)-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return result, nil
}

// AddComment appends a comment and bumps the post's comment counter in the
// same transaction.
func (s *service) AddComment(ctx context.Context, authorID, postID uuid.UUID, body string) (*PostDTO, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment body is required")
	}
	if _, err := s.loadPost(ctx, postID); err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		comment := &models.PostComment{
			PostID:   postID,
			AuthorID: authorID,
			Body:     body,
		}
		if err := txRepo.CreateComment(ctx, comment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert comment")
		}
		if err := txRepo.BumpCommentCount(ctx, postID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump comment count")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add comment")
	}

	return s.GetPost(ctx, authorID, postID)
}

// Like records the user's like. Liking an already-liked post is a no-op.
func (s *service) Like(ctx context.Context, userID, postID uuid.UUID) (*PostDTO, error) {
	if _, err := s.loadPost(ctx, postID); err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		like := &models.PostLike{PostID: postID, UserID: userID}
		if err := txRepo.CreateLike(ctx, like); err != nil {
			if db.IsUniqueViolation(err, "uniq_post_like") {
				// Already liked; leave the counter alone.
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert like")
		}
		if err := txRepo.BumpLikeCount(ctx, postID, 1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump like count")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "like post")
	}

	return s.GetPost(ctx, userID, postID)
}

// Unlike removes the user's like. Unliking a post that was never liked is
// a no-op.
func (s *service) Unlike(ctx context.Context, userID, postID uuid.UUID) (*PostDTO, error) {
	if _, err := s.loadPost(ctx, postID); err != nil {
		return nil, err
	}

	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		removed, err := txRepo.DeleteLike(ctx, postID, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete like")
		}
		if !removed {
			return nil
		}
		if err := txRepo.BumpLikeCount(ctx, postID, -1); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bump like count")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlike post")
	}

	return s.GetPost(ctx, userID, postID)
}

func (s *service) loadPost(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	post, err := s.repo.FindPostByID(ctx, postID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "post not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load post")
	}
	return post, nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
