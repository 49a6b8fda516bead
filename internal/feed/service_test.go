package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evanrosales/shopsphere-backend/pkg/config"
	"github.com/evanrosales/shopsphere-backend/pkg/db"
	"github.com/evanrosales/shopsphere-backend/pkg/db/models"
	pkgerrors "github.com/evanrosales/shopsphere-backend/pkg/errors"
	"github.com/evanrosales/shopsphere-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *db.Client) {
	t.Helper()
	cfg := config.DBConfig{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:feed_%s?mode=memory&cache=shared", uuid.NewString()),
	}
	client, err := db.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, client.DB().AutoMigrate(
		&models.Post{}, &models.PostComment{}, &models.PostLike{},
	))
	t.Cleanup(func() { _ = client.Close() })

	svc, err := NewService(NewRepository(client.DB()), client)
	require.NoError(t, err)
	return svc, client
}

func TestCreatePost(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	dto, err := svc.CreatePost(context.Background(), authorID, CreatePostInput{
		Body: "restocked the ceramic mugs today",
		Tags: []string{"Restock", " ceramics ", "restock"},
	})
	require.NoError(t, err)
	assert.Equal(t, authorID, dto.AuthorID)
	assert.Equal(t, []string{"restock", "ceramics"}, dto.Tags, "tags are lowercased and deduped")
	assert.Zero(t, dto.LikeCount)
	assert.Zero(t, dto.CommentCount)
	assert.False(t, dto.Liked)
}

func TestCreatePost_RequiresBody(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{Body: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestAddComment_BumpsCounter(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	post, err := svc.CreatePost(context.Background(), authorID, CreatePostInput{Body: "new arrivals"})
	require.NoError(t, err)

	commenter := uuid.New()
	dto, err := svc.AddComment(context.Background(), commenter, post.ID, "do you ship abroad?")
	require.NoError(t, err)
	assert.Equal(t, 1, dto.CommentCount)
	require.Len(t, dto.Comments, 1)
	assert.Equal(t, commenter, dto.Comments[0].AuthorID)
	assert.Equal(t, "do you ship abroad?", dto.Comments[0].Body)

	dto, err = svc.AddComment(context.Background(), authorID, post.ID, "yes, worldwide")
	require.NoError(t, err)
	assert.Equal(t, 2, dto.CommentCount)
	require.Len(t, dto.Comments, 2)
	assert.Equal(t, "yes, worldwide", dto.Comments[1].Body, "comments come back in posting order")
}

func TestAddComment_UnknownPost(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddComment(context.Background(), uuid.New(), uuid.New(), "hello")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestLike_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	post, err := svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{Body: "flash sale"})
	require.NoError(t, err)

	dto, err := svc.Like(context.Background(), userID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.LikeCount)
	assert.True(t, dto.Liked)

	// A second like from the same user changes nothing.
	dto, err = svc.Like(context.Background(), userID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, dto.LikeCount)

	other := uuid.New()
	dto, err = svc.Like(context.Background(), other, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, dto.LikeCount)
}

func TestUnlike_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	userID := uuid.New()

	post, err := svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{Body: "back in stock"})
	require.NoError(t, err)

	_, err = svc.Like(context.Background(), userID, post.ID)
	require.NoError(t, err)

	dto, err := svc.Unlike(context.Background(), userID, post.ID)
	require.NoError(t, err)
	assert.Zero(t, dto.LikeCount)
	assert.False(t, dto.Liked)

	// Unliking again, or from a user who never liked, leaves the counter alone.
	dto, err = svc.Unlike(context.Background(), userID, post.ID)
	require.NoError(t, err)
	assert.Zero(t, dto.LikeCount)

	dto, err = svc.Unlike(context.Background(), uuid.New(), post.ID)
	require.NoError(t, err)
	assert.Zero(t, dto.LikeCount)
}

func TestListFeed_CursorPagination(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	for i := 0; i < 5; i++ {
		_, err := svc.CreatePost(context.Background(), authorID, CreatePostInput{
			Body: fmt.Sprintf("update %d", i),
		})
		require.NoError(t, err)
	}

	page, err := svc.ListFeed(context.Background(), uuid.Nil, ListFeedInput{
		Pagination: pagination.Params{Limit: 3},
	})
	require.NoError(t, err)
	require.Len(t, page.Posts, 3)
	require.NotEmpty(t, page.NextCursor)

	next, err := svc.ListFeed(context.Background(), uuid.Nil, ListFeedInput{
		Pagination: pagination.Params{Limit: 3, Cursor: page.NextCursor},
	})
	require.NoError(t, err)
	assert.Len(t, next.Posts, 2)
	assert.Empty(t, next.NextCursor)

	seen := map[uuid.UUID]bool{}
	for _, p := range append(page.Posts, next.Posts...) {
		assert.False(t, seen[p.ID], "pages never overlap")
		seen[p.ID] = true
	}
}

func TestListFeed_LikedAnnotation(t *testing.T) {
	svc, _ := newTestService(t)
	viewerID := uuid.New()

	first, err := svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{Body: "one"})
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{Body: "two"})
	require.NoError(t, err)

	_, err = svc.Like(context.Background(), viewerID, first.ID)
	require.NoError(t, err)

	page, err := svc.ListFeed(context.Background(), viewerID, ListFeedInput{})
	require.NoError(t, err)
	require.Len(t, page.Posts, 2)
	for _, p := range page.Posts {
		assert.Equal(t, p.ID == first.ID, p.Liked)
	}
}

func TestListFeed_FilterByAuthorAndTag(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	_, err := svc.CreatePost(context.Background(), authorID, CreatePostInput{
		Body: "spring drop", Tags: []string{"sale"},
	})
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), authorID, CreatePostInput{Body: "behind the scenes"})
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), uuid.New(), CreatePostInput{Body: "unrelated"})
	require.NoError(t, err)

	byAuthor, err := svc.ListFeed(context.Background(), uuid.Nil, ListFeedInput{AuthorID: &authorID})
	require.NoError(t, err)
	assert.Len(t, byAuthor.Posts, 2)

	byTag, err := svc.ListFeed(context.Background(), uuid.Nil, ListFeedInput{Tag: "sale"})
	require.NoError(t, err)
	require.Len(t, byTag.Posts, 1)
	assert.Equal(t, "spring drop", byTag.Posts[0].Body)
}

func TestDeletePost_AuthorOnly(t *testing.T) {
	svc, _ := newTestService(t)
	authorID := uuid.New()

	post, err := svc.CreatePost(context.Background(), authorID, CreatePostInput{Body: "oops"})
	require.NoError(t, err)

	err = svc.DeletePost(context.Background(), uuid.New(), post.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "strangers cannot probe posts")

	require.NoError(t, svc.DeletePost(context.Background(), authorID, post.ID))

	_, err = svc.GetPost(context.Background(), authorID, post.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
