// Package storagetest содержит общие проверки контракта storage.Storage,
// которые прогоняются для каждой реализации.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/media-posts-service/internal/domain"
	"github.com/UkralStul/media-posts-service/internal/storage"
)

// Run проверяет порядок выдачи и ErrNotFound для отсутствующих постов.
// missingID - корректный для хранилища идентификатор, которого в нем нет.
func Run(t *testing.T, s storage.Storage, missingID string) {
	t.Helper()
	ctx := context.Background()

	older, err := s.CreatePost(ctx, &domain.Post{Title: "older", Image: "/uploads/1-a.png", ImageID: "1-a.png"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeletePost(context.Background(), older.ID) })
	// created_at в postgres хранится с точностью до микросекунд
	time.Sleep(5 * time.Millisecond)
	newer, err := s.CreatePost(ctx, &domain.Post{Title: "newer"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeletePost(context.Background(), newer.ID) })

	require.NotEmpty(t, older.ID)
	assert.NotEqual(t, older.ID, newer.ID)
	assert.False(t, older.CreatedAt.IsZero())

	t.Run("GetPostsNewestFirst", func(t *testing.T) {
		posts, err := s.GetPosts(ctx)
		require.NoError(t, err)

		idx := map[string]int{}
		for i, p := range posts {
			idx[p.ID] = i
			if i > 0 {
				assert.False(t, p.CreatedAt.After(posts[i-1].CreatedAt),
					"post %d (%s) is newer than post %d (%s)", i, p.CreatedAt, i-1, posts[i-1].CreatedAt)
			}
		}
		require.Contains(t, idx, older.ID)
		require.Contains(t, idx, newer.ID)
		assert.Less(t, idx[newer.ID], idx[older.ID])
	})

	t.Run("GetPostByID", func(t *testing.T) {
		got, err := s.GetPostByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "older", got.Title)
		assert.Equal(t, "1-a.png", got.ImageID)

		_, err = s.GetPostByID(ctx, missingID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SavePost", func(t *testing.T) {
		upd := *older
		upd.Title = "renamed"
		saved, err := s.SavePost(ctx, &upd)
		require.NoError(t, err)
		assert.Equal(t, "renamed", saved.Title)

		got, err := s.GetPostByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, "1-a.png", got.ImageID)

		_, err = s.SavePost(ctx, &domain.Post{ID: missingID, Title: "ghost"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = s.GetPostByID(ctx, missingID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "SavePost must not create missing posts")
	})

	t.Run("DeletePost", func(t *testing.T) {
		assert.ErrorIs(t, s.DeletePost(ctx, missingID), domain.ErrNotFound)

		require.NoError(t, s.DeletePost(ctx, newer.ID))
		_, err := s.GetPostByID(ctx, newer.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.DeletePost(ctx, newer.ID), domain.ErrNotFound)
	})
}
