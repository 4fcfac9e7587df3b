package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UkralStul/media-posts-service/internal/blob"
	"github.com/UkralStul/media-posts-service/internal/domain"
	"github.com/UkralStul/media-posts-service/internal/events"
	"github.com/UkralStul/media-posts-service/internal/storage"
)

// ErrNoFile - картинка обязательна, но не пришла.
var ErrNoFile = &domain.ValidationError{Msg: "no file uploaded"}

// CreateInput - поля нового поста.
type CreateInput struct {
	Title       string
	Description string
	Image       *blob.Upload
}

// UpdateInput - частичное обновление: nil или пустая строка означают "оставить как есть".
type UpdateInput struct {
	Title       *string
	Description *string
	Image       *blob.Upload
}

// Options настраивает поведение сервиса.
type Options struct {
	// RequireImage - создание поста без файла отклоняется с ErrNoFile.
	RequireImage bool
}

// Posts связывает хранилище документов и хранилище картинок.
// Операции не атомарны: картинка и документ меняются последовательными вызовами.
type Posts struct {
	store  storage.Storage
	blobs  blob.Store
	hub    *events.Hub
	logger *slog.Logger
	opts   Options
}

// New собирает сервис. hub может быть nil - тогда события не рассылаются.
func New(store storage.Storage, blobs blob.Store, hub *events.Hub, logger *slog.Logger, opts Options) *Posts {
	if logger == nil {
		logger = slog.Default()
	}
	return &Posts{
		store:  store,
		blobs:  blobs,
		hub:    hub,
		logger: logger,
		opts:   opts,
	}
}

func (s *Posts) publish(t events.Type, p *domain.Post) {
	if s.hub == nil {
		return
	}
	c := *p
	s.hub.Publish(events.Event{Type: t, Post: &c})
}

// imageID возвращает ключ картинки поста; у старых записей он выводится из ссылки.
func (s *Posts) imageID(p *domain.Post) string {
	if p.ImageID != "" {
		return p.ImageID
	}
	if p.Image == "" {
		return ""
	}
	return s.blobs.ObjectID(p.Image)
}

// Create загружает картинку, затем вставляет документ.
// Если вставка упала, загруженная картинка остается в хранилище.
func (s *Posts) Create(ctx context.Context, in CreateInput) (*domain.Post, error) {
	if in.Image == nil && s.opts.RequireImage {
		return nil, ErrNoFile
	}

	post := &domain.Post{
		Title:       in.Title,
		Description: in.Description,
	}

	if in.Image != nil {
		obj, err := s.blobs.Upload(ctx, *in.Image)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		post.Image = obj.URL
		post.ImageID = obj.ID
	}

	created, err := s.store.CreatePost(ctx, post)
	if err != nil {
		if post.ImageID != "" {
			s.logger.Warn("post insert failed, uploaded image left in place",
				"image_id", post.ImageID, "err", err)
		}
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info("post created", "id", created.ID, "image_id", created.ImageID)
	s.publish(events.Created, created)
	return created, nil
}

// List возвращает все посты, новые первыми.
func (s *Posts) List(ctx context.Context) ([]*domain.Post, error) {
	posts, err := s.store.GetPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []*domain.Post{}
	}
	return posts, nil
}

// Get возвращает пост по id.
func (s *Posts) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.store.GetPostByID(ctx, id)
}

// Update меняет текстовые поля и, если пришел файл, заменяет картинку:
// старая удаляется до загрузки новой.
func (s *Posts) Update(ctx context.Context, id string, in UpdateInput) (*domain.Post, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Image != nil {
		if oldID := s.imageID(post); oldID != "" {
			if err := s.blobs.Destroy(ctx, oldID); err != nil {
				return nil, fmt.Errorf("destroy old image: %w", err)
			}
		}
		obj, err := s.blobs.Upload(ctx, *in.Image)
		if err != nil {
			return nil, fmt.Errorf("upload image: %w", err)
		}
		post.Image = obj.URL
		post.ImageID = obj.ID
	}
	if in.Title != nil && *in.Title != "" {
		post.Title = *in.Title
	}
	if in.Description != nil && *in.Description != "" {
		post.Description = *in.Description
	}

	saved, err := s.store.SavePost(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("save post: %w", err)
	}

	s.logger.Info("post updated", "id", saved.ID, "image_replaced", in.Image != nil)
	s.publish(events.Updated, saved)
	return saved, nil
}

// Delete удаляет картинку, затем документ. Если удаление документа упало,
// пост остается со ссылкой на уже удаленную картинку.
func (s *Posts) Delete(ctx context.Context, id string) error {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return err
	}

	if imgID := s.imageID(post); imgID != "" {
		if err := s.blobs.Destroy(ctx, imgID); err != nil {
			return fmt.Errorf("destroy image: %w", err)
		}
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	s.logger.Info("post deleted", "id", id)
	s.publish(events.Deleted, post)
	return nil
}
