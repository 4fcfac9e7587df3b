package storage

import (
	"context"

	"github.com/UkralStul/media-posts-service/internal/domain"
)

// Storage определяет контракт для хранилищ документов.
// Если пост не найден, методы возвращают ошибку, оборачивающую domain.ErrNotFound.
type Storage interface {
	// GetPosts возвращает все посты, новые первыми.
	GetPosts(ctx context.Context) ([]*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// CreatePost заполняет ID, CreatedAt и UpdatedAt.
	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	// SavePost перезаписывает существующий пост и обновляет UpdatedAt.
	SavePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error

	Close() error
}
