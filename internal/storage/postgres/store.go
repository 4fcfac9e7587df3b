package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/media-posts-service/internal/domain"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы
	if err := db.AutoMigrate(&domain.Post{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Колонка id имеет тип uuid: произвольная строка дала бы ошибку синтаксиса вместо "не найдено".
func notFoundUnlessUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	now := time.Now().UTC()
	post.ID = ""
	post.CreatedAt = now
	post.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, err
	}
	// GORM автоматически заполнит ID после создания
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if err := notFoundUnlessUUID(id); err != nil {
		return nil, err
	}
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return &post, nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	posts := []*domain.Post{}
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&posts).Error
	return posts, err
}

func (s *Store) SavePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := notFoundUnlessUUID(post.ID); err != nil {
		return nil, err
	}
	post.UpdatedAt = time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]any{
			"title":       post.Title,
			"description": post.Description,
			"image":       post.Image,
			"image_id":    post.ImageID,
			"updated_at":  post.UpdatedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("post with id %s: %w", post.ID, domain.ErrNotFound)
	}
	return post, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := notFoundUnlessUUID(id); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
