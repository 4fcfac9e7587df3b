package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/UkralStul/media-posts-service/internal/domain"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти.
type Store struct {
	mu    sync.RWMutex
	posts map[string]*domain.Post
	now   func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		posts: make(map[string]*domain.Post),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Наружу отдаются только копии, чтобы вызывающий код не менял данные в обход мьютекса.
func clone(p *domain.Post) *domain.Post {
	c := *p
	return &c
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post.ID = uuid.NewString()
	post.CreatedAt = s.now()
	post.UpdatedAt = post.CreatedAt
	s.posts[post.ID] = clone(post)
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return clone(post), nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allPosts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		allPosts = append(allPosts, clone(p))
	}

	sort.SliceStable(allPosts, func(i, j int) bool {
		return allPosts[i].CreatedAt.After(allPosts[j].CreatedAt)
	})
	return allPosts, nil
}

func (s *Store) SavePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", post.ID, domain.ErrNotFound)
	}
	post.CreatedAt = existing.CreatedAt
	post.UpdatedAt = s.now()
	s.posts[post.ID] = clone(post)
	return post, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	delete(s.posts, id)
	return nil
}

// Count возвращает количество постов.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

func (s *Store) Close() error { return nil }
