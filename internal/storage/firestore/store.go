package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/UkralStul/media-posts-service/internal/domain"
)

const collectionName = "posts"

// Store реализует интерфейс Storage поверх Cloud Firestore.
type Store struct {
	client *firestore.Client
}

type postDoc struct {
	Title       string    `firestore:"title"`
	Description string    `firestore:"description"`
	Image       string    `firestore:"image"`
	ImageID     string    `firestore:"imageId,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// New создает клиента Firestore. credentialsFile может быть пустым - тогда
// используются Application Default Credentials.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient failed (project=%s): %w", projectID, err)
	}
	return &Store{client: client}, nil
}

func (s *Store) col() *firestore.CollectionRef {
	return s.client.Collection(collectionName)
}

func toPost(id string, d postDoc) *domain.Post {
	return &domain.Post{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Image:       d.Image,
		ImageID:     d.ImageID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func notFound(id string) error {
	return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
}

// Пустой id или id со слешем указывают на другой путь в Firestore, а не на документ коллекции.
func validID(id string) bool {
	return strings.TrimSpace(id) != "" && !strings.Contains(id, "/")
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	ref := s.col().NewDoc()
	if _, err := ref.Create(ctx, postDoc{
		Title:       post.Title,
		Description: post.Description,
		Image:       post.Image,
		ImageID:     post.ImageID,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}); err != nil {
		return nil, err
	}
	post.ID = ref.ID
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	if !validID(id) {
		return nil, notFound(id)
	}
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(id)
		}
		return nil, err
	}
	var d postDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return toPost(snap.Ref.ID, d), nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	it := s.col().OrderBy("createdAt", firestore.Desc).Documents(ctx)
	defer it.Stop()

	posts := []*domain.Post{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		var d postDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, err
		}
		posts = append(posts, toPost(snap.Ref.ID, d))
	}
	return posts, nil
}

func (s *Store) SavePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if !validID(post.ID) {
		return nil, notFound(post.ID)
	}
	post.UpdatedAt = time.Now().UTC()

	// Update падает с NotFound, если документа нет, в отличие от Set.
	_, err := s.col().Doc(post.ID).Update(ctx, []firestore.Update{
		{Path: "title", Value: post.Title},
		{Path: "description", Value: post.Description},
		{Path: "image", Value: post.Image},
		{Path: "imageId", Value: post.ImageID},
		{Path: "updatedAt", Value: post.UpdatedAt},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, notFound(post.ID)
		}
		return nil, err
	}
	return post, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	if !validID(id) {
		return notFound(id)
	}
	_, err := s.col().Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return notFound(id)
		}
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
