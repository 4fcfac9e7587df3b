package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/media-posts-service/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const collectionName = "posts"

// Store реализует интерфейс Storage поверх MongoDB.
type Store struct {
	client *mongo.Client
	col    *mongo.Collection
}

// postDoc - представление поста в коллекции.
type postDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Image       string             `bson:"image"`
	ImageID     string             `bson:"imageId,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// New подключается к MongoDB и создает индекс по createdAt.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	col := client.Database(database).Collection(collectionName)
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create createdAt index: %w", err)
	}

	return &Store{client: client, col: col}, nil
}

func toDoc(p *domain.Post) postDoc {
	return postDoc{
		Title:       p.Title,
		Description: p.Description,
		Image:       p.Image,
		ImageID:     p.ImageID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func fromDoc(d postDoc) *domain.Post {
	return &domain.Post{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Image:       d.Image,
		ImageID:     d.ImageID,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// Невалидный ObjectID не может существовать в коллекции, поэтому это "не найдено".
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return oid, nil
}

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	// Mongo хранит время с точностью до миллисекунд
	now := time.Now().UTC().Truncate(time.Millisecond)
	post.CreatedAt = now
	post.UpdatedAt = now

	doc := toDoc(post)
	doc.ID = primitive.NewObjectID()
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	post.ID = doc.ID.Hex()
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d postDoc
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	return fromDoc(d), nil
}

func (s *Store) GetPosts(ctx context.Context) ([]*domain.Post, error) {
	cur, err := s.col.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, fromDoc(d))
	}
	return posts, nil
}

func (s *Store) SavePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	oid, err := objectID(post.ID)
	if err != nil {
		return nil, err
	}
	post.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	res, err := s.col.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{
		"title":       post.Title,
		"description": post.Description,
		"image":       post.Image,
		"imageId":     post.ImageID,
		"updatedAt":   post.UpdatedAt,
	}})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("post with id %s: %w", post.ID, domain.ErrNotFound)
	}
	return post, nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post with id %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
