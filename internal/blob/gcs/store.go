package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/UkralStul/media-posts-service/internal/blob"
)

const defaultPublicBaseURL = "https://storage.googleapis.com"

// Store хранит картинки в бакете Google Cloud Storage.
//
// Объекты кладутся как <prefix>/<uuid> без расширения, поэтому ключ объекта
// восстанавливается из публичной ссылки: префикс + последний сегмент без расширения.
// Бакет должен быть публично читаемым (allUsers: Storage Object Viewer).
type Store struct {
	client        *storage.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// Config - параметры подключения к бакету.
type Config struct {
	Bucket          string
	Prefix          string
	PublicBaseURL   string
	CredentialsFile string
}

// New создает клиента GCS. Пустой CredentialsFile означает Application Default Credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("gcs: bucket is empty")
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs: storage.NewClient failed: %w", err)
	}
	return NewWithClient(client, bucket, cfg.Prefix, cfg.PublicBaseURL), nil
}

// NewWithClient оборачивает готового клиента.
func NewWithClient(client *storage.Client, bucket, prefix, publicBaseURL string) *Store {
	if strings.TrimSpace(publicBaseURL) == "" {
		publicBaseURL = defaultPublicBaseURL
	}
	return &Store{
		client:        client,
		bucket:        strings.TrimSpace(bucket),
		prefix:        strings.Trim(strings.TrimSpace(prefix), "/"),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
	}
}

func (s *Store) objectPath(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

func contentType(up blob.Upload) string {
	if ct := strings.TrimSpace(up.ContentType); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(path.Ext(up.Filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// Upload стримит тело файла в новый объект бакета.
// При ошибке чтения запись отменяется, и недописанный объект не появляется в бакете.
func (s *Store) Upload(ctx context.Context, up blob.Upload) (blob.Object, error) {
	obj := s.objectPath(uuid.NewString())

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(obj).NewWriter(wctx)
	w.ContentType = contentType(up)
	w.Metadata = map[string]string{
		"originalName": blob.SafeName(up.Filename),
		"uploadedAt":   time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeObject(w, up.Body, cancel); err != nil {
		return blob.Object{}, fmt.Errorf("gcs: %s: %w", obj, err)
	}
	return blob.Object{ID: obj, URL: s.PublicURL(obj)}, nil
}

// writeObject копирует r в w. Close коммитит объект, поэтому при ошибке
// копирования вызывается только abort, отменяющий контекст писателя.
func writeObject(w io.WriteCloser, r io.Reader, abort context.CancelFunc) error {
	if _, err := io.Copy(w, r); err != nil {
		abort()
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}

// Destroy удаляет объект. Отсутствующий объект - не ошибка.
func (s *Store) Destroy(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("gcs: object id is empty")
	}
	err := s.client.Bucket(s.bucket).Object(id).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs: delete %s: %w", id, err)
	}
	return nil
}

// ObjectID восстанавливает ключ объекта из публичной ссылки.
func (s *Store) ObjectID(ref string) string {
	stem := blob.Stem(ref)
	if stem == "" {
		return ""
	}
	return s.objectPath(stem)
}

// PublicURL возвращает публичную ссылку на объект, экранируя каждый сегмент пути.
func (s *Store) PublicURL(objectPath string) string {
	parts := strings.Split(objectPath, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, strings.Join(parts, "/"))
}

func (s *Store) Close() error {
	return s.client.Close()
}
