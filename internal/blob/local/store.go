package local

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/UkralStul/media-posts-service/internal/blob"
)

// URLPrefix - путь, под которым файлы отдаются статикой.
const URLPrefix = "/uploads/"

// Store хранит картинки в каталоге на локальном диске.
// Объекты лежат плоско: ID объекта совпадает с именем файла.
type Store struct {
	root string
	now  func() time.Time
}

// New создает хранилище с корнем root, создавая каталог при необходимости.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", root, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	return &Store{root: absRoot, now: time.Now}, nil
}

// Root возвращает абсолютный путь каталога с файлами.
func (s *Store) Root() string { return s.root }

// abs переводит ID объекта в путь на диске и не дает выйти за пределы root.
func (s *Store) abs(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid object id %q", id)
	}
	joined := filepath.Join(s.root, id)
	rel, err := filepath.Rel(s.root, joined)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("object id %q escapes upload dir", id)
	}
	return joined, nil
}

func (s *Store) newID(filename string) string {
	ms := strconv.FormatInt(s.now().UnixMilli(), 10)
	return ms + "-" + uuid.NewString()[:8] + "-" + blob.SafeName(filename)
}

// Upload пишет файл во временный файл и атомарно переименовывает его.
func (s *Store) Upload(ctx context.Context, up blob.Upload) (blob.Object, error) {
	id := s.newID(up.Filename)
	dest, err := s.abs(id)
	if err != nil {
		return blob.Object{}, err
	}

	tmp := dest + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return blob.Object{}, fmt.Errorf("open tmp %q: %w", tmp, err)
	}

	_, werr := io.Copy(f, up.Body)
	cerr := f.Close()

	if werr != nil {
		os.Remove(tmp) //nolint:errcheck
		return blob.Object{}, fmt.Errorf("stream write: %w", werr)
	}
	if cerr != nil {
		os.Remove(tmp) //nolint:errcheck
		return blob.Object{}, fmt.Errorf("flush: %w", cerr)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return blob.Object{}, fmt.Errorf("rename to %q: %w", dest, err)
	}

	return blob.Object{ID: id, URL: URLPrefix + url.PathEscape(id)}, nil
}

// Destroy удаляет файл. Отсутствующий файл - не ошибка.
func (s *Store) Destroy(ctx context.Context, id string) error {
	p, err := s.abs(id)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %q: %w", id, err)
	}
	return nil
}

// ObjectID для локального хранилища - имя файла из ссылки "/uploads/<file>".
// Старые ссылки хранились без экранирования, их имя возвращается как есть.
func (s *Store) ObjectID(ref string) string {
	if ref == "" {
		return ""
	}
	base := path.Base(ref)
	if id, err := url.PathUnescape(base); err == nil {
		return id
	}
	return base
}

// Exists сообщает, лежит ли объект на диске.
func (s *Store) Exists(id string) (bool, error) {
	p, err := s.abs(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	return err == nil, err
}

// List возвращает ID всех сохраненных объектов, без недописанных временных файлов.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

func (s *Store) Close() error { return nil }
