package blob

import (
	"context"
	"io"
	"path"
	"strings"
	"unicode/utf8"
)

// Upload - файл, пришедший в запросе.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Object - ссылка на сохраненный объект.
type Object struct {
	// ID - ключ объекта внутри хранилища, по нему объект удаляется.
	ID string
	// URL - то, что отдается клиенту в поле image.
	URL string
}

// Store определяет контракт для хранилищ картинок.
type Store interface {
	Upload(ctx context.Context, up Upload) (Object, error)
	// Destroy удаляет объект. Отсутствующий объект не считается ошибкой.
	Destroy(ctx context.Context, id string) error
	// ObjectID выводит ключ объекта из ссылки для записей, где ImageID не сохранен.
	ObjectID(ref string) string
	Close() error
}

// Stem возвращает последний сегмент ссылки без расширения:
// "https://host/a/b/photo.png?x=1" -> "photo".
func Stem(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	base := path.Base(strings.TrimRight(ref, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

const (
	// MaxNameBytes - предел длины имени после очистки, с запасом под префикс и ".tmp".
	MaxNameBytes = 100
	maxExtBytes  = 16
)

// SafeName оставляет от имени файла только базовое имя без разделителей пути,
// обрезанное до MaxNameBytes с сохранением расширения.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return "file"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f:
			return -1
		case r == ' ':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "file"
	}
	if len(name) <= MaxNameBytes {
		return name
	}
	stem, ext := name, path.Ext(name)
	if len(ext) > maxExtBytes {
		ext = ""
	} else {
		stem = strings.TrimSuffix(name, ext)
	}
	stem = truncateUTF8(stem, MaxNameBytes-len(ext))
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}

// truncateUTF8 обрезает строку до n байт, не разрывая многобайтовые символы.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
