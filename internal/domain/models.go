package domain

import (
	"errors"
	"time"
)

// ErrNotFound возвращается хранилищами, когда поста с таким id нет.
var ErrNotFound = errors.New("post not found")

// ValidationError - ошибка входных данных, отдается клиенту как 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Post представляет пост с картинкой.
type Post struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Title       string    `json:"title" gorm:"type:varchar(255)"`
	Description string    `json:"description" gorm:"type:text"`
	Image       string    `json:"image" gorm:"type:text"`
	ImageID     string    `json:"imageId,omitempty" gorm:"type:varchar(512)"` // ключ объекта в blob-хранилище
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;default:now();index"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"not null;default:now()"`
}
