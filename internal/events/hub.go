package events

import (
	"sync"

	"github.com/google/uuid"

	"github.com/UkralStul/media-posts-service/internal/domain"
)

// Type - вид изменения поста.
type Type string

const (
	Created Type = "created"
	Updated Type = "updated"
	Deleted Type = "deleted"
)

// Event - сообщение подписчикам об изменении поста.
type Event struct {
	Type Type         `json:"type"`
	Post *domain.Post `json:"post"`
}

// Hub хранит каналы подписчиков на изменения постов.
type Hub struct {
	mu sync.RWMutex
	//   map[subscriberID] channel
	subs   map[string]chan Event
	buffer int
}

// NewHub - конструктор. buffer - размер очереди на одного подписчика.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[string]chan Event),
		buffer: buffer,
	}
}

// Subscribe регистрирует подписчика. Вызывающий обязан вызвать cancel,
// после этого канал закрывается.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	subID := uuid.NewString()

	h.mu.Lock()
	h.subs[subID] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, subID)
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish рассылает событие без блокировки: если подписчик не успевает читать,
// событие для него пропускается.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers возвращает число активных подписчиков.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
