package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/media-posts-service/internal/domain"
)

func TestHub_PublishToSubscribers(t *testing.T) {
	hub := NewHub(4)
	a, cancelA := hub.Subscribe()
	b, cancelB := hub.Subscribe()
	defer cancelA()
	defer cancelB()

	hub.Publish(Event{Type: Created, Post: &domain.Post{ID: "1"}})

	evA := <-a
	evB := <-b
	assert.Equal(t, Created, evA.Type)
	assert.Equal(t, "1", evB.Post.ID)
}

func TestHub_SlowSubscriberDropsEvents(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	hub.Publish(Event{Type: Created, Post: &domain.Post{ID: "1"}})
	hub.Publish(Event{Type: Updated, Post: &domain.Post{ID: "1"}})

	ev := <-ch
	assert.Equal(t, Created, ev.Type)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %v", extra)
	default:
	}
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	require.Equal(t, 1, hub.Subscribers())

	cancel()
	cancel()
	assert.Equal(t, 0, hub.Subscribers())

	_, ok := <-ch
	assert.False(t, ok)

	// публикация после отписки не паникует
	hub.Publish(Event{Type: Deleted})
}
