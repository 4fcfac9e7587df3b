package firestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidID(t *testing.T) {
	assert.True(t, validID("abc123"))
	assert.False(t, validID(""))
	assert.False(t, validID("  "))
	assert.False(t, validID("posts/abc"))
}

func TestToPost(t *testing.T) {
	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("X", 3600))
	p := toPost("doc-1", postDoc{Title: "A", Image: "https://x/y", ImageID: "posts/y", CreatedAt: ts, UpdatedAt: ts})

	assert.Equal(t, "doc-1", p.ID)
	assert.Equal(t, "posts/y", p.ImageID)
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
	assert.True(t, ts.Equal(p.CreatedAt))
}
