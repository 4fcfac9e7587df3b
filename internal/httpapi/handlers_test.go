package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UkralStul/media-posts-service/internal/blob/local"
	"github.com/UkralStul/media-posts-service/internal/domain"
	"github.com/UkralStul/media-posts-service/internal/events"
	"github.com/UkralStul/media-posts-service/internal/service"
	"github.com/UkralStul/media-posts-service/internal/storage/inmemory"
)

type testAPI struct {
	handler http.Handler
	store   *inmemory.Store
	blobs   *local.Store
	hub     *events.Hub
}

func newTestAPI(t *testing.T, requireImage bool, maxUpload int64) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := inmemory.New()
	blobs, err := local.New(t.TempDir())
	require.NoError(t, err)
	hub := events.NewHub(8)

	posts := service.New(store, blobs, hub, logger, service.Options{RequireImage: requireImage})
	h := NewRouter(posts, events.NewFeed(hub, logger), logger, Options{
		UploadDir:      blobs.Root(),
		MaxUploadBytes: maxUpload,
	})
	return &testAPI{handler: h, store: store, blobs: blobs, hub: hub}
}

// multipartBody собирает multipart-форму; пустое имя файла означает запрос без файла.
func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (a *testAPI) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) create(t *testing.T, title, description, filename string) domain.Post {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"title": title, "description": description}, filename, "image-bytes")
	rec := a.do(t, http.MethodPost, "/posts", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var post domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	return post
}

func decodePosts(t *testing.T, rec *httptest.ResponseRecorder) []domain.Post {
	t.Helper()
	var posts []domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &posts))
	return posts
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestCreateListDeleteScenario(t *testing.T) {
	api := newTestAPI(t, true, 0)

	post := api.create(t, "A", "d", "cat.png")
	assert.Equal(t, "A", post.Title)
	assert.Equal(t, "d", post.Description)
	assert.NotEmpty(t, post.Image)
	assert.NotEmpty(t, post.ID)

	// картинка доступна по ссылке из поста
	rec := api.do(t, http.MethodGet, post.Image, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image-bytes", rec.Body.String())

	rec = api.do(t, http.MethodGet, "/posts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decodePosts(t, rec)
	require.Len(t, posts, 1)
	assert.Equal(t, post.ID, posts[0].ID)

	rec = api.do(t, http.MethodDelete, "/posts/"+post.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var msg map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "Post deleted", msg["message"])

	rec = api.do(t, http.MethodGet, "/posts", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	// старая ссылка больше не отдает файл
	rec = api.do(t, http.MethodGet, post.Image, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreate_ImageURLServesUnusualFilenames(t *testing.T) {
	api := newTestAPI(t, true, 0)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	names := []string{
		"cat#1.png",
		"what?.png",
		"100%.png",
		"my photo.png",
		strings.Repeat("a", 250) + ".png",
	}
	for _, name := range names {
		post := api.create(t, "A", "d", name)
		require.True(t, strings.HasPrefix(post.Image, "/uploads/"), post.Image)

		resp, err := http.Get(srv.URL + post.Image)
		require.NoError(t, err)
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, "file %q -> %s", name, post.Image)
		assert.Equal(t, "image-bytes", string(data), "file %q", name)
	}
}

func TestCreate_NoFile(t *testing.T) {
	api := newTestAPI(t, true, 0)

	body, ct := multipartBody(t, map[string]string{"title": "A"}, "", "")
	rec := api.do(t, http.MethodPost, "/posts", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "no file uploaded", decodeError(t, rec))
	assert.Equal(t, 0, api.store.Count())

	rec = api.do(t, http.MethodPost, "/posts", strings.NewReader(`{"title":"A"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, api.store.Count())
}

func TestCreate_TooLarge(t *testing.T) {
	api := newTestAPI(t, true, 64)

	body, ct := multipartBody(t, map[string]string{"title": "A"}, "big.png", strings.Repeat("x", 4096))
	rec := api.do(t, http.MethodPost, "/posts", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, api.store.Count())
}

func TestCreate_JSONWhenImageOptional(t *testing.T) {
	api := newTestAPI(t, false, 0)

	rec := api.do(t, http.MethodPost, "/posts", strings.NewReader(`{"title":"A","description":"d"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)

	var post domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &post))
	assert.Equal(t, "A", post.Title)
	assert.Empty(t, post.Image)
}

func TestUpdate_PartialFields(t *testing.T) {
	api := newTestAPI(t, true, 0)
	post := api.create(t, "A", "d", "cat.png")

	body, ct := multipartBody(t, map[string]string{"title": "B"}, "", "")
	rec := api.do(t, http.MethodPut, "/posts/"+post.ID, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "B", updated.Title)
	assert.Equal(t, "d", updated.Description)
	assert.Equal(t, post.Image, updated.Image)
}

func TestUpdate_JSONBody(t *testing.T) {
	api := newTestAPI(t, true, 0)
	post := api.create(t, "A", "d", "cat.png")

	rec := api.do(t, http.MethodPut, "/posts/"+post.ID, strings.NewReader(`{"description":"new"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "A", updated.Title)
	assert.Equal(t, "new", updated.Description)
}

func TestUpdate_ReplacesImage(t *testing.T) {
	api := newTestAPI(t, true, 0)
	post := api.create(t, "A", "d", "cat.png")

	body, ct := multipartBody(t, nil, "dog.png", "woof")
	rec := api.do(t, http.MethodPut, "/posts/"+post.ID, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.NotEqual(t, post.Image, updated.Image)

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, post.Image, nil, "").Code)
	rec = api.do(t, http.MethodGet, updated.Image, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "woof", rec.Body.String())
}

func TestNotFound(t *testing.T) {
	api := newTestAPI(t, true, 0)
	api.create(t, "A", "d", "cat.png")

	body, ct := multipartBody(t, map[string]string{"title": "B"}, "", "")
	rec := api.do(t, http.MethodPut, "/posts/missing", body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = api.do(t, http.MethodDelete, "/posts/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "post not found", decodeError(t, rec))
	assert.Equal(t, 1, api.store.Count())

	rec = api.do(t, http.MethodGet, "/posts/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPost(t *testing.T) {
	api := newTestAPI(t, true, 0)
	post := api.create(t, "A", "d", "cat.png")

	rec := api.do(t, http.MethodGet, "/posts/"+post.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, post.ID, got.ID)
}

func TestUploadsNoDirectoryListing(t *testing.T) {
	api := newTestAPI(t, true, 0)
	api.create(t, "A", "d", "cat.png")

	assert.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/uploads/", nil, "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, api.do(t, http.MethodDelete, "/uploads/x.png", nil, "").Code)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, true, 0)
	rec := api.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestEventsFeed(t *testing.T) {
	api := newTestAPI(t, true, 0)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/posts/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return api.hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	post := api.create(t, "A", "d", "cat.png")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.Created, ev.Type)
	assert.Equal(t, post.ID, ev.Post.ID)
}
