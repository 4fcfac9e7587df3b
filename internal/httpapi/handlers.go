package httpapi

import (
	"encoding/json"
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/media-posts-service/internal/blob"
	"github.com/UkralStul/media-posts-service/internal/domain"
	"github.com/UkralStul/media-posts-service/internal/service"
)

const (
	imageField = "image"
	// сколько multipart-данных держать в памяти, остальное уходит во временные файлы
	maxFormMemory = 8 << 20
)

// postForm - поля поста из тела запроса. nil означает, что поле не передано.
type postForm struct {
	Title       *string
	Description *string
	Image       *blob.Upload

	file multipart.File
	mp   *multipart.Form
}

func (f *postForm) close() {
	if f.file != nil {
		f.file.Close() //nolint:errcheck
	}
	if f.mp != nil {
		f.mp.RemoveAll() //nolint:errcheck
	}
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer form.close()

	post, err := h.posts.Create(r.Context(), service.CreateInput{
		Title:       deref(form.Title),
		Description: deref(form.Description),
		Image:       form.Image,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *Handler) getPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) updatePost(w http.ResponseWriter, r *http.Request) {
	form, err := h.parseForm(w, r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer form.close()

	post, err := h.posts.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateInput{
		Title:       form.Title,
		Description: form.Description,
		Image:       form.Image,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

// parseForm принимает multipart (единственный вариант с файлом), JSON и urlencoded.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*postForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	form := &postForm{}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(min(h.opts.MaxUploadBytes, maxFormMemory)); err != nil {
			return nil, bodyError(err, "invalid multipart form")
		}
		form.mp = r.MultipartForm
		form.Title = firstValue(r.MultipartForm.Value, "title")
		form.Description = firstValue(r.MultipartForm.Value, "description")

		file, header, err := r.FormFile(imageField)
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			form.close()
			return nil, bodyError(err, "invalid image file")
		default:
			form.file = file
			form.Image = &blob.Upload{
				Filename:    header.Filename,
				ContentType: header.Header.Get("Content-Type"),
				Body:        file,
			}
		}

	case "application/json":
		var body struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, bodyError(err, "invalid JSON body")
		}
		form.Title = body.Title
		form.Description = body.Description

	default:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err, "invalid form body")
		}
		form.Title = firstValue(r.PostForm, "title")
		form.Description = firstValue(r.PostForm, "description")
	}

	return form, nil
}

func bodyError(err error, msg string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
		return &domain.ValidationError{Msg: "request body too large"}
	}
	return &domain.ValidationError{Msg: msg}
}

func firstValue(values map[string][]string, key string) *string {
	v, ok := values[key]
	if !ok || len(v) == 0 {
		return nil
	}
	return &v[0]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, domain.ErrNotFound.Error())
	default:
		h.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
