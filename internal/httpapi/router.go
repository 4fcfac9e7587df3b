package httpapi

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/UkralStul/media-posts-service/internal/service"
)

// Options - параметры роутера.
type Options struct {
	// UploadDir - каталог локального хранилища; пустой, если картинки лежат не на диске.
	UploadDir      string
	MaxUploadBytes int64
	CORSOrigins    []string
}

// Handler держит зависимости HTTP-обработчиков.
type Handler struct {
	posts  *service.Posts
	logger *slog.Logger
	opts   Options
}

// NewRouter собирает chi-роутер со всеми маршрутами сервиса.
// feed может быть nil - тогда /posts/events не регистрируется.
func NewRouter(posts *service.Posts, feed http.Handler, logger *slog.Logger, opts Options) http.Handler {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	h := &Handler{posts: posts, logger: logger, opts: opts}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         600,
	}))

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/posts", func(r chi.Router) {
		r.Post("/", h.createPost)
		r.Get("/", h.listPosts)
		if feed != nil {
			r.Handle("/events", feed)
		}
		r.Get("/{id}", h.getPost)
		r.Put("/{id}", h.updatePost)
		r.Delete("/{id}", h.deletePost)
	})

	if opts.UploadDir != "" {
		static := http.StripPrefix("/uploads/", staticFiles(opts.UploadDir))
		router.Method(http.MethodGet, "/uploads/*", static)
		router.Method(http.MethodHead, "/uploads/*", static)
	}

	return router
}

// staticFiles отдает загруженные файлы только на чтение, без листинга каталога.
func staticFiles(dir string) http.Handler {
	fileServer := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") || strings.HasSuffix(r.URL.Path, ".tmp") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fileServer.ServeHTTP(w, r)
	})
}
