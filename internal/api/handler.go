// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-repo-search/internal/catalog"
	"github-repo-search/internal/database"
	custom_errors "github-repo-search/internal/errors"
	"github-repo-search/internal/history"
	"github-repo-search/internal/model"
	"github-repo-search/internal/syncer"
)

const (
	maxKeywordLength = 100
	maxPage          = 100
	defaultLimit     = 10
	maxLimit         = 50
)

type Searcher interface {
	SearchAndSync(ctx context.Context, keyword string, page, perPage int) (*syncer.SearchResult, error)
}

type Catalog interface {
	List(ctx context.Context, params database.ListParams) (*catalog.ListResult, error)
	Delete(ctx context.Context, id int64) error
}

type History interface {
	TopKeywords(ctx context.Context, limit int) ([]model.SearchHistoryEntry, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the application components the routes delegate to.
type Services struct {
	Search  Searcher
	Catalog Catalog
	History History
	Store   Pinger
}

// Options tune the middleware stack. Zero values fall back to the defaults below.
type Options struct {
	SearchRateLimit  int
	GeneralRateLimit int
	RateLimitWindow  time.Duration
	RequestTimeout   time.Duration
}

func (o Options) withDefaults() Options {
	if o.SearchRateLimit <= 0 {
		o.SearchRateLimit = 100
	}
	if o.GeneralRateLimit <= 0 {
		o.GeneralRateLimit = 200
	}
	if o.RateLimitWindow <= 0 {
		o.RateLimitWindow = 15 * time.Minute
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 60 * time.Second
	}
	return o
}

// Handler is the container for API dependencies.
type Handler struct {
	svc       Services
	logger    *slog.Logger
	startedAt time.Time
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(svc Services, logger *slog.Logger, opts Options) http.Handler {
	opts = opts.withDefaults()
	h := &Handler{
		svc:       svc,
		logger:    logger,
		startedAt: time.Now(),
	}

	generalLimiter := newIPRateLimiter(logger, opts.GeneralRateLimit, opts.RateLimitWindow, "Too many requests, please try again later")
	searchLimiter := newIPRateLimiter(logger, opts.SearchRateLimit, opts.RateLimitWindow, "Too many search requests, please try again later")

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))
	r.Use(generalLimiter.Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithMessage(w, logger, http.StatusNotFound, "not_found", "Route "+r.URL.Path+" not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithMessage(w, logger, http.StatusMethodNotAllowed, "method_not_allowed", "Method "+r.Method+" not allowed on "+r.URL.Path)
	})

	r.Get("/", h.index)
	r.Get("/health", h.healthCheck)
	r.Route("/api/repositories", func(r chi.Router) {
		r.With(searchLimiter.Handler).Get("/search", h.searchRepositories)
		r.Get("/", h.listRepositories)
		r.Get("/history", h.searchHistory)
		r.Delete("/{id}", h.deleteRepository)
	})

	return r
}

// index lists the available endpoints.
func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, envelope{
		Success: true,
		Message: "GitHub repository search API is running",
		Data: map[string]any{
			"health": "/health",
			"repositories": map[string]string{
				"search":  "/api/repositories/search?keyword=react",
				"list":    "/api/repositories",
				"history": "/api/repositories/history",
			},
		},
	})
}

// healthCheck reports uptime and whether the store answers.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Store.Ping(r.Context()); err != nil {
		h.respondWithError(w, r, custom_errors.StoreUnavailable("ping", err))
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, envelope{
		Success: true,
		Message: "Server is healthy",
		Data: map[string]any{
			"status":    "ok",
			"uptime":    time.Since(h.startedAt).Seconds(),
			"timestamp": time.Now().UTC(),
		},
	})
}

// searchRepositories handles a GitHub search and stores the results.
// GET /api/repositories/search?keyword=&page=&limit=
func (h *Handler) searchRepositories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	keyword, err := keywordParam(q.Get("keyword"), true)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	page, err := intParam(q.Get("page"), "page", 1, 1, maxPage)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	result, err := h.svc.Search.SearchAndSync(r.Context(), keyword, page, limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithData(w, h.logger, result)
}

// listRepositories handles browsing saved repositories.
// GET /api/repositories?keyword=&page=&limit=&sortBy=&sortOrder=
func (h *Handler) listRepositories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	keyword, err := keywordParam(q.Get("keyword"), false)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	page, err := intParam(q.Get("page"), "page", 1, 1, maxPage)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	limit, err := intParam(q.Get("limit"), "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	field, err := database.ParseSortField(q.Get("sortBy"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	order, err := database.ParseSortOrder(q.Get("sortOrder"))
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	result, err := h.svc.Catalog.List(r.Context(), database.ListParams{
		Filter:  database.Filter{Keyword: keyword},
		Sort:    database.Sort{Field: field, Order: order},
		Page:    page,
		PerPage: limit,
	})
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithData(w, h.logger, result)
}

// deleteRepository removes a saved repository by local ID.
// DELETE /api/repositories/{id}
func (h *Handler) deleteRepository(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondWithError(w, r, custom_errors.InvalidInput("id", "must be a positive integer"))
		return
	}

	if err := h.svc.Catalog.Delete(r.Context(), id); err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithMessage(w, h.logger, http.StatusOK, "", "Repository deleted successfully")
}

// searchHistory handles the keyword history request.
// GET /api/repositories/history?limit=N
func (h *Handler) searchHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), "limit", history.DefaultLimit, 1, history.MaxLimit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}

	entries, err := h.svc.History.TopKeywords(r.Context(), limit)
	if err != nil {
		h.respondWithError(w, r, err)
		return
	}
	respondWithData(w, h.logger, entries)
}

func keywordParam(raw string, required bool) (string, error) {
	keyword := strings.TrimSpace(raw)
	if keyword == "" {
		if required {
			return "", custom_errors.InvalidInput("keyword", "is required")
		}
		return "", nil
	}
	if utf8.RuneCountInString(keyword) > maxKeywordLength {
		return "", custom_errors.InvalidInput("keyword", "must be at most 100 characters")
	}
	return keyword, nil
}

func intParam(raw, name string, def, min, max int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, custom_errors.InvalidInput(name, "must be an integer between "+strconv.Itoa(min)+" and "+strconv.Itoa(max))
	}
	return v, nil
}
