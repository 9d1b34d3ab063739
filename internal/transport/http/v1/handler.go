// Package v1 provides the HTTP API of the advisor.
package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"advisor/internal/domain"
	"advisor/internal/platform/logger"
	"advisor/internal/port"
	"advisor/internal/usecase"
)

// ChatService is the conversation API the handlers call.
type ChatService interface {
	HandleMessage(ctx context.Context, userID, message, sessionID string) (string, error)
	History(ctx context.Context, userID, sessionID string) ([]domain.Turn, error)
	ClearHistory(ctx context.Context, userID, sessionID string) error
	Welcome(ctx context.Context, userID string) (string, error)
	Profile(ctx context.Context, userID string) (domain.UserProfile, error)
}

// CatalogService indexes and creates catalog items.
type CatalogService interface {
	IndexAll(ctx context.Context, kind domain.Kind, progress usecase.ProgressFunc) (*domain.IndexReport, error)
	CreateItem(ctx context.Context, item domain.CatalogItem) (domain.CatalogItem, error)
}

// Handler handles HTTP requests.
type Handler struct {
	chat    ChatService
	catalog CatalogService
	search  usecase.Searcher
	models  port.ModelLister
	log     *logger.Logger
	now     func() time.Time
}

// NewHandler creates a new handler. models may be nil when the provider
// cannot report health.
func NewHandler(chat ChatService, catalog CatalogService, search usecase.Searcher, models port.ModelLister, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		chat:    chat,
		catalog: catalog,
		search:  search,
		models:  models,
		log:     log,
		now:     time.Now,
	}
}

// RegisterRoutes registers every route with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	e.GET("/users/:userId", h.GetUser)
	e.POST("/users/:userId/chat/init", h.InitChat)
	e.POST("/users/:userId/chat", h.Chat)
	e.GET("/users/:userId/chat/history", h.GetHistory)
	e.DELETE("/users/:userId/chat/history", h.ClearHistory)

	e.GET("/search/:kind", h.Search)

	e.POST("/admin/index/:kind", h.IndexKind)
	e.POST("/admin/trainings", h.CreateTraining)
	e.POST("/admin/projects", h.CreateProject)
}

// fail maps domain errors to status codes and writes the error body.
func (h *Handler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrModelChanged):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	}
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

// Health reports service status and, when available, the model provider.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	resp := map[string]interface{}{
		"status":    "OK",
		"message":   "Advisor API is running",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}

	if h.models != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()
		if err := h.models.HealthCheck(ctx); err != nil {
			resp["llm"] = "unreachable"
			resp["llm_error"] = err.Error()
		} else {
			resp["llm"] = "connected"
			if models, err := h.models.ListModels(ctx); err == nil {
				resp["models"] = models
			}
		}
	}

	return c.JSON(http.StatusOK, resp)
}
