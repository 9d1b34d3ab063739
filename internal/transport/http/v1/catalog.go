package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"advisor/internal/domain"
	"advisor/internal/usecase"
)

// Search ranks one catalog collection against a query.
// GET /search/:kind?q=&limit=
func (h *Handler) Search(c echo.Context) error {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		return h.fail(c, err)
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "limit must be an integer"})
		}
	}

	results, err := h.search.Search(c.Request().Context(), kind, c.QueryParam("q"), limit)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"kind":    kind.Plural(),
		"results": usecase.ToSearchResults(results),
	})
}

// IndexKind re-embeds every item of a collection.
// POST /admin/index/:kind
func (h *Handler) IndexKind(c echo.Context) error {
	kind, err := domain.ParseKind(c.Param("kind"))
	if err != nil {
		return h.fail(c, err)
	}

	report, err := h.catalog.IndexAll(c.Request().Context(), kind, nil)
	if err != nil {
		return h.fail(c, err)
	}

	failed := make([]map[string]string, len(report.Failed))
	for i, f := range report.Failed {
		failed[i] = map[string]string{"id": f.ItemID, "title": f.Title, "error": f.Err.Error()}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":   len(report.Failed) == 0,
		"message":   "Indexed " + strconv.Itoa(len(report.Succeeded)) + " of " + strconv.Itoa(report.Total()) + " " + kind.Plural(),
		"indexed":   len(report.Succeeded),
		"failed":    failed,
		"dimension": report.Dimension,
	})
}

// CreateTraining stores and indexes a new training.
// POST /admin/trainings
func (h *Handler) CreateTraining(c echo.Context) error {
	return h.createItem(c, domain.KindTraining)
}

// CreateProject stores and indexes a new project.
// POST /admin/projects
func (h *Handler) CreateProject(c echo.Context) error {
	return h.createItem(c, domain.KindProject)
}

func (h *Handler) createItem(c echo.Context, kind domain.Kind) error {
	var item domain.CatalogItem
	if err := c.Bind(&item); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{"success": false, "error": "invalid request body"})
	}
	item.Kind = kind
	item.Embedding = nil

	stored, err := h.catalog.CreateItem(c.Request().Context(), item)
	var indexErr *usecase.IndexError
	if err != nil && !errors.As(err, &indexErr) {
		return h.fail(c, err)
	}

	resp := map[string]interface{}{
		"success": true,
		"message": "Created and indexed successfully",
		string(kind): map[string]string{
			"id":          stored.ID,
			"title":       stored.Title,
			"description": stored.Description,
		},
	}
	if indexErr != nil {
		// stored but not searchable until the next index run
		h.log.Warn("created item could not be indexed", "kind", kind, "id", stored.ID, "error", indexErr.Err)
		resp["message"] = "Created; indexing failed: " + indexErr.Err.Error()
		resp["indexed"] = false
	} else {
		resp["indexed"] = true
	}
	return c.JSON(http.StatusCreated, resp)
}
