package routes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vik9541/super-brain-digital-twin/internal/server/middleware"
	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetSimilarContactsHandler returns the contacts whose stored semantic
// embeddings are closest to the target's. Query parameter top_n defaults
// to 10.
func GetSimilarContactsHandler(c echo.Context) error {
	type similarResponse struct {
		WorkspaceID string                  `json:"workspace_id"`
		ContactID   string                  `json:"contact_id"`
		Similar     []common.SimilarContact `json:"similar"`
	}

	workspaceID := c.Param("workspace_id")
	contactID := c.Param("contact_id")
	if workspaceID == "" || contactID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "workspace_id and contact_id are required"})
	}

	topN := 10
	if raw := c.QueryParam("top_n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "top_n must be a positive integer"})
		}
		topN = parsed
	}

	ctx := c.Request().Context()
	embedSvc := c.(*middleware.AppContext).App.Embeddings

	similar, err := embedSvc.FindSimilar(ctx, workspaceID, contactID, topN)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "No embedding found for contact"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, similarResponse{
		WorkspaceID: workspaceID,
		ContactID:   contactID,
		Similar:     similar,
	})
}
