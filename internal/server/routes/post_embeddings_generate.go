package routes

import (
	"errors"
	"net/http"

	"github.com/vik9541/super-brain-digital-twin/internal/queue"
	"github.com/vik9541/super-brain-digital-twin/internal/server/middleware"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GenerateEmbeddingsHandler (re)generates semantic embeddings. With a
// contact_id in the body only that contact is embedded; without one the
// whole workspace is. async=true queues the work for the background worker.
func GenerateEmbeddingsHandler(c echo.Context) error {
	type generateBody struct {
		ContactID string `json:"contact_id"`
		Async     bool   `json:"async"`
	}

	type generateQueuedResponse struct {
		Message       string `json:"message"`
		WorkspaceID   string `json:"workspace_id"`
		CorrelationID string `json:"correlation_id"`
	}

	workspaceID := c.Param("workspace_id")
	if workspaceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "workspace_id is required"})
	}

	data := new(generateBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App

	if data.Async {
		correlationID, err := queue.QueueEmbedJob(app.Queue, workspaceID, data.ContactID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to queue embedding job"})
		}
		return c.JSON(http.StatusAccepted, generateQueuedResponse{
			Message:       "Embedding job queued",
			WorkspaceID:   workspaceID,
			CorrelationID: correlationID,
		})
	}

	ctx := c.Request().Context()

	if data.ContactID != "" {
		if err := app.Embeddings.GenerateForContact(ctx, workspaceID, data.ContactID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Embedding generated", "contact_id": data.ContactID})
	}

	report, err := app.Embeddings.GenerateForWorkspace(ctx, workspaceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}
