package routes

import (
	"net/http"

	"github.com/vik9541/super-brain-digital-twin/internal/server/middleware"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetModelStatusHandler reports whether a trained model exists for the
// workspace and whether it is live in process or only persisted.
func GetModelStatusHandler(c echo.Context) error {
	workspaceID := c.Param("workspace_id")
	if workspaceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "workspace_id is required"})
	}

	ctx := c.Request().Context()
	recommender := c.(*middleware.AppContext).App.Recommender

	status, err := recommender.ModelStatus(ctx, workspaceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, status)
}
