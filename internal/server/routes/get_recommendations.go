package routes

import (
	"net/http"
	"strconv"

	"github.com/vik9541/super-brain-digital-twin/internal/server/middleware"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetRecommendationsHandler ranks the workspace's contacts against the
// target contact. Query parameters: k (default 20), use_cache (default
// true), explain (default true).
func GetRecommendationsHandler(c echo.Context) error {
	workspaceID := c.Param("workspace_id")
	contactID := c.Param("contact_id")
	if workspaceID == "" || contactID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "workspace_id and contact_id are required"})
	}

	k := 20
	if raw := c.QueryParam("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "k must be a positive integer"})
		}
		k = parsed
	}
	useCache := parseBoolParam(c.QueryParam("use_cache"), true)
	explain := parseBoolParam(c.QueryParam("explain"), true)

	ctx := c.Request().Context()
	recommender := c.(*middleware.AppContext).App.Recommender

	result := recommender.GetRecommendations(ctx, workspaceID, contactID, k, useCache, explain)
	if result.Error != "" && len(result.Recommendations) == 0 {
		return c.JSON(http.StatusNotFound, result)
	}
	return c.JSON(http.StatusOK, result)
}

func parseBoolParam(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return parsed
}
