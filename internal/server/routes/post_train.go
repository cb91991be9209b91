package routes

import (
	"net/http"

	"github.com/vik9541/super-brain-digital-twin/internal/queue"
	"github.com/vik9541/super-brain-digital-twin/internal/server/middleware"
	"github.com/vik9541/super-brain-digital-twin/pkg/recommend"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// TrainModelHandler retrains the workspace's recommendation model. With
// async=true the job is queued and processed by the background worker;
// otherwise training runs inline and the report is returned directly.
func TrainModelHandler(c echo.Context) error {
	type trainBody struct {
		Epochs int  `json:"epochs" validate:"omitempty,min=1,max=500"`
		Async  bool `json:"async"`
	}

	type trainQueuedResponse struct {
		Message       string `json:"message"`
		WorkspaceID   string `json:"workspace_id"`
		CorrelationID string `json:"correlation_id"`
	}

	workspaceID := c.Param("workspace_id")
	if workspaceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "workspace_id is required"})
	}

	data := new(trainBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App

	if data.Async {
		correlationID, err := queue.QueueTrainJob(app.Queue, workspaceID, data.Epochs)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to queue training job"})
		}
		return c.JSON(http.StatusAccepted, trainQueuedResponse{
			Message:       "Training job queued",
			WorkspaceID:   workspaceID,
			CorrelationID: correlationID,
		})
	}

	ctx := c.Request().Context()
	report, err := app.Recommender.TrainModel(ctx, workspaceID, data.Epochs)
	if err != nil {
		switch recommend.KindOf(err) {
		case recommend.KindDegenerate, recommend.KindNotFound:
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}

	return c.JSON(http.StatusOK, report)
}
