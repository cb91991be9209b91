package queue

import (
	"context"
	"encoding/json"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"

	"github.com/vik9541/super-brain-digital-twin/pkg/embeddings"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
)

// EmbedJobMsg is the payload of a semantic embedding job on EmbedQueue.
// An empty ContactID means the whole workspace gets (re)embedded.
type EmbedJobMsg struct {
	Message       string `json:"message"`
	WorkspaceID   string `json:"workspace_id"`
	ContactID     string `json:"contact_id,omitempty"`
	CorrelationID string `json:"correlation_id"`
}

// QueueEmbedJob publishes an asynchronous embedding generation job and
// returns the correlation id assigned to it.
func QueueEmbedJob(ch *amqp091.Channel, workspaceID, contactID string) (string, error) {
	correlationID, _ := gonanoid.New()

	msg := EmbedJobMsg{
		Message:       "Generate contact embeddings",
		WorkspaceID:   workspaceID,
		ContactID:     contactID,
		CorrelationID: correlationID,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal embed job: %w", err)
	}

	if err := PublishFIFO(ch, EmbedQueue, msgBytes); err != nil {
		return "", fmt.Errorf("failed to publish embed job: %w", err)
	}

	logger.Info("[Queue] Queued embed job", "workspace", workspaceID, "contact", contactID, "correlation_id", correlationID)
	return correlationID, nil
}

// ProcessEmbedMessage handles one embedding job.
func ProcessEmbedMessage(ctx context.Context, svc *embeddings.Service, msgBody string) error {
	var data EmbedJobMsg
	if err := json.Unmarshal([]byte(msgBody), &data); err != nil {
		logger.Error("[Queue] Invalid embed job payload", "err", err)
		return nil
	}

	logger.Info("[Queue] Processing embed job", "workspace", data.WorkspaceID, "contact", data.ContactID, "correlation_id", data.CorrelationID)

	if data.ContactID != "" {
		return svc.GenerateForContact(ctx, data.WorkspaceID, data.ContactID)
	}

	report, err := svc.GenerateForWorkspace(ctx, data.WorkspaceID)
	if err != nil {
		return err
	}

	logger.Info(
		"[Queue] Embed job complete",
		"workspace", data.WorkspaceID,
		"successful", report.Successful,
		"failed", report.Failed,
	)
	return nil
}
