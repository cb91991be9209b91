package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rabbitmq/amqp091-go"

	"github.com/vik9541/super-brain-digital-twin/pkg/leaselock"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
	"github.com/vik9541/super-brain-digital-twin/pkg/recommend"
)

// TrainJobMsg is the payload of a training job on TrainQueue.
type TrainJobMsg struct {
	Message       string `json:"message"`
	WorkspaceID   string `json:"workspace_id"`
	Epochs        int    `json:"epochs"`
	CorrelationID string `json:"correlation_id"`
}

// QueueTrainJob publishes an asynchronous model training job for the
// workspace and returns the correlation id assigned to it.
func QueueTrainJob(ch *amqp091.Channel, workspaceID string, epochs int) (string, error) {
	correlationID, _ := gonanoid.New()

	msg := TrainJobMsg{
		Message:       "Train recommendation model",
		WorkspaceID:   workspaceID,
		Epochs:        epochs,
		CorrelationID: correlationID,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal train job: %w", err)
	}

	if err := PublishFIFO(ch, TrainQueue, msgBytes); err != nil {
		return "", fmt.Errorf("failed to publish train job: %w", err)
	}

	logger.Info("[Queue] Queued train job", "workspace", workspaceID, "correlation_id", correlationID)
	return correlationID, nil
}

// ProcessTrainMessage handles one training job. A database lease keyed by
// workspace keeps two worker instances from training the same workspace at
// once; the job whose lease is busy gets requeued through the retry queue.
// Degenerate workspaces are acked without retrying: requeueing a workspace
// with no contacts cannot succeed later by itself.
func ProcessTrainMessage(ctx context.Context, svc *recommend.Service, locks *leaselock.Client, msgBody string) error {
	var data TrainJobMsg
	if err := json.Unmarshal([]byte(msgBody), &data); err != nil {
		logger.Error("[Queue] Invalid train job payload", "err", err)
		return nil
	}

	logger.Info("[Queue] Processing train job", "workspace", data.WorkspaceID, "correlation_id", data.CorrelationID)

	train := func(ctx context.Context) error {
		return runTrainJob(ctx, svc, data)
	}
	if locks == nil {
		return train(ctx)
	}
	err := locks.WithLease(ctx, "model_train:"+data.WorkspaceID, leaselock.Options{
		TTL: 10 * time.Minute,
	}, train)
	if errors.Is(err, leaselock.ErrBusy) {
		return fmt.Errorf("workspace %s is already training on another instance: %w", data.WorkspaceID, err)
	}
	return err
}

func runTrainJob(ctx context.Context, svc *recommend.Service, data TrainJobMsg) error {
	report, err := svc.TrainModel(ctx, data.WorkspaceID, data.Epochs)
	if err != nil {
		switch recommend.KindOf(err) {
		case recommend.KindDegenerate, recommend.KindNotFound:
			logger.Warn("[Queue] Skipping train job", "workspace", data.WorkspaceID, "reason", err)
			return nil
		default:
			return err
		}
	}

	logger.Info(
		"[Queue] Train job complete",
		"workspace", data.WorkspaceID,
		"nodes", report.Nodes,
		"edges", report.Edges,
		"final_loss", report.FinalLoss,
	)
	return nil
}
