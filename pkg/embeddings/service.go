package embeddings

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/vik9541/super-brain-digital-twin/internal/util"
	"github.com/vik9541/super-brain-digital-twin/pkg/ai"
	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

const (
	defaultBatchSize    = 10
	defaultMaxDocTokens = 8000
	embedRetries        = 3
)

// Service generates semantic embeddings for contacts and answers vector
// similarity queries against the stored embedding table. It complements the
// graph-based recommender: the graph model captures network structure, this
// service captures textual similarity of the contact records themselves.
type Service struct {
	contacts  store.ContactStore
	client    ai.EmbeddingClient
	batchSize int
	maxTokens int
}

// ServiceParams configure an embedding service. BatchSize bounds how many
// contacts are embedded concurrently; MaxDocTokens caps the token length of
// one contact document.
type ServiceParams struct {
	Contacts     store.ContactStore
	Client       ai.EmbeddingClient
	BatchSize    int
	MaxDocTokens int
}

// NewService wires an embedding service.
func NewService(params ServiceParams) *Service {
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	maxTokens := params.MaxDocTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxDocTokens
	}
	return &Service{
		contacts:  params.Contacts,
		client:    params.Client,
		batchSize: batchSize,
		maxTokens: maxTokens,
	}
}

// ContactDocument builds the text representation of a contact that gets
// embedded: name parts, then labeled organization, tags and notes. A contact
// with no usable text maps to a fixed placeholder so the vector is still
// well-defined.
func ContactDocument(c common.Contact) string {
	parts := make([]string, 0, 5)
	if c.FirstName != "" {
		parts = append(parts, c.FirstName)
	}
	if c.LastName != "" {
		parts = append(parts, c.LastName)
	}
	if c.Organization != "" {
		parts = append(parts, "Organization: "+c.Organization)
	}
	if len(c.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(c.Tags, ", "))
	}
	if c.Notes != "" {
		parts = append(parts, "Notes: "+c.Notes)
	}

	text := strings.Join(parts, " ")
	if strings.TrimSpace(text) == "" {
		return "Unknown contact"
	}
	return text
}

// GenerateForContact embeds one contact and upserts the vector.
func (s *Service) GenerateForContact(ctx context.Context, workspaceID, contactID string) error {
	contact, err := s.contacts.GetContact(ctx, workspaceID, contactID)
	if err != nil {
		return fmt.Errorf("fetching contact %s: %w", contactID, err)
	}

	doc, err := ai.TruncateToTokens(ContactDocument(*contact), s.maxTokens)
	if err != nil {
		return fmt.Errorf("truncating document for contact %s: %w", contactID, err)
	}

	vector, err := util.RetryWithContext(ctx, embedRetries, func(ctx context.Context) ([]float32, error) {
		return s.client.GenerateEmbedding(ctx, []byte(doc))
	})
	if err != nil {
		return fmt.Errorf("generating embedding for contact %s: %w", contactID, err)
	}

	if err := s.contacts.UpsertContactEmbedding(ctx, workspaceID, contactID, vector); err != nil {
		return fmt.Errorf("storing embedding for contact %s: %w", contactID, err)
	}
	return nil
}

// BatchReport summarizes one workspace-wide embedding run.
type BatchReport struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// GenerateForWorkspace embeds every contact of the workspace, at most
// batchSize concurrently. Individual contact failures are counted, logged
// and skipped; only fetching the contact list itself is fatal.
func (s *Service) GenerateForWorkspace(ctx context.Context, workspaceID string) (*BatchReport, error) {
	contacts, err := s.contacts.GetContacts(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("fetching contacts for workspace %s: %w", workspaceID, err)
	}

	logger.Info("[Embeddings] Starting batch generation", "workspace", workspaceID, "contacts", len(contacts))

	var failed atomic.Int64
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(s.batchSize)
	for _, contact := range contacts {
		c := contact
		eg.Go(func() error {
			if err := s.GenerateForContact(ectx, workspaceID, c.ID); err != nil {
				logger.Error("[Embeddings] Contact failed", "workspace", workspaceID, "contact", c.ID, "error", err)
				failed.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &BatchReport{
		Total:      len(contacts),
		Successful: len(contacts) - int(failed.Load()),
		Failed:     int(failed.Load()),
	}
	logger.Info("[Embeddings] Batch generation complete", "workspace", workspaceID, "successful", report.Successful, "failed", report.Failed)
	return report, nil
}

// FindSimilar returns the topN contacts whose stored embeddings are closest
// to the target's. The distance computation runs inside the database.
func (s *Service) FindSimilar(ctx context.Context, workspaceID, contactID string, topN int) ([]common.SimilarContact, error) {
	if topN <= 0 {
		topN = 10
	}
	return s.contacts.FindSimilarContacts(ctx, workspaceID, contactID, topN)
}
