package pgx

import (
	"context"

	"github.com/pgvector/pgvector-go"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

// UpsertContactEmbedding stores the semantic embedding for a contact,
// replacing any previous vector.
func (s *ContactDBStorage) UpsertContactEmbedding(ctx context.Context, workspaceID, contactID string, embedding []float32) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO contact_embeddings (workspace_id, contact_id, embedding, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (workspace_id, contact_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()
	`, workspaceID, contactID, pgvector.NewVector(embedding))
	return err
}

// FindSimilarContacts ranks the workspace's contacts by cosine similarity of
// their stored embeddings against the target contact's embedding. The <=>
// operator is pgvector cosine distance, so similarity = 1 - distance.
func (s *ContactDBStorage) FindSimilarContacts(ctx context.Context, workspaceID, contactID string, topN int) ([]common.SimilarContact, error) {
	var exists bool
	err := s.conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM contact_embeddings
			WHERE workspace_id = $1 AND contact_id = $2
		)
	`, workspaceID, contactID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	rows, err := s.conn.Query(ctx, `
		SELECT ce.contact_id,
		       1 - (ce.embedding <=> target.embedding) AS similarity,
		       ce.updated_at
		FROM contact_embeddings ce,
		     (SELECT embedding FROM contact_embeddings
		      WHERE workspace_id = $1 AND contact_id = $2) target
		WHERE ce.workspace_id = $1 AND ce.contact_id <> $2
		ORDER BY ce.embedding <=> target.embedding
		LIMIT $3
	`, workspaceID, contactID, topN)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	similar := make([]common.SimilarContact, 0, topN)
	for rows.Next() {
		var sc common.SimilarContact
		if err := rows.Scan(&sc.ContactID, &sc.Similarity, &sc.UpdatedAt); err != nil {
			return nil, err
		}
		similar = append(similar, sc)
	}

	return similar, rows.Err()
}
