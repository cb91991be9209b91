package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

// GetContacts returns every contact belonging to the workspace.
func (s *ContactDBStorage) GetContacts(ctx context.Context, workspaceID string) ([]common.Contact, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, first_name, last_name, email, organization, influence_score, tags, notes
		FROM contacts
		WHERE workspace_id = $1
		ORDER BY created_at, id
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]common.Contact, 0)
	for rows.Next() {
		var c common.Contact
		var organization, notes *string
		if err := rows.Scan(
			&c.ID,
			&c.FirstName,
			&c.LastName,
			&c.Email,
			&organization,
			&c.InfluenceScore,
			&c.Tags,
			&notes,
		); err != nil {
			return nil, err
		}
		if organization != nil {
			c.Organization = *organization
		}
		if notes != nil {
			c.Notes = *notes
		}
		contacts = append(contacts, c)
	}

	return contacts, rows.Err()
}

// GetContact returns a single contact by id, or store.ErrNotFound.
func (s *ContactDBStorage) GetContact(ctx context.Context, workspaceID, contactID string) (*common.Contact, error) {
	var c common.Contact
	var organization, notes *string
	err := s.conn.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, organization, influence_score, tags, notes
		FROM contacts
		WHERE workspace_id = $1 AND id = $2
	`, workspaceID, contactID).Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&organization,
		&c.InfluenceScore,
		&c.Tags,
		&notes,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if organization != nil {
		c.Organization = *organization
	}
	if notes != nil {
		c.Notes = *notes
	}
	return &c, nil
}

// GetActivitySince returns activity log entries at or after the given time.
func (s *ContactDBStorage) GetActivitySince(ctx context.Context, workspaceID string, since time.Time) ([]common.ActivityEntry, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT contact_id, activity_type, occurred_at
		FROM contact_activity_log
		WHERE workspace_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at
	`, workspaceID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]common.ActivityEntry, 0)
	for rows.Next() {
		var e common.ActivityEntry
		if err := rows.Scan(&e.ContactID, &e.ActivityType, &e.OccurredAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
