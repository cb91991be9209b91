package pgx

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

// ContactDBStorage implements store.ContactStore on top of a pgx connection
// pool. The pool is expected to have pgvector types registered (see
// pgvector-go/pgx RegisterTypes in the server bootstrap).
type ContactDBStorage struct {
	conn *pgxpool.Pool
}

// NewContactDBStorage creates a new Postgres-backed contact store.
func NewContactDBStorage(conn *pgxpool.Pool) *ContactDBStorage {
	return &ContactDBStorage{conn: conn}
}

var _ store.ContactStore = (*ContactDBStorage)(nil)
