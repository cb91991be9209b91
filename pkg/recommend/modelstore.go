package recommend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrModelNotFound is returned by a ModelStore when no persisted model
// exists for the workspace.
var ErrModelNotFound = errors.New("no persisted model for workspace")

// ModelStore persists trained model weights keyed by workspace so a process
// restart can reload them instead of retraining.
type ModelStore interface {
	Save(ctx context.Context, workspaceID string, data []byte) error
	// Load returns the persisted weights and the time they were written,
	// or ErrModelNotFound.
	Load(ctx context.Context, workspaceID string) ([]byte, time.Time, error)
}

// LocalModelStore keeps one JSON weight file per workspace in a flat
// directory.
type LocalModelStore struct {
	dir string
}

var _ ModelStore = (*LocalModelStore)(nil)

// NewLocalModelStore creates the directory if needed.
func NewLocalModelStore(dir string) (*LocalModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating model directory %s: %w", dir, err)
	}
	return &LocalModelStore{dir: dir}, nil
}

func (s *LocalModelStore) path(workspaceID string) string {
	return filepath.Join(s.dir, workspaceID+".json")
}

func (s *LocalModelStore) Save(_ context.Context, workspaceID string, data []byte) error {
	if err := os.WriteFile(s.path(workspaceID), data, 0o644); err != nil {
		return fmt.Errorf("writing model for workspace %s: %w", workspaceID, err)
	}
	return nil
}

func (s *LocalModelStore) Load(_ context.Context, workspaceID string) ([]byte, time.Time, error) {
	path := s.path(workspaceID)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, time.Time{}, ErrModelNotFound
		}
		return nil, time.Time{}, fmt.Errorf("checking model for workspace %s: %w", workspaceID, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading model for workspace %s: %w", workspaceID, err)
	}
	return data, info.ModTime(), nil
}
