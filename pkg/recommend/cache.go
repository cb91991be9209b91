package recommend

import (
	"sync"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/gnn"
)

// cacheEntry is one workspace's trained model together with the id-index
// maps of the graph it was trained on and a training fingerprint. Entries
// are immutable once stored; retraining replaces the whole entry.
type cacheEntry struct {
	network   *gnn.Network
	idToIndex map[string]int
	indexToID []string
	trainedAt time.Time
	finalLoss float64
}

// modelCache holds at most one trained model per workspace plus a training
// mutex per workspace so concurrent requests for the same workspace train
// once instead of racing. Reads never block on a training run.
type modelCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	trainMu sync.Mutex
	trains  map[string]*sync.Mutex
}

func newModelCache() *modelCache {
	return &modelCache{
		entries: make(map[string]*cacheEntry),
		trains:  make(map[string]*sync.Mutex),
	}
}

func (c *modelCache) get(workspaceID string) (*cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[workspaceID]
	return entry, ok
}

// put atomically replaces the workspace's entry.
func (c *modelCache) put(workspaceID string, entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[workspaceID] = entry
}

// trainingLock returns the per-workspace mutex serializing training runs.
func (c *modelCache) trainingLock(workspaceID string) *sync.Mutex {
	c.trainMu.Lock()
	defer c.trainMu.Unlock()
	m, ok := c.trains[workspaceID]
	if !ok {
		m = &sync.Mutex{}
		c.trains[workspaceID] = m
	}
	return m
}
