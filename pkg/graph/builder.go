package graph

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/vik9541/super-brain-digital-twin/pkg/common"
	"github.com/vik9541/super-brain-digital-twin/pkg/logger"
	"github.com/vik9541/super-brain-digital-twin/pkg/store"
)

// BuildOptions control how the relationship graph is assembled.
type BuildOptions struct {
	// MinInteractionCount drops interaction edges whose aggregated event
	// count is below this threshold.
	MinInteractionCount int
	// IncludeSharedTags toggles the tag-overlap edge source.
	IncludeSharedTags bool
	// ActivityWindow is the trailing window of the interaction log that
	// contributes edges.
	ActivityWindow time.Duration
}

// DefaultBuildOptions returns the options used by the recommendation
// service: a 90-day activity window, single-event edges kept, tag edges on.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		MinInteractionCount: 1,
		IncludeSharedTags:   true,
		ActivityWindow:      90 * 24 * time.Hour,
	}
}

// Builder assembles per-workspace relationship graphs from the contact
// store. A Builder is stateless between calls and safe for concurrent use.
type Builder struct {
	store store.ContactStore
	opts  BuildOptions
}

// NewBuilder creates a Builder with default options.
func NewBuilder(contactStore store.ContactStore) *Builder {
	return NewBuilderWithOptions(contactStore, DefaultBuildOptions())
}

// NewBuilderWithOptions creates a Builder with explicit options.
func NewBuilderWithOptions(contactStore store.ContactStore, opts BuildOptions) *Builder {
	if opts.MinInteractionCount < 1 {
		opts.MinInteractionCount = 1
	}
	if opts.ActivityWindow <= 0 {
		opts.ActivityWindow = 90 * 24 * time.Hour
	}
	return &Builder{store: contactStore, opts: opts}
}

// Build constructs the current relationship graph of a workspace.
//
// A failing contact fetch is fatal: a partially built graph would corrupt
// every model trained on it. Failures inside a single edge source degrade to
// an empty edge set for that source, because the remaining sources still
// produce a usable graph. A workspace without contacts yields a degenerate
// single-node graph, never an error.
func (b *Builder) Build(ctx context.Context, workspaceID string) (*Graph, error) {
	contacts, err := b.store.GetContacts(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("fetching contacts for workspace %s: %w", workspaceID, err)
	}
	if len(contacts) == 0 {
		logger.Warn("[Graph] No contacts found for workspace", "workspace_id", workspaceID)
		return newDegenerateGraph(), nil
	}

	g := &Graph{
		Features:  make([][]float64, len(contacts)),
		Edges:     []Edge{},
		IDToIndex: make(map[string]int, len(contacts)),
		IndexToID: make([]string, len(contacts)),
	}
	for idx, contact := range contacts {
		g.IDToIndex[contact.ID] = idx
		g.IndexToID[idx] = contact.ID
		g.Features[idx] = extractFeatures(contact)
	}

	interactionEdges, err := b.buildInteractionEdges(ctx, workspaceID, g.IDToIndex)
	if err != nil {
		logger.Error("[Graph] Failed to build interaction edges, skipping source", "workspace_id", workspaceID, "err", err)
		interactionEdges = nil
	}
	g.Edges = append(g.Edges, interactionEdges...)

	if b.opts.IncludeSharedTags {
		g.Edges = append(g.Edges, buildTagEdges(contacts)...)
	}

	g.Symmetrize()

	logger.Info("[Graph] Graph built", "workspace_id", workspaceID, "nodes", g.NumNodes(), "edges", g.NumEdges())

	return g, nil
}

// extractFeatures turns raw contact attributes into the fixed-width feature
// vector: influence score scaled by 1/100, tag count scaled by 1/10 (both
// clamped into [0,1]) and a 0/1 has-organization flag.
func extractFeatures(c common.Contact) []float64 {
	features := make([]float64, FeatureDim)
	features[0] = clamp01(c.InfluenceScore / 100.0)
	features[1] = clamp01(float64(len(c.Tags)) / 10.0)
	if c.Organization != "" {
		features[2] = 1.0
	}
	return features
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// buildInteractionEdges aggregates activity-log events inside the trailing
// window into per-node-pair counts. The current log attributes events to a
// single contact, so the pairs are self-loops until a second party is
// recorded; the edge weight is the event count.
func (b *Builder) buildInteractionEdges(ctx context.Context, workspaceID string, idToIndex map[string]int) ([]Edge, error) {
	since := time.Now().Add(-b.opts.ActivityWindow)
	entries, err := b.store.GetActivitySince(ctx, workspaceID, since)
	if err != nil {
		return nil, err
	}

	type pair struct{ src, dst int }
	counts := make(map[pair]int)
	order := make([]pair, 0)
	for _, entry := range entries {
		idx, ok := idToIndex[entry.ContactID]
		if !ok {
			continue
		}
		p := pair{src: idx, dst: idx}
		if _, seen := counts[p]; !seen {
			order = append(order, p)
		}
		counts[p]++
	}

	edges := make([]Edge, 0, len(order))
	for _, p := range order {
		count := counts[p]
		if count < b.opts.MinInteractionCount {
			continue
		}
		edges = append(edges, Edge{Src: p.src, Dst: p.dst, Weight: float64(count)})
	}
	return edges, nil
}

// buildTagEdges connects every pair of contacts sharing a descriptive tag.
// The weight is shared / max(|tagsA|, |tagsB|); a pair sharing several tags
// is emitted once per shared tag, accumulating through the additive edge
// semantics of the aggregation.
func buildTagEdges(contacts []common.Contact) []Edge {
	tagToContacts := make(map[string][]int)
	for idx, contact := range contacts {
		for _, tag := range contact.Tags {
			tagToContacts[tag] = append(tagToContacts[tag], idx)
		}
	}

	tags := make([]string, 0, len(tagToContacts))
	for tag := range tagToContacts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	tagSets := make([]map[string]struct{}, len(contacts))
	for idx, contact := range contacts {
		set := make(map[string]struct{}, len(contact.Tags))
		for _, tag := range contact.Tags {
			set[tag] = struct{}{}
		}
		tagSets[idx] = set
	}

	edges := make([]Edge, 0)
	for _, tag := range tags {
		indices := tagToContacts[tag]
		if len(indices) < 2 {
			continue
		}
		for i := 0; i < len(indices); i++ {
			for j := i + 1; j < len(indices); j++ {
				a, b := indices[i], indices[j]
				shared := 0
				for t := range tagSets[a] {
					if _, ok := tagSets[b][t]; ok {
						shared++
					}
				}
				if shared == 0 {
					continue
				}
				maxTags := len(tagSets[a])
				if len(tagSets[b]) > maxTags {
					maxTags = len(tagSets[b])
				}
				edges = append(edges, Edge{
					Src:    a,
					Dst:    b,
					Weight: float64(shared) / float64(maxTags),
				})
			}
		}
	}
	return edges
}
