package common

import "time"

// Contact represents one contact record inside a workspace. Contacts are the
// nodes of the relationship graph; the ID is the stable external identifier
// used by every collaborator of this subsystem.
//
// InfluenceScore is an importance measure on a 0-100 scale maintained by the
// surrounding CRM layer. Tags are free-form descriptive labels; Organization
// is empty when the contact has none.
type Contact struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"first_name"`
	LastName       string   `json:"last_name"`
	Email          string   `json:"email"`
	Organization   string   `json:"organization"`
	InfluenceScore float64  `json:"influence_score"`
	Tags           []string `json:"tags"`
	Notes          string   `json:"notes"`
}

// Name returns the display name of the contact, or "Unknown" when
// both name parts are empty.
func (c Contact) Name() string {
	name := c.FirstName
	if c.LastName != "" {
		if name != "" {
			name += " "
		}
		name += c.LastName
	}
	if name == "" {
		return "Unknown"
	}
	return name
}

// ActivityEntry is one row of the per-workspace interaction log.
type ActivityEntry struct {
	ContactID    string    `json:"contact_id"`
	ActivityType string    `json:"activity_type"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Recommendation is one ranked "who should you talk to next" suggestion.
// SimilarityScore is the cosine similarity in embedding space ([-1,1]);
// Confidence is derived from it and bounded; Rank is 1-based and dense.
type Recommendation struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Organization    string  `json:"organization"`
	SimilarityScore float64 `json:"similarity_score"`
	Confidence      float64 `json:"confidence"`
	Rank            int     `json:"rank"`
	Reason          string  `json:"reason,omitempty"`
}

// RecommendationResult is the full response of a recommendation query.
// Error is set (and Recommendations empty) when the query could not be
// answered; the service never returns both.
type RecommendationResult struct {
	Recommendations []Recommendation `json:"recommendations"`
	Method          string           `json:"method"`
	WorkspaceID     string           `json:"workspace_id,omitempty"`
	ContactID       string           `json:"contact_id,omitempty"`
	Accuracy        float64          `json:"accuracy,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at,omitempty"`
	Error           string           `json:"error,omitempty"`
}

// TrainingReport summarizes one completed training run.
type TrainingReport struct {
	Status      string    `json:"status"`
	WorkspaceID string    `json:"workspace_id"`
	Nodes       int       `json:"nodes"`
	Edges       int       `json:"edges"`
	Epochs      int       `json:"epochs"`
	FinalLoss   float64   `json:"final_loss"`
	TrainedAt   time.Time `json:"trained_at"`
}

// ModelStatus reports whether a trained model exists for a workspace and
// where it lives. Status is one of "ready" (cached in process),
// "saved_to_disk" (persisted weights only) or "not_trained".
type ModelStatus struct {
	WorkspaceID string     `json:"workspace_id"`
	IsTrained   bool       `json:"is_trained"`
	LastTrained *time.Time `json:"last_trained,omitempty"`
	Status      string     `json:"status"`
	Message     string     `json:"message,omitempty"`
}

// SimilarContact is one pgvector similarity hit from the semantic
// embedding table.
type SimilarContact struct {
	ContactID  string    `json:"contact_id"`
	Similarity float64   `json:"similarity"`
	UpdatedAt  time.Time `json:"updated_at"`
}
