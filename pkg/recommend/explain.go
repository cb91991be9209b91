package recommend

// explanationFor maps a cosine similarity to the tiered human-readable
// reason attached to a recommendation when explanations are requested.
func explanationFor(similarity float64) string {
	switch {
	case similarity > 0.8:
		return "Very similar network patterns and professional interests"
	case similarity > 0.6:
		return "Similar connections and shared interests"
	case similarity > 0.4:
		return "Some overlapping connections"
	default:
		return "Potential connection based on network proximity"
	}
}
