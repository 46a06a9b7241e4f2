package recommend

// Response is the structured outcome of Recommend. It is always produced,
// whether the recommendation succeeded or not.
type Response struct {
	Success bool `json:"success"`
	// RecommendedPrice is null when no price could be recommended.
	RecommendedPrice *float64 `json:"recommendedPrice"`
	// Confidence is a percentage with one decimal.
	Confidence  float64        `json:"confidence"`
	Explanation string         `json:"explanation"`
	Method      string         `json:"method"`
	Details     map[string]any `json:"details"`
	Error       string         `json:"error,omitempty"`
	ErrorKind   Kind           `json:"errorKind,omitempty"`
	RequestID   string         `json:"requestId"`
}

// similarRoutes extracts the number of supporting routes from the details.
func (r Response) similarRoutes() int {
	for _, k := range []string{"num_routes", "num_similar_distance_routes", "similar_routes_found"} {
		if n, ok := r.Details[k].(int); ok {
			return n
		}
	}
	return 0
}
