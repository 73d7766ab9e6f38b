package api

// ContainerResponse is the payload for /api/produce, /api/consume and /api/view.
type ContainerResponse struct {
	Container []int64 `json:"container"`
	Message   string  `json:"message,omitempty"`
	// Policy is "queue" or "stack" on a consume that removed an item.
	Policy string `json:"policy,omitempty"`
	// Consumed is the value removed by a consume.
	Consumed *int64 `json:"consumed,omitempty"`
}

// StatusResponse is the payload for GET /api/v1/status.
type StatusResponse struct {
	Size       int     `json:"size"`
	Threshold  int     `json:"threshold"`
	TTLSeconds float64 `json:"ttl_seconds"`
	// Policy is the policy the next consume would apply: queue | stack | none.
	Policy      string  `json:"policy"`
	Empty       bool    `json:"empty"`
	Container   []int64 `json:"container"`
	GeneratedAt string  `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
