package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK    bool   `json:"ok"`
	Cache string `json:"cache,omitempty"` // "up", "down" or "disabled"
	Store string `json:"store,omitempty"`
}

// ItemsResponse wraps list endpoints
type ItemsResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// SwitchRequest is the body of PUT /v1/switches/:key
type SwitchRequest struct {
	Enabled *bool `json:"enabled"`
}
