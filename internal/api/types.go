package api

// ErrorResponse is returned on errors
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	// Command output is included when a terraform command failed.
	CommandStdOutput string `json:"commandStdOutput,omitempty"`
	CommandStdError  string `json:"commandStdError,omitempty"`
}

// AsyncAcceptedResponse is returned by the async script routes.
type AsyncAcceptedResponse struct {
	RequestID string `json:"requestId"`
}
