package result

// ExecutionResult is returned to callers of deploy and destroy, either in the
// synchronous response or in the webhook callback body.
type ExecutionResult struct {
	// RequestID correlates an async callback with the request that started it.
	RequestID           string  `json:"requestId,omitempty"`
	CommandStdOutput    string  `json:"commandStdOutput"`
	CommandStdError     string  `json:"commandStdError"`
	IsCommandSuccessful bool    `json:"isCommandSuccessful"`
	TerraformState      *string `json:"terraformState"`
	// ImportantFileContentMap holds workspace files that are neither
	// configuration nor state, keyed by file name.
	ImportantFileContentMap map[string]string `json:"importantFileContentMap"`
}

// ValidationResult is the decoded outcome of `terraform validate -json`.
type ValidationResult struct {
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Diagnostic is one validation finding.
type Diagnostic struct {
	Severity string `json:"severity"`
	Summary  string `json:"summary"`
	Detail   string `json:"detail,omitempty"`
}
