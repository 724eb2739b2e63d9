package service

// DeployRequest runs plan or apply against an existing workspace.
type DeployRequest struct {
	IsPlanOnly   bool              `json:"isPlanOnly"`
	Variables    map[string]string `json:"variables"`
	EnvVariables map[string]string `json:"envVariables"`
}

// DestroyRequest runs destroy against an existing workspace.
type DestroyRequest struct {
	Variables    map[string]string `json:"variables"`
	EnvVariables map[string]string `json:"envVariables"`
}

// ScriptDeployRequest deploys inline configuration.
type ScriptDeployRequest struct {
	DeployRequest
	Scripts []string `json:"scripts" validate:"required,min=1"`
}

// ScriptDestroyRequest destroys infrastructure described by inline
// configuration and its prior state.
type ScriptDestroyRequest struct {
	DestroyRequest
	Scripts []string `json:"scripts" validate:"required,min=1"`
	TfState string   `json:"tfState" validate:"required"`
}

// WebhookConfig names the callback that receives an async result.
type WebhookConfig struct {
	URL string `json:"url" validate:"required,http_url"`
}

// AsyncScriptDeployRequest is a ScriptDeployRequest whose result is
// delivered to a webhook.
type AsyncScriptDeployRequest struct {
	ScriptDeployRequest
	// RequestID is echoed in the callback. Generated when empty.
	RequestID     string        `json:"requestId,omitempty"`
	WebhookConfig WebhookConfig `json:"webhookConfig"`
}

// AsyncScriptDestroyRequest is a ScriptDestroyRequest whose result is
// delivered to a webhook.
type AsyncScriptDestroyRequest struct {
	ScriptDestroyRequest
	RequestID     string        `json:"requestId,omitempty"`
	WebhookConfig WebhookConfig `json:"webhookConfig"`
}
