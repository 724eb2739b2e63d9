package api

import "net/http"

type route struct {
	method      string
	path        string
	operationID string
	summary     string
	tag         string
	body        string
	responses   map[string]string
	public      bool
}

var routes = []route{
	{
		method: "get", path: BasePath + "/health", operationID: "healthCheck",
		summary: "Validate a probe configuration", tag: "admin", public: true,
		responses: map[string]string{"200": "SystemStatus"},
	},
	{
		method: "get", path: BasePath + "/directory/validate/{workspace_id}", operationID: "validateFromDirectory",
		summary: "Run terraform validate in an existing workspace", tag: "directory",
		responses: map[string]string{"200": "ValidationResult", "404": "Error", "500": "Error"},
	},
	{
		method: "post", path: BasePath + "/directory/deploy/{workspace_id}", operationID: "deployFromDirectory",
		summary: "Run terraform plan or apply in an existing workspace", tag: "directory", body: "DeployRequest",
		responses: map[string]string{"200": "ExecutionResult", "400": "Error", "404": "Error", "422": "Error"},
	},
	{
		method: "post", path: BasePath + "/directory/destroy/{workspace_id}", operationID: "destroyFromDirectory",
		summary: "Run terraform destroy in an existing workspace", tag: "directory", body: "DestroyRequest",
		responses: map[string]string{"200": "ExecutionResult", "400": "Error", "404": "Error", "422": "Error"},
	},
	{
		method: "post", path: BasePath + "/script/deploy", operationID: "deployWithScripts",
		summary: "Deploy inline terraform scripts", tag: "script", body: "ScriptDeployRequest",
		responses: map[string]string{"200": "ExecutionResult", "400": "Error", "422": "Error"},
	},
	{
		method: "post", path: BasePath + "/script/destroy", operationID: "destroyWithScripts",
		summary: "Destroy resources described by inline scripts and state", tag: "script", body: "ScriptDestroyRequest",
		responses: map[string]string{"200": "ExecutionResult", "400": "Error", "422": "Error"},
	},
	{
		method: "post", path: BasePath + "/script/deploy/async", operationID: "asyncDeployWithScripts",
		summary: "Deploy inline scripts and POST the result to a webhook", tag: "script", body: "AsyncScriptDeployRequest",
		responses: map[string]string{"202": "AsyncAccepted", "400": "Error", "503": "Error"},
	},
	{
		method: "post", path: BasePath + "/script/destroy/async", operationID: "asyncDestroyWithScripts",
		summary: "Destroy via inline scripts and POST the result to a webhook", tag: "script", body: "AsyncScriptDestroyRequest",
		responses: map[string]string{"202": "AsyncAccepted", "400": "Error", "503": "Error"},
	},
}

// handleOpenAPI handles GET /openapi.json
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, buildOpenAPIDoc())
}

// buildOpenAPIDoc returns an OpenAPI 3.1 document for the terraform routes.
func buildOpenAPIDoc() map[string]any {
	paths := map[string]any{}
	for _, rt := range routes {
		item, ok := paths[rt.path].(map[string]any)
		if !ok {
			item = map[string]any{}
			paths[rt.path] = item
		}
		item[rt.method] = buildOperation(rt)
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   "Terraform Boot",
			"version": "1.0",
		},
		"paths": paths,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"BearerAuth": map[string]any{
					"type":   "http",
					"scheme": "bearer",
				},
			},
		},
	}
}

func buildOperation(rt route) map[string]any {
	responses := map[string]any{}
	for code, desc := range rt.responses {
		responses[code] = map[string]any{"description": desc}
	}

	op := map[string]any{
		"operationId": rt.operationID,
		"summary":     rt.summary,
		"tags":        []string{rt.tag},
		"responses":   responses,
	}
	if !rt.public {
		op["security"] = []any{map[string]any{"BearerAuth": []string{}}}
	}
	if rt.body != "" {
		op["requestBody"] = map[string]any{
			"required":    true,
			"description": rt.body,
			"content": map[string]any{
				"application/json": map[string]any{},
			},
		}
	}
	return op
}
