package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/mattjoyce/tfboot/internal/dispatch"
	"github.com/mattjoyce/tfboot/internal/service"
	"github.com/mattjoyce/tfboot/internal/workspace"
)

// handleHealth handles GET /terraform-boot/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.health.Check(r.Context()))
}

// handleValidate handles GET /terraform-boot/directory/validate/{workspace_id}
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, err := s.directory.Validate(r.Context(), chi.URLParam(r, "workspace_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleDeploy handles POST /terraform-boot/directory/deploy/{workspace_id}
func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var req service.DeployRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.directory.Deploy(r.Context(), req, chi.URLParam(r, "workspace_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleDestroy handles POST /terraform-boot/directory/destroy/{workspace_id}
func (s *Server) handleDestroy(w http.ResponseWriter, r *http.Request) {
	var req service.DestroyRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.directory.Destroy(r.Context(), req, chi.URLParam(r, "workspace_id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleScriptDeploy handles POST /terraform-boot/script/deploy
func (s *Server) handleScriptDeploy(w http.ResponseWriter, r *http.Request) {
	var req service.ScriptDeployRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.scripts.DeployWithScripts(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleScriptDestroy handles POST /terraform-boot/script/destroy
func (s *Server) handleScriptDestroy(w http.ResponseWriter, r *http.Request) {
	var req service.ScriptDestroyRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.scripts.DestroyWithScripts(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleAsyncDeploy handles POST /terraform-boot/script/deploy/async
func (s *Server) handleAsyncDeploy(w http.ResponseWriter, r *http.Request) {
	var req service.AsyncScriptDeployRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = middleware.GetReqID(r.Context())
	}
	id, err := s.scripts.AsyncDeployWithScripts(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, AsyncAcceptedResponse{RequestID: id})
}

// handleAsyncDestroy handles POST /terraform-boot/script/destroy/async
func (s *Server) handleAsyncDestroy(w http.ResponseWriter, r *http.Request) {
	var req service.AsyncScriptDestroyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = middleware.GetReqID(r.Context())
	}
	id, err := s.scripts.AsyncDestroyWithScripts(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, AsyncAcceptedResponse{RequestID: id})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			s.writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			s.writeError(w, http.StatusBadRequest, "request body is required")
		default:
			s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		}
		return false
	}

	if err := s.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			details := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				details = append(details, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "request validation failed", Details: details})
			return false
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeServiceError maps service errors onto HTTP status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var execErr *service.ExecutionError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, workspace.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &execErr):
		respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:            err.Error(),
			CommandStdOutput: execErr.Stdout,
			CommandStdError:  execErr.Stderr,
		})
	case errors.Is(err, dispatch.ErrSaturated), errors.Is(err, dispatch.ErrClosed):
		w.Header().Set("Retry-After", "30")
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}
