package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-connect/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse lists the state of each dependency
// @Description Readiness response
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ConnectorListResponse is the connector list with the loading flag
// @Description Connector list
type ConnectorListResponse struct {
	Connectors []*domain.Connector `json:"connectors"`
	Loading    bool                `json:"loading"`
}

// CreateConnectorResponse carries the generated id
// @Description Created connector id
type CreateConnectorResponse struct {
	ID string `json:"id" example:"6f1c2c1e-8d0e-4a51-9b1b-0d4c2f6f7a10"`
}

// SetStatusRequest changes a connector's status
// @Description Status change request
type SetStatusRequest struct {
	Status       domain.ConnectorStatus `json:"status" example:"connected"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// UpdateSyncStateRequest is a sync state patch with delivery options
// @Description Sync state update
type UpdateSyncStateRequest struct {
	domain.SyncStatePatch

	// Silent suppresses user notifications
	Silent bool `json:"silent,omitempty"`

	// MemoryOnly skips persistence; the update is lost on the next reload
	MemoryOnly bool `json:"memory_only,omitempty"`
}

// RefreshTokenResponse reports the outcome of a token refresh
// @Description Token refresh outcome
type RefreshTokenResponse struct {
	Refreshed bool `json:"refreshed"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the persistence backend and Redis when configured
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := ReadyResponse{Status: "ready", Checks: map[string]string{}}
	status := http.StatusOK
	for name, p := range s.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "not ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api documentation not available")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Connector endpoints

// handleListConnectors godoc
// @Summary      List connectors
// @Description  Lists connectors newest first, optionally filtered by category or status
// @Tags         Connectors
// @Produce      json
// @Security     BearerAuth
// @Param        category  query     string  false  "app, api or mcp"
// @Param        status    query     string  false  "Connector status"
// @Success      200       {object}  ConnectorListResponse
// @Failure      400       {object}  ErrorResponse
// @Router       /api/v1/connectors [get]
func (s *Server) handleListConnectors(w http.ResponseWriter, r *http.Request) {
	category := domain.ConnectorCategory(r.URL.Query().Get("category"))
	status := domain.ConnectorStatus(r.URL.Query().Get("status"))

	if category != "" && !category.Valid() {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	var list []*domain.Connector
	switch {
	case category != "":
		list = s.connectors.GetConnectorsByCategory(category)
	case status != "":
		list = s.connectors.GetConnectorsByStatus(status)
	default:
		list = s.connectors.GetConnectors()
	}

	// Both filters: narrow the category result by status
	if category != "" && status != "" {
		filtered := list[:0]
		for _, c := range list {
			if c.Status == status {
				filtered = append(filtered, c)
			}
		}
		list = filtered
	}
	if list == nil {
		list = []*domain.Connector{}
	}

	writeJSON(w, http.StatusOK, ConnectorListResponse{
		Connectors: list,
		Loading:    s.connectors.Loading(),
	})
}

// handleCreateConnector godoc
// @Summary      Add connector
// @Tags         Connectors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      domain.ConnectorInput  true  "Connector"
// @Success      201      {object}  CreateConnectorResponse
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/v1/connectors [post]
func (s *Server) handleCreateConnector(w http.ResponseWriter, r *http.Request) {
	var input domain.ConnectorInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := s.connectors.AddConnector(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreateConnectorResponse{ID: id})
}

// handleGetConnector godoc
// @Summary      Get connector
// @Tags         Connectors
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Connector ID"
// @Success      200  {object}  domain.Connector
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/connectors/{id} [get]
func (s *Server) handleGetConnector(w http.ResponseWriter, r *http.Request) {
	connector, ok := s.connectors.GetConnector(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	writeJSON(w, http.StatusOK, connector)
}

// handleUpdateConnector godoc
// @Summary      Update connector
// @Description  Merges the given fields into the connector
// @Tags         Connectors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                 true  "Connector ID"
// @Param        request  body      domain.ConnectorPatch  true  "Fields to change"
// @Success      200      {object}  domain.Connector
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse  "Status transition not allowed"
// @Router       /api/v1/connectors/{id} [patch]
func (s *Server) handleUpdateConnector(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var patch domain.ConnectorPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.connectors.UpdateConnector(r.Context(), id, patch); err != nil {
		writeServiceError(w, err)
		return
	}
	s.writeConnector(w, id)
}

// handleDeleteConnector godoc
// @Summary      Delete connector
// @Description  Deletes the connector and its sync state
// @Tags         Connectors
// @Security     BearerAuth
// @Param        id   path  string  true  "Connector ID"
// @Success      204
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/connectors/{id} [delete]
func (s *Server) handleDeleteConnector(w http.ResponseWriter, r *http.Request) {
	if err := s.connectors.DeleteConnector(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetStatus godoc
// @Summary      Set connector status
// @Tags         Connectors
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string            true  "Connector ID"
// @Param        request  body      SetStatusRequest  true  "New status"
// @Success      200      {object}  domain.Connector
// @Failure      400      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Router       /api/v1/connectors/{id}/status [put]
func (s *Server) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := s.connectors.SetConnectorStatus(r.Context(), id, req.Status, req.ErrorMessage); err != nil {
		writeServiceError(w, err)
		return
	}
	s.writeConnector(w, id)
}

// handleRefreshToken godoc
// @Summary      Refresh access token
// @Description  Asks the provider for a new access token. Failures leave the connector unchanged.
// @Tags         Credentials
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Connector ID"
// @Success      200  {object}  RefreshTokenResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/connectors/{id}/refresh-token [post]
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.connectors.GetConnector(id); !ok {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	writeJSON(w, http.StatusOK, RefreshTokenResponse{
		Refreshed: s.connectors.RefreshConnectorToken(r.Context(), id),
	})
}

// handleValidateTokens godoc
// @Summary      Validate connector tokens
// @Description  Checks every connected app connector and refreshes or expires bad tokens. Returns when all checks have settled.
// @Tags         Credentials
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /api/v1/connectors/validate [post]
func (s *Server) handleValidateTokens(w http.ResponseWriter, r *http.Request) {
	s.connectors.ValidateConnectorTokens(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReloadConnectors godoc
// @Summary      Reload connectors
// @Description  Reloads connectors and sync states from persistence
// @Tags         Connectors
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ConnectorListResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/v1/connectors/reload [post]
func (s *Server) handleReloadConnectors(w http.ResponseWriter, r *http.Request) {
	if err := s.connectors.RefreshConnectors(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConnectorListResponse{
		Connectors: s.connectors.GetConnectors(),
		Loading:    s.connectors.Loading(),
	})
}

// Sync state endpoints

// handleGetSyncState godoc
// @Summary      Get sync state
// @Tags         Sync
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Connector ID"
// @Success      200  {object}  domain.SyncState
// @Failure      404  {object}  ErrorResponse
// @Router       /api/v1/connectors/{id}/sync [get]
func (s *Server) handleGetSyncState(w http.ResponseWriter, r *http.Request) {
	state, ok := s.connectors.GetSyncState(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "sync state not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleUpdateSyncState godoc
// @Summary      Update sync state
// @Description  Merges a sync progress patch. Created with defaults on first use.
// @Tags         Sync
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                  true  "Connector ID"
// @Param        request  body      UpdateSyncStateRequest  true  "Patch"
// @Success      200      {object}  domain.SyncState
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/v1/connectors/{id}/sync [patch]
func (s *Server) handleUpdateSyncState(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req UpdateSyncStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := domain.SyncUpdateOptions{}
	if req.Silent {
		opts.Notification = domain.NotifySilent
	}
	if req.MemoryOnly {
		opts.Durability = domain.PersistMemoryOnly
	}

	if err := s.connectors.UpdateSyncState(r.Context(), id, req.SyncStatePatch, opts); err != nil {
		writeServiceError(w, err)
		return
	}

	state, ok := s.connectors.GetSyncState(id)
	if !ok {
		writeError(w, http.StatusNotFound, "sync state not found")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Helpers

func (s *Server) writeConnector(w http.ResponseWriter, id string) {
	connector, ok := s.connectors.GetConnector(id)
	if !ok {
		writeError(w, http.StatusNotFound, "connector not found")
		return
	}
	writeJSON(w, http.StatusOK, connector)
}

// writeServiceError maps domain errors to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
