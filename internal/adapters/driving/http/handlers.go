package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/swaggo/swag"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
	"github.com/grantlab/grantlab-core/internal/core/ports/driving"
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

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyResponse reports per-backend storage health.
// @Description Readiness status with per-backend storage health
type readyResponse struct {
	Status   string            `json:"status" example:"ready"`
	Backends map[string]string `json:"backends"`
	Janitor  string            `json:"janitor,omitempty" example:"running"`
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings every storage backend. A durable backend being down degrades the status without failing it; the redundancy layer covers the gap.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  readyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := readyResponse{
		Status:   "ready",
		Backends: make(map[string]string, len(s.backends)),
	}
	for _, b := range s.backends {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		if err := b.Ping(ctx); err != nil {
			resp.Backends[b.Name()] = err.Error()
			resp.Status = "degraded"
		} else {
			resp.Backends[b.Name()] = "ok"
		}
		cancel()
	}
	if s.janitor != nil {
		if s.janitor.Health().Running {
			resp.Janitor = "running"
		} else {
			resp.Janitor = "stopped"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// handleSwaggerDoc serves the generated OpenAPI document.
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "openapi document unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(doc))
}

// Flow endpoints

// credentialsRequest carries the full client configuration, secrets
// included. The domain type never serializes secrets, so the wire shape
// is defined here.
// @Description OAuth client configuration for a flow session
type credentialsRequest struct {
	EnvironmentID   string                 `json:"environment_id" example:"b7d4c3f0-8a21-4f4b-9ec1-5a0c6d2f91e3"`
	ClientID        string                 `json:"client_id" example:"4f1a8b2c-6d3e-4c5f-8a9b-0c1d2e3f4a5b"`
	ClientSecret    string                 `json:"client_secret,omitempty"`
	RedirectURI     string                 `json:"redirect_uri,omitempty" example:"https://localhost:3000/callback"`
	Scopes          []string               `json:"scopes,omitempty"`
	TokenAuthMethod domain.TokenAuthMethod `json:"token_auth_method,omitempty" example:"client_secret_basic"`
	PKCEMode        domain.PKCEMode        `json:"pkce_mode,omitempty" example:"required"`
	ResponseType    string                 `json:"response_type,omitempty" example:"code"`
	ResponseMode    string                 `json:"response_mode,omitempty"`
	Audience        string                 `json:"audience,omitempty"`
	LoginHint       string                 `json:"login_hint,omitempty"`
	ManagementToken string                 `json:"management_token,omitempty"`
}

func (cr credentialsRequest) toDomain() domain.FlowCredentials {
	return domain.FlowCredentials{
		EnvironmentID:   cr.EnvironmentID,
		ClientID:        cr.ClientID,
		ClientSecret:    cr.ClientSecret,
		RedirectURI:     cr.RedirectURI,
		Scopes:          cr.Scopes,
		TokenAuthMethod: cr.TokenAuthMethod,
		PKCEMode:        cr.PKCEMode,
		ResponseType:    cr.ResponseType,
		ResponseMode:    cr.ResponseMode,
		Audience:        cr.Audience,
		LoginHint:       cr.LoginHint,
		ManagementToken: cr.ManagementToken,
	}
}

// createFlowRequest starts a new flow session.
// @Description Request to create a new flow session
type createFlowRequest struct {
	FlowType    domain.FlowType    `json:"flow_type" example:"authorization-code"`
	SpecVersion domain.SpecVersion `json:"spec_version" example:"oidc"`
	Credentials credentialsRequest `json:"credentials"`
}

// handleCreateFlow godoc
// @Summary      Create flow session
// @Description  Start a new flow session for a grant type, positioned at the configuration step
// @Tags         Flows
// @Accept       json
// @Produce      json
// @Param        request  body      createFlowRequest  true  "Flow type, spec version and client configuration"
// @Success      201      {object}  driving.FlowSnapshot
// @Failure      400      {object}  ErrorResponse  "Invalid flow type, spec version or credentials"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /flows [post]
func (s *Server) handleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var req createFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.flowService.Create(r.Context(), driving.CreateFlowRequest{
		FlowType:    req.FlowType,
		SpecVersion: req.SpecVersion,
		Credentials: req.Credentials.toDomain(),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snap)
}

// handleGetFlow godoc
// @Summary      Get flow session
// @Description  Get the current state of a flow session
// @Tags         Flows
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.FlowSnapshot
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      410  {object}  ErrorResponse  "Session expired"
// @Router       /flows/{id} [get]
func (s *Server) handleGetFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	snap, err := s.flowService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleDeleteFlow godoc
// @Summary      Delete flow session
// @Description  Delete a flow session, cancel its polling run and clear its stored artifacts
// @Tags         Flows
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id} [delete]
func (s *Server) handleDeleteFlow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	if err := s.flowService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleGoNext godoc
// @Summary      Advance one step
// @Description  Move to the next step when the current step's completion and validation allow it
// @Tags         Flows
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.FlowSnapshot
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      409  {object}  ErrorResponse  "Current step incomplete or blocked by validation errors"
// @Router       /flows/{id}/next [post]
func (s *Server) handleGoNext(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.flowService.GoNext)
}

// handleGoPrevious godoc
// @Summary      Go back one step
// @Description  Move to the previous step; always permitted above step zero
// @Tags         Flows
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.FlowSnapshot
// @Failure      400  {object}  ErrorResponse  "Already at the first step"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/previous [post]
func (s *Server) handleGoPrevious(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.flowService.GoPrevious)
}

// handleGoToStep godoc
// @Summary      Jump to step
// @Description  Jump to a specific step index, validated against the flow's topology
// @Tags         Flows
// @Produce      json
// @Param        id     path      string  true  "Session ID"
// @Param        index  path      int     true  "Step index"
// @Success      200    {object}  driving.FlowSnapshot
// @Failure      400    {object}  ErrorResponse  "Index out of range"
// @Failure      404    {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/steps/{index} [post]
func (s *Server) handleGoToStep(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "step index must be a number")
		return
	}

	snap, err := s.flowService.GoToStep(r.Context(), id, index)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleMarkStepComplete godoc
// @Summary      Mark step complete
// @Description  Record the current step as complete when its completion predicate holds. Idempotent.
// @Tags         Flows
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.FlowSnapshot
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      409  {object}  ErrorResponse  "Step's completion requirements not met"
// @Router       /flows/{id}/complete [post]
func (s *Server) handleMarkStepComplete(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.flowService.MarkStepComplete)
}

// handleResetFlow godoc
// @Summary      Reset flow
// @Description  Return the session to step zero, clearing flow state and stored artifacts. Credentials survive.
// @Tags         Flows
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.FlowSnapshot
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/reset [post]
func (s *Server) handleResetFlow(w http.ResponseWriter, r *http.Request) {
	s.navigate(w, r, s.flowService.Reset)
}

// changeFlowTypeRequest selects the new grant type.
// @Description New grant type for the session
type changeFlowTypeRequest struct {
	FlowType domain.FlowType `json:"flow_type" example:"device-code"`
}

// handleChangeFlowType godoc
// @Summary      Change flow type
// @Description  Restart the session under a different grant type. Token artifacts of both the old and the new type are cleared so neither flow shows the other's tokens.
// @Tags         Flows
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Session ID"
// @Param        request  body      changeFlowTypeRequest  true  "New flow type"
// @Success      200      {object}  driving.FlowSnapshot
// @Failure      400      {object}  ErrorResponse  "Unknown flow type"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/flow-type [put]
func (s *Server) handleChangeFlowType(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	var req changeFlowTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.flowService.ChangeFlowType(r.Context(), id, req.FlowType)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleUpdateCredentials godoc
// @Summary      Update credentials
// @Description  Replace the session's client configuration wholesale. A topology-changing update (PKCE toggled, flow requirements changed) restarts the wizard.
// @Tags         Flows
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Session ID"
// @Param        request  body      credentialsRequest  true  "Full client configuration"
// @Success      200      {object}  driving.FlowSnapshot
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/credentials [put]
func (s *Server) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := s.flowService.UpdateCredentials(r.Context(), id, req.toDomain())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Pre-flight endpoints

// handleValidate godoc
// @Summary      Validate configuration
// @Description  Run the pre-flight check pipeline for the session's flow type. Local checks always run; provider-side checks degrade to a warning when the management API is unreachable.
// @Tags         Validation
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.ValidationReport
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/validate [post]
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	report, err := s.preflightService.Validate(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleApplyFix godoc
// @Summary      Apply suggested fix
// @Description  Apply one fix from a previous validation report to the session's credentials and re-validate
// @Tags         Validation
// @Accept       json
// @Produce      json
// @Param        id       path      string                true  "Session ID"
// @Param        request  body      domain.FixSuggestion  true  "The fix to apply, as returned by validate"
// @Success      200      {object}  domain.ValidationReport
// @Failure      400      {object}  ErrorResponse  "Unknown fix kind"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/fixes [post]
func (s *Server) handleApplyFix(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	var fix domain.FixSuggestion
	if err := json.NewDecoder(r.Body).Decode(&fix); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := s.preflightService.ApplyFix(r.Context(), id, fix)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// Authorization endpoints

// handleGeneratePKCE godoc
// @Summary      Generate PKCE material
// @Description  Create and persist a fresh verifier/challenge pair (S256). Replaces any previous pair; a discarded verifier is never reused.
// @Tags         Authorization
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.PKCEBundle
// @Failure      400  {object}  ErrorResponse  "Flow type does not use PKCE"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/pkce [post]
func (s *Server) handleGeneratePKCE(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	bundle, err := s.authorizeService.GeneratePKCE(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// handleBuildAuthorizationURL godoc
// @Summary      Build authorization URL
// @Description  Assemble the authorization request URL with fresh state and nonce. Invalidates any authorization code from an earlier redirect.
// @Tags         Authorization
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.AuthorizationURLResponse
// @Failure      400  {object}  ErrorResponse  "Flow type has no authorization request"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      502  {object}  ErrorResponse  "Endpoint resolution failed"
// @Router       /flows/{id}/authorization-url [post]
func (s *Server) handleBuildAuthorizationURL(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	resp, err := s.authorizeService.BuildAuthorizationURL(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// callbackRequest carries a redirect-back URL for ingestion.
// @Description The full callback URL the provider redirected to
type callbackRequest struct {
	URL string `json:"url" example:"https://localhost:3000/callback?code=xyz&state=abc"`
}

// handleIngestCallback godoc
// @Summary      Ingest callback URL
// @Description  Parse a redirect-back URL's query string, check the state parameter and record the authorization code. A mismatched state is rejected and nothing is recorded.
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Session ID"
// @Param        request  body      callbackRequest  true  "Callback URL"
// @Success      200      {object}  driving.FlowSnapshot
// @Failure      400      {object}  ErrorResponse  "State mismatch or unparseable URL"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/callback [post]
func (s *Server) handleIngestCallback(w http.ResponseWriter, r *http.Request) {
	s.ingest(w, r, s.authorizeService.IngestCallback)
}

// handleIngestFragment godoc
// @Summary      Ingest fragment URL
// @Description  Parse a redirect-back URL's fragment for implicit and hybrid flows, check state and record tokens and code
// @Tags         Authorization
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Session ID"
// @Param        request  body      callbackRequest  true  "Callback URL with fragment"
// @Success      200      {object}  driving.FlowSnapshot
// @Failure      400      {object}  ErrorResponse  "State mismatch or missing fragment payload"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/fragment [post]
func (s *Server) handleIngestFragment(w http.ResponseWriter, r *http.Request) {
	s.ingest(w, r, s.authorizeService.IngestFragment)
}

// Token endpoints

// handleExchangeCode godoc
// @Summary      Exchange authorization code
// @Description  Trade the session's authorization code for tokens at the token endpoint. Refuses to overwrite existing tokens; reset the flow or refresh instead.
// @Tags         Tokens
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.TokenBundle
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      409  {object}  ErrorResponse  "No code yet, or tokens already present"
// @Failure      502  {object}  ErrorResponse  "Provider rejected the exchange"
// @Router       /flows/{id}/token [post]
func (s *Server) handleExchangeCode(w http.ResponseWriter, r *http.Request) {
	s.tokenOp(w, r, s.tokenService.ExchangeCode)
}

// handleRefreshToken godoc
// @Summary      Refresh tokens
// @Description  Trade the stored refresh token for a new bundle. This is the one sanctioned token overwrite besides a restart.
// @Tags         Tokens
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.TokenBundle
// @Failure      400  {object}  ErrorResponse  "No refresh token stored"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      502  {object}  ErrorResponse  "Provider rejected the refresh"
// @Router       /flows/{id}/token/refresh [post]
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	s.tokenOp(w, r, s.tokenService.Refresh)
}

// handleClientCredentials godoc
// @Summary      Client credentials grant
// @Description  Perform the client-credentials grant with the session's client secret
// @Tags         Tokens
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.TokenBundle
// @Failure      400  {object}  ErrorResponse  "Wrong flow type or no client secret"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      409  {object}  ErrorResponse  "Tokens already present"
// @Failure      502  {object}  ErrorResponse  "Provider rejected the grant"
// @Router       /flows/{id}/token/client-credentials [post]
func (s *Server) handleClientCredentials(w http.ResponseWriter, r *http.Request) {
	s.tokenOp(w, r, s.tokenService.ClientCredentials)
}

// handleVerifyIDToken godoc
// @Summary      Verify ID token
// @Description  Verify the stored ID token's signature against the issuer's keys and cross-check the nonce. Degrades to an unverified claim decode when the keys are unreachable, flagged as such.
// @Tags         Tokens
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.IDTokenResult
// @Failure      400  {object}  ErrorResponse  "No ID token stored"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/token/verify [post]
func (s *Server) handleVerifyIDToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	result, err := s.tokenService.VerifyIDToken(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleIntrospect godoc
// @Summary      Introspect token
// @Description  Call the introspection endpoint for the stored access token. With no token or no introspection endpoint the result degrades gracefully instead of failing.
// @Tags         Tokens
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.IntrospectionResult
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/introspect [post]
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	result, err := s.tokenService.Introspect(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleUserInfo godoc
// @Summary      Fetch userinfo
// @Description  Fetch the userinfo payload with the stored access token and record it on the session
// @Tags         Tokens
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  ErrorResponse  "No access token stored"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      502  {object}  ErrorResponse  "Userinfo endpoint rejected the token"
// @Router       /flows/{id}/userinfo [post]
func (s *Server) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	claims, err := s.tokenService.UserInfo(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, claims)
}

// Device endpoints

// handleRequestDeviceCode godoc
// @Summary      Request device code
// @Description  Obtain a fresh device/user code pair. Any active polling run is cancelled and has fully stopped before the new code exists, so an old loop can never consume it.
// @Tags         Device
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  domain.DeviceCodeBundle
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      502  {object}  ErrorResponse  "Device authorization endpoint failed"
// @Router       /flows/{id}/device/code [post]
func (s *Server) handleRequestDeviceCode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	bundle, err := s.deviceService.RequestDeviceCode(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

// handleStartPolling godoc
// @Summary      Start device polling
// @Description  Begin the polling run for the active device code. Starting while a run is active is a no-op.
// @Tags         Device
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      202  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      409  {object}  ErrorResponse  "No device code requested yet"
// @Failure      410  {object}  ErrorResponse  "Device code expired"
// @Router       /flows/{id}/device/poll [post]
func (s *Server) handleStartPolling(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	if err := s.deviceService.StartPolling(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "polling"})
}

// handleStopPolling godoc
// @Summary      Stop device polling
// @Description  Cancel the active polling run. Idempotent; safe with no run.
// @Tags         Device
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/device/poll [delete]
func (s *Server) handleStopPolling(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	if err := s.deviceService.StopPolling(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// handlePollingStatus godoc
// @Summary      Device polling status
// @Description  Report the polling run's state: attempt count, current interval, last protocol answer and device-code countdown
// @Tags         Device
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.DevicePollStatus
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Router       /flows/{id}/device/poll [get]
func (s *Server) handlePollingStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	status, err := s.deviceService.PollingStatus(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Redirectless endpoints

// handleRedirectlessStart godoc
// @Summary      Start redirectless authorization
// @Description  Post the authorization request directly instead of redirecting a browser, then dispatch on the provider-reported status
// @Tags         Redirectless
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.RedirectlessOutcome
// @Failure      400  {object}  ErrorResponse  "Wrong flow type"
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      502  {object}  ErrorResponse  "Provider answered an unknown status"
// @Router       /flows/{id}/redirectless/start [post]
func (s *Server) handleRedirectlessStart(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	outcome, err := s.redirectlessService.Start(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// handleRedirectlessCredentials godoc
// @Summary      Submit redirectless credentials
// @Description  Supply username/password for an attempt that asked for them. The password-change branch is handled internally: provide new_password when the provider demands it.
// @Tags         Redirectless
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Session ID"
// @Param        request  body      driving.CredentialsRequest  true  "Login credentials"
// @Success      200      {object}  driving.RedirectlessOutcome
// @Failure      400      {object}  ErrorResponse  "Missing username or password"
// @Failure      404      {object}  ErrorResponse  "Session not found"
// @Failure      409      {object}  ErrorResponse  "No active redirectless attempt"
// @Router       /flows/{id}/redirectless/credentials [post]
func (s *Server) handleRedirectlessCredentials(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	var req driving.CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := s.redirectlessService.SubmitCredentials(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// handleRedirectlessResume godoc
// @Summary      Resume redirectless authorization
// @Description  Continue an attempt the provider marked ready to resume, extracting the code or tokens from the final response
// @Tags         Redirectless
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  driving.RedirectlessOutcome
// @Failure      404  {object}  ErrorResponse  "Session not found"
// @Failure      409  {object}  ErrorResponse  "No active redirectless attempt"
// @Failure      502  {object}  ErrorResponse  "Resume answered an unusable payload"
// @Router       /flows/{id}/redirectless/resume [post]
func (s *Server) handleRedirectlessResume(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	outcome, err := s.redirectlessService.Resume(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// Environment override endpoints

// endpointOverride pins an environment's endpoint set, bypassing
// discovery. Field names follow the OIDC discovery document.
// @Description Pinned endpoint set for one environment
type endpointOverride struct {
	Issuer                string `json:"issuer,omitempty" example:"https://auth.example.test/env-1/as"`
	AuthorizationEndpoint string `json:"authorization_endpoint,omitempty"`
	TokenEndpoint         string `json:"token_endpoint,omitempty"`
	DeviceAuthEndpoint    string `json:"device_authorization_endpoint,omitempty"`
	IntrospectionEndpoint string `json:"introspection_endpoint,omitempty"`
	UserInfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	JWKSEndpoint          string `json:"jwks_uri,omitempty"`
}

func (e endpointOverride) toDriven() *driven.Endpoints {
	return &driven.Endpoints{
		Issuer:                e.Issuer,
		AuthorizationEndpoint: e.AuthorizationEndpoint,
		TokenEndpoint:         e.TokenEndpoint,
		DeviceAuthEndpoint:    e.DeviceAuthEndpoint,
		IntrospectionEndpoint: e.IntrospectionEndpoint,
		UserInfoEndpoint:      e.UserInfoEndpoint,
		JWKSEndpoint:          e.JWKSEndpoint,
	}
}

func overrideFromDriven(e *driven.Endpoints) endpointOverride {
	return endpointOverride{
		Issuer:                e.Issuer,
		AuthorizationEndpoint: e.AuthorizationEndpoint,
		TokenEndpoint:         e.TokenEndpoint,
		DeviceAuthEndpoint:    e.DeviceAuthEndpoint,
		IntrospectionEndpoint: e.IntrospectionEndpoint,
		UserInfoEndpoint:      e.UserInfoEndpoint,
		JWKSEndpoint:          e.JWKSEndpoint,
	}
}

// handleListOverrides godoc
// @Summary      List endpoint overrides
// @Description  List every environment with a pinned endpoint set
// @Tags         Environments
// @Produce      json
// @Success      200  {object}  map[string]endpointOverride
// @Router       /environments/overrides [get]
func (s *Server) handleListOverrides(w http.ResponseWriter, r *http.Request) {
	pinned := s.overrides.List()
	resp := make(map[string]endpointOverride, len(pinned))
	for id, e := range pinned {
		resp[id] = overrideFromDriven(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSetOverride godoc
// @Summary      Pin endpoint override
// @Description  Pin an endpoint set for an environment so resolution bypasses discovery. Missing endpoints are derived from the issuer's conventional layout.
// @Tags         Environments
// @Accept       json
// @Produce      json
// @Param        id       path      string            true  "Environment ID"
// @Param        request  body      endpointOverride  true  "Endpoint set"
// @Success      200      {object}  endpointOverride
// @Failure      400      {object}  ErrorResponse  "Neither issuer nor explicit endpoints given"
// @Router       /environments/{id}/overrides [put]
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing environment id")
		return
	}
	var req endpointOverride
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Issuer == "" && (req.AuthorizationEndpoint == "" || req.TokenEndpoint == "") {
		writeError(w, http.StatusBadRequest, "an override needs an issuer or explicit authorization and token endpoints")
		return
	}

	s.overrides.Set(id, req.toDriven())
	writeJSON(w, http.StatusOK, req)
}

// handleRemoveOverride godoc
// @Summary      Remove endpoint override
// @Description  Drop an environment's pin; later resolutions go through discovery again
// @Tags         Environments
// @Produce      json
// @Param        id   path      string  true  "Environment ID"
// @Success      200  {object}  StatusResponse
// @Router       /environments/{id}/overrides [delete]
func (s *Server) handleRemoveOverride(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing environment id")
		return
	}

	s.overrides.Remove(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// Helper functions

// navigate runs one snapshot-returning session operation.
func (s *Server) navigate(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*driving.FlowSnapshot, error)) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	snap, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// ingest decodes a callback URL body and runs one ingestion operation.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) (*driving.FlowSnapshot, error)) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	snap, err := op(r.Context(), id, req.URL)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// tokenOp runs one bundle-returning token operation.
func (s *Server) tokenOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*domain.TokenBundle, error)) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing session id")
		return
	}

	bundle, err := op(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bundle)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error's sentinel onto an HTTP status
// and surfaces the error text verbatim: the whole point of this tool is
// showing what actually happened.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	var oauthErr *domain.OAuthError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrDeviceCodeExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidStep),
		errors.Is(err, domain.ErrStateMismatch):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrStepIncomplete),
		errors.Is(err, domain.ErrStepBlocked),
		errors.Is(err, domain.ErrPollingActive),
		errors.Is(err, domain.ErrNoPKCE),
		errors.Is(err, domain.ErrStalePKCE),
		errors.Is(err, domain.ErrNoDeviceCode),
		errors.Is(err, domain.ErrNoActiveAuth):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden
	case errors.As(err, &oauthErr), errors.Is(err, domain.ErrUnexpectedStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
