package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DirectAuthGateway = (*DirectAuthClient)(nil)

// Flow API content types. The provider selects the action from the
// content type, not the path.
const (
	contentTypeCredentialCheck = "application/vnd.pingidentity.usernamePassword.check+json"
	contentTypePasswordReset   = "application/vnd.pingidentity.password.reset+json"
	responseModeDirect         = "pi.flow"
)

// DirectAuthClient drives the redirectless authorization API: the
// authorization request is posted directly and the provider answers
// with flow documents instead of redirects. The client carries a cookie
// jar because the provider couples flow calls to the cookies minted by
// the first response; the correlator alone addresses the flow resource.
type DirectAuthClient struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// DirectAuthClientConfig holds configuration for the redirectless client.
type DirectAuthClientConfig struct {
	Config

	Logger *slog.Logger
}

// NewDirectAuthClient creates the redirectless client.
func NewDirectAuthClient(cfg DirectAuthClientConfig) *DirectAuthClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Config.withDefaults()
	client := newHTTPClient(base.Timeout)
	jar, err := cookiejar.New(nil)
	if err == nil {
		client.Jar = jar
	}
	return &DirectAuthClient{
		cfg:    base,
		client: client,
		logger: logger,
	}
}

// StartDirectAuth posts the initial authorization request.
func (d *DirectAuthClient) StartDirectAuth(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, pkce *domain.PKCEBundle, state, nonce string) (map[string]any, error) {
	form := url.Values{
		"response_type": {"code"},
		"client_id":     {creds.ClientID},
		"scope":         {creds.ScopeString()},
		"state":         {state},
		"response_mode": {responseModeDirect},
	}
	if creds.RedirectURI != "" {
		form.Set("redirect_uri", creds.RedirectURI)
	}
	if nonce != "" {
		form.Set("nonce", nonce)
	}
	if pkce != nil {
		form.Set("code_challenge", pkce.CodeChallenge)
		form.Set("code_challenge_method", string(pkce.CodeChallengeMethod))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoints.AuthorizationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build authorization request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return d.do(req, "authorization")
}

// CheckCredentials submits username/password for a started attempt.
func (d *DirectAuthClient) CheckCredentials(ctx context.Context, endpoints *driven.Endpoints, correlator, username, password string) (map[string]any, error) {
	flowURL, err := d.flowURL(endpoints, correlator)
	if err != nil {
		return nil, err
	}

	payload := map[string]string{
		"username": username,
		"password": password,
	}
	req, err := d.jsonRequest(ctx, http.MethodPost, flowURL, contentTypeCredentialCheck, payload)
	if err != nil {
		return nil, err
	}
	return d.do(req, "credential check")
}

// ResumeDirectAuth continues an attempt that is ready to resume. The
// provider-supplied resume location wins; without one the conventional
// resume endpoint is derived from the issuer and correlator.
func (d *DirectAuthClient) ResumeDirectAuth(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, correlator, resumeURL string) (map[string]any, error) {
	target := resumeURL
	if target == "" {
		target = fmt.Sprintf("%s/resume?flowId=%s", endpoints.Issuer, url.QueryEscape(correlator))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build resume request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return d.do(req, "resume")
}

// ChangePassword rotates an account password through the management
// API: look the user up by username, then reset with the current
// password. Both calls ride on the worker token.
func (d *DirectAuthClient) ChangePassword(ctx context.Context, endpoints *driven.Endpoints, workerToken, username, currentPassword, newPassword string) error {
	environmentID, err := environmentFromIssuer(endpoints.Issuer)
	if err != nil {
		return err
	}

	userID, err := d.lookupUser(ctx, environmentID, workerToken, username)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/environments/%s/users/%s/password", d.cfg.APIBase, environmentID, userID)
	payload := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	req, err := d.jsonRequest(ctx, http.MethodPut, endpoint, contentTypePasswordReset, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+workerToken)

	if _, err := d.do(req, "password reset"); err != nil {
		return err
	}
	d.logger.Info("password rotated", "username", username)
	return nil
}

// lookupUser resolves a username to the provider's user ID.
func (d *DirectAuthClient) lookupUser(ctx context.Context, environmentID, workerToken, username string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/environments/%s/users?filter=%s",
		d.cfg.APIBase, environmentID,
		url.QueryEscape(fmt.Sprintf("username eq %q", username)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build user lookup: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+workerToken)
	req.Header.Set("Accept", "application/json")

	payload, err := d.do(req, "user lookup")
	if err != nil {
		return "", err
	}

	embedded, _ := payload["_embedded"].(map[string]any)
	users, _ := embedded["users"].([]any)
	if len(users) == 0 {
		return "", fmt.Errorf("user %q: %w", username, domain.ErrNotFound)
	}
	first, _ := users[0].(map[string]any)
	id, _ := first["id"].(string)
	if id == "" {
		return "", fmt.Errorf("user lookup response carried no id")
	}
	return id, nil
}

// flowURL addresses one flow resource under the environment.
func (d *DirectAuthClient) flowURL(endpoints *driven.Endpoints, correlator string) (string, error) {
	base, ok := strings.CutSuffix(endpoints.Issuer, "/as")
	if !ok {
		return "", fmt.Errorf("issuer %q does not follow the {base}/{environment}/as shape", endpoints.Issuer)
	}
	return fmt.Sprintf("%s/flows/%s", base, url.PathEscape(correlator)), nil
}

func (d *DirectAuthClient) jsonRequest(ctx context.Context, method, endpoint, contentType string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do runs one request and decodes the JSON answer. Flow-level failures
// (wrong password, locked account) arrive as error documents with a
// code and message; those become readable errors, not raw status dumps.
func (d *DirectAuthClient) do(req *http.Request, operation string) (map[string]any, error) {
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if oerr := decodeOAuthError(body); oerr != nil {
			return nil, oerr
		}
		if ferr := decodeFlowError(body); ferr != "" {
			return nil, fmt.Errorf("%s rejected: %s", operation, ferr)
		}
		return nil, fmt.Errorf("%s returned %d: %s", operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", operation, err)
	}
	return payload, nil
}

// decodeFlowError extracts the code and message from a flow error
// document, returning "" when the body is not one.
func decodeFlowError(body []byte) string {
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"details"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Code == "" {
		return ""
	}
	msg := payload.Message
	if msg == "" && len(payload.Details) > 0 {
		msg = payload.Details[0].Message
	}
	if msg == "" {
		return payload.Code
	}
	return fmt.Sprintf("%s (%s)", msg, payload.Code)
}
