package idp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.IdentityProviderGateway = (*Gateway)(nil)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 1 << 20

// deviceGrantType is the RFC 8628 token grant identifier.
const deviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

// Gateway performs the outbound token-endpoint calls. Grants the oauth2
// package models directly go through it; the single-shot device poll
// and introspection are plain form posts because the package only
// offers a blocking poll loop and no introspection at all.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// GatewayConfig holds configuration for the gateway.
type GatewayConfig struct {
	Config

	Logger *slog.Logger
}

// NewGateway creates the provider gateway.
func NewGateway(cfg GatewayConfig) *Gateway {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Config.withDefaults()
	return &Gateway{
		cfg:    base,
		client: newHTTPClient(base.Timeout),
		logger: logger,
	}
}

// RequestDeviceCode calls the device-authorization endpoint.
func (g *Gateway) RequestDeviceCode(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials) (*domain.DeviceCodeBundle, error) {
	conf := oauthConfig(endpoints, creds)
	resp, err := conf.DeviceAuth(g.oauthContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("device authorization: %w", asOAuthError(err))
	}

	expiresIn := int(time.Until(resp.Expiry).Round(time.Second).Seconds())
	bundle := domain.NewDeviceCodeBundle(
		resp.DeviceCode,
		resp.UserCode,
		resp.VerificationURI,
		resp.VerificationURIComplete,
		expiresIn,
		int(resp.Interval),
	)
	g.logger.Info("device code issued",
		"user_code", bundle.UserCode,
		"expires_in", bundle.ExpiresIn,
		"interval", bundle.PollInterval)
	return bundle, nil
}

// PollDeviceToken makes one device-grant token request. Pending,
// slow-down and denial come back as *domain.OAuthError.
func (g *Gateway) PollDeviceToken(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, deviceCode string) (*domain.TokenBundle, error) {
	form := url.Values{
		"grant_type":  {deviceGrantType},
		"device_code": {deviceCode},
	}
	payload, err := g.postForm(ctx, endpoints.TokenEndpoint, creds, form)
	if err != nil {
		return nil, err
	}
	return bundleFromPayload(payload), nil
}

// ExchangeCode trades an authorization code for tokens.
func (g *Gateway) ExchangeCode(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, code, codeVerifier string) (*domain.TokenBundle, error) {
	conf := oauthConfig(endpoints, creds)

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}

	tok, err := conf.Exchange(g.oauthContext(ctx), code, opts...)
	if err != nil {
		return nil, asOAuthError(err)
	}
	return bundleFromToken(tok), nil
}

// RefreshToken trades a refresh token for a new bundle.
func (g *Gateway) RefreshToken(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, refreshToken string) (*domain.TokenBundle, error) {
	conf := oauthConfig(endpoints, creds)

	src := conf.TokenSource(g.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, asOAuthError(err)
	}
	return bundleFromToken(tok), nil
}

// ClientCredentialsToken performs the client-credentials grant.
func (g *Gateway) ClientCredentialsToken(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials) (*domain.TokenBundle, error) {
	conf := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     endpoints.TokenEndpoint,
		Scopes:       creds.Scopes,
		AuthStyle:    authStyle(creds.TokenAuthMethod),
	}
	if creds.Audience != "" {
		conf.EndpointParams = url.Values{"audience": {creds.Audience}}
	}

	tok, err := conf.Token(g.oauthContext(ctx))
	if err != nil {
		return nil, asOAuthError(err)
	}
	return bundleFromToken(tok), nil
}

// Introspect calls the introspection endpoint for a token.
func (g *Gateway) Introspect(ctx context.Context, endpoints *driven.Endpoints, creds *domain.FlowCredentials, token string) (map[string]any, error) {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
	}
	return g.postForm(ctx, endpoints.IntrospectionEndpoint, creds, form)
}

// UserInfo fetches the userinfo payload with a bearer token.
func (g *Gateway) UserInfo(ctx context.Context, endpoints *driven.Endpoints, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoints.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read userinfo response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode userinfo response: %w", err)
	}
	return payload, nil
}

// postForm makes one authenticated form post and decodes the JSON
// answer. Provider rejections come back as *domain.OAuthError with
// the advisory interval preserved when the body carries one.
func (g *Gateway) postForm(ctx context.Context, endpoint string, creds *domain.FlowCredentials, form url.Values) (map[string]any, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint not resolved")
	}

	switch creds.TokenAuthMethod {
	case domain.AuthMethodPost:
		form.Set("client_id", creds.ClientID)
		form.Set("client_secret", creds.ClientSecret)
	case domain.AuthMethodNone:
		form.Set("client_id", creds.ClientID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if creds.TokenAuthMethod == domain.AuthMethodBasic || creds.TokenAuthMethod == "" {
		// Credentials are form-urlencoded inside basic auth per RFC 6749 2.3.1
		req.SetBasicAuth(url.QueryEscape(creds.ClientID), url.QueryEscape(creds.ClientSecret))
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if oerr := decodeOAuthError(body); oerr != nil {
			return nil, oerr
		}
		return nil, fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}

func (g *Gateway) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.client)
}

// oauthConfig maps flow credentials onto an oauth2 configuration.
func oauthConfig(endpoints *driven.Endpoints, creds *domain.FlowCredentials) *oauth2.Config {
	secret := creds.ClientSecret
	if creds.TokenAuthMethod == domain.AuthMethodNone {
		secret = ""
	}
	return &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: secret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       creds.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:       endpoints.AuthorizationEndpoint,
			TokenURL:      endpoints.TokenEndpoint,
			DeviceAuthURL: endpoints.DeviceAuthEndpoint,
			AuthStyle:     authStyle(creds.TokenAuthMethod),
		},
	}
}

func authStyle(method domain.TokenAuthMethod) oauth2.AuthStyle {
	switch method {
	case domain.AuthMethodPost, domain.AuthMethodNone:
		return oauth2.AuthStyleInParams
	default:
		return oauth2.AuthStyleInHeader
	}
}

// asOAuthError converts the oauth2 package's retrieval failure into the
// domain's protocol error when the provider sent a structured rejection.
func asOAuthError(err error) error {
	var rerr *oauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return err
	}
	if rerr.ErrorCode != "" {
		return &domain.OAuthError{
			Code:        rerr.ErrorCode,
			Description: rerr.ErrorDescription,
			URI:         rerr.ErrorURI,
		}
	}
	if oerr := decodeOAuthError(rerr.Body); oerr != nil {
		return oerr
	}
	return err
}

// decodeOAuthError parses an RFC 6749 error body, returning nil when
// the body is not one.
func decodeOAuthError(body []byte) *domain.OAuthError {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorURI         string `json:"error_uri"`
		Interval         int    `json:"interval"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return nil
	}
	return &domain.OAuthError{
		Code:        payload.Error,
		Description: payload.ErrorDescription,
		URI:         payload.ErrorURI,
		Interval:    payload.Interval,
	}
}

// bundleFromToken converts an oauth2 token into the domain bundle.
func bundleFromToken(tok *oauth2.Token) *domain.TokenBundle {
	idToken, _ := tok.Extra("id_token").(string)
	scope, _ := tok.Extra("scope").(string)

	expiresIn := 0
	if v, ok := tok.Extra("expires_in").(float64); ok {
		expiresIn = int(v)
	} else if !tok.Expiry.IsZero() {
		expiresIn = int(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return domain.NewTokenBundle(tok.AccessToken, tok.TokenType, idToken, tok.RefreshToken, scope, expiresIn)
}

// bundleFromPayload converts a decoded token response into the domain
// bundle.
func bundleFromPayload(payload map[string]any) *domain.TokenBundle {
	str := func(key string) string {
		v, _ := payload[key].(string)
		return v
	}
	expiresIn := 0
	if v, ok := payload["expires_in"].(float64); ok {
		expiresIn = int(v)
	}
	return domain.NewTokenBundle(
		str("access_token"),
		str("token_type"),
		str("id_token"),
		str("refresh_token"),
		str("scope"),
		expiresIn,
	)
}
