package domain

import (
	"fmt"
	"slices"
	"strings"
)

// TokenAuthMethod defines how the client authenticates at the token endpoint
type TokenAuthMethod string

const (
	AuthMethodBasic TokenAuthMethod = "client_secret_basic"
	AuthMethodPost  TokenAuthMethod = "client_secret_post"
	AuthMethodNone  TokenAuthMethod = "none"
)

// Valid reports whether the method is known.
func (m TokenAuthMethod) Valid() bool {
	switch m {
	case AuthMethodBasic, AuthMethodPost, AuthMethodNone:
		return true
	}
	return false
}

// PKCEMode defines whether the session uses PKCE
type PKCEMode string

const (
	PKCERequired PKCEMode = "required"
	PKCEOptional PKCEMode = "optional"
	PKCEDisabled PKCEMode = "disabled"
)

// FlowCredentials is the locally configured OAuth client configuration
// for one session. Read-mostly: the validator proposes amended copies via
// fixes, it never edits in place.
type FlowCredentials struct {
	// EnvironmentID identifies the issuer environment at the provider
	EnvironmentID string `json:"environment_id"`

	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"` // Never serialize
	RedirectURI  string   `json:"redirect_uri,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`

	// TokenAuthMethod is how the token endpoint call authenticates
	TokenAuthMethod TokenAuthMethod `json:"token_auth_method"`

	// PKCEMode controls whether the topology carries a PKCE step
	PKCEMode PKCEMode `json:"pkce_mode"`

	// ResponseType overrides the flow default (e.g. "code id_token")
	ResponseType string `json:"response_type,omitempty"`

	// ResponseMode requests a non-default callback encoding
	ResponseMode string `json:"response_mode,omitempty"`

	// Audience and LoginHint are optional request decorations
	Audience  string `json:"audience,omitempty"`
	LoginHint string `json:"login_hint,omitempty"`

	// ManagementToken lets pre-flight query the provider's management API
	ManagementToken string `json:"-"` // Never serialize
}

// Clone returns an independent copy, scopes included.
func (c *FlowCredentials) Clone() FlowCredentials {
	out := *c
	out.Scopes = slices.Clone(c.Scopes)
	return out
}

// ScopeString joins the scopes for request encoding.
func (c *FlowCredentials) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// HasScope reports whether a scope is configured.
func (c *FlowCredentials) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// HasSecret reports whether a client secret is configured.
func (c *FlowCredentials) HasSecret() bool {
	return c.ClientSecret != ""
}

// DefaultResponseType returns the wire response_type for a flow when no
// override is configured.
func (c *FlowCredentials) DefaultResponseType(flowType FlowType) string {
	if c.ResponseType != "" {
		return c.ResponseType
	}
	switch flowType {
	case FlowImplicit:
		return "token id_token"
	case FlowHybrid:
		return "code id_token"
	default:
		return "code"
	}
}

// Validate performs the local shape checks for a flow type: required
// fields present and internally consistent PKCE/redirect/auth-method
// requirements. Remote checks against the provider's registered
// configuration are the pre-flight validator's job.
func (c *FlowCredentials) Validate(flowType FlowType, specVersion SpecVersion) error {
	if c.EnvironmentID == "" {
		return fmt.Errorf("%w: environment id is required", ErrInvalidInput)
	}
	if c.ClientID == "" {
		return fmt.Errorf("%w: client id is required", ErrInvalidInput)
	}
	if flowType.UsesRedirect() && c.RedirectURI == "" {
		return fmt.Errorf("%w: redirect uri is required for %s", ErrInvalidInput, flowType)
	}
	if flowType == FlowClientCredentials {
		if c.TokenAuthMethod == AuthMethodNone {
			return fmt.Errorf("%w: client-credentials cannot use auth method none", ErrInvalidInput)
		}
		if !c.HasSecret() {
			return fmt.Errorf("%w: client secret is required for client-credentials", ErrInvalidInput)
		}
	}
	if c.TokenAuthMethod != "" && !c.TokenAuthMethod.Valid() {
		return fmt.Errorf("%w: unknown token auth method %q", ErrInvalidInput, c.TokenAuthMethod)
	}
	if specVersion == SpecOAuth21 && flowType == FlowAuthorizationCode && c.PKCEMode == PKCEDisabled {
		return fmt.Errorf("%w: oauth 2.1 requires pkce for authorization-code", ErrInvalidInput)
	}
	if specVersion == SpecOIDC && !c.HasScope("openid") {
		return fmt.Errorf("%w: oidc requires the openid scope", ErrInvalidInput)
	}
	return nil
}

// CredentialsSummary is a safe view without secret material.
type CredentialsSummary struct {
	EnvironmentID      string          `json:"environment_id"`
	ClientID           string          `json:"client_id"`
	HasSecret          bool            `json:"has_secret"`
	RedirectURI        string          `json:"redirect_uri,omitempty"`
	Scopes             []string        `json:"scopes,omitempty"`
	TokenAuthMethod    TokenAuthMethod `json:"token_auth_method"`
	PKCEMode           PKCEMode        `json:"pkce_mode"`
	ResponseType       string          `json:"response_type,omitempty"`
	HasManagementToken bool            `json:"has_management_token"`
}

// ToSummary converts FlowCredentials to a CredentialsSummary.
func (c *FlowCredentials) ToSummary() CredentialsSummary {
	return CredentialsSummary{
		EnvironmentID:      c.EnvironmentID,
		ClientID:           c.ClientID,
		HasSecret:          c.HasSecret(),
		RedirectURI:        c.RedirectURI,
		Scopes:             slices.Clone(c.Scopes),
		TokenAuthMethod:    c.TokenAuthMethod,
		PKCEMode:           c.PKCEMode,
		ResponseType:       c.ResponseType,
		HasManagementToken: c.ManagementToken != "",
	}
}
