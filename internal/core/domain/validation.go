package domain

import "slices"

// FixKind identifies the machine-applicable patch a fix carries.
type FixKind string

const (
	FixSetRedirectURI  FixKind = "set_redirect_uri"
	FixEnablePKCE      FixKind = "enable_pkce"
	FixSetAuthMethod   FixKind = "set_auth_method"
	FixAddScope        FixKind = "add_scope"
	FixDropScope       FixKind = "drop_scope"
	FixSetResponseType FixKind = "set_response_type"
)

// FixSuggestion is a concrete configuration change that would resolve a
// validation error. The patch fields are typed so applying one is a
// mechanical operation, never string surgery on the caller's side.
type FixSuggestion struct {
	Kind        FixKind `json:"kind"`
	Description string  `json:"description"`

	// Patch payload, one field per kind
	RedirectURI     string          `json:"redirect_uri,omitempty"`
	TokenAuthMethod TokenAuthMethod `json:"token_auth_method,omitempty"`
	Scope           string          `json:"scope,omitempty"`
	ResponseType    string          `json:"response_type,omitempty"`
}

// Apply returns an amended copy of the credentials with the fix applied.
// The input is never mutated; callers must re-validate the result.
func (f FixSuggestion) Apply(c FlowCredentials) FlowCredentials {
	out := c.Clone()
	switch f.Kind {
	case FixSetRedirectURI:
		out.RedirectURI = f.RedirectURI
	case FixEnablePKCE:
		out.PKCEMode = PKCERequired
	case FixSetAuthMethod:
		out.TokenAuthMethod = f.TokenAuthMethod
	case FixAddScope:
		if !out.HasScope(f.Scope) {
			out.Scopes = append(out.Scopes, f.Scope)
		}
	case FixDropScope:
		out.Scopes = slices.DeleteFunc(out.Scopes, func(s string) bool {
			return s == f.Scope
		})
	case FixSetResponseType:
		out.ResponseType = f.ResponseType
	}
	return out
}

// ValidationReport is the outcome of one pre-flight validation pass.
// Errors block progression; warnings do not. Each error may carry a fix.
type ValidationReport struct {
	Passed   bool            `json:"passed"`
	Errors   []string        `json:"errors,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Fixes    []FixSuggestion `json:"fixes,omitempty"`
}

// AddError records a blocking error without a machine-applicable fix.
func (r *ValidationReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// AddFixableError records a blocking error and its suggested fix.
func (r *ValidationReport) AddFixableError(msg string, fix FixSuggestion) {
	r.Errors = append(r.Errors, msg)
	r.Fixes = append(r.Fixes, fix)
}

// AddWarning records a non-blocking finding.
func (r *ValidationReport) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Finalize computes the pass verdict.
func (r *ValidationReport) Finalize() {
	r.Passed = len(r.Errors) == 0
}

// RegisteredApplication is the provider's live view of the client, as
// returned by its management API. Pre-flight compares the local
// configuration against this.
type RegisteredApplication struct {
	ClientID        string   `json:"client_id"`
	Name            string   `json:"name,omitempty"`
	Enabled         bool     `json:"enabled"`
	RedirectURIs    []string `json:"redirect_uris,omitempty"`
	GrantTypes      []string `json:"grant_types,omitempty"`
	ResponseTypes   []string `json:"response_types,omitempty"`
	TokenAuthMethod string   `json:"token_auth_method,omitempty"`
	PKCEEnforced    bool     `json:"pkce_enforced"`
	AllowedScopes   []string `json:"allowed_scopes,omitempty"`
}

// AllowsRedirect reports whether a redirect URI is registered.
func (a *RegisteredApplication) AllowsRedirect(uri string) bool {
	return slices.Contains(a.RedirectURIs, uri)
}

// AllowsGrant reports whether a grant type is enabled for the client.
// An empty registered list means the provider did not disclose grants,
// which callers treat as unverifiable rather than denied.
func (a *RegisteredApplication) AllowsGrant(grant string) bool {
	if len(a.GrantTypes) == 0 {
		return true
	}
	return slices.Contains(a.GrantTypes, grant)
}

// AllowsScope reports whether a scope is granted to the client.
func (a *RegisteredApplication) AllowsScope(scope string) bool {
	if len(a.AllowedScopes) == 0 {
		return true
	}
	return slices.Contains(a.AllowedScopes, scope)
}
