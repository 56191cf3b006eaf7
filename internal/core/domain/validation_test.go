package domain

import (
	"slices"
	"testing"
)

func TestFixSuggestionApply(t *testing.T) {
	tests := []struct {
		name   string
		fix    FixSuggestion
		verify func(t *testing.T, out FlowCredentials)
	}{
		{
			name: "set redirect uri",
			fix:  FixSuggestion{Kind: FixSetRedirectURI, RedirectURI: "https://registered.example.com/cb"},
			verify: func(t *testing.T, out FlowCredentials) {
				if out.RedirectURI != "https://registered.example.com/cb" {
					t.Errorf("unexpected redirect: %s", out.RedirectURI)
				}
			},
		},
		{
			name: "enable pkce",
			fix:  FixSuggestion{Kind: FixEnablePKCE},
			verify: func(t *testing.T, out FlowCredentials) {
				if out.PKCEMode != PKCERequired {
					t.Errorf("unexpected pkce mode: %s", out.PKCEMode)
				}
			},
		},
		{
			name: "set auth method",
			fix:  FixSuggestion{Kind: FixSetAuthMethod, TokenAuthMethod: AuthMethodPost},
			verify: func(t *testing.T, out FlowCredentials) {
				if out.TokenAuthMethod != AuthMethodPost {
					t.Errorf("unexpected auth method: %s", out.TokenAuthMethod)
				}
			},
		},
		{
			name: "add scope",
			fix:  FixSuggestion{Kind: FixAddScope, Scope: "email"},
			verify: func(t *testing.T, out FlowCredentials) {
				if !out.HasScope("email") {
					t.Errorf("expected email scope, got %v", out.Scopes)
				}
			},
		},
		{
			name: "add scope is idempotent",
			fix:  FixSuggestion{Kind: FixAddScope, Scope: "openid"},
			verify: func(t *testing.T, out FlowCredentials) {
				count := 0
				for _, s := range out.Scopes {
					if s == "openid" {
						count++
					}
				}
				if count != 1 {
					t.Errorf("expected one openid scope, got %v", out.Scopes)
				}
			},
		},
		{
			name: "drop scope",
			fix:  FixSuggestion{Kind: FixDropScope, Scope: "profile"},
			verify: func(t *testing.T, out FlowCredentials) {
				if out.HasScope("profile") {
					t.Errorf("expected profile dropped, got %v", out.Scopes)
				}
			},
		},
		{
			name: "set response type",
			fix:  FixSuggestion{Kind: FixSetResponseType, ResponseType: "code"},
			verify: func(t *testing.T, out FlowCredentials) {
				if out.ResponseType != "code" {
					t.Errorf("unexpected response type: %s", out.ResponseType)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := baseCredentials()
			creds.PKCEMode = PKCEDisabled
			creds.ResponseType = "token"

			out := tt.fix.Apply(creds)
			tt.verify(t, out)
		})
	}
}

func TestFixSuggestionApplyDoesNotMutate(t *testing.T) {
	creds := baseCredentials()
	originalScopes := slices.Clone(creds.Scopes)

	fix := FixSuggestion{Kind: FixDropScope, Scope: "profile"}
	out := fix.Apply(creds)

	if !slices.Equal(creds.Scopes, originalScopes) {
		t.Errorf("input credentials were mutated: %v", creds.Scopes)
	}
	if out.HasScope("profile") {
		t.Errorf("expected the copy to drop the scope, got %v", out.Scopes)
	}
}

func TestValidationReportFinalize(t *testing.T) {
	report := &ValidationReport{}
	report.AddWarning("openid scope has no effect here")
	report.Finalize()
	if !report.Passed {
		t.Error("warnings alone must not fail the report")
	}

	report.AddFixableError("redirect uri is not registered", FixSuggestion{Kind: FixSetRedirectURI})
	report.Finalize()
	if report.Passed {
		t.Error("an error must fail the report")
	}
	if len(report.Errors) != 1 || len(report.Fixes) != 1 {
		t.Errorf("expected paired error and fix, got %d errors %d fixes", len(report.Errors), len(report.Fixes))
	}
}

func TestRegisteredApplicationAllowsRedirect(t *testing.T) {
	app := RegisteredApplication{RedirectURIs: []string{"https://localhost:3000/callback"}}
	if !app.AllowsRedirect("https://localhost:3000/callback") {
		t.Error("expected the registered uri to be allowed")
	}
	if app.AllowsRedirect("https://evil.example.com/cb") {
		t.Error("expected an unregistered uri to be denied")
	}

	empty := RegisteredApplication{}
	if empty.AllowsRedirect("https://localhost:3000/callback") {
		t.Error("an empty registration allows no redirects")
	}
}

func TestRegisteredApplicationAllowsGrantAndScope(t *testing.T) {
	app := RegisteredApplication{
		GrantTypes:    []string{"authorization_code"},
		AllowedScopes: []string{"openid"},
	}
	if !app.AllowsGrant("authorization_code") || app.AllowsGrant("urn:ietf:params:oauth:grant-type:device_code") {
		t.Error("unexpected grant verdicts")
	}
	if !app.AllowsScope("openid") || app.AllowsScope("profile") {
		t.Error("unexpected scope verdicts")
	}

	// Providers that do not disclose grants or scopes are unverifiable,
	// not denied.
	undisclosed := RegisteredApplication{}
	if !undisclosed.AllowsGrant("implicit") || !undisclosed.AllowsScope("email") {
		t.Error("undisclosed lists must not deny")
	}
}
