package domain

import (
	"fmt"
	"net/url"
	"strconv"
)

// CallbackData is what a redirect query string yields.
type CallbackData struct {
	Code  string `json:"code,omitempty"`
	State string `json:"state,omitempty"`
}

// FragmentData is what a redirect fragment yields. For hybrid flows the
// query-string code is extracted in the same pass and lands in Code.
type FragmentData struct {
	AccessToken string `json:"access_token,omitempty"`
	IDToken     string `json:"id_token,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	Scope       string `json:"scope,omitempty"`
	State       string `json:"state,omitempty"`
	Code        string `json:"code,omitempty"`
}

// HasToken reports whether the fragment carried any token.
func (f *FragmentData) HasToken() bool {
	return f.AccessToken != "" || f.IDToken != ""
}

// ParseCallbackURL extracts the code and state from a redirect URL's
// query string. State comparison is deliberately not performed here:
// the invoking step logic must check it before trusting the code. A
// provider error response becomes an OAuthError.
func ParseCallbackURL(rawURL string) (*CallbackData, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse callback url: %w", err)
	}
	q := u.Query()
	if errCode := q.Get("error"); errCode != "" {
		return nil, &OAuthError{
			Code:        errCode,
			Description: q.Get("error_description"),
			URI:         q.Get("error_uri"),
		}
	}
	return &CallbackData{
		Code:  q.Get("code"),
		State: q.Get("state"),
	}, nil
}

// ParseCallbackFragment extracts token parameters from a redirect URL's
// fragment. Hybrid flows may carry a query-string code alongside the
// fragment tokens; both are taken from the same URL in one pass.
func ParseCallbackFragment(flowType FlowType, rawURL string) (*FragmentData, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse callback url: %w", err)
	}
	frag, err := url.ParseQuery(u.EscapedFragment())
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	if errCode := frag.Get("error"); errCode != "" {
		return nil, &OAuthError{
			Code:        errCode,
			Description: frag.Get("error_description"),
			URI:         frag.Get("error_uri"),
		}
	}

	data := &FragmentData{
		AccessToken: frag.Get("access_token"),
		IDToken:     frag.Get("id_token"),
		TokenType:   frag.Get("token_type"),
		Scope:       frag.Get("scope"),
		State:       frag.Get("state"),
		Code:        frag.Get("code"),
	}
	if raw := frag.Get("expires_in"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			data.ExpiresIn = n
		}
	}

	if flowType == FlowHybrid && data.Code == "" {
		data.Code = u.Query().Get("code")
	}
	if data.State == "" {
		data.State = u.Query().Get("state")
	}
	return data, nil
}

// VerifyState compares a received state against the session's own.
// A mismatch is security-significant and blocks acceptance of the
// associated code or tokens.
func VerifyState(expected, received string) error {
	if expected == "" {
		return fmt.Errorf("%w: no state recorded for this session", ErrStateMismatch)
	}
	if expected != received {
		return fmt.Errorf("%w: expected %q, received %q", ErrStateMismatch, expected, received)
	}
	return nil
}
