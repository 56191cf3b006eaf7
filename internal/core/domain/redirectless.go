package domain

// AuthStatus is the provider-reported state of a redirectless
// authorization attempt.
type AuthStatus string

const (
	AuthStatusUsernamePasswordRequired AuthStatus = "USERNAME_PASSWORD_REQUIRED"
	AuthStatusInProgress               AuthStatus = "IN_PROGRESS"
	AuthStatusReadyToResume            AuthStatus = "READY_TO_RESUME"
	AuthStatusCompleted                AuthStatus = "COMPLETED"
	AuthStatusMustChangePassword       AuthStatus = "MUST_CHANGE_PASSWORD"
	AuthStatusFailed                   AuthStatus = "FAILED"
)

// DirectAuthResult is one parsed redirectless response: the status plus
// whatever artifacts the response carried, with the raw payload kept for
// display and for surfacing unexpected statuses verbatim.
type DirectAuthResult struct {
	Status     AuthStatus     `json:"status"`
	Correlator string         `json:"correlator,omitempty"`
	ResumeURL  string         `json:"resume_url,omitempty"`
	Code       string         `json:"code,omitempty"`
	Tokens     *TokenBundle   `json:"tokens,omitempty"`
	Raw        map[string]any `json:"raw,omitempty"`
}

// Known locations of each artifact across provider response shapes,
// tried in priority order; the first match wins. New shapes are a
// one-line addition here, never an inline check at a call site.
var (
	statusPaths = [][]string{
		{"status"},
		{"flow", "status"},
		{"authorizeResponse", "status"},
	}

	correlatorPaths = [][]string{
		{"id"},
		{"flow", "id"},
		{"interactionId"},
	}

	resumeURLPaths = [][]string{
		{"resumeUrl"},
		{"resume_url"},
		{"flow", "resumeUrl"},
	}

	codePaths = [][]string{
		{"code"},
		{"authorizeResponse", "code"},
		{"flow", "code"},
		{"authorization_code"},
		{"authCode"},
	}

	accessTokenPaths = [][]string{
		{"access_token"},
		{"accessToken"},
		{"token", "access_token"},
		{"authorizeResponse", "access_token"},
	}

	idTokenPaths = [][]string{
		{"id_token"},
		{"idToken"},
		{"token", "id_token"},
		{"authorizeResponse", "id_token"},
	}
)

// ParseDirectAuthResponse applies the extraction tables to a decoded
// redirectless response body.
func ParseDirectAuthResponse(raw map[string]any) *DirectAuthResult {
	result := &DirectAuthResult{
		Status:     AuthStatus(extractString(raw, statusPaths)),
		Correlator: extractString(raw, correlatorPaths),
		ResumeURL:  extractString(raw, resumeURLPaths),
		Code:       extractString(raw, codePaths),
		Raw:        raw,
	}
	access := extractString(raw, accessTokenPaths)
	idToken := extractString(raw, idTokenPaths)
	if access != "" || idToken != "" {
		result.Tokens = NewTokenBundle(access, "Bearer", idToken, "", "", 0)
	}
	return result
}

// ExtractCode locates an authorization code in a decoded response body
// using the priority-ordered path table. Empty when no location matches.
func ExtractCode(raw map[string]any) string {
	return extractString(raw, codePaths)
}

func extractString(m map[string]any, paths [][]string) string {
	for _, path := range paths {
		if v, ok := lookupPath(m, path); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

func lookupPath(m map[string]any, path []string) (any, bool) {
	var current any = m
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
