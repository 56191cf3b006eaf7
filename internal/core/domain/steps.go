package domain

// StepKind identifies what a wizard step does, independent of its
// position in a particular flow's topology.
type StepKind string

const (
	// StepConfiguration collects and validates the client configuration
	StepConfiguration StepKind = "configuration"
	// StepPKCE generates the verifier/challenge pair
	StepPKCE StepKind = "pkce"
	// StepAuthorizationRequest builds the authorization URL
	StepAuthorizationRequest StepKind = "authorization_request"
	// StepCallback extracts the code from the redirect query string
	StepCallback StepKind = "callback"
	// StepFragmentCallback extracts tokens (and, for hybrid, the code)
	// from the redirect fragment
	StepFragmentCallback StepKind = "fragment_callback"
	// StepTokenExchange trades the code or client credentials for tokens
	StepTokenExchange StepKind = "token_exchange"
	// StepDeviceAuthorization requests the device and user codes
	StepDeviceAuthorization StepKind = "device_authorization"
	// StepDevicePolling polls the token endpoint while the user authorizes
	StepDevicePolling StepKind = "device_polling"
	// StepTokens displays the obtained token bundle
	StepTokens StepKind = "tokens"
	// StepIntrospection inspects the token via introspection/userinfo
	StepIntrospection StepKind = "introspection"
	// StepDocumentation is the closing summary
	StepDocumentation StepKind = "documentation"
)

// Step is one position in a flow's topology.
type Step struct {
	Index int      `json:"index"`
	Kind  StepKind `json:"kind"`
	Title string   `json:"title"`
}

// StepsFor returns the ordered step topology for a flow type. The result
// is a pure function of its inputs: same flow type and PKCE flag, same
// steps, every call. Step 0 is always configuration, the last step is
// always documentation, and the second-to-last is always introspection.
func StepsFor(flowType FlowType, pkceEnforced bool) []Step {
	var kinds []StepKind
	switch flowType {
	case FlowClientCredentials:
		kinds = []StepKind{
			StepConfiguration,
			StepTokenExchange,
			StepTokens,
			StepIntrospection,
			StepDocumentation,
		}
	case FlowDeviceCode:
		kinds = []StepKind{
			StepConfiguration,
			StepDeviceAuthorization,
			StepDevicePolling,
			StepTokens,
			StepIntrospection,
			StepDocumentation,
		}
	case FlowImplicit:
		kinds = []StepKind{
			StepConfiguration,
			StepAuthorizationRequest,
			StepFragmentCallback,
			StepTokens,
			StepIntrospection,
			StepDocumentation,
		}
	case FlowAuthorizationCode, FlowHybrid:
		kinds = []StepKind{StepConfiguration}
		if pkceEnforced {
			kinds = append(kinds, StepPKCE)
		}
		kinds = append(kinds, StepAuthorizationRequest)
		if flowType == FlowHybrid {
			kinds = append(kinds, StepFragmentCallback)
		} else {
			kinds = append(kinds, StepCallback)
		}
		kinds = append(kinds,
			StepTokenExchange,
			StepTokens,
			StepIntrospection,
			StepDocumentation,
		)
	default:
		return nil
	}

	steps := make([]Step, len(kinds))
	for i, k := range kinds {
		steps[i] = Step{Index: i, Kind: k, Title: stepTitles[k]}
	}
	return steps
}

var stepTitles = map[StepKind]string{
	StepConfiguration:        "Configuration",
	StepPKCE:                 "PKCE Parameters",
	StepAuthorizationRequest: "Authorization Request",
	StepCallback:             "Authorization Callback",
	StepFragmentCallback:     "Callback Fragment",
	StepTokenExchange:        "Token Request",
	StepDeviceAuthorization:  "Device Authorization",
	StepDevicePolling:        "User Authorization",
	StepTokens:               "Tokens",
	StepIntrospection:        "Token Introspection",
	StepDocumentation:        "Flow Summary",
}
