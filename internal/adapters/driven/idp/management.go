package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ManagementAPI = (*ManagementClient)(nil)

// workerTokenMargin renews a cached worker token this long before it
// actually expires.
const workerTokenMargin = 30 * time.Second

// ManagementClient reads application configuration through the
// provider's management API. Worker tokens are minted with the
// configured worker application and cached per environment.
type ManagementClient struct {
	cfg          Config
	workerID     string
	workerSecret string
	client       *http.Client
	logger       *slog.Logger

	mu     sync.Mutex
	tokens map[string]cachedToken
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// ManagementClientConfig holds configuration for the management client.
type ManagementClientConfig struct {
	Config

	// WorkerClientID identifies the worker application used to mint
	// management tokens; empty disables minting
	WorkerClientID string

	// WorkerClientSecret authenticates the worker application
	WorkerClientSecret string

	Logger *slog.Logger
}

// NewManagementClient creates the management API client.
func NewManagementClient(cfg ManagementClientConfig) *ManagementClient {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.Config.withDefaults()
	return &ManagementClient{
		cfg:          base,
		workerID:     cfg.WorkerClientID,
		workerSecret: cfg.WorkerClientSecret,
		client:       newHTTPClient(base.Timeout),
		logger:       logger,
		tokens:       make(map[string]cachedToken),
	}
}

// applicationResource is the provider's application document, reduced
// to the fields pre-flight validation compares against.
type applicationResource struct {
	ID                      string   `json:"id"`
	Name                    string   `json:"name"`
	Enabled                 bool     `json:"enabled"`
	RedirectUris            []string `json:"redirectUris"`
	GrantTypes              []string `json:"grantTypes"`
	ResponseTypes           []string `json:"responseTypes"`
	TokenEndpointAuthMethod string   `json:"tokenEndpointAuthMethod"`
	PKCEEnforcement         string   `json:"pkceEnforcement"`
}

// FetchApplication reads one application's registered configuration.
func (c *ManagementClient) FetchApplication(ctx context.Context, environmentID, clientID, bearerToken string) (*domain.RegisteredApplication, error) {
	endpoint := fmt.Sprintf("%s/v1/environments/%s/applications/%s", c.cfg.APIBase, environmentID, clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build application request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch application: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read application response: %w", err)
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("application %q: %w", clientID, domain.ErrNotFound)
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("management token rejected (%d): %w", resp.StatusCode, domain.ErrNoManagementToken)
	default:
		return nil, fmt.Errorf("application fetch returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var app applicationResource
	if err := json.Unmarshal(body, &app); err != nil {
		return nil, fmt.Errorf("decode application response: %w", err)
	}

	return &domain.RegisteredApplication{
		ClientID:        app.ID,
		Name:            app.Name,
		Enabled:         app.Enabled,
		RedirectURIs:    app.RedirectUris,
		GrantTypes:      normalizeGrants(app.GrantTypes),
		ResponseTypes:   lowerAll(app.ResponseTypes),
		TokenAuthMethod: strings.ToLower(app.TokenEndpointAuthMethod),
		PKCEEnforced:    strings.Contains(app.PKCEEnforcement, "REQUIRED"),
	}, nil
}

// ObtainWorkerToken mints (or reuses) a management token for an
// environment using the configured worker application.
func (c *ManagementClient) ObtainWorkerToken(ctx context.Context, environmentID string) (string, error) {
	if c.workerID == "" {
		return "", fmt.Errorf("no worker application configured: %w", domain.ErrNoManagementToken)
	}

	c.mu.Lock()
	cached, ok := c.tokens[environmentID]
	c.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt.Add(-workerTokenMargin)) {
		return cached.value, nil
	}

	conf := &clientcredentials.Config{
		ClientID:     c.workerID,
		ClientSecret: c.workerSecret,
		TokenURL:     c.cfg.issuerURL(environmentID) + "/token",
	}
	tok, err := conf.Token(context.WithValue(ctx, oauth2.HTTPClient, c.client))
	if err != nil {
		return "", fmt.Errorf("mint worker token: %w", asOAuthError(err))
	}

	c.mu.Lock()
	c.tokens[environmentID] = cachedToken{value: tok.AccessToken, expiresAt: tok.Expiry}
	c.mu.Unlock()

	c.logger.Info("worker token minted", "environment_id", environmentID)
	return tok.AccessToken, nil
}

// normalizeGrants lowers the provider's grant enums to their RFC names.
func normalizeGrants(grants []string) []string {
	out := make([]string, 0, len(grants))
	for _, g := range grants {
		switch strings.ToLower(g) {
		case "device_code", "device":
			out = append(out, deviceGrantType)
		default:
			out = append(out, strings.ToLower(g))
		}
	}
	return out
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
