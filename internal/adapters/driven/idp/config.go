package idp

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	// DefaultAuthBase is the provider's authentication host
	DefaultAuthBase = "https://auth.pingone.com"

	// DefaultAPIBase is the provider's management API host
	DefaultAPIBase = "https://api.pingone.com"

	// DefaultTimeout bounds every outbound protocol call
	DefaultTimeout = 30 * time.Second
)

// Config holds connection settings shared by the provider-facing
// adapters.
type Config struct {
	// AuthBase is the authentication host (default: https://auth.pingone.com)
	AuthBase string

	// APIBase is the management API host (default: https://api.pingone.com)
	APIBase string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AuthBase: DefaultAuthBase,
		APIBase:  DefaultAPIBase,
		Timeout:  DefaultTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.AuthBase == "" {
		c.AuthBase = DefaultAuthBase
	}
	if c.APIBase == "" {
		c.APIBase = DefaultAPIBase
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	c.AuthBase = strings.TrimSuffix(c.AuthBase, "/")
	c.APIBase = strings.TrimSuffix(c.APIBase, "/")
	return c
}

// issuerURL builds an environment's issuer identifier.
func (c Config) issuerURL(environmentID string) string {
	return fmt.Sprintf("%s/%s/as", c.AuthBase, environmentID)
}

// newHTTPClient builds the pooled client every adapter in this package
// shares the shape of.
func newHTTPClient(timeout time.Duration) *http.Client {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return client
}

// environmentFromIssuer recovers the environment ID from an issuer of
// the {base}/{environment}/as shape.
func environmentFromIssuer(issuer string) (string, error) {
	u, err := url.Parse(issuer)
	if err != nil {
		return "", fmt.Errorf("parse issuer: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[len(parts)-1] != "as" {
		return "", fmt.Errorf("issuer %q does not follow the {base}/{environment}/as shape", issuer)
	}
	return parts[len(parts)-2], nil
}
