package idp

import (
	"testing"
	"time"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg.AuthBase != DefaultAuthBase {
		t.Errorf("unexpected auth base: %s", cfg.AuthBase)
	}
	if cfg.APIBase != DefaultAPIBase {
		t.Errorf("unexpected api base: %s", cfg.APIBase)
	}
	if cfg.Timeout != DefaultTimeout {
		t.Errorf("unexpected timeout: %v", cfg.Timeout)
	}
}

func TestConfigWithDefaultsKeepsOverrides(t *testing.T) {
	cfg := Config{
		AuthBase: "https://auth.example.com/",
		APIBase:  "https://api.example.com/",
		Timeout:  5 * time.Second,
	}.withDefaults()

	if cfg.AuthBase != "https://auth.example.com" {
		t.Errorf("expected the trailing slash trimmed, got %s", cfg.AuthBase)
	}
	if cfg.APIBase != "https://api.example.com" {
		t.Errorf("expected the trailing slash trimmed, got %s", cfg.APIBase)
	}
	if cfg.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout: %v", cfg.Timeout)
	}
}

func TestConfigIssuerURL(t *testing.T) {
	cfg := Config{AuthBase: "https://auth.example.com"}.withDefaults()
	if got := cfg.issuerURL("env-1"); got != "https://auth.example.com/env-1/as" {
		t.Errorf("unexpected issuer: %s", got)
	}
}

func TestEnvironmentFromIssuer(t *testing.T) {
	tests := []struct {
		name     string
		issuer   string
		expected string
		wantErr  bool
	}{
		{"standard shape", "https://auth.example.com/env-1/as", "env-1", false},
		{"deep path", "https://auth.example.com/region/env-2/as", "env-2", false},
		{"missing as suffix", "https://auth.example.com/env-1", "", true},
		{"bare host", "https://auth.example.com", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := environmentFromIssuer(tt.issuer)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
