package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Artifact slot suffixes. One slot per session for PKCE, device and
// callback material; token slots are per flow type so concurrent
// exercises of different grants never collide.
const (
	SlotPKCE       = "pkce"
	SlotDevice     = "device"
	SlotCallback   = "callback"
	SlotTokens     = "tokens"
	SlotCorrelator = "correlator"
)

var artifactSlots = []string{SlotPKCE, SlotDevice, SlotCallback, SlotTokens, SlotCorrelator}

// ArtifactKey builds the storage key for a slot. Keys are scoped by flow
// type and spec version so every write stays inside its own exercise.
func ArtifactKey(flowType domain.FlowType, specVersion domain.SpecVersion, slot string) string {
	return fmt.Sprintf("artifact:%s:%s:%s", flowType, specVersion, slot)
}

// ArtifactStore is the storage redundancy layer: one fast backend for
// the hot path plus any number of independent durable backends. Writes
// go to the fast backend synchronously and fan out to the durable
// backends asynchronously; reads fall back through the durable backends
// and repair the fast backend on the way out.
type ArtifactStore struct {
	fast    driven.ArtifactBackend
	durable []driven.ArtifactBackend
	ttl     time.Duration
	logger  *slog.Logger

	wg sync.WaitGroup
}

// ArtifactStoreConfig holds configuration for the artifact store.
type ArtifactStoreConfig struct {
	// Fast is the synchronous hot-path backend (in-memory)
	Fast driven.ArtifactBackend

	// Durable are the independent fallback backends, consulted in order
	Durable []driven.ArtifactBackend

	// TTL bounds every stored artifact's lifetime (default: 1h)
	TTL time.Duration

	Logger *slog.Logger
}

// NewArtifactStore creates the redundancy layer.
func NewArtifactStore(cfg ArtifactStoreConfig) *ArtifactStore {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &ArtifactStore{
		fast:    cfg.Fast,
		durable: cfg.Durable,
		ttl:     ttl,
		logger:  logger,
	}
}

// Save writes the value to the fast backend synchronously and to every
// durable backend asynchronously. A durable write failure is logged,
// never raised. A fast-backend failure alone does not fail the call as
// long as durable backends exist to recover from; it fails only when
// there is nowhere else the value could land.
func (s *ArtifactStore) Save(ctx context.Context, key string, value []byte) error {
	fastErr := s.fast.Put(ctx, key, value, s.ttl)
	if fastErr != nil {
		s.logger.Error("fast artifact write failed",
			"backend", s.fast.Name(),
			"key", key,
			"error", fastErr)
	}

	for _, backend := range s.durable {
		s.wg.Add(1)
		go func(b driven.ArtifactBackend) {
			defer s.wg.Done()
			writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := b.Put(writeCtx, key, value, s.ttl); err != nil {
				s.logger.Warn("durable artifact write failed",
					"backend", b.Name(),
					"key", key,
					"error", err)
			}
		}(backend)
	}

	if fastErr != nil && len(s.durable) == 0 {
		return fmt.Errorf("save artifact %s: %w", key, fastErr)
	}
	return nil
}

// SaveJSON marshals and saves a value.
func (s *ArtifactStore) SaveJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal artifact %s: %w", key, err)
	}
	return s.Save(ctx, key, data)
}

// LoadSync reads from the fast backend only. Used on the hot path,
// immediately after a redirect lands.
func (s *ArtifactStore) LoadSync(ctx context.Context, key string) ([]byte, error) {
	value, err := s.fast.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load artifact %s from %s: %w", key, s.fast.Name(), err)
	}
	return value, nil
}

// Load reads from the fast backend first and falls back through the
// durable backends in order. A value recovered from a durable backend is
// re-written to the fast backend before returning, so subsequent
// LoadSync calls hit. Absence everywhere is domain.ErrNotFound; an error
// is returned only when no backend could even answer.
func (s *ArtifactStore) Load(ctx context.Context, key string) ([]byte, error) {
	value, fastErr := s.fast.Get(ctx, key)
	if fastErr == nil {
		return value, nil
	}
	if !errors.Is(fastErr, domain.ErrNotFound) {
		s.logger.Warn("fast artifact read failed",
			"backend", s.fast.Name(),
			"key", key,
			"error", fastErr)
	}

	var result *multierror.Error
	sawMiss := errors.Is(fastErr, domain.ErrNotFound)
	for _, backend := range s.durable {
		value, err := backend.Get(ctx, key)
		if err == nil {
			s.repair(ctx, key, value)
			return value, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			sawMiss = true
			continue
		}
		result = multierror.Append(result, fmt.Errorf("%s: %w", backend.Name(), err))
	}

	if sawMiss {
		return nil, domain.ErrNotFound
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("load artifact %s: %w", key, err)
	}
	return nil, domain.ErrNotFound
}

// LoadJSON loads and unmarshals a value.
func (s *ArtifactStore) LoadJSON(ctx context.Context, key string, dst any) error {
	data, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal artifact %s: %w", key, err)
	}
	return nil
}

// repair re-writes a durable-recovered value to the fast backend.
func (s *ArtifactStore) repair(ctx context.Context, key string, value []byte) {
	if err := s.fast.Put(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("artifact read-repair failed",
			"backend", s.fast.Name(),
			"key", key,
			"error", err)
	}
}

// Clear removes the key from every backend. Best-effort: backends that
// never held the key succeed trivially, real failures are aggregated and
// returned for the caller to log.
func (s *ArtifactStore) Clear(ctx context.Context, key string) error {
	var result *multierror.Error
	if err := s.fast.Delete(ctx, key); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", s.fast.Name(), err))
	}
	for _, backend := range s.durable {
		if err := backend.Delete(ctx, key); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("clear artifact %s: %w", key, err)
	}
	return nil
}

// ClearFlow removes every artifact slot of one flow type + spec version
// pair. Used by restarts and flow-type changes.
func (s *ArtifactStore) ClearFlow(ctx context.Context, flowType domain.FlowType, specVersion domain.SpecVersion) error {
	var result *multierror.Error
	for _, slot := range artifactSlots {
		if err := s.Clear(ctx, ArtifactKey(flowType, specVersion, slot)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// SavePKCE persists a PKCE bundle to its slot.
func (s *ArtifactStore) SavePKCE(ctx context.Context, flowType domain.FlowType, specVersion domain.SpecVersion, bundle *domain.PKCEBundle) error {
	return s.SaveJSON(ctx, ArtifactKey(flowType, specVersion, SlotPKCE), bundle)
}

// LoadPKCE loads the stored PKCE bundle. A stale bundle (anything that
// fails validation, notably a non-S256 method left by an older
// rendition) is cleared from storage and reported as ErrStalePKCE so it
// can never feed a new authorization URL.
func (s *ArtifactStore) LoadPKCE(ctx context.Context, flowType domain.FlowType, specVersion domain.SpecVersion) (*domain.PKCEBundle, error) {
	key := ArtifactKey(flowType, specVersion, SlotPKCE)
	var bundle domain.PKCEBundle
	if err := s.LoadJSON(ctx, key, &bundle); err != nil {
		return nil, err
	}
	if err := bundle.Validate(); err != nil {
		if clearErr := s.Clear(ctx, key); clearErr != nil {
			s.logger.Warn("clearing stale pkce bundle failed", "key", key, "error", clearErr)
		}
		return nil, err
	}
	return &bundle, nil
}

// Ping checks every backend, aggregating failures.
func (s *ArtifactStore) Ping(ctx context.Context) error {
	var result *multierror.Error
	if err := s.fast.Ping(ctx); err != nil {
		result = multierror.Append(result, fmt.Errorf("%s: %w", s.fast.Name(), err))
	}
	for _, backend := range s.durable {
		if err := backend.Ping(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}
	return result.ErrorOrNil()
}

// Close waits for in-flight asynchronous durable writes to finish.
func (s *ArtifactStore) Close() {
	s.wg.Wait()
}
