package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// stubBackend implements driven.ArtifactBackend for testing. Error
// fields force failures per operation; the map is mutex-guarded because
// Save fans out to durable backends on goroutines.
type stubBackend struct {
	mu      sync.Mutex
	name    string
	data    map[string][]byte
	putErr  error
	getErr  error
	delErr  error
	pingErr error
}

func newStubBackend(name string) *stubBackend {
	return &stubBackend{name: name, data: make(map[string][]byte)}
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if b.putErr != nil {
		return b.putErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *stubBackend) Get(ctx context.Context, key string) ([]byte, error) {
	if b.getErr != nil {
		return nil, b.getErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return value, nil
}

func (b *stubBackend) Delete(ctx context.Context, key string) error {
	if b.delErr != nil {
		return b.delErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, key)
	return nil
}

func (b *stubBackend) Ping(ctx context.Context) error { return b.pingErr }

func (b *stubBackend) has(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.data[key]
	return ok
}

func TestArtifactKey(t *testing.T) {
	key := ArtifactKey(domain.FlowAuthorizationCode, domain.SpecOIDC, SlotPKCE)
	if key != "artifact:authorization-code:oidc:pkce" {
		t.Errorf("unexpected key: %s", key)
	}

	// Different flow types must never share a slot
	other := ArtifactKey(domain.FlowDeviceCode, domain.SpecOIDC, SlotPKCE)
	if key == other {
		t.Error("expected distinct keys for distinct flow types")
	}
}

func TestArtifactStore_Load_FastHit(t *testing.T) {
	fast := newStubBackend("memory")
	store := NewArtifactStore(ArtifactStoreConfig{Fast: fast})

	if err := store.Save(context.Background(), "artifact:test", []byte("value")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	store.Close()

	value, err := store.Load(context.Background(), "artifact:test")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(value) != "value" {
		t.Errorf("expected 'value', got %s", value)
	}
}

func TestArtifactStore_Save_FansOutToDurable(t *testing.T) {
	fast := newStubBackend("memory")
	durable1 := newStubBackend("redis")
	durable2 := newStubBackend("postgres")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{durable1, durable2},
	})

	if err := store.Save(context.Background(), "artifact:test", []byte("value")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	store.Close()

	if !fast.has("artifact:test") {
		t.Error("expected value in fast backend")
	}
	if !durable1.has("artifact:test") {
		t.Error("expected value in first durable backend")
	}
	if !durable2.has("artifact:test") {
		t.Error("expected value in second durable backend")
	}
}

func TestArtifactStore_Save_FastFailureWithDurableSucceeds(t *testing.T) {
	fast := newStubBackend("memory")
	fast.putErr = errors.New("out of memory")
	durable := newStubBackend("redis")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{durable},
	})

	// The value can still land durably, so the save must not fail
	if err := store.Save(context.Background(), "artifact:test", []byte("value")); err != nil {
		t.Errorf("Save() error = %v, want nil", err)
	}
	store.Close()

	if !durable.has("artifact:test") {
		t.Error("expected value in durable backend")
	}
}

func TestArtifactStore_Save_FastFailureAloneFails(t *testing.T) {
	fast := newStubBackend("memory")
	fast.putErr = errors.New("out of memory")
	store := NewArtifactStore(ArtifactStoreConfig{Fast: fast})

	if err := store.Save(context.Background(), "artifact:test", []byte("value")); err == nil {
		t.Error("Save() expected error when the only backend fails")
	}
}

func TestArtifactStore_Load_FallsBackAndRepairs(t *testing.T) {
	fast := newStubBackend("memory")
	durable := newStubBackend("redis")
	durable.data["artifact:test"] = []byte("recovered")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{durable},
	})

	value, err := store.Load(context.Background(), "artifact:test")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(value) != "recovered" {
		t.Errorf("expected 'recovered', got %s", value)
	}

	// Read-repair: the fast backend now holds the value
	if !fast.has("artifact:test") {
		t.Error("expected read-repair to populate the fast backend")
	}
}

func TestArtifactStore_Load_FallbackOrder(t *testing.T) {
	fast := newStubBackend("memory")
	durable1 := newStubBackend("redis")
	durable2 := newStubBackend("postgres")
	durable1.data["artifact:test"] = []byte("from-redis")
	durable2.data["artifact:test"] = []byte("from-postgres")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{durable1, durable2},
	})

	value, err := store.Load(context.Background(), "artifact:test")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(value) != "from-redis" {
		t.Errorf("expected the first durable backend to win, got %s", value)
	}
}

func TestArtifactStore_Load_NotFoundAnywhere(t *testing.T) {
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    newStubBackend("memory"),
		Durable: []driven.ArtifactBackend{newStubBackend("redis")},
	})

	_, err := store.Load(context.Background(), "artifact:missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestArtifactStore_Load_SkipsFailingBackend(t *testing.T) {
	fast := newStubBackend("memory")
	broken := newStubBackend("redis")
	broken.getErr = errors.New("connection refused")
	durable := newStubBackend("postgres")
	durable.data["artifact:test"] = []byte("still-here")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{broken, durable},
	})

	value, err := store.Load(context.Background(), "artifact:test")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(value) != "still-here" {
		t.Errorf("expected the healthy backend's value, got %s", value)
	}
}

func TestArtifactStore_Load_MissBeatsFailure(t *testing.T) {
	// One backend confirms absence while another is down: absence wins,
	// the caller sees a clean miss instead of an infrastructure error
	fast := newStubBackend("memory")
	broken := newStubBackend("redis")
	broken.getErr = errors.New("connection refused")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{broken},
	})

	_, err := store.Load(context.Background(), "artifact:missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestArtifactStore_Load_AllBackendsFailing(t *testing.T) {
	fast := newStubBackend("memory")
	fast.getErr = errors.New("memory corrupted")
	broken := newStubBackend("redis")
	broken.getErr = errors.New("connection refused")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{broken},
	})

	_, err := store.Load(context.Background(), "artifact:test")
	if err == nil {
		t.Fatal("Load() expected error when no backend could answer")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Error("expected an infrastructure error, not a clean miss")
	}
}

func TestArtifactStore_Clear(t *testing.T) {
	fast := newStubBackend("memory")
	durable := newStubBackend("redis")
	fast.data["artifact:test"] = []byte("value")
	durable.data["artifact:test"] = []byte("value")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{durable},
	})

	if err := store.Clear(context.Background(), "artifact:test"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if fast.has("artifact:test") {
		t.Error("expected key cleared from fast backend")
	}
	if durable.has("artifact:test") {
		t.Error("expected key cleared from durable backend")
	}
}

func TestArtifactStore_ClearFlow(t *testing.T) {
	fast := newStubBackend("memory")
	store := NewArtifactStore(ArtifactStoreConfig{Fast: fast})

	ctx := context.Background()
	for _, slot := range []string{SlotPKCE, SlotCallback, SlotTokens} {
		key := ArtifactKey(domain.FlowAuthorizationCode, domain.SpecOIDC, slot)
		fast.data[key] = []byte("value")
	}
	otherKey := ArtifactKey(domain.FlowDeviceCode, domain.SpecOIDC, SlotTokens)
	fast.data[otherKey] = []byte("value")

	if err := store.ClearFlow(ctx, domain.FlowAuthorizationCode, domain.SpecOIDC); err != nil {
		t.Fatalf("ClearFlow() error = %v", err)
	}

	for _, slot := range artifactSlots {
		key := ArtifactKey(domain.FlowAuthorizationCode, domain.SpecOIDC, slot)
		if fast.has(key) {
			t.Errorf("expected slot %s cleared", slot)
		}
	}
	// Other flow types keep their artifacts
	if !fast.has(otherKey) {
		t.Error("expected other flow's artifacts untouched")
	}
}

func TestArtifactStore_SaveAndLoadPKCE(t *testing.T) {
	store := NewArtifactStore(ArtifactStoreConfig{Fast: newStubBackend("memory")})

	ctx := context.Background()
	bundle := domain.NewPKCEBundle()
	if err := store.SavePKCE(ctx, domain.FlowAuthorizationCode, domain.SpecOIDC, bundle); err != nil {
		t.Fatalf("SavePKCE() error = %v", err)
	}
	store.Close()

	loaded, err := store.LoadPKCE(ctx, domain.FlowAuthorizationCode, domain.SpecOIDC)
	if err != nil {
		t.Fatalf("LoadPKCE() error = %v", err)
	}
	if loaded.CodeVerifier != bundle.CodeVerifier {
		t.Error("expected the stored verifier back")
	}
	if loaded.CodeChallengeMethod != domain.ChallengeS256 {
		t.Errorf("expected S256, got %s", loaded.CodeChallengeMethod)
	}
}

func TestArtifactStore_LoadPKCE_StaleBundleCleared(t *testing.T) {
	fast := newStubBackend("memory")
	store := NewArtifactStore(ArtifactStoreConfig{Fast: fast})

	ctx := context.Background()
	// A plain-method bundle left by an older rendition must never feed a
	// new authorization URL
	stale := &domain.PKCEBundle{
		CodeVerifier:        "stale-verifier-stale-verifier-stale-verifier-stale",
		CodeChallenge:       "stale-challenge",
		CodeChallengeMethod: "plain",
	}
	key := ArtifactKey(domain.FlowAuthorizationCode, domain.SpecOIDC, SlotPKCE)
	if err := store.SaveJSON(ctx, key, stale); err != nil {
		t.Fatalf("SaveJSON() error = %v", err)
	}
	store.Close()

	_, err := store.LoadPKCE(ctx, domain.FlowAuthorizationCode, domain.SpecOIDC)
	if !errors.Is(err, domain.ErrStalePKCE) {
		t.Errorf("LoadPKCE() error = %v, want ErrStalePKCE", err)
	}

	// The stale bundle is purged so it cannot resurface
	if fast.has(key) {
		t.Error("expected stale bundle cleared from storage")
	}
}

func TestArtifactStore_Ping(t *testing.T) {
	fast := newStubBackend("memory")
	durable := newStubBackend("redis")
	store := NewArtifactStore(ArtifactStoreConfig{
		Fast:    fast,
		Durable: []driven.ArtifactBackend{durable},
	})

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	durable.pingErr = errors.New("connection refused")
	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() expected error when a backend is down")
	}
}
