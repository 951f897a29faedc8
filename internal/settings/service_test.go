package settings

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/alexandreamato/spamanvil/internal/crypto"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", postgresql.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeStore) GetAll(_ context.Context) (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if _, ok := f.values[key]; !ok {
		return postgresql.ErrNotFound
	}
	delete(f.values, key)
	return nil
}

func newTestService() (*Service, *fakeStore) {
	store := newFakeStore()
	enc, _ := crypto.NewEncryptor([]byte("test-master-key"))
	return NewService(store, enc), store
}

func TestDefaultsWhenUnset(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if v, _ := svc.Enabled(ctx); !v {
		t.Error("Enabled default = false, want true")
	}
	if v, _ := svc.Mode(ctx); v != "async" {
		t.Errorf("Mode default = %q, want async", v)
	}
	if v, _ := svc.SpamThreshold(ctx); v != 70 {
		t.Errorf("SpamThreshold default = %d, want 70", v)
	}
	if v, _ := svc.HeuristicAutoSpam(ctx); v != 95 {
		t.Errorf("HeuristicAutoSpam default = %d, want 95", v)
	}
	if v, _ := svc.BatchSize(ctx); v != 5 {
		t.Errorf("BatchSize default = %d, want 5", v)
	}
	if v, _ := svc.AnvilMode(ctx); v {
		t.Error("AnvilMode default = true, want false")
	}
	if v, _ := svc.OriginBlockThreshold(ctx); v != 3 {
		t.Errorf("OriginBlockThreshold default = %d, want 3", v)
	}
	if v, _ := svc.LogRetentionDays(ctx); v != 30 {
		t.Errorf("LogRetentionDays default = %d, want 30", v)
	}
}

func TestStoredValuesWin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.values[KeyThreshold] = "85"
	store.values[KeyEnabled] = "0"
	store.values[KeyProviders] = "anthropic, openai ,gemini"

	if v, _ := svc.SpamThreshold(ctx); v != 85 {
		t.Errorf("SpamThreshold = %d, want 85", v)
	}
	if v, _ := svc.Enabled(ctx); v {
		t.Error("Enabled = true, want false")
	}
	order, _ := svc.ProviderOrder(ctx)
	if !reflect.DeepEqual(order, []string{"anthropic", "openai", "gemini"}) {
		t.Errorf("ProviderOrder = %v", order)
	}
}

func TestMalformedIntFallsBack(t *testing.T) {
	svc, store := newTestService()
	store.values[KeyThreshold] = "not a number"

	if v, _ := svc.SpamThreshold(context.Background()); v != 70 {
		t.Errorf("SpamThreshold = %d, want default 70", v)
	}
}

func TestSpamWordsNormalized(t *testing.T) {
	svc, store := newTestService()
	store.values[KeySpamWords] = "Buy NOW\n\n  casino  \n"

	words, err := svc.SpamWords(context.Background())
	if err != nil {
		t.Fatalf("SpamWords: %v", err)
	}
	if !reflect.DeepEqual(words, []string{"buy now", "casino"}) {
		t.Errorf("words = %v", words)
	}
}

func TestProviderAPIKeyRoundTrip(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if err := svc.SetProviderAPIKey(ctx, "openai", "sk-secret-value"); err != nil {
		t.Fatalf("SetProviderAPIKey: %v", err)
	}
	if stored := store.values["provider.openai.api_key"]; stored == "sk-secret-value" {
		t.Error("api key stored in cleartext")
	}

	got, err := svc.ProviderAPIKey(ctx, "openai")
	if err != nil {
		t.Fatalf("ProviderAPIKey: %v", err)
	}
	if got != "sk-secret-value" {
		t.Errorf("key = %q", got)
	}

	masked, err := svc.MaskedProviderAPIKey(ctx, "openai")
	if err != nil {
		t.Fatalf("MaskedProviderAPIKey: %v", err)
	}
	if masked == "sk-secret-value" || !strings.HasPrefix(masked, "sk-") {
		t.Errorf("masked = %q", masked)
	}
}

func TestSetProviderAPIKeyEmptyDeletes(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	if err := svc.SetProviderAPIKey(ctx, "openai", "sk-secret"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := svc.SetProviderAPIKey(ctx, "openai", ""); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := store.values["provider.openai.api_key"]; ok {
		t.Error("key not deleted")
	}
	// Clearing an already absent key is a no-op.
	if err := svc.SetProviderAPIKey(ctx, "openai", ""); err != nil {
		t.Errorf("clear absent: %v", err)
	}
}

func TestSeedPreservesExisting(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.values[KeyThreshold] = "85"

	if err := svc.Seed(ctx); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if store.values[KeyThreshold] != "85" {
		t.Error("Seed overwrote an existing value")
	}
	if store.values[KeyMode] != "async" {
		t.Errorf("Seed mode = %q", store.values[KeyMode])
	}
	if store.values[KeySystemPrompt] != DefaultSystemPrompt {
		t.Error("Seed did not write the default system prompt")
	}
	if !strings.Contains(store.values[KeyUserPrompt], "<comment_data>") {
		t.Error("default user prompt missing boundary tags")
	}
}
