// Package settings exposes typed runtime configuration over a key-value
// store, with defaults seeded at startup and provider credentials
// encrypted at rest.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexandreamato/spamanvil/internal/crypto"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

// Setting keys. Provider-scoped values use the provider.<slug>.* form.
const (
	KeyEnabled               = "enabled"
	KeyMode                  = "mode"
	KeyThreshold             = "threshold"
	KeyHeuristicAutoSpam     = "heuristic_auto_spam"
	KeyBatchSize             = "batch_size"
	KeyProviders             = "providers"
	KeyAnvilMode             = "anvil_mode"
	KeyLogRetentionDays      = "log_retention_days"
	KeyOriginBlockingEnabled = "origin_blocking_enabled"
	KeyOriginBlockThreshold  = "origin_block_threshold"
	KeySiteLanguage          = "site_language"
	KeySystemPrompt          = "system_prompt"
	KeyUserPrompt            = "user_prompt"
	KeySpamWords             = "spam_words"
)

// Store is the persistence port. Get returns postgresql.ErrNotFound for a
// missing key.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	GetAll(ctx context.Context) (map[string]string, error)
	Delete(ctx context.Context, key string) error
}

// Service resolves typed settings, falling back to defaults for unset
// keys. API keys pass through the encryptor in both directions.
type Service struct {
	store     Store
	encryptor *crypto.Encryptor
}

func NewService(store Store, encryptor *crypto.Encryptor) *Service {
	return &Service{store: store, encryptor: encryptor}
}

func (s *Service) getString(ctx context.Context, key, def string) (string, error) {
	v, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, postgresql.ErrNotFound) {
			return def, nil
		}
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

func (s *Service) getInt(ctx context.Context, key string, def int) (int, error) {
	v, err := s.getString(ctx, key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def, nil
	}
	return n, nil
}

func (s *Service) getBool(ctx context.Context, key string, def bool) (bool, error) {
	v, err := s.getString(ctx, key, "")
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(v) {
	case "":
		return def, nil
	case "1", "true":
		return true, nil
	default:
		return false, nil
	}
}

func (s *Service) Enabled(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyEnabled, true)
}

// Mode is the intake processing mode, async or sync.
func (s *Service) Mode(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyMode, "async")
}

// SpamThreshold is the score at or above which a submission is spam.
func (s *Service) SpamThreshold(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyThreshold, 70)
}

// HeuristicAutoSpam is the pre-score at or above which a submission is
// marked spam without a provider call.
func (s *Service) HeuristicAutoSpam(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyHeuristicAutoSpam, 95)
}

func (s *Service) BatchSize(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyBatchSize, 5)
}

// ProviderOrder is the configured preference chain, first entry tried
// first in fallback mode.
func (s *Service) ProviderOrder(ctx context.Context) ([]string, error) {
	v, err := s.getString(ctx, KeyProviders, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, slug := range strings.Split(v, ",") {
		if slug = strings.TrimSpace(slug); slug != "" {
			out = append(out, slug)
		}
	}
	return out, nil
}

// AnvilMode reports whether consensus scoring across all configured
// providers is enabled.
func (s *Service) AnvilMode(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyAnvilMode, false)
}

func (s *Service) LogRetentionDays(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyLogRetentionDays, 30)
}

func (s *Service) OriginBlockingEnabled(ctx context.Context) (bool, error) {
	return s.getBool(ctx, KeyOriginBlockingEnabled, true)
}

func (s *Service) OriginBlockThreshold(ctx context.Context) (int, error) {
	return s.getInt(ctx, KeyOriginBlockThreshold, 3)
}

func (s *Service) SiteLanguage(ctx context.Context) (string, error) {
	return s.getString(ctx, KeySiteLanguage, "en")
}

func (s *Service) SystemPrompt(ctx context.Context) (string, error) {
	return s.getString(ctx, KeySystemPrompt, DefaultSystemPrompt)
}

func (s *Service) UserPrompt(ctx context.Context) (string, error) {
	return s.getString(ctx, KeyUserPrompt, DefaultUserPrompt)
}

// SpamWords returns the configured word list, one entry per line,
// lowercased with blanks dropped.
func (s *Service) SpamWords(ctx context.Context) ([]string, error) {
	v, err := s.getString(ctx, KeySpamWords, DefaultSpamWords)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(v, "\n") {
		if line = strings.ToLower(strings.TrimSpace(line)); line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func (s *Service) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, key, value)
}

func providerKey(slug, field string) string {
	return "provider." + slug + "." + field
}

// SetProviderAPIKey stores the key encrypted. An empty key deletes the
// stored value.
func (s *Service) SetProviderAPIKey(ctx context.Context, slug, apiKey string) error {
	key := providerKey(slug, "api_key")
	if apiKey == "" {
		err := s.store.Delete(ctx, key)
		if errors.Is(err, postgresql.ErrNotFound) {
			return nil
		}
		return err
	}
	enc, err := s.encryptor.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("encrypt api key for %s: %w", slug, err)
	}
	return s.store.Set(ctx, key, enc)
}

// ProviderAPIKey returns the decrypted key, or empty when unset.
func (s *Service) ProviderAPIKey(ctx context.Context, slug string) (string, error) {
	enc, err := s.getString(ctx, providerKey(slug, "api_key"), "")
	if err != nil || enc == "" {
		return "", err
	}
	plain, err := s.encryptor.Decrypt(enc)
	if err != nil {
		return "", fmt.Errorf("decrypt api key for %s: %w", slug, err)
	}
	return plain, nil
}

// MaskedProviderAPIKey returns the stored key in redacted display form.
func (s *Service) MaskedProviderAPIKey(ctx context.Context, slug string) (string, error) {
	plain, err := s.ProviderAPIKey(ctx, slug)
	if err != nil {
		return "", err
	}
	return crypto.Mask(plain), nil
}

func (s *Service) ProviderModel(ctx context.Context, slug string) (string, error) {
	return s.getString(ctx, providerKey(slug, "model"), "")
}

func (s *Service) ProviderEndpoint(ctx context.Context, slug string) (string, error) {
	return s.getString(ctx, providerKey(slug, "endpoint"), "")
}

func (s *Service) SetProviderModel(ctx context.Context, slug, model string) error {
	return s.store.Set(ctx, providerKey(slug, "model"), model)
}

func (s *Service) SetProviderEndpoint(ctx context.Context, slug, endpoint string) error {
	return s.store.Set(ctx, providerKey(slug, "endpoint"), endpoint)
}

// Seed writes defaults for keys not yet present, leaving existing values
// untouched.
func (s *Service) Seed(ctx context.Context) error {
	existing, err := s.store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	defaults := map[string]string{
		KeyEnabled:               "1",
		KeyMode:                  "async",
		KeyThreshold:             "70",
		KeyHeuristicAutoSpam:     "95",
		KeyBatchSize:             "5",
		KeyProviders:             "",
		KeyAnvilMode:             "0",
		KeyLogRetentionDays:      "30",
		KeyOriginBlockingEnabled: "1",
		KeyOriginBlockThreshold:  "3",
		KeySiteLanguage:          "en",
		KeySystemPrompt:          DefaultSystemPrompt,
		KeyUserPrompt:            DefaultUserPrompt,
		KeySpamWords:             DefaultSpamWords,
	}

	for key, value := range defaults {
		if _, ok := existing[key]; ok {
			continue
		}
		if err := s.store.Set(ctx, key, value); err != nil {
			return fmt.Errorf("seed setting %s: %w", key, err)
		}
	}
	return nil
}
