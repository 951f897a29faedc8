package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexandreamato/spamanvil/internal/entity"
	"github.com/alexandreamato/spamanvil/internal/repository/postgresql"
)

const baseBlockDuration = 24 * time.Hour

// ReputationService tracks repeat-offender origins with escalating
// temporary blocks. Raw addresses never reach storage: lookups go through
// an irreversible hash and display forms are partially masked.
type ReputationService struct {
	origins  OriginStore
	settings Settings
	logger   zerolog.Logger
	now      func() time.Time
}

func NewReputationService(origins OriginStore, settings Settings, logger zerolog.Logger) *ReputationService {
	return &ReputationService{
		origins:  origins,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// HashOrigin derives the storage key for a raw origin address.
func HashOrigin(origin string) string {
	sum := sha256.Sum256([]byte(origin))
	return hex.EncodeToString(sum[:])
}

// maskOrigin redacts the tail of an address for display: the last IPv4
// octet, or the last two IPv6 segments.
func maskOrigin(origin string) string {
	ip := net.ParseIP(origin)
	if ip == nil {
		return "***.***.***"
	}
	if ip.To4() != nil {
		parts := strings.Split(origin, ".")
		parts[len(parts)-1] = "***"
		return strings.Join(parts, ".")
	}
	parts := strings.Split(origin, ":")
	if len(parts) > 2 {
		parts[len(parts)-1] = "****"
		parts[len(parts)-2] = "****"
	}
	return strings.Join(parts, ":")
}

// blockDuration returns 24h doubled per escalation level beyond the
// first.
func blockDuration(level int) time.Duration {
	if level < 1 {
		level = 1
	}
	return baseBlockDuration << (level - 1)
}

// IsBlocked reports whether submissions from origin are currently
// rejected. Disabled blocking, an unknown origin, or an expired block all
// mean false.
func (s *ReputationService) IsBlocked(ctx context.Context, origin string) (bool, error) {
	if origin == "" {
		return false, nil
	}
	enabled, err := s.settings.OriginBlockingEnabled(ctx)
	if err != nil {
		return false, err
	}
	if !enabled {
		return false, nil
	}

	rec, err := s.origins.GetByHash(ctx, HashOrigin(origin))
	if err != nil {
		if errors.Is(err, postgresql.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup origin: %w", err)
	}
	return rec.Blocked(s.now()), nil
}

// RecordSpamSignal upserts the origin record and escalates once attempts
// reach the configured threshold. Each escalation doubles the block
// duration. A threshold of 1 blocks a brand-new origin immediately.
func (s *ReputationService) RecordSpamSignal(ctx context.Context, origin string) error {
	if origin == "" {
		return nil
	}
	threshold, err := s.settings.OriginBlockThreshold(ctx)
	if err != nil {
		return err
	}
	now := s.now()

	rec, err := s.origins.GetByHash(ctx, HashOrigin(origin))
	if err != nil {
		if !errors.Is(err, postgresql.ErrNotFound) {
			return fmt.Errorf("lookup origin: %w", err)
		}
		fresh := &entity.OriginRecord{
			OriginHash:    HashOrigin(origin),
			OriginDisplay: maskOrigin(origin),
			Attempts:      1,
		}
		if threshold <= 1 {
			fresh.EscalationLevel = 1
			until := now.Add(baseBlockDuration)
			fresh.BlockedUntil = &until
		}
		if _, err := s.origins.Insert(ctx, fresh); err != nil {
			return fmt.Errorf("insert origin: %w", err)
		}
		return nil
	}

	if threshold < 1 {
		threshold = 1
	}
	rec.Attempts++
	// Escalate each time the attempt count crosses another multiple of
	// the threshold, doubling the block window per level.
	if rec.Attempts >= threshold && rec.Attempts%threshold == 0 {
		rec.EscalationLevel++
		until := now.Add(blockDuration(rec.EscalationLevel))
		rec.BlockedUntil = &until
		s.logger.Info().
			Str("origin", rec.OriginDisplay).
			Int("attempts", rec.Attempts).
			Int("escalation_level", rec.EscalationLevel).
			Time("blocked_until", until).
			Msg("origin escalated")
	}
	if err := s.origins.Update(ctx, rec); err != nil {
		return fmt.Errorf("update origin: %w", err)
	}
	return nil
}

// Unblock removes the record entirely, resetting all escalation history.
func (s *ReputationService) Unblock(ctx context.Context, id int64) error {
	return s.origins.Delete(ctx, id)
}

// List returns a page of origin records, most recently updated first.
func (s *ReputationService) List(ctx context.Context, page, perPage int) ([]entity.OriginRecord, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.origins.List(ctx, perPage, (page-1)*perPage)
}
