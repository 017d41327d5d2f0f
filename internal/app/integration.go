package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"hotel_onboarding/internal/adapters/observability"
	"hotel_onboarding/internal/domain"
)

// IntegrationService is the commit pipeline: it projects a completed
// draft (or a legacy record) into the canonical hotel/room aggregate
// under one transaction, scores it, propagates amenity/policy
// inheritance to every child room, and emits best-effort notifications.
type IntegrationService struct {
	sessions domain.SessionRepository
	store    domain.AggregateStore
	notifier domain.Notifier
	cache    domain.Cache

	// Clock is swappable in tests; defaults to time.Now.
	Clock func() time.Time
}

func NewIntegrationService(
	sessions domain.SessionRepository,
	store domain.AggregateStore,
	notifier domain.Notifier,
	cache domain.Cache,
) *IntegrationService {
	return &IntegrationService{
		sessions: sessions,
		store:    store,
		notifier: notifier,
		cache:    cache,
		Clock:    time.Now,
	}
}

// CommitSession atomically turns a session's draft into the canonical
// aggregate. All writes (hotel, rooms, session status) happen in one
// transaction; any failure rolls back everything and the session stays
// ACTIVE for retry. Re-committing a COMPLETED session is a no-op that
// returns the stored result with a warning.
func (s *IntegrationService) CommitSession(ctx context.Context, sessionID string) (domain.CompletionResult, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	switch sess.Status {
	case domain.SessionCompleted:
		log.Warn().Str("session", sessionID).Msg("commit of already-completed session; returning stored result")
		return domain.CompletionResult{HotelID: sess.HotelID, QualityScore: sess.QualityScore, AlreadyCompleted: true}, nil
	case domain.SessionAbandoned:
		return domain.CompletionResult{}, fmt.Errorf("session %s is abandoned: %w", sessionID, domain.ErrInvalidState)
	}

	draft, err := decodeDraft(sess.DraftData)
	if err != nil {
		return domain.CompletionResult{}, &domain.IntegrationError{Op: "commit", Cause: err}
	}
	now := s.Clock()

	var metrics domain.QualityMetrics
	start := time.Now()
	err = s.store.Transact(ctx, func(tx domain.AggregateTx) error {
		// Aggregate-root lock: every room write below depends on it.
		hotel, err := tx.GetHotelForUpdate(ctx, sess.HotelID)
		if err != nil {
			return err
		}
		applyDraft(&hotel, draft, sess.DraftData)

		rooms, err := tx.ListRooms(ctx, sess.HotelID)
		if err != nil {
			return err
		}
		byName := make(map[string]int, len(rooms))
		for i, r := range rooms {
			byName[r.BasicInfo.Name] = i
		}

		// Score the aggregate as it will stand after this commit: the
		// merged hotel content plus every room, pre-existing or new.
		totalRooms := len(rooms)
		for _, rd := range draft.Rooms.Rooms {
			if _, ok := byName[rd.Name]; !ok {
				totalRooms++
			}
		}
		metrics = Score(ContentFromAggregate(hotel, totalRooms))
		metrics.ScoredAt = now

		hotel.Quality = metrics
		hotel.OnboardingStatus = domain.OnboardingCompleted
		hotel.UpdatedAt = now
		if err := tx.SaveHotel(ctx, hotel); err != nil {
			return err
		}
		for _, rd := range draft.Rooms.Rooms {
			if i, ok := byName[rd.Name]; ok {
				updateRoomFromDraft(&rooms[i], rd)
				continue
			}
			room := roomFromDraft(sess.HotelID, rd)
			room.ApplyInheritance(&hotel)
			room.UpdatedAt = now
			if _, err := tx.CreateRoom(ctx, room); err != nil {
				return err
			}
		}
		// Propagate to every pre-existing room, draft-touched or not:
		// inherited amenities and policy mirrors must match the hotel
		// within this same transaction.
		for i := range rooms {
			rooms[i].ApplyInheritance(&hotel)
			rooms[i].UpdatedAt = now
			if err := tx.SaveRoom(ctx, rooms[i]); err != nil {
				return err
			}
		}

		return tx.MarkSessionCompleted(ctx, sessionID, metrics.OverallScore)
	})
	if err != nil {
		observability.ObserveCommit("commit", "error", time.Since(start))
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CompletionResult{}, err
		}
		return domain.CompletionResult{}, &domain.IntegrationError{Op: "commit", Cause: err}
	}
	observability.ObserveCommit("commit", "ok", time.Since(start))

	s.invalidateHotel(ctx, sess.HotelID)
	s.notify(ctx, domain.Event{
		Type:     "hotel_onboarding_completed",
		EntityID: sess.HotelID,
		Data: map[string]any{
			"sessionId":    sessionID,
			"qualityScore": metrics.OverallScore,
		},
		Timestamp: now,
	})

	log.Info().Str("session", sessionID).Int64("hotel", sess.HotelID).
		Int("score", metrics.OverallScore).Msg("onboarding committed")
	return domain.CompletionResult{HotelID: sess.HotelID, QualityScore: metrics.OverallScore}, nil
}

func updateRoomFromDraft(room *domain.RoomAggregate, rd RoomDraft) {
	room.BasicInfo.Type = rd.Type
	room.BasicInfo.Capacity = rd.Capacity
	room.BasicInfo.SizeSqm = rd.SizeSqm
	room.BasicInfo.Beds = rd.Beds
	if rd.Description != "" {
		room.Description = rd.Description
	}
	room.Amenities.Specific = rd.Amenities
	if rd.Pricing.NightlyRate > 0 {
		room.Pricing = rd.Pricing
	}
}

// MigrateLegacyHotel constructs an aggregate from a pre-onboarding
// record. Idempotent: a legacy id that already has an aggregate returns
// it unchanged with a warning, never a duplicate.
func (s *IntegrationService) MigrateLegacyHotel(ctx context.Context, legacyID int64) (domain.CompletionResult, error) {
	existing, err := s.store.FindHotelByLegacyID(ctx, legacyID)
	switch {
	case err == nil:
		log.Warn().Int64("legacy", legacyID).Int64("hotel", existing.ID).
			Msg("legacy hotel already migrated; returning existing aggregate")
		return domain.CompletionResult{HotelID: existing.ID, QualityScore: existing.Quality.OverallScore, AlreadyCompleted: true}, nil
	case errors.Is(err, domain.ErrNotFound):
		// not migrated yet
	default:
		return domain.CompletionResult{}, err
	}

	legacy, err := s.store.GetLegacyHotel(ctx, legacyID)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	hotel := hotelFromLegacy(legacy)
	now := s.Clock()
	// Initial score is expected to be low: legacy records predate the
	// content requirements.
	metrics := Score(ContentFromAggregate(hotel, len(legacy.Rooms)))
	metrics.ScoredAt = now
	hotel.Quality = metrics
	hotel.UpdatedAt = now

	var hotelID int64
	start := time.Now()
	err = s.store.Transact(ctx, func(tx domain.AggregateTx) error {
		id, err := tx.CreateHotel(ctx, hotel)
		if err != nil {
			return err
		}
		hotelID = id
		hotel.ID = id
		for _, lr := range legacy.Rooms {
			room := roomFromLegacy(id, lr)
			room.ApplyInheritance(&hotel)
			room.UpdatedAt = now
			if _, err := tx.CreateRoom(ctx, room); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		observability.ObserveCommit("migrate", "error", time.Since(start))
		return domain.CompletionResult{}, &domain.IntegrationError{Op: "migrate", Cause: err}
	}
	observability.ObserveCommit("migrate", "ok", time.Since(start))

	s.notify(ctx, domain.Event{
		Type:     "hotel_created",
		EntityID: hotelID,
		Data: map[string]any{
			"legacyId":     legacyID,
			"qualityScore": metrics.OverallScore,
		},
		Timestamp: now,
	})

	log.Info().Int64("legacy", legacyID).Int64("hotel", hotelID).Msg("legacy hotel migrated")
	return domain.CompletionResult{HotelID: hotelID, QualityScore: metrics.OverallScore}, nil
}

// notify is best-effort: a sink failure is logged and counted, never
// returned. A successful commit must not be rolled back by it.
func (s *IntegrationService) notify(ctx context.Context, ev domain.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		observability.ObserveNotification(ev.Type, "error")
		log.Warn().Err(err).Str("type", ev.Type).Int64("entity", ev.EntityID).Msg("notification failed")
		return
	}
	observability.ObserveNotification(ev.Type, "ok")
}

func (s *IntegrationService) invalidateHotel(ctx context.Context, hotelID int64) {
	if s.cache == nil {
		return
	}
	for _, key := range []string{fmt.Sprintf("hotel:%d", hotelID), fmt.Sprintf("score:%d", hotelID)} {
		if err := s.cache.Del(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("cache invalidation failed")
		}
	}
}
