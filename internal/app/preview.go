package app

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"hotel_onboarding/internal/domain"
)

// PreviewService serves read paths: live score previews over a draft
// (queried on each wizard keystroke, so cached by content hash) and the
// committed hotel view.
type PreviewService struct {
	sessions domain.SessionRepository
	store    domain.AggregateStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewPreviewService(sessions domain.SessionRepository, store domain.AggregateStore, cache domain.Cache, ttl time.Duration) *PreviewService {
	return &PreviewService{sessions: sessions, store: store, cache: cache, cacheTTL: ttl}
}

type ScorePreview struct {
	Metrics         domain.QualityMetrics `json:"metrics"`
	Missing         []MissingInformation  `json:"missing"`
	Recommendations []Recommendation      `json:"recommendations"`
}

// PreviewDraftScore scores a session's current draft without committing
// anything. The scorer is deterministic, so identical drafts share one
// cache entry keyed by content hash; the cached result is byte-equal to
// a fresh computation.
func (s *PreviewService) PreviewDraftScore(ctx context.Context, sessionID string) (ScorePreview, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return ScorePreview{}, err
	}
	draft, err := decodeDraft(sess.DraftData)
	if err != nil {
		return ScorePreview{}, err
	}
	content := contentFromDraft(draft)

	key := "preview:" + contentHash(content)
	var cached ScorePreview
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	out := computePreview(content)
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// PreviewHotelScore scores a committed aggregate's current content.
func (s *PreviewService) PreviewHotelScore(ctx context.Context, hotelID int64) (ScorePreview, error) {
	key := fmt.Sprintf("score:%d", hotelID)
	var cached ScorePreview
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	hotel, rooms, err := s.hotelWithRooms(ctx, hotelID)
	if err != nil {
		return ScorePreview{}, err
	}
	out := computePreview(ContentFromAggregate(hotel, len(rooms)))
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

// GetHotel returns the committed aggregate, cached.
func (s *PreviewService) GetHotel(ctx context.Context, hotelID int64) (domain.HotelAggregate, error) {
	key := fmt.Sprintf("hotel:%d", hotelID)
	var hv domain.HotelAggregate
	if ok, _ := s.cache.Get(ctx, key, &hv); ok {
		return hv, nil
	}
	h, err := s.store.GetHotel(ctx, hotelID)
	if err != nil {
		return domain.HotelAggregate{}, err
	}
	_ = s.cache.Set(ctx, key, h, int(s.cacheTTL.Seconds()))
	return h, nil
}

func (s *PreviewService) hotelWithRooms(ctx context.Context, hotelID int64) (domain.HotelAggregate, []domain.RoomAggregate, error) {
	var (
		hotel domain.HotelAggregate
		rooms []domain.RoomAggregate
	)
	// Read-only use of the tx surface keeps the hotel and its rooms
	// from straddling a concurrent commit.
	err := s.store.Transact(ctx, func(tx domain.AggregateTx) error {
		h, err := tx.GetHotelForUpdate(ctx, hotelID)
		if err != nil {
			return err
		}
		rs, err := tx.ListRooms(ctx, hotelID)
		if err != nil {
			return err
		}
		hotel, rooms = h, rs
		return nil
	})
	if err != nil {
		return domain.HotelAggregate{}, nil, err
	}
	return hotel, rooms, nil
}

func computePreview(content HotelContent) ScorePreview {
	metrics := Score(content)
	missing := IdentifyMissingInformation(content)
	return ScorePreview{
		Metrics:         metrics,
		Missing:         missing,
		Recommendations: GenerateRecommendations(metrics, missing),
	}
}

// contentHash is a stable digest of the snapshot. Map iteration order
// does not leak into it because buckets are marshaled with sorted keys
// by encoding/json.
func contentHash(c HotelContent) string {
	b, _ := json.Marshal(c)
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
