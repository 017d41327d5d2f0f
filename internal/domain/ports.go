package domain

import (
	"context"
	"encoding/json"
	"time"
)

type SessionRepository interface {
	// CreateSession returns ErrAlreadyExists when an ACTIVE session is
	// already held for the same hotel/user pair.
	CreateSession(ctx context.Context, s OnboardingSession) error
	GetSession(ctx context.Context, id string) (OnboardingSession, error)
	// FindActiveSession returns ErrNotFound when no ACTIVE session
	// exists for the pair.
	FindActiveSession(ctx context.Context, hotelID, userID int64) (OnboardingSession, error)
	// SaveSession persists session metadata: step pointer, completed
	// set, score. Draft payloads go through SaveStepDraft only.
	SaveSession(ctx context.Context, s OnboardingSession) error
	// SaveStepDraft writes one draft key in place so concurrent updates
	// to different steps never overwrite each other.
	SaveStepDraft(ctx context.Context, sessionID, stepID string, payload json.RawMessage, updatedAt time.Time) error
	// SweepExpired transitions ACTIVE sessions past their expiry to
	// ABANDONED with one conditional bulk update and returns how many
	// rows changed. Safe under concurrent invocation.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// AggregateStore is the transactional hotel/room store. Transact runs fn
// inside one transaction; any error rolls back every write.
type AggregateStore interface {
	HotelExists(ctx context.Context, id int64) (bool, error)
	UserExists(ctx context.Context, id int64) (bool, error)
	GetHotel(ctx context.Context, id int64) (HotelAggregate, error)
	// FindHotelByLegacyID returns ErrNotFound when no aggregate
	// references the legacy record.
	FindHotelByLegacyID(ctx context.Context, legacyID int64) (HotelAggregate, error)
	GetLegacyHotel(ctx context.Context, id int64) (LegacyHotel, error)
	Transact(ctx context.Context, fn func(tx AggregateTx) error) error
}

// AggregateTx is the per-transaction surface. GetHotelForUpdate takes
// the aggregate-root lock; every room write for that hotel must happen
// under it.
type AggregateTx interface {
	GetHotelForUpdate(ctx context.Context, id int64) (HotelAggregate, error)
	SaveHotel(ctx context.Context, h HotelAggregate) error
	CreateHotel(ctx context.Context, h HotelAggregate) (int64, error)
	ListRooms(ctx context.Context, hotelID int64) ([]RoomAggregate, error)
	SaveRoom(ctx context.Context, r RoomAggregate) error
	CreateRoom(ctx context.Context, r RoomAggregate) (int64, error)
	MarkSessionCompleted(ctx context.Context, sessionID string, score int) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Event goes to the downstream notification sink. Best-effort: failures
// are logged, never rolled back.
type Event struct {
	Type      string    `json:"type"` // hotel_onboarding_completed | hotel_created
	EntityID  int64     `json:"entityId"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// AuditEvent is recorded after session creation, step updates, and
// completion. Same best-effort semantics as Notifier.
type AuditEvent struct {
	Action       string `json:"action"`
	UserID       int64  `json:"userId"`
	HotelID      int64  `json:"hotelId"`
	SessionID    string `json:"sessionId,omitempty"`
	StepID       string `json:"stepId,omitempty"`
	PreviousData any    `json:"previousData,omitempty"`
	NewData      any    `json:"newData,omitempty"`
	Metadata     any    `json:"metadata,omitempty"`
}

type AuditSink interface {
	RecordEvent(ctx context.Context, ev AuditEvent) error
}

// PermissionChecker is consulted before any session-mutating operation.
// A false result fails the operation with ErrForbidden before any state
// is touched.
type PermissionChecker interface {
	CheckPermission(ctx context.Context, userID, hotelID int64, permission string) (bool, error)
}

const (
	PermOnboard = "hotel:onboard"
	PermMigrate = "hotel:migrate"
)
