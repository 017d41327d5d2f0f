package domain

import (
	"encoding/json"
	"time"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "ACTIVE"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionAbandoned SessionStatus = "ABANDONED"
)

// SessionTTL is how long an ACTIVE session stays usable after creation.
const SessionTTL = 7 * 24 * time.Hour

// StepOrder is the canonical wizard sequence. Unknown step ids are
// stored verbatim but do not count toward progress.
var StepOrder = []string{
	StepBasicInfo,
	StepLocation,
	StepAmenities,
	StepImages,
	StepDescription,
	StepRooms,
	StepPolicies,
}

const (
	StepBasicInfo   = "basic_info"
	StepLocation    = "location"
	StepAmenities   = "amenities"
	StepImages      = "images"
	StepDescription = "description"
	StepRooms       = "rooms"
	StepPolicies    = "policies"
)

// StepIndex returns the position of a step in the wizard, or -1 for
// unknown step ids.
func StepIndex(stepID string) int {
	for i, s := range StepOrder {
		if s == stepID {
			return i
		}
	}
	return -1
}

type OnboardingSession struct {
	ID             string
	HotelID        int64
	UserID         int64
	CurrentStep    int
	CompletedSteps []string
	DraftData      map[string]json.RawMessage // step id -> normalized payload
	QualityScore   int
	Status         SessionStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      time.Time
}

// Expired reports whether the session is past its TTL. Checked live on
// every mutating call; the background sweep only catches up the stored
// status.
func (s *OnboardingSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Mutable reports whether the session accepts step updates.
func (s *OnboardingSession) Mutable(now time.Time) bool {
	return s.Status == SessionActive && !s.Expired(now)
}

// HasCompleted reports membership in CompletedSteps.
func (s *OnboardingSession) HasCompleted(stepID string) bool {
	for _, c := range s.CompletedSteps {
		if c == stepID {
			return true
		}
	}
	return false
}

type Progress struct {
	CurrentStep          int      `json:"currentStep"`
	CompletedSteps       []string `json:"completedSteps"`
	TotalSteps           int      `json:"totalSteps"`
	CompletionPercentage float64  `json:"completionPercentage"`
	QualityScore         int      `json:"qualityScore"`
}

// CompletionResult is what a successful commit hands back to the caller.
type CompletionResult struct {
	HotelID      int64 `json:"hotelId"`
	QualityScore int   `json:"qualityScore"`
	// AlreadyCompleted flags the idempotent no-op path (re-commit of a
	// COMPLETED session, re-migration of a known legacy id).
	AlreadyCompleted bool `json:"alreadyCompleted,omitempty"`
}
