package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_onboarding/internal/adapters/observability"
	"hotel_onboarding/internal/domain"
)

// SessionService owns the onboarding session state machine: creation,
// idempotent step updates, completion, and expiry.
type SessionService struct {
	sessions   domain.SessionRepository
	store      domain.AggregateStore
	perms      domain.PermissionChecker
	audit      domain.AuditSink
	integrator *IntegrationService

	// Clock is swappable in tests; defaults to time.Now.
	Clock func() time.Time
}

func NewSessionService(
	sessions domain.SessionRepository,
	store domain.AggregateStore,
	perms domain.PermissionChecker,
	audit domain.AuditSink,
	integrator *IntegrationService,
) *SessionService {
	return &SessionService{
		sessions:   sessions,
		store:      store,
		perms:      perms,
		audit:      audit,
		integrator: integrator,
		Clock:      time.Now,
	}
}

// CreateSession starts (or resumes) onboarding for a hotel. If an
// unexpired ACTIVE session already exists for the (hotel, user) pair it
// is returned unchanged.
func (s *SessionService) CreateSession(ctx context.Context, hotelID, userID int64) (domain.OnboardingSession, error) {
	if err := s.checkPermission(ctx, userID, hotelID); err != nil {
		return domain.OnboardingSession{}, err
	}
	if ok, err := s.store.HotelExists(ctx, hotelID); err != nil {
		return domain.OnboardingSession{}, err
	} else if !ok {
		return domain.OnboardingSession{}, fmt.Errorf("hotel %d: %w", hotelID, domain.ErrNotFound)
	}
	if ok, err := s.store.UserExists(ctx, userID); err != nil {
		return domain.OnboardingSession{}, err
	} else if !ok {
		return domain.OnboardingSession{}, fmt.Errorf("user %d: %w", userID, domain.ErrNotFound)
	}

	now := s.Clock()
	existing, err := s.sessions.FindActiveSession(ctx, hotelID, userID)
	switch {
	case err == nil:
		if !existing.Expired(now) {
			observability.ObserveSession("reused")
			return existing, nil
		}
		// expired but unswept; abandon it so the ACTIVE slot for the
		// pair frees up, then create a fresh one
		if _, err := s.sessions.SweepExpired(ctx, now); err != nil {
			return domain.OnboardingSession{}, err
		}
	case errors.Is(err, domain.ErrNotFound):
		// no active session
	default:
		return domain.OnboardingSession{}, err
	}

	sess := domain.OnboardingSession{
		ID:             uuid.NewString(),
		HotelID:        hotelID,
		UserID:         userID,
		CurrentStep:    0,
		CompletedSteps: []string{},
		DraftData:      map[string]json.RawMessage{},
		Status:         domain.SessionActive,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(domain.SessionTTL),
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		// lost a create race; return the winner's session
		if errors.Is(err, domain.ErrAlreadyExists) {
			if winner, ferr := s.sessions.FindActiveSession(ctx, hotelID, userID); ferr == nil {
				observability.ObserveSession("reused")
				return winner, nil
			}
		}
		return domain.OnboardingSession{}, err
	}
	observability.ObserveSession("created")
	s.recordAudit(ctx, domain.AuditEvent{
		Action: "onboarding_session_created", UserID: userID, HotelID: hotelID, SessionID: sess.ID,
	})
	log.Info().Str("session", sess.ID).Int64("hotel", hotelID).Msg("onboarding session created")
	return sess, nil
}

// UpdateStep normalizes and stores one step's payload with replace
// semantics. Validation is store-then-report by default: the draft is
// saved even when incomplete and the result returned alongside. With
// strict=true a failing validation rejects the update instead.
func (s *SessionService) UpdateStep(ctx context.Context, userID int64, sessionID, stepID string, payload json.RawMessage, strict bool) (domain.ValidationResult, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	if err := s.checkPermission(ctx, userID, sess.HotelID); err != nil {
		return domain.ValidationResult{}, err
	}
	now := s.Clock()
	if !sess.Mutable(now) {
		return domain.ValidationResult{}, fmt.Errorf("session %s is %s (expires %s): %w",
			sessionID, sess.Status, sess.ExpiresAt.Format(time.RFC3339), domain.ErrInvalidState)
	}

	step, err := DecodeStep(stepID, payload)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	res := ValidateStep(stepID, step)
	if strict && !res.IsValid {
		return res, &domain.ValidationError{StepID: stepID, Result: res}
	}
	normalized, err := NormalizeStep(step)
	if err != nil {
		return res, err
	}

	previous := sess.DraftData[stepID]
	if err := s.sessions.SaveStepDraft(ctx, sessionID, stepID, normalized, now); err != nil {
		return res, err
	}
	observability.ObserveStepUpdate(stepID)
	s.recordAudit(ctx, domain.AuditEvent{
		Action: "onboarding_step_updated", UserID: userID, HotelID: sess.HotelID,
		SessionID: sessionID, StepID: stepID,
		PreviousData: previous, NewData: normalized,
	})
	return res, nil
}

// ValidateStepPayload is the pure preview path: decode plus validate,
// nothing stored. Decode failures surface as validation errors, not Go
// errors, so the wizard can render them inline.
func (s *SessionService) ValidateStepPayload(stepID string, payload json.RawMessage) domain.ValidationResult {
	step, err := DecodeStep(stepID, payload)
	if err != nil {
		return domain.ValidationResult{IsValid: false, Errors: []string{err.Error()}}
	}
	return ValidateStep(stepID, step)
}

// MarkStepCompleted is an idempotent add to the completed set. Known
// steps also advance the current step pointer (never backwards).
func (s *SessionService) MarkStepCompleted(ctx context.Context, userID int64, sessionID, stepID string) error {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := s.checkPermission(ctx, userID, sess.HotelID); err != nil {
		return err
	}
	now := s.Clock()
	if !sess.Mutable(now) {
		return fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrInvalidState)
	}
	if sess.HasCompleted(stepID) {
		return nil
	}
	sess.CompletedSteps = append(sess.CompletedSteps, stepID)
	if idx := domain.StepIndex(stepID); idx >= 0 && idx+1 > sess.CurrentStep {
		sess.CurrentStep = idx + 1
	}
	sess.UpdatedAt = now
	return s.sessions.SaveSession(ctx, sess)
}

func (s *SessionService) GetProgress(ctx context.Context, sessionID string) (domain.Progress, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Progress{}, err
	}
	total := len(domain.StepOrder)
	pct := float64(len(sess.CompletedSteps)) / float64(total) * 100
	if pct > 100 {
		pct = 100
	}
	return domain.Progress{
		CurrentStep:          sess.CurrentStep,
		CompletedSteps:       sess.CompletedSteps,
		TotalSteps:           total,
		CompletionPercentage: pct,
		QualityScore:         sess.QualityScore,
	}, nil
}

// CompleteSession commits the accumulated draft into the canonical
// aggregate. On integration failure the session stays ACTIVE and the
// error surfaces unchanged; retries are safe.
func (s *SessionService) CompleteSession(ctx context.Context, userID int64, sessionID string) (domain.CompletionResult, error) {
	sess, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if err := s.checkPermission(ctx, userID, sess.HotelID); err != nil {
		return domain.CompletionResult{}, err
	}
	now := s.Clock()
	if sess.Status == domain.SessionAbandoned || (sess.Status == domain.SessionActive && sess.Expired(now)) {
		return domain.CompletionResult{}, fmt.Errorf("session %s is %s: %w", sessionID, sess.Status, domain.ErrInvalidState)
	}

	res, err := s.integrator.CommitSession(ctx, sessionID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if !res.AlreadyCompleted {
		observability.ObserveSession("completed")
		s.recordAudit(ctx, domain.AuditEvent{
			Action: "onboarding_session_completed", UserID: userID, HotelID: sess.HotelID,
			SessionID: sessionID, Metadata: map[string]any{"qualityScore": res.QualityScore},
		})
	}
	return res, nil
}

// SweepExpired transitions expired ACTIVE sessions to ABANDONED in one
// conditional bulk update. Re-entrant: concurrent sweeps never
// double-count because the update filters on status.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.SweepExpired(ctx, s.Clock())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		observability.ObserveSessionsAbandoned(n)
		log.Info().Int64("count", n).Msg("expired sessions abandoned")
	}
	return n, nil
}

func (s *SessionService) checkPermission(ctx context.Context, userID, hotelID int64) error {
	ok, err := s.perms.CheckPermission(ctx, userID, hotelID, domain.PermOnboard)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("user %d on hotel %d: %w", userID, hotelID, domain.ErrForbidden)
	}
	return nil
}

// recordAudit is fire-and-forget: failures are logged, never returned.
func (s *SessionService) recordAudit(ctx context.Context, ev domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordEvent(ctx, ev); err != nil {
		log.Warn().Err(err).Str("action", ev.Action).Msg("audit record failed")
	}
}
