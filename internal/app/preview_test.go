package app_test

import (
	"context"
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
)

func TestPreviewDraftScore_CachedByContent(t *testing.T) {
	h := newHarness(t)
	sess := draftedSession(t, h)
	preview := app.NewPreviewService(h.sessions, h.store, h.cache, 15*time.Minute)
	ctx := context.Background()

	first, err := preview.PreviewDraftScore(ctx, sess.ID)
	if err != nil {
		t.Fatalf("PreviewDraftScore: %v", err)
	}
	if first.Metrics.OverallScore <= 0 {
		t.Fatalf("expected positive preview score, got %d", first.Metrics.OverallScore)
	}
	if len(h.cache.store) == 0 {
		t.Fatalf("preview must be cached")
	}

	second, err := preview.PreviewDraftScore(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second preview: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached preview differs from fresh computation")
	}

	// a draft change moves the content hash, so stale entries never serve
	payload := json.RawMessage(`{"content":"Completely new text.","format":"plain"}`)
	if _, err := h.svc.UpdateStep(ctx, 7, sess.ID, domain.StepDescription, payload, false); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	third, err := preview.PreviewDraftScore(ctx, sess.ID)
	if err != nil {
		t.Fatalf("third preview: %v", err)
	}
	if reflect.DeepEqual(first.Metrics, third.Metrics) {
		t.Fatalf("changed draft must change the preview")
	}
}

func TestPreviewMatchesCommittedScore(t *testing.T) {
	h := newHarness(t)
	sess := draftedSession(t, h)
	preview := app.NewPreviewService(h.sessions, h.store, h.cache, 15*time.Minute)
	ctx := context.Background()

	pre, err := preview.PreviewDraftScore(ctx, sess.ID)
	if err != nil {
		t.Fatalf("PreviewDraftScore: %v", err)
	}
	res, err := h.integrator.CommitSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("CommitSession: %v", err)
	}
	if pre.Metrics.OverallScore != res.QualityScore {
		t.Fatalf("preview %d and committed %d must agree for the same draft",
			pre.Metrics.OverallScore, res.QualityScore)
	}
}

func TestGetHotel_CacheInvalidatedOnCommit(t *testing.T) {
	h := newHarness(t)
	sess := draftedSession(t, h)
	preview := app.NewPreviewService(h.sessions, h.store, h.cache, 15*time.Minute)
	ctx := context.Background()

	before, err := preview.GetHotel(ctx, 42)
	if err != nil {
		t.Fatalf("GetHotel: %v", err)
	}
	if before.OnboardingStatus == domain.OnboardingCompleted {
		t.Fatalf("precondition: hotel not yet completed")
	}

	if _, err := h.integrator.CommitSession(ctx, sess.ID); err != nil {
		t.Fatalf("CommitSession: %v", err)
	}

	after, err := preview.GetHotel(ctx, 42)
	if err != nil {
		t.Fatalf("GetHotel after commit: %v", err)
	}
	if after.OnboardingStatus != domain.OnboardingCompleted {
		t.Fatalf("commit must invalidate the cached hotel view, got %s", after.OnboardingStatus)
	}
}
