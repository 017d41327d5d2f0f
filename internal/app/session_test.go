package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"hotel_onboarding/internal/app"
	"hotel_onboarding/internal/domain"
)

// ---- fakes ----

type fakeSessions struct {
	byID map[string]domain.OnboardingSession

	// interleaving hooks for concurrency tests
	afterGet      func()
	afterFindMiss func()
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: map[string]domain.OnboardingSession{}}
}

func (f *fakeSessions) CreateSession(ctx context.Context, s domain.OnboardingSession) error {
	for _, cur := range f.byID {
		if cur.HotelID == s.HotelID && cur.UserID == s.UserID && cur.Status == domain.SessionActive {
			return domain.ErrAlreadyExists
		}
	}
	f.byID[s.ID] = s
	return nil
}

func (f *fakeSessions) GetSession(ctx context.Context, id string) (domain.OnboardingSession, error) {
	s, ok := f.byID[id]
	if !ok {
		return domain.OnboardingSession{}, domain.ErrNotFound
	}
	out := cloneSession(s)
	if f.afterGet != nil {
		f.afterGet()
	}
	return out, nil
}

func (f *fakeSessions) FindActiveSession(ctx context.Context, hotelID, userID int64) (domain.OnboardingSession, error) {
	for _, s := range f.byID {
		if s.HotelID == hotelID && s.UserID == userID && s.Status == domain.SessionActive {
			return cloneSession(s), nil
		}
	}
	if f.afterFindMiss != nil {
		f.afterFindMiss()
	}
	return domain.OnboardingSession{}, domain.ErrNotFound
}

func (f *fakeSessions) SaveSession(ctx context.Context, s domain.OnboardingSession) error {
	cur, ok := f.byID[s.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != domain.SessionActive {
		return domain.ErrInvalidState
	}
	s.Status = cur.Status       // SaveSession never changes status
	s.DraftData = cur.DraftData // drafts are written through SaveStepDraft only
	f.byID[s.ID] = cloneSession(s)
	return nil
}

func (f *fakeSessions) SaveStepDraft(ctx context.Context, sessionID, stepID string, payload json.RawMessage, updatedAt time.Time) error {
	s, ok := f.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SessionActive {
		return domain.ErrInvalidState
	}
	if s.DraftData == nil {
		s.DraftData = map[string]json.RawMessage{}
	}
	s.DraftData[stepID] = append(json.RawMessage(nil), payload...)
	s.UpdatedAt = updatedAt
	f.byID[sessionID] = s
	return nil
}

func (f *fakeSessions) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, s := range f.byID {
		if s.Status == domain.SessionActive && now.After(s.ExpiresAt) {
			s.Status = domain.SessionAbandoned
			f.byID[id] = s
			n++
		}
	}
	return n, nil
}

func cloneSession(s domain.OnboardingSession) domain.OnboardingSession {
	out := s
	out.CompletedSteps = append([]string(nil), s.CompletedSteps...)
	out.DraftData = make(map[string]json.RawMessage, len(s.DraftData))
	for k, v := range s.DraftData {
		out.DraftData[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// fakeStore implements AggregateStore + AggregateTx over maps, with a
// snapshot-based rollback so Transact behaves like a real transaction.
type fakeStore struct {
	sessions   *fakeSessions
	users      map[int64]bool
	hotels     map[int64]domain.HotelAggregate
	rooms      map[int64]domain.RoomAggregate
	legacy     map[int64]domain.LegacyHotel
	nextHotel  int64
	nextRoom   int64
	failOn     string // method name that should error inside a tx
	txAttempts int
}

func newFakeStore(sessions *fakeSessions) *fakeStore {
	return &fakeStore{
		sessions:  sessions,
		users:     map[int64]bool{},
		hotels:    map[int64]domain.HotelAggregate{},
		rooms:     map[int64]domain.RoomAggregate{},
		legacy:    map[int64]domain.LegacyHotel{},
		nextHotel: 1000,
		nextRoom:  5000,
	}
}

func (f *fakeStore) HotelExists(ctx context.Context, id int64) (bool, error) {
	_, ok := f.hotels[id]
	return ok, nil
}

func (f *fakeStore) UserExists(ctx context.Context, id int64) (bool, error) {
	return f.users[id], nil
}

func (f *fakeStore) GetHotel(ctx context.Context, id int64) (domain.HotelAggregate, error) {
	h, ok := f.hotels[id]
	if !ok {
		return domain.HotelAggregate{}, domain.ErrNotFound
	}
	return h, nil
}

func (f *fakeStore) FindHotelByLegacyID(ctx context.Context, legacyID int64) (domain.HotelAggregate, error) {
	for _, h := range f.hotels {
		if h.LegacyID != nil && *h.LegacyID == legacyID {
			return h, nil
		}
	}
	return domain.HotelAggregate{}, domain.ErrNotFound
}

func (f *fakeStore) GetLegacyHotel(ctx context.Context, id int64) (domain.LegacyHotel, error) {
	l, ok := f.legacy[id]
	if !ok {
		return domain.LegacyHotel{}, domain.ErrNotFound
	}
	return l, nil
}

func (f *fakeStore) Transact(ctx context.Context, fn func(tx domain.AggregateTx) error) error {
	f.txAttempts++
	hotelSnap := make(map[int64]domain.HotelAggregate, len(f.hotels))
	for k, v := range f.hotels {
		hotelSnap[k] = v
	}
	roomSnap := make(map[int64]domain.RoomAggregate, len(f.rooms))
	for k, v := range f.rooms {
		roomSnap[k] = v
	}
	sessSnap := make(map[string]domain.OnboardingSession, len(f.sessions.byID))
	for k, v := range f.sessions.byID {
		sessSnap[k] = cloneSession(v)
	}
	if err := fn((*fakeTx)(f)); err != nil {
		f.hotels = hotelSnap
		f.rooms = roomSnap
		f.sessions.byID = sessSnap
		return err
	}
	return nil
}

type fakeTx fakeStore

func (t *fakeTx) fail(method string) error {
	if t.failOn == method {
		return fmt.Errorf("forced %s failure", method)
	}
	return nil
}

func (t *fakeTx) GetHotelForUpdate(ctx context.Context, id int64) (domain.HotelAggregate, error) {
	if err := t.fail("GetHotelForUpdate"); err != nil {
		return domain.HotelAggregate{}, err
	}
	h, ok := t.hotels[id]
	if !ok {
		return domain.HotelAggregate{}, domain.ErrNotFound
	}
	return h, nil
}

func (t *fakeTx) SaveHotel(ctx context.Context, h domain.HotelAggregate) error {
	if err := t.fail("SaveHotel"); err != nil {
		return err
	}
	t.hotels[h.ID] = h
	return nil
}

func (t *fakeTx) CreateHotel(ctx context.Context, h domain.HotelAggregate) (int64, error) {
	if err := t.fail("CreateHotel"); err != nil {
		return 0, err
	}
	t.nextHotel++
	h.ID = t.nextHotel
	t.hotels[h.ID] = h
	return h.ID, nil
}

func (t *fakeTx) ListRooms(ctx context.Context, hotelID int64) ([]domain.RoomAggregate, error) {
	var out []domain.RoomAggregate
	for _, r := range t.rooms {
		if r.HotelID == hotelID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *fakeTx) SaveRoom(ctx context.Context, r domain.RoomAggregate) error {
	if err := t.fail("SaveRoom"); err != nil {
		return err
	}
	t.rooms[r.ID] = r
	return nil
}

func (t *fakeTx) CreateRoom(ctx context.Context, r domain.RoomAggregate) (int64, error) {
	if err := t.fail("CreateRoom"); err != nil {
		return 0, err
	}
	t.nextRoom++
	r.ID = t.nextRoom
	t.rooms[r.ID] = r
	return r.ID, nil
}

func (t *fakeTx) MarkSessionCompleted(ctx context.Context, sessionID string, score int) error {
	if err := t.fail("MarkSessionCompleted"); err != nil {
		return err
	}
	s, ok := t.sessions.byID[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SessionActive {
		return domain.ErrInvalidState
	}
	s.Status = domain.SessionCompleted
	s.QualityScore = score
	t.sessions.byID[sessionID] = s
	return nil
}

type fakePerms struct{ deny bool }

func (f *fakePerms) CheckPermission(ctx context.Context, userID, hotelID int64, permission string) (bool, error) {
	return !f.deny, nil
}

type fakeAudit struct{ events []domain.AuditEvent }

func (f *fakeAudit) RecordEvent(ctx context.Context, ev domain.AuditEvent) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeNotifier struct {
	events []domain.Event
	fail   bool
}

func (f *fakeNotifier) Notify(ctx context.Context, ev domain.Event) error {
	if f.fail {
		return errors.New("sink unreachable")
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeCache struct {
	store  map[string][]byte
	delErr error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	if c.delErr != nil {
		return c.delErr
	}
	delete(c.store, key)
	return nil
}

// ---- harness ----

type harness struct {
	sessions   *fakeSessions
	store      *fakeStore
	perms      *fakePerms
	audit      *fakeAudit
	notifier   *fakeNotifier
	cache      *fakeCache
	svc        *app.SessionService
	integrator *app.IntegrationService
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions: newFakeSessions(),
		perms:    &fakePerms{},
		audit:    &fakeAudit{},
		notifier: &fakeNotifier{},
		cache:    &fakeCache{},
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	h.store = newFakeStore(h.sessions)
	h.store.users[7] = true
	h.store.hotels[42] = domain.HotelAggregate{ID: 42, OwnerID: 7, OnboardingStatus: domain.OnboardingInProgress}
	h.integrator = app.NewIntegrationService(h.sessions, h.store, h.notifier, h.cache)
	h.integrator.Clock = func() time.Time { return h.now }
	h.svc = app.NewSessionService(h.sessions, h.store, h.perms, h.audit, h.integrator)
	h.svc.Clock = func() time.Time { return h.now }
	return h
}

func (h *harness) mustCreate(t *testing.T) domain.OnboardingSession {
	t.Helper()
	s, err := h.svc.CreateSession(context.Background(), 42, 7)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return s
}

// ---- tests ----

func TestCreateSession_ReusesActive(t *testing.T) {
	h := newHarness(t)
	first := h.mustCreate(t)
	second := h.mustCreate(t)
	if first.ID != second.ID {
		t.Fatalf("expected same session, got %s and %s", first.ID, second.ID)
	}
	if len(h.sessions.byID) != 1 {
		t.Fatalf("expected 1 stored session, got %d", len(h.sessions.byID))
	}
}

func TestCreateSession_UnknownHotel(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateSession(context.Background(), 999, 7)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateSession_PermissionDenied(t *testing.T) {
	h := newHarness(t)
	h.perms.deny = true
	_, err := h.svc.CreateSession(context.Background(), 42, 7)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(h.sessions.byID) != 0 {
		t.Fatalf("no state may be touched on permission denial")
	}
}

func TestUpdateStep_DeduplicatesImages(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	// same logical image submitted twice (offline-sync retry shape)
	payload := json.RawMessage(`{"images":[
		{"id":"a","category":"exterior","qualityScore":90},
		{"id":"a","category":"exterior","qualityScore":90}
	]}`)
	if _, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepImages, payload, false); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}

	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	var imgs app.ImagesStep
	if err := json.Unmarshal(stored.DraftData[domain.StepImages], &imgs); err != nil {
		t.Fatalf("unmarshal draft: %v", err)
	}
	if len(imgs.Images) != 1 || imgs.Images[0].ID != "a" {
		t.Fatalf("expected exactly one image with id a, got %+v", imgs.Images)
	}
}

func TestUpdateStep_DropsEmptyIdentity(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	payload := json.RawMessage(`{"rooms":[
		{"name":"Deluxe King","capacity":2},
		{"name":"  ","capacity":4},
		{"name":"Deluxe King","capacity":3}
	]}`)
	if _, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepRooms, payload, false); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}

	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	var rooms app.RoomsStep
	_ = json.Unmarshal(stored.DraftData[domain.StepRooms], &rooms)
	if len(rooms.Rooms) != 1 {
		t.Fatalf("expected 1 room after dedupe, got %d", len(rooms.Rooms))
	}
	// last write wins for duplicate identities
	if rooms.Rooms[0].Capacity != 3 {
		t.Fatalf("expected last duplicate to win, got capacity %d", rooms.Rooms[0].Capacity)
	}
}

func TestUpdateStep_ReplaceSemantics(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	first := json.RawMessage(`{"images":[{"id":"a","qualityScore":90},{"id":"b","qualityScore":70}]}`)
	second := json.RawMessage(`{"images":[{"id":"c","qualityScore":80}]}`)
	if _, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepImages, first, false); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if _, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepImages, second, false); err != nil {
		t.Fatalf("second update: %v", err)
	}

	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	var imgs app.ImagesStep
	_ = json.Unmarshal(stored.DraftData[domain.StepImages], &imgs)
	if len(imgs.Images) != 1 || imgs.Images[0].ID != "c" {
		t.Fatalf("expected full replace, got %+v", imgs.Images)
	}
}

func TestUpdateStep_StoreThenReport(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	// invalid (missing name) but default mode stores anyway
	payload := json.RawMessage(`{"propertyType":"hotel"}`)
	res, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepBasicInfo, payload, false)
	if err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	if res.IsValid {
		t.Fatalf("expected invalid result")
	}
	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	if _, ok := stored.DraftData[domain.StepBasicInfo]; !ok {
		t.Fatalf("draft must be stored in non-strict mode")
	}
}

func TestUpdateStep_StrictRejects(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	payload := json.RawMessage(`{"propertyType":"hotel"}`)
	_, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepBasicInfo, payload, true)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	if _, ok := stored.DraftData[domain.StepBasicInfo]; ok {
		t.Fatalf("strict mode must not store an invalid draft")
	}
}

func TestUpdateStep_ExpiredRejectedLive(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	// jump past the TTL without running the sweep
	h.now = h.now.Add(domain.SessionTTL + time.Hour)
	_, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepImages, json.RawMessage(`{}`), false)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for expired session, got %v", err)
	}
}

func TestUpdateStep_UnknownStepAccepted(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	payload := json.RawMessage(`{"future":"field"}`)
	res, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, "holographic_tour", payload, false)
	if err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}
	if !res.IsValid {
		t.Fatalf("unknown steps are accepted with no rules")
	}
	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	if string(stored.DraftData["holographic_tour"]) != string(payload) {
		t.Fatalf("unknown step payload must be stored verbatim")
	}
}

func TestMarkStepCompleted_IdempotentAndAdvances(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := h.svc.MarkStepCompleted(ctx, 7, sess.ID, domain.StepBasicInfo); err != nil {
			t.Fatalf("MarkStepCompleted: %v", err)
		}
	}
	stored, _ := h.sessions.GetSession(ctx, sess.ID)
	if len(stored.CompletedSteps) != 1 {
		t.Fatalf("expected 1 completed step, got %v", stored.CompletedSteps)
	}
	if stored.CurrentStep != 1 {
		t.Fatalf("expected currentStep 1, got %d", stored.CurrentStep)
	}

	// completing a later step advances; re-completing an earlier one never regresses
	if err := h.svc.MarkStepCompleted(ctx, 7, sess.ID, domain.StepImages); err != nil {
		t.Fatalf("MarkStepCompleted: %v", err)
	}
	stored, _ = h.sessions.GetSession(ctx, sess.ID)
	want := domain.StepIndex(domain.StepImages) + 1
	if stored.CurrentStep != want {
		t.Fatalf("expected currentStep %d, got %d", want, stored.CurrentStep)
	}
	_ = h.svc.MarkStepCompleted(ctx, 7, sess.ID, domain.StepLocation)
	stored, _ = h.sessions.GetSession(ctx, sess.ID)
	if stored.CurrentStep != want {
		t.Fatalf("currentStep must never regress, got %d", stored.CurrentStep)
	}
}

func TestGetProgress(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)
	ctx := context.Background()

	_ = h.svc.MarkStepCompleted(ctx, 7, sess.ID, domain.StepBasicInfo)
	_ = h.svc.MarkStepCompleted(ctx, 7, sess.ID, domain.StepLocation)

	p, err := h.svc.GetProgress(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetProgress: %v", err)
	}
	if p.TotalSteps != len(domain.StepOrder) {
		t.Fatalf("totalSteps: %d", p.TotalSteps)
	}
	want := float64(2) / float64(len(domain.StepOrder)) * 100
	if p.CompletionPercentage != want {
		t.Fatalf("completion: got %v want %v", p.CompletionPercentage, want)
	}
}

func TestSweepExpired_TransitionsOnlyExpiredActive(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	// a second, already-completed session must not be touched
	done := domain.OnboardingSession{ID: "done", HotelID: 42, UserID: 8,
		Status: domain.SessionCompleted, ExpiresAt: h.now.Add(-time.Hour)}
	h.sessions.byID[done.ID] = done

	h.now = h.now.Add(domain.SessionTTL + time.Minute)
	n, err := h.svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}
	stored, _ := h.sessions.GetSession(context.Background(), sess.ID)
	if stored.Status != domain.SessionAbandoned {
		t.Fatalf("expected ABANDONED, got %s", stored.Status)
	}
	if h.sessions.byID["done"].Status != domain.SessionCompleted {
		t.Fatalf("COMPLETED must never leave COMPLETED")
	}

	// re-entrant: second sweep finds nothing
	n, _ = h.svc.SweepExpired(context.Background())
	if n != 0 {
		t.Fatalf("second sweep must not double-count, got %d", n)
	}
}

func TestUpdateStep_TerminalStatesRejected(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)

	for _, status := range []domain.SessionStatus{domain.SessionCompleted, domain.SessionAbandoned} {
		s := h.sessions.byID[sess.ID]
		s.Status = status
		h.sessions.byID[sess.ID] = s

		_, err := h.svc.UpdateStep(context.Background(), 7, sess.ID, domain.StepImages, json.RawMessage(`{}`), false)
		if !errors.Is(err, domain.ErrInvalidState) {
			t.Fatalf("status %s: expected ErrInvalidState, got %v", status, err)
		}
	}
}

func TestUpdateStep_ConcurrentStepsDoNotClobber(t *testing.T) {
	h := newHarness(t)
	sess := h.mustCreate(t)
	ctx := context.Background()

	// a competing writer lands a different step between this call's
	// read and its draft write
	roomsPayload := json.RawMessage(`{"rooms":[{"name":"Twin","capacity":2}]}`)
	h.sessions.afterGet = func() {
		h.sessions.afterGet = nil
		if err := h.sessions.SaveStepDraft(ctx, sess.ID, domain.StepRooms, roomsPayload, h.now); err != nil {
			t.Fatalf("competing write: %v", err)
		}
	}

	payload := json.RawMessage(`{"content":"A quiet riverside stay.","format":"plain"}`)
	if _, err := h.svc.UpdateStep(ctx, 7, sess.ID, domain.StepDescription, payload, false); err != nil {
		t.Fatalf("UpdateStep: %v", err)
	}

	stored, _ := h.sessions.GetSession(ctx, sess.ID)
	if _, ok := stored.DraftData[domain.StepDescription]; !ok {
		t.Fatalf("description step missing: %v", stored.DraftData)
	}
	if _, ok := stored.DraftData[domain.StepRooms]; !ok {
		t.Fatalf("rooms step written concurrently was lost: %v", stored.DraftData)
	}
}

func TestCreateSession_LosesRaceReturnsWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// another request claims the ACTIVE slot after this call's lookup
	// misses but before its insert
	h.sessions.afterFindMiss = func() {
		h.sessions.afterFindMiss = nil
		winner := domain.OnboardingSession{
			ID: "winner", HotelID: 42, UserID: 7,
			CompletedSteps: []string{},
			DraftData:      map[string]json.RawMessage{},
			Status:         domain.SessionActive,
			CreatedAt:      h.now, UpdatedAt: h.now,
			ExpiresAt: h.now.Add(domain.SessionTTL),
		}
		h.sessions.byID[winner.ID] = winner
	}

	got, err := h.svc.CreateSession(ctx, 42, 7)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if got.ID != "winner" {
		t.Fatalf("expected the winner's session back, got %q", got.ID)
	}
	if len(h.sessions.byID) != 1 {
		t.Fatalf("loser must not leave a second session, have %d", len(h.sessions.byID))
	}
}

func TestCreateSession_ReplacesExpiredUnswept(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.svc.CreateSession(ctx, 42, 7)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	h.now = h.now.Add(domain.SessionTTL + time.Hour)
	second, err := h.svc.CreateSession(ctx, 42, 7)
	if err != nil {
		t.Fatalf("CreateSession after expiry: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expired session must not be reused")
	}
	stale, _ := h.sessions.GetSession(ctx, first.ID)
	if stale.Status != domain.SessionAbandoned {
		t.Fatalf("expired session swept to %s, want ABANDONED", stale.Status)
	}
}
