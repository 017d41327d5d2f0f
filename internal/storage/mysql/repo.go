package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"hotel_onboarding/internal/domain"
)

// Store implements domain.SessionRepository and domain.AggregateStore on
// MySQL. Sessions are single-row records; hotels and rooms are the only
// cross-record transaction, taken through Transact.
type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

// dbtx is the common query surface of *sql.DB and *sql.Tx so row
// scanning is shared between plain reads and in-transaction reads.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// -----------------------------------------------------------------------------
// SessionRepository
// -----------------------------------------------------------------------------

func (s *Store) CreateSession(ctx context.Context, sess domain.OnboardingSession) error {
	_, err := s.db.ExecContext(ctx, insertSessionSQL,
		sess.ID,
		sess.HotelID,
		sess.UserID,
		sess.CurrentStep,
		string(mustJSON(sess.CompletedSteps)),
		string(mustJSON(sess.DraftData)),
		sess.QualityScore,
		string(sess.Status),
		sess.CreatedAt,
		sess.UpdatedAt,
		sess.ExpiresAt,
	)
	// uq_sessions_active: some other writer already holds the ACTIVE
	// slot for this hotel/user pair.
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return fmt.Errorf("active session for hotel %d user %d: %w",
			sess.HotelID, sess.UserID, domain.ErrAlreadyExists)
	}
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (domain.OnboardingSession, error) {
	return scanSession(s.db.QueryRowContext(ctx, selectSessionSQL, id))
}

func (s *Store) FindActiveSession(ctx context.Context, hotelID, userID int64) (domain.OnboardingSession, error) {
	return scanSession(s.db.QueryRowContext(ctx, selectActiveSessionSQL, hotelID, userID))
}

func (s *Store) SaveSession(ctx context.Context, sess domain.OnboardingSession) error {
	res, err := s.db.ExecContext(ctx, updateSessionSQL,
		sess.CurrentStep,
		string(mustJSON(sess.CompletedSteps)),
		sess.QualityScore,
		sess.UpdatedAt,
		sess.ID,
	)
	if err != nil {
		return err
	}
	// zero rows means the session left ACTIVE underneath us, or a
	// write that changed nothing
	if n, _ := res.RowsAffected(); n == 0 {
		return s.resolveZeroRows(ctx, sess.ID)
	}
	return nil
}

func (s *Store) SaveStepDraft(ctx context.Context, sessionID, stepID string, payload json.RawMessage, updatedAt time.Time) error {
	path := `$."` + strings.ReplaceAll(stepID, `"`, `\"`) + `"`
	res, err := s.db.ExecContext(ctx, updateStepDraftSQL, path, string(payload), updatedAt, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return s.resolveZeroRows(ctx, sessionID)
	}
	return nil
}

// resolveZeroRows disambiguates a zero-row guarded update: missing row,
// non-ACTIVE row, or a write that changed nothing.
func (s *Store) resolveZeroRows(ctx context.Context, id string) error {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM onboarding_sessions WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if status != string(domain.SessionActive) {
		return fmt.Errorf("session %s is %s: %w", id, status, domain.ErrInvalidState)
	}
	return nil
}

func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, sweepExpiredSQL, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSession(row *sql.Row) (domain.OnboardingSession, error) {
	var (
		sess                   domain.OnboardingSession
		status                 string
		completedJSON, draftJS []byte
	)
	err := row.Scan(
		&sess.ID,
		&sess.HotelID,
		&sess.UserID,
		&sess.CurrentStep,
		&completedJSON,
		&draftJS,
		&sess.QualityScore,
		&status,
		&sess.CreatedAt,
		&sess.UpdatedAt,
		&sess.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return domain.OnboardingSession{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OnboardingSession{}, err
	}
	sess.Status = domain.SessionStatus(status)
	_ = json.Unmarshal(completedJSON, &sess.CompletedSteps)
	_ = json.Unmarshal(draftJS, &sess.DraftData)
	if sess.CompletedSteps == nil {
		sess.CompletedSteps = []string{}
	}
	if sess.DraftData == nil {
		sess.DraftData = map[string]json.RawMessage{}
	}
	return sess, nil
}

// -----------------------------------------------------------------------------
// AggregateStore
// -----------------------------------------------------------------------------

func (s *Store) HotelExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, s.db, hotelExistsSQL, id)
}

func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, s.db, userExistsSQL, id)
}

func exists(ctx context.Context, q dbtx, query string, id int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) GetHotel(ctx context.Context, id int64) (domain.HotelAggregate, error) {
	return scanHotel(s.db.QueryRowContext(ctx, selectHotelSQL, id))
}

func (s *Store) FindHotelByLegacyID(ctx context.Context, legacyID int64) (domain.HotelAggregate, error) {
	return scanHotel(s.db.QueryRowContext(ctx, selectHotelByLegacySQL, legacyID))
}

func (s *Store) GetLegacyHotel(ctx context.Context, id int64) (domain.LegacyHotel, error) {
	var (
		l                              domain.LegacyHotel
		email, phone                   sql.NullString
		amenities, imageURLs, roomsRaw []byte
	)
	err := s.db.QueryRowContext(ctx, selectLegacyHotelSQL, id).Scan(
		&l.ID, &l.OwnerID, &l.Name, &l.Address, &l.City, &l.Country,
		&email, &phone, &amenities, &imageURLs, &roomsRaw,
	)
	if err == sql.ErrNoRows {
		return domain.LegacyHotel{}, fmt.Errorf("legacy hotel %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LegacyHotel{}, err
	}
	l.Email = email.String
	l.Phone = phone.String
	_ = json.Unmarshal(amenities, &l.Amenities)
	_ = json.Unmarshal(imageURLs, &l.ImageURLs)
	_ = json.Unmarshal(roomsRaw, &l.Rooms)
	return l, nil
}

// Transact runs fn in one transaction; any error (or panic) rolls back
// every write.
func (s *Store) Transact(ctx context.Context, fn func(tx domain.AggregateTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()
	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// -----------------------------------------------------------------------------
// AggregateTx
// -----------------------------------------------------------------------------

type txStore struct{ tx *sql.Tx }

func (t *txStore) GetHotelForUpdate(ctx context.Context, id int64) (domain.HotelAggregate, error) {
	return scanHotel(t.tx.QueryRowContext(ctx, selectHotelForUpdateSQL, id))
}

func (t *txStore) SaveHotel(ctx context.Context, h domain.HotelAggregate) error {
	args := hotelArgs(h)
	args = append(args, h.ID)
	_, err := t.tx.ExecContext(ctx, updateHotelSQL, args...)
	return err
}

func (t *txStore) CreateHotel(ctx context.Context, h domain.HotelAggregate) (int64, error) {
	res, err := t.tx.ExecContext(ctx, insertHotelSQL, hotelArgs(h)...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *txStore) ListRooms(ctx context.Context, hotelID int64) ([]domain.RoomAggregate, error) {
	rows, err := t.tx.QueryContext(ctx, selectRoomsSQL, hotelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomAggregate
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (t *txStore) SaveRoom(ctx context.Context, r domain.RoomAggregate) error {
	args := roomArgs(r)[1:] // drop hotel_id; it never changes on update
	args = append(args, r.ID)
	_, err := t.tx.ExecContext(ctx, updateRoomSQL, args...)
	return err
}

func (t *txStore) CreateRoom(ctx context.Context, r domain.RoomAggregate) (int64, error) {
	res, err := t.tx.ExecContext(ctx, insertRoomSQL, roomArgs(r)...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (t *txStore) MarkSessionCompleted(ctx context.Context, sessionID string, score int) error {
	res, err := t.tx.ExecContext(ctx, completeSessionSQL, score, sessionID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not ACTIVE: %w", sessionID, domain.ErrInvalidState)
	}
	return nil
}

// -----------------------------------------------------------------------------
// row mapping
// -----------------------------------------------------------------------------

func hotelArgs(h domain.HotelAggregate) []any {
	var legacy any
	if h.LegacyID != nil {
		legacy = *h.LegacyID
	}
	var scoredAt any
	if !h.Quality.ScoredAt.IsZero() {
		scoredAt = h.Quality.ScoredAt
	}
	return []any{
		h.OwnerID,
		h.BasicInfo.Name,
		h.BasicInfo.PropertyType,
		h.BasicInfo.Address,
		h.BasicInfo.City,
		h.BasicInfo.Country,
		h.BasicInfo.ContactEmail,
		h.BasicInfo.ContactPhone,
		string(mustJSON(h.Description)),
		string(mustJSON(h.Location)),
		string(mustJSON(h.Amenities)),
		string(mustJSON(h.Images)),
		string(mustJSON(h.Policies)),
		string(mustJSON(h.BusinessFeatures)),
		h.Quality.OverallScore,
		string(mustJSON(h.Quality.Breakdown)),
		scoredAt,
		string(h.OnboardingStatus),
		legacy,
		h.UpdatedAt,
	}
}

func scanHotel(row *sql.Row) (domain.HotelAggregate, error) {
	var (
		h                                  domain.HotelAggregate
		descJSON, locJSON, amenJSON        []byte
		imgJSON, polJSON, featJSON, bdJSON []byte
		scoredAt                           sql.NullTime
		status                             string
		legacyID                           sql.NullInt64
	)
	err := row.Scan(
		&h.ID, &h.OwnerID,
		&h.BasicInfo.Name, &h.BasicInfo.PropertyType, &h.BasicInfo.Address,
		&h.BasicInfo.City, &h.BasicInfo.Country,
		&h.BasicInfo.ContactEmail, &h.BasicInfo.ContactPhone,
		&descJSON, &locJSON, &amenJSON, &imgJSON, &polJSON, &featJSON,
		&h.Quality.OverallScore, &bdJSON, &scoredAt,
		&status, &legacyID, &h.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return domain.HotelAggregate{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.HotelAggregate{}, err
	}
	_ = json.Unmarshal(descJSON, &h.Description)
	_ = json.Unmarshal(locJSON, &h.Location)
	_ = json.Unmarshal(amenJSON, &h.Amenities)
	_ = json.Unmarshal(imgJSON, &h.Images)
	_ = json.Unmarshal(polJSON, &h.Policies)
	_ = json.Unmarshal(featJSON, &h.BusinessFeatures)
	_ = json.Unmarshal(bdJSON, &h.Quality.Breakdown)
	if scoredAt.Valid {
		h.Quality.ScoredAt = scoredAt.Time
	}
	h.OnboardingStatus = domain.OnboardingStatus(status)
	if legacyID.Valid {
		v := legacyID.Int64
		h.LegacyID = &v
	}
	return h, nil
}

func roomArgs(r domain.RoomAggregate) []any {
	var scoredAt any
	if !r.Quality.ScoredAt.IsZero() {
		scoredAt = r.Quality.ScoredAt
	}
	return []any{
		r.HotelID,
		r.BasicInfo.Name,
		r.BasicInfo.Type,
		r.BasicInfo.Capacity,
		r.BasicInfo.SizeSqm,
		r.BasicInfo.Beds,
		r.Description,
		string(mustJSON(r.Amenities)),
		string(mustJSON(r.Images)),
		r.Layout,
		string(mustJSON(r.Pricing)),
		string(mustJSON(r.Availability)),
		r.Quality.OverallScore,
		string(mustJSON(r.Quality.Breakdown)),
		scoredAt,
		r.UpdatedAt,
	}
}

func scanRoom(rows *sql.Rows) (domain.RoomAggregate, error) {
	var (
		r                          domain.RoomAggregate
		amenJSON, imgJSON          []byte
		priceJSON, availJSON, bdJS []byte
		scoredAt                   sql.NullTime
	)
	err := rows.Scan(
		&r.ID, &r.HotelID,
		&r.BasicInfo.Name, &r.BasicInfo.Type, &r.BasicInfo.Capacity,
		&r.BasicInfo.SizeSqm, &r.BasicInfo.Beds, &r.Description,
		&amenJSON, &imgJSON, &r.Layout, &priceJSON, &availJSON,
		&r.Quality.OverallScore, &bdJS, &scoredAt, &r.UpdatedAt,
	)
	if err != nil {
		return domain.RoomAggregate{}, err
	}
	_ = json.Unmarshal(amenJSON, &r.Amenities)
	_ = json.Unmarshal(imgJSON, &r.Images)
	_ = json.Unmarshal(priceJSON, &r.Pricing)
	_ = json.Unmarshal(availJSON, &r.Availability)
	_ = json.Unmarshal(bdJS, &r.Quality.Breakdown)
	if scoredAt.Valid {
		r.Quality.ScoredAt = scoredAt.Time
	}
	return r, nil
}
