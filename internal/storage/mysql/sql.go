package mysql

// -----------------------------------------------------------------------------
// SESSIONS
// -----------------------------------------------------------------------------

const insertSessionSQL = `
INSERT INTO onboarding_sessions
  (id, hotel_id, user_id, current_step, completed_steps, draft_data, quality_score, status, created_at, updated_at, expires_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectSessionSQL = `
SELECT
  id, hotel_id, user_id, current_step, completed_steps, draft_data,
  quality_score, status, created_at, updated_at, expires_at
FROM onboarding_sessions
WHERE id = ?
`

// At most one ACTIVE session per (hotel, user) pair; the partial unique
// index in the migration enforces it, this query just fetches it.
const selectActiveSessionSQL = `
SELECT
  id, hotel_id, user_id, current_step, completed_steps, draft_data,
  quality_score, status, created_at, updated_at, expires_at
FROM onboarding_sessions
WHERE hotel_id = ? AND user_id = ? AND status = 'ACTIVE'
ORDER BY created_at DESC
LIMIT 1
`

// Guarded on status so a session can never be resurrected out of
// COMPLETED/ABANDONED by a stale writer.
const updateSessionSQL = `
UPDATE onboarding_sessions
SET current_step = ?, completed_steps = ?, quality_score = ?, updated_at = ?
WHERE id = ? AND status = 'ACTIVE'
`

// Writes a single draft key in place. Concurrent updates to different
// steps touch disjoint JSON paths instead of replacing the whole column.
const updateStepDraftSQL = `
UPDATE onboarding_sessions
SET draft_data = JSON_SET(COALESCE(draft_data, '{}'), ?, CAST(? AS JSON)), updated_at = ?
WHERE id = ? AND status = 'ACTIVE'
`

const completeSessionSQL = `
UPDATE onboarding_sessions
SET status = 'COMPLETED', quality_score = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND status = 'ACTIVE'
`

// Single conditional bulk update: safe to run concurrently, never
// double-counts, never touches COMPLETED rows.
const sweepExpiredSQL = `
UPDATE onboarding_sessions
SET status = 'ABANDONED', updated_at = CURRENT_TIMESTAMP
WHERE status = 'ACTIVE' AND expires_at < ?
`

// -----------------------------------------------------------------------------
// HOTELS
// -----------------------------------------------------------------------------

const hotelColumns = `
  id, owner_id, name, property_type, address, city, country,
  contact_email, contact_phone, description, location, amenities, images,
  policies, business_features, quality_score, quality_breakdown, scored_at,
  onboarding_status, legacy_id, updated_at
`

const selectHotelSQL = `SELECT` + hotelColumns + `FROM hotels WHERE id = ?`

// Aggregate-root lock: the commit pipeline holds this row lock for the
// duration of the transaction so room propagation is atomic.
const selectHotelForUpdateSQL = selectHotelSQL + ` FOR UPDATE`

const selectHotelByLegacySQL = `SELECT` + hotelColumns + `FROM hotels WHERE legacy_id = ?`

const hotelExistsSQL = `SELECT 1 FROM hotels WHERE id = ?`

const userExistsSQL = `SELECT 1 FROM users WHERE id = ?`

const updateHotelSQL = `
UPDATE hotels SET
  owner_id = ?, name = ?, property_type = ?, address = ?, city = ?, country = ?,
  contact_email = ?, contact_phone = ?, description = ?, location = ?,
  amenities = ?, images = ?, policies = ?, business_features = ?,
  quality_score = ?, quality_breakdown = ?, scored_at = ?,
  onboarding_status = ?, legacy_id = ?, updated_at = ?
WHERE id = ?
`

const insertHotelSQL = `
INSERT INTO hotels
  (owner_id, name, property_type, address, city, country, contact_email, contact_phone,
   description, location, amenities, images, policies, business_features,
   quality_score, quality_breakdown, scored_at, onboarding_status, legacy_id, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// ROOMS
// -----------------------------------------------------------------------------

const roomColumns = `
  id, hotel_id, name, type, capacity, size_sqm, beds, description,
  amenities, images, layout, pricing, availability,
  quality_score, quality_breakdown, scored_at, updated_at
`

const selectRoomsSQL = `SELECT` + roomColumns + `FROM rooms WHERE hotel_id = ? ORDER BY id`

const updateRoomSQL = `
UPDATE rooms SET
  name = ?, type = ?, capacity = ?, size_sqm = ?, beds = ?, description = ?,
  amenities = ?, images = ?, layout = ?, pricing = ?, availability = ?,
  quality_score = ?, quality_breakdown = ?, scored_at = ?, updated_at = ?
WHERE id = ?
`

const insertRoomSQL = `
INSERT INTO rooms
  (hotel_id, name, type, capacity, size_sqm, beds, description,
   amenities, images, layout, pricing, availability,
   quality_score, quality_breakdown, scored_at, updated_at)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// -----------------------------------------------------------------------------
// LEGACY
// -----------------------------------------------------------------------------

const selectLegacyHotelSQL = `
SELECT id, owner_id, name, address, city, country, email, phone, amenities, image_urls, rooms
FROM legacy_hotels
WHERE id = ?
`
