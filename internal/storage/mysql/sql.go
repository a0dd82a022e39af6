package mysql

const userColumns = "user_id, email, name, picture, guest, created_at"

const insertUserSQL = `
INSERT INTO users (user_id, email, name, picture, guest, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

const getUserByIDSQL = "SELECT " + userColumns + " FROM users WHERE user_id = ?"

const getUserByEmailSQL = "SELECT " + userColumns + " FROM users WHERE email = ?"

const updateProfileByIDSQL = `UPDATE users SET name = ?, picture = ? WHERE user_id = ?`

// Adopting a record by email also clears the guest flag.
const updateProfileByEmailSQL = `UPDATE users SET name = ?, picture = ?, guest = FALSE WHERE email = ?`

const insertSessionSQL = `
INSERT INTO user_sessions (session_token, user_id, expires_at, created_at)
VALUES (?, ?, ?, ?)
`

const getSessionSQL = `
SELECT session_token, user_id, expires_at, created_at
FROM user_sessions
WHERE session_token = ?
`

const bookingColumns = `booking_id, user_id, hotel_id, hotel_name, check_in, check_out,
  guest_first_name, guest_last_name, guest_email, num_adults, num_children,
  total_price, status, created_at`

const insertBookingSQL = "INSERT INTO bookings (" + bookingColumns + ")\nVALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"

const getBookingSQL = "SELECT " + bookingColumns + " FROM bookings WHERE booking_id = ?"

const listBookingsSQL = "SELECT " + bookingColumns + `
FROM bookings
WHERE user_id = ?
ORDER BY created_at DESC, booking_id DESC
LIMIT ?`

// Conditional: only a pending booking moves, so repeats affect zero rows.
const confirmBookingSQL = `
UPDATE bookings
SET status = 'confirmed', updated_at = ?
WHERE booking_id = ? AND status = 'pending_payment'
`

const paymentColumns = `payment_id, session_id, booking_id, user_id, amount, currency,
  payment_status, status, created_at`

const insertPaymentSQL = "INSERT INTO payment_transactions (" + paymentColumns + ")\nVALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"

const getPaymentBySessionSQL = "SELECT " + paymentColumns + " FROM payment_transactions WHERE session_id = ?"

const markPaidSQL = `
UPDATE payment_transactions
SET payment_status = 'paid', status = 'completed', updated_at = ?
WHERE session_id = ? AND payment_status <> 'paid'
`

// -----------------------------------------------------------------------------
// CACHE
// -----------------------------------------------------------------------------

const upsertSearchCacheSQL = `
INSERT INTO hotel_cache (cache_key, payload, expires_at)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  payload    = VALUES(payload),
  expires_at = VALUES(expires_at)
`

const getSearchCacheSQL = `SELECT payload FROM hotel_cache WHERE cache_key = ? AND expires_at > ?`

const upsertDetailCacheSQL = `
INSERT INTO hotel_details_cache (hotel_id, payload, expires_at)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  payload    = VALUES(payload),
  expires_at = VALUES(expires_at)
`

const getDetailCacheSQL = `SELECT payload FROM hotel_details_cache WHERE hotel_id = ? AND expires_at > ?`

var sweepTables = []string{"user_sessions", "hotel_cache", "hotel_details_cache"}
