package mysql

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const errDuplicateEntry = 1062

type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

// Open opens and pings dsn. The DSN must carry parseTime=true.
func Open(ctx context.Context, dsn string) (*Repo, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return New(db), nil
}

func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *Repo) Close() error { return r.db.Close() }

// Migrate applies the embedded schema one statement at a time, so the DSN
// does not need multiStatements.
func (r *Repo) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "migrate: %.40s", strings.TrimSpace(stmt))
		}
	}
	return nil
}

type scanner interface{ Scan(dest ...any) error }

// ---- users ----

func scanUser(s scanner) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.UserID, &u.Email, &u.Name, &u.Picture, &u.Guest, &u.CreatedAt)
	return u, err
}

func (r *Repo) GetUser(ctx context.Context, userID string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByIDSQL, userID))
	return u, notFound(err, "get user")
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, getUserByEmailSQL, email))
	return u, notFound(err, "get user by email")
}

func (r *Repo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx, insertUserSQL, u.UserID, u.Email, u.Name, u.Picture, u.Guest, u.CreatedAt.UTC())
	return conflict(err, "insert user")
}

// UpsertUser refreshes profile fields on the row matching user_id, else on the
// row matching email (adopting a guest), else inserts u.
func (r *Repo) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	for attempt := 0; attempt < 2; attempt++ {
		out, err := r.upsertUserTx(ctx, u)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return domain.User{}, err
		}
		// a concurrent insert won; the next pass updates that row
	}
	return domain.User{}, errors.Wrap(domain.ErrConflict, "upsert user")
}

func (r *Repo) upsertUserTx(ctx context.Context, u domain.User) (domain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	updates := []struct {
		query, key string
		selectSQL  string
	}{
		{updateProfileByIDSQL, u.UserID, getUserByIDSQL},
		{updateProfileByEmailSQL, u.Email, getUserByEmailSQL},
	}
	for _, up := range updates {
		existing, err := scanUser(tx.QueryRowContext(ctx, up.selectSQL+" FOR UPDATE", up.key))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return domain.User{}, errors.Wrap(err, "lock user")
		}
		if _, err := tx.ExecContext(ctx, up.query, u.Name, u.Picture, up.key); err != nil {
			return domain.User{}, errors.Wrap(err, "update user")
		}
		existing.Name, existing.Picture = u.Name, u.Picture
		if up.selectSQL == getUserByEmailSQL {
			existing.Guest = false
		}
		return existing, errors.Wrap(tx.Commit(), "commit")
	}

	if _, err := tx.ExecContext(ctx, insertUserSQL, u.UserID, u.Email, u.Name, u.Picture, u.Guest, u.CreatedAt.UTC()); err != nil {
		return domain.User{}, conflict(err, "insert user")
	}
	return u, errors.Wrap(tx.Commit(), "commit")
}

// ---- sessions ----

func (r *Repo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx, insertSessionSQL, s.SessionToken, s.UserID, s.ExpiresAt.UTC(), s.CreatedAt.UTC())
	return conflict(err, "insert session")
}

func (r *Repo) GetSession(ctx context.Context, token string) (domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRowContext(ctx, getSessionSQL, token).Scan(&s.SessionToken, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	return s, notFound(err, "get session")
}

func (r *Repo) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_token = ?`, token)
	return errors.Wrap(err, "delete session")
}

// ---- bookings ----

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	var status string
	err := s.Scan(&b.BookingID, &b.UserID, &b.HotelID, &b.HotelName, &b.CheckIn, &b.CheckOut,
		&b.GuestFirstName, &b.GuestLastName, &b.GuestEmail, &b.NumAdults, &b.NumChildren,
		&b.TotalPrice, &status, &b.CreatedAt)
	if err != nil {
		return b, err
	}
	b.Status, err = domain.ParseBookingStatus(status)
	return b, errors.Wrapf(err, "booking %s", b.BookingID)
}

func (r *Repo) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.BookingID, b.UserID, b.HotelID, b.HotelName, b.CheckIn, b.CheckOut,
		b.GuestFirstName, b.GuestLastName, b.GuestEmail, b.NumAdults, b.NumChildren,
		b.TotalPrice, string(b.Status), b.CreatedAt.UTC(),
	)
	return conflict(err, "insert booking")
}

func (r *Repo) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, bookingID))
	return b, notFound(err, "get booking")
}

func (r *Repo) ListBookingsByUser(ctx context.Context, userID string, limit int) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan booking")
		}
		out = append(out, b)
	}
	return out, errors.Wrap(rows.Err(), "list bookings")
}

func (r *Repo) ConfirmBooking(ctx context.Context, bookingID string) (bool, error) {
	return r.execOne(ctx, "confirm booking", confirmBookingSQL, r.now().UTC(), bookingID)
}

// ---- payments ----

func (r *Repo) CreatePayment(ctx context.Context, p domain.PaymentTransaction) error {
	_, err := r.db.ExecContext(ctx, insertPaymentSQL,
		p.PaymentID, p.SessionID, p.BookingID, p.UserID, p.Amount, p.Currency,
		string(p.PaymentStatus), string(p.Status), p.CreatedAt.UTC(),
	)
	return conflict(err, "insert payment transaction")
}

func (r *Repo) GetPaymentBySession(ctx context.Context, sessionID string) (domain.PaymentTransaction, error) {
	var p domain.PaymentTransaction
	var payStatus, status string
	err := r.db.QueryRowContext(ctx, getPaymentBySessionSQL, sessionID).Scan(
		&p.PaymentID, &p.SessionID, &p.BookingID, &p.UserID, &p.Amount, &p.Currency,
		&payStatus, &status, &p.CreatedAt,
	)
	p.PaymentStatus, p.Status = domain.PaymentStatus(payStatus), domain.TransactionStatus(status)
	return p, notFound(err, "get payment transaction")
}

func (r *Repo) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	return r.execOne(ctx, "mark payment paid", markPaidSQL, r.now().UTC(), sessionID)
}

// execOne runs a conditional update and reports whether it changed a row.
func (r *Repo) execOne(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.Wrap(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, op)
	}
	return n == 1, nil
}

// ---- cache ----

func (r *Repo) GetSearch(ctx context.Context, key domain.SearchKey) ([]domain.Hotel, bool, error) {
	var hotels []domain.Hotel
	ok, err := r.getCached(ctx, getSearchCacheSQL, key.String(), &hotels)
	return hotels, ok, err
}

func (r *Repo) PutSearch(ctx context.Context, key domain.SearchKey, hotels []domain.Hotel, ttl time.Duration) error {
	return r.putCached(ctx, upsertSearchCacheSQL, key.String(), hotels, ttl)
}

func (r *Repo) GetDetail(ctx context.Context, id int64) (domain.Hotel, bool, error) {
	var h domain.Hotel
	ok, err := r.getCached(ctx, getDetailCacheSQL, id, &h)
	return h, ok, err
}

func (r *Repo) PutDetail(ctx context.Context, id int64, h domain.Hotel, ttl time.Duration) error {
	return r.putCached(ctx, upsertDetailCacheSQL, id, h, ttl)
}

func (r *Repo) getCached(ctx context.Context, query string, key any, dst any) (bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, key, r.now().UTC()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		observability.ObserveCache("mysql", "miss")
		return false, nil
	}
	if err != nil {
		observability.ObserveCache("mysql", "error")
		return false, errors.Wrap(err, "read cache")
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		observability.ObserveCache("mysql", "error")
		log.Warn().Err(err).Interface("key", key).Msg("discarding undecodable cache entry")
		return false, nil
	}
	observability.ObserveCache("mysql", "hit")
	return true, nil
}

func (r *Repo) putCached(ctx context.Context, query string, key any, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode cache entry")
	}
	observability.ObserveCache("mysql", "set")
	_, err = r.db.ExecContext(ctx, query, key, string(b), r.now().UTC().Add(ttl))
	return errors.Wrap(err, "write cache")
}

// ---- maintenance ----

func (r *Repo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	for _, table := range sweepTables {
		res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE expires_at <= ?", now.UTC())
		if err != nil {
			return total, errors.Wrapf(err, "sweep %s", table)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	log.Info().Int64("deleted", total).Msg("expired rows swept")
	return total, nil
}

func notFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return errors.Wrap(err, op)
}

func conflict(err error, op string) error {
	if err == nil {
		return nil
	}
	var me *mysqldrv.MySQLError
	if errors.As(err, &me) && me.Number == errDuplicateEntry {
		return errors.Mark(errors.Wrap(err, op), domain.ErrConflict)
	}
	return errors.Wrap(err, op)
}
