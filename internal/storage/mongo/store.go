// Package mongo is the document store: users, sessions, bookings, payment
// transactions and the two hotel cache collections.
package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderbook/internal/domain"
)

const (
	collUsers       = "users"
	collSessions    = "user_sessions"
	collBookings    = "bookings"
	collPayments    = "payment_transactions"
	collSearchCache = "hotel_cache"
	collDetailCache = "hotel_details_cache"
)

type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	sessions *mongo.Collection
	bookings *mongo.Collection
	payments *mongo.Collection
	search   *mongo.Collection
	detail   *mongo.Collection
	now      func() time.Time
}

// Open connects, pings and returns a store on database dbName.
func Open(ctx context.Context, uri, dbName string) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "ping mongo")
	}
	s := New(client.Database(dbName))
	s.client = client
	return s, nil
}

func New(db *mongo.Database) *Store {
	return &Store{
		client:   db.Client(),
		users:    db.Collection(collUsers),
		sessions: db.Collection(collSessions),
		bookings: db.Collection(collBookings),
		payments: db.Collection(collPayments),
		search:   db.Collection(collSearchCache),
		detail:   db.Collection(collDetailCache),
		now:      time.Now,
	}
}

func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx, nil) }

func (s *Store) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// EnsureIndexes creates the unique lookup keys and the TTL indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(key string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: key, Value: 1}}, Options: options.Index().SetUnique(true)}
	}
	ttl := mongo.IndexModel{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)}

	plan := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.users, []mongo.IndexModel{unique("user_id"), unique("email")}},
		{s.sessions, []mongo.IndexModel{unique("session_token"), ttl}},
		{s.bookings, []mongo.IndexModel{
			unique("booking_id"),
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
		{s.payments, []mongo.IndexModel{unique("payment_id"), unique("session_id")}},
		{s.search, []mongo.IndexModel{ttl}},
		{s.detail, []mongo.IndexModel{ttl}},
	}
	for _, p := range plan {
		if _, err := p.coll.Indexes().CreateMany(ctx, p.models); err != nil {
			return errors.Wrapf(err, "create indexes on %s", p.coll.Name())
		}
	}
	return nil
}

// ---- users ----

func (s *Store) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"user_id": userID}).Decode(&u)
	return u, notFound(err, "get user")
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var u domain.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	return u, notFound(err, "get user by email")
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	_, err := s.users.InsertOne(ctx, u)
	return conflict(err, "insert user")
}

// UpsertUser refreshes profile fields on the record matching user_id, else on the
// record matching email (adopting a guest), else inserts u.
func (s *Store) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)
	profile := bson.M{"name": u.Name, "picture": u.Picture}

	for attempt := 0; attempt < 2; attempt++ {
		var out domain.User
		err := s.users.FindOneAndUpdate(ctx, bson.M{"user_id": u.UserID}, bson.M{"$set": profile}, after).Decode(&out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, errors.Wrap(err, "update user")
		}

		err = s.users.FindOneAndUpdate(ctx, bson.M{"email": u.Email},
			bson.M{"$set": profile, "$unset": bson.M{"guest": ""}}, after).Decode(&out)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return domain.User{}, errors.Wrap(err, "adopt user by email")
		}

		_, err = s.users.InsertOne(ctx, u)
		if err == nil {
			return u, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return domain.User{}, errors.Wrap(err, "insert user")
		}
		// lost a race with a concurrent insert; the next pass updates it
	}
	return domain.User{}, errors.Wrap(domain.ErrConflict, "upsert user")
}

// ---- sessions ----

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	_, err := s.sessions.InsertOne(ctx, sess)
	return conflict(err, "insert session")
}

func (s *Store) GetSession(ctx context.Context, token string) (domain.Session, error) {
	var sess domain.Session
	err := s.sessions.FindOne(ctx, bson.M{"session_token": token}).Decode(&sess)
	return sess, notFound(err, "get session")
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	_, err := s.sessions.DeleteOne(ctx, bson.M{"session_token": token})
	return errors.Wrap(err, "delete session")
}

// ---- bookings ----

func (s *Store) CreateBooking(ctx context.Context, b domain.Booking) error {
	_, err := s.bookings.InsertOne(ctx, b)
	return conflict(err, "insert booking")
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (domain.Booking, error) {
	var b domain.Booking
	err := s.bookings.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&b)
	return b, notFound(err, "get booking")
}

func (s *Store) ListBookingsByUser(ctx context.Context, userID string, limit int) ([]domain.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.bookings.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "find bookings")
	}
	out := []domain.Booking{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode bookings")
	}
	return out, nil
}

func (s *Store) ConfirmBooking(ctx context.Context, bookingID string) (bool, error) {
	res, err := s.bookings.UpdateOne(ctx,
		bson.M{"booking_id": bookingID, "status": domain.BookingPendingPayment},
		bson.M{"$set": bson.M{"status": domain.BookingConfirmed, "updated_at": s.now().UTC()}})
	if err != nil {
		return false, errors.Wrap(err, "confirm booking")
	}
	return res.ModifiedCount == 1, nil
}

// ---- payments ----

func (s *Store) CreatePayment(ctx context.Context, p domain.PaymentTransaction) error {
	_, err := s.payments.InsertOne(ctx, p)
	return conflict(err, "insert payment transaction")
}

func (s *Store) GetPaymentBySession(ctx context.Context, sessionID string) (domain.PaymentTransaction, error) {
	var p domain.PaymentTransaction
	err := s.payments.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&p)
	return p, notFound(err, "get payment transaction")
}

func (s *Store) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.payments.UpdateOne(ctx,
		bson.M{"session_id": sessionID, "payment_status": bson.M{"$ne": domain.PaymentPaid}},
		bson.M{"$set": bson.M{
			"payment_status": domain.PaymentPaid,
			"status":         domain.TransactionCompleted,
			"updated_at":     s.now().UTC(),
		}})
	if err != nil {
		return false, errors.Wrap(err, "mark payment paid")
	}
	return res.ModifiedCount == 1, nil
}

// ---- maintenance ----

// SweepExpired removes expired sessions and cache entries. The TTL monitor does
// the same eventually; this makes it immediate.
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"expires_at": bson.M{"$lte": now.UTC()}}
	var total int64
	for _, c := range []*mongo.Collection{s.sessions, s.search, s.detail} {
		res, err := c.DeleteMany(ctx, filter)
		if err != nil {
			return total, errors.Wrapf(err, "sweep %s", c.Name())
		}
		total += res.DeletedCount
	}
	log.Info().Int64("deleted", total).Msg("expired documents swept")
	return total, nil
}

func notFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return errors.Wrap(err, op)
}

func conflict(err error, op string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return errors.Mark(errors.Wrap(err, op), domain.ErrConflict)
	}
	return errors.Wrap(err, op)
}
