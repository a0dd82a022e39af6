package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

type searchEntry struct {
	Key       string         `bson:"_id"`
	Hotels    []domain.Hotel `bson:"hotels"`
	ExpiresAt time.Time      `bson:"expires_at"`
}

type detailEntry struct {
	HotelID   int64        `bson:"_id"`
	Hotel     domain.Hotel `bson:"hotel"`
	ExpiresAt time.Time    `bson:"expires_at"`
}

// Reads filter on expires_at as well: the TTL monitor only runs once a minute.

func (s *Store) GetSearch(ctx context.Context, key domain.SearchKey) ([]domain.Hotel, bool, error) {
	var e searchEntry
	err := s.search.FindOne(ctx, bson.M{"_id": key.String(), "expires_at": bson.M{"$gt": s.now().UTC()}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.ObserveCache("mongo", "miss")
		return nil, false, nil
	}
	if err != nil {
		observability.ObserveCache("mongo", "error")
		return nil, false, errors.Wrap(err, "read search cache")
	}
	observability.ObserveCache("mongo", "hit")
	return e.Hotels, true, nil
}

func (s *Store) PutSearch(ctx context.Context, key domain.SearchKey, hotels []domain.Hotel, ttl time.Duration) error {
	e := searchEntry{Key: key.String(), Hotels: hotels, ExpiresAt: s.now().UTC().Add(ttl)}
	_, err := s.search.ReplaceOne(ctx, bson.M{"_id": e.Key}, e, options.Replace().SetUpsert(true))
	observability.ObserveCache("mongo", "set")
	return errors.Wrap(err, "write search cache")
}

func (s *Store) GetDetail(ctx context.Context, id int64) (domain.Hotel, bool, error) {
	var e detailEntry
	err := s.detail.FindOne(ctx, bson.M{"_id": id, "expires_at": bson.M{"$gt": s.now().UTC()}}).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		observability.ObserveCache("mongo", "miss")
		return domain.Hotel{}, false, nil
	}
	if err != nil {
		observability.ObserveCache("mongo", "error")
		return domain.Hotel{}, false, errors.Wrap(err, "read detail cache")
	}
	observability.ObserveCache("mongo", "hit")
	return e.Hotel, true, nil
}

func (s *Store) PutDetail(ctx context.Context, id int64, h domain.Hotel, ttl time.Duration) error {
	e := detailEntry{HotelID: id, Hotel: h, ExpiresAt: s.now().UTC().Add(ttl)}
	_, err := s.detail.ReplaceOne(ctx, bson.M{"_id": id}, e, options.Replace().SetUpsert(true))
	observability.ObserveCache("mongo", "set")
	return errors.Wrap(err, "write detail cache")
}
