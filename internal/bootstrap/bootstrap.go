// Package bootstrap builds the adapters selected by configuration. Both
// binaries share it so the api server and hotelctl see the same backends.
package bootstrap

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/adapters/bookingcom"
	"wanderbook/internal/adapters/checkout"
	"wanderbook/internal/adapters/rabbit"
	redisad "wanderbook/internal/adapters/redis"
	"wanderbook/internal/domain"
	"wanderbook/internal/shared"
	mongostore "wanderbook/internal/storage/mongo"
	mysqlrepo "wanderbook/internal/storage/mysql"
)

// Store is everything the services persist, whichever driver backs it.
type Store interface {
	domain.UserRepository
	domain.SessionRepository
	domain.BookingRepository
	domain.PaymentRepository
	domain.HotelCache
	domain.Sweeper
	Ping(ctx context.Context) error
}

type Backend struct {
	Store Store
	// Cache is Store unless CACHE_BACKEND=redis.
	Cache domain.HotelCache

	redis   *redisad.Cache
	closers []func(context.Context) error
}

func (b *Backend) Close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.Warn().Err(err).Msg("backend close failed")
		}
	}
}

// Ready pings every backing service.
func (b *Backend) Ready(ctx context.Context) error {
	if err := b.Store.Ping(ctx); err != nil {
		return errors.Wrap(err, "store")
	}
	if b.redis != nil {
		if err := b.redis.Ping(ctx); err != nil {
			return errors.Wrap(err, "cache")
		}
	}
	return nil
}

// Open connects the configured store (and cache) and prepares its schema.
func Open(ctx context.Context, cfg shared.Config) (*Backend, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	b := &Backend{}
	switch cfg.StoreDriver {
	case shared.StoreMongo:
		st, err := mongostore.Open(ctx, cfg.MongoURL, cfg.DBName)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, st.Close)
		if err := st.EnsureIndexes(ctx); err != nil {
			b.Close(context.Background())
			return nil, err
		}
		b.Store = st
	case shared.StoreMySQL:
		repo, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return repo.Close() })
		if err := repo.Migrate(ctx); err != nil {
			b.Close(context.Background())
			return nil, err
		}
		b.Store = repo
	default:
		return nil, errors.Newf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	log.Info().Str("driver", cfg.StoreDriver).Msg("store connected")

	b.Cache = b.Store
	if cfg.CacheBackend == shared.CacheRedis {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		b.closers = append(b.closers, func(context.Context) error { return rc.Close() })
		if err := rc.Ping(ctx); err != nil {
			b.Close(context.Background())
			return nil, errors.Wrap(err, "ping redis")
		}
		b.Cache, b.redis = rc, rc
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis cache connected")
	}
	return b, nil
}

func Provider(cfg shared.Config) *bookingcom.Client {
	c := bookingcom.New(cfg.BookingBaseURL, cfg.BookingAPIKey, cfg.BookingAffID, cfg.ProviderRPS)
	log.Info().Str("mode", c.Mode()).Str("base", c.BaseURL()).Msg("hotel provider ready")
	return c
}

// Checkout picks Stripe when a key is configured, the mock backend otherwise.
func Checkout(cfg shared.Config) domain.CheckoutProvider {
	if cfg.StripeAPIKey == "" {
		log.Warn().Msg("STRIPE_API_KEY not set; using mock checkout")
		return checkout.NewMock()
	}
	return checkout.NewStripe(cfg.StripeAPIKey, cfg.StripeWebhookSecret, nil)
}

// Publisher returns a RabbitMQ publisher, or a no-op one when RABBIT_URL is empty.
// A broker that can't be reached is logged and replaced by the no-op publisher.
func Publisher(cfg shared.Config) (domain.EventPublisher, func() error) {
	noop := func() error { return nil }
	if cfg.RabbitURL == "" {
		return rabbit.Noop{}, noop
	}
	p, err := rabbit.Dial(cfg.RabbitURL)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq unavailable; booking events disabled")
		return rabbit.Noop{}, noop
	}
	log.Info().Str("exchange", rabbit.Exchange).Msg("rabbitmq publisher ready")
	return p, p.Close
}
