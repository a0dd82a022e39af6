package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"wanderbook/internal/domain"
)

// CacheWarmer pre-populates search results for a set of destinations.
type CacheWarmer struct {
	hotels  *HotelService
	workers int64
}

func NewCacheWarmer(h *HotelService, workers int) *CacheWarmer {
	if workers <= 0 {
		workers = 1
	}
	return &CacheWarmer{hotels: h, workers: int64(workers)}
}

type WarmResult struct {
	Destination string
	Hotels      int
	Err         error
}

// Warm refreshes one search per destination for the stay starting checkIn.
// Failures are reported per destination; the returned error is only for ctx.
func (w *CacheWarmer) Warm(ctx context.Context, destinations []string, checkIn time.Time, nights, adults int) ([]WarmResult, error) {
	if nights <= 0 {
		nights = 1
	}
	in := checkIn.UTC().Format(domain.DateLayout)
	out := checkIn.UTC().AddDate(0, 0, nights).Format(domain.DateLayout)

	results := make([]WarmResult, len(destinations))
	sem := semaphore.NewWeighted(w.workers)
	var acquireErr error
	for i, dest := range destinations {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			acquireErr = errors.Wrap(err, "acquire worker")
			break
		}
		go func(i int, dest string) {
			defer sem.Release(1)
			n, err := w.hotels.RefreshSearch(ctx, domain.SearchQuery{
				Destination: dest, CheckIn: in, CheckOut: out, NumAdults: adults, NumRooms: 1,
			})
			results[i] = WarmResult{Destination: dest, Hotels: n, Err: err}
			if err != nil {
				log.Warn().Err(err).Str("destination", dest).Msg("warm failed")
				return
			}
			log.Info().Str("destination", dest).Int("hotels", n).Msg("warm ok")
		}(i, dest)
	}
	// wait for every in-flight worker by taking the whole pool
	_ = sem.Acquire(context.Background(), w.workers)
	sem.Release(w.workers)
	return results, acquireErr
}
