package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

// HotelService serves search and detail lookups: cache first, then the provider,
// then the mock catalog when the provider can't answer.
type HotelService struct {
	provider  domain.HotelProvider
	cache     domain.HotelCache
	catalog   domain.HotelCatalog
	searchTTL time.Duration
	detailTTL time.Duration
}

func NewHotelService(p domain.HotelProvider, c domain.HotelCache, cat domain.HotelCatalog, searchTTL, detailTTL time.Duration) *HotelService {
	return &HotelService{provider: p, cache: c, catalog: cat, searchTTL: searchTTL, detailTTL: detailTTL}
}

func (s *HotelService) Search(ctx context.Context, q domain.SearchQuery) ([]domain.Hotel, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if !s.provider.Configured() {
		return s.mockSearch(q, "not_configured"), nil
	}

	key := q.Key()
	if hotels, ok, err := s.cache.GetSearch(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("search cache read failed")
	} else if ok {
		return domain.CloneHotels(hotels), nil
	}

	hotels, err := s.provider.SearchHotels(ctx, q)
	if err != nil {
		if reason, ok := fallbackReason(err); ok {
			log.Warn().Err(err).Str("destination", q.Destination).Msg("hotel search falling back to mock catalog")
			return s.mockSearch(q, reason), nil
		}
		return nil, err
	}
	s.putSearch(ctx, key, hotels)
	return domain.CloneHotels(hotels), nil
}

// RefreshSearch calls the provider unconditionally and rewrites the cache entry.
func (s *HotelService) RefreshSearch(ctx context.Context, q domain.SearchQuery) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}
	hotels, err := s.provider.SearchHotels(ctx, q)
	if err != nil {
		return 0, err
	}
	s.putSearch(ctx, q.Key(), hotels)
	return len(hotels), nil
}

// GetHotel returns ErrHotelNotFound when neither the provider nor the catalog knows id.
func (s *HotelService) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	if id <= 0 {
		return domain.Hotel{}, domain.NewInvalidInput("hotel id must be a positive integer")
	}
	if !s.provider.Configured() {
		return s.mockDetail(id, "not_configured", nil)
	}

	if h, ok, err := s.cache.GetDetail(ctx, id); err != nil {
		log.Warn().Err(err).Int64("hotel_id", id).Msg("detail cache read failed")
	} else if ok {
		return h.Clone(), nil
	}

	h, err := s.provider.GetHotelDetails(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrHotelNotFound) {
			return s.mockDetail(id, "not_found", nil)
		}
		if reason, ok := fallbackReason(err); ok {
			log.Warn().Err(err).Int64("hotel_id", id).Msg("hotel details falling back to mock catalog")
			return s.mockDetail(id, reason, err)
		}
		return domain.Hotel{}, err
	}
	if err := s.cache.PutDetail(ctx, id, h, s.detailTTL); err != nil {
		log.Warn().Err(err).Int64("hotel_id", id).Msg("detail cache write failed")
	}
	return h.Clone(), nil
}

func (s *HotelService) putSearch(ctx context.Context, key domain.SearchKey, hotels []domain.Hotel) {
	// empty results are never cached
	if len(hotels) == 0 {
		return
	}
	if err := s.cache.PutSearch(ctx, key, hotels, s.searchTTL); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("search cache write failed")
	}
}

func (s *HotelService) mockSearch(q domain.SearchQuery, reason string) []domain.Hotel {
	observability.ObserveFallback("search", reason)
	hotels := s.catalog.Search(q.Destination)
	if len(hotels) > domain.MaxSearchResults {
		hotels = hotels[:domain.MaxSearchResults]
	}
	return hotels
}

// mockDetail answers from the catalog. When the provider failed (cause != nil)
// and the catalog has no entry, the provider failure is what the caller sees.
func (s *HotelService) mockDetail(id int64, reason string, cause error) (domain.Hotel, error) {
	observability.ObserveFallback("details", reason)
	if h, ok := s.catalog.Get(id); ok {
		return h, nil
	}
	if cause != nil {
		return domain.Hotel{}, cause
	}
	return domain.Hotel{}, errors.Wrapf(domain.ErrHotelNotFound, "hotel %d", id)
}

// fallbackReason classifies provider errors the mock catalog may answer for.
func fallbackReason(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return "not_configured", true
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "unavailable", true
	case errors.Is(err, domain.ErrUnexpectedResponse):
		return "unexpected_response", true
	}
	return "", false
}
