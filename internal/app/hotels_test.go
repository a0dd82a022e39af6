package app_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/cockroachdb/errors"

	"wanderbook/internal/app"
	"wanderbook/internal/domain"
)

func miamiQuery() domain.SearchQuery {
	return domain.SearchQuery{Destination: "Miami", CheckIn: "2026-03-01", CheckOut: "2026-03-05", NumAdults: 2, NumRooms: 1}
}

func newHotelService(p *fakeProvider, store *memStore) *app.HotelService {
	cat := &fakeCatalog{hotels: []domain.Hotel{hotel(1001, "Mock One"), hotel(1002, "Mock Two")}}
	return app.NewHotelService(p, store, cat, time.Hour, 6*time.Hour)
}

func TestSearch_CachedWithinTTL(t *testing.T) {
	p := &fakeProvider{configured: true, hotels: []domain.Hotel{hotel(1, "Real")}}
	store := newMemStore()
	svc := newHotelService(p, store)
	ctx := context.Background()

	first, err := svc.Search(ctx, miamiQuery())
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	// Provider changes; the cached answer must not.
	p.hotels = []domain.Hotel{hotel(2, "Changed")}
	q := miamiQuery()
	q.Destination = "MIAMI"
	second, err := svc.Search(ctx, q)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results, got %+v vs %+v", first, second)
	}
	if p.searches != 1 {
		t.Fatalf("expected one provider call, got %d", p.searches)
	}
}

func TestSearch_RefetchAfterTTL(t *testing.T) {
	p := &fakeProvider{configured: true, hotels: []domain.Hotel{hotel(1, "Real")}}
	store := newMemStore()
	now := time.Now()
	store.now = func() time.Time { return now }
	svc := newHotelService(p, store)
	ctx := context.Background()

	if _, err := svc.Search(ctx, miamiQuery()); err != nil {
		t.Fatalf("search: %v", err)
	}
	now = now.Add(time.Hour + time.Second)
	if _, err := svc.Search(ctx, miamiQuery()); err != nil {
		t.Fatalf("search: %v", err)
	}
	if p.searches != 2 {
		t.Fatalf("expected a fresh provider call after expiry, got %d calls", p.searches)
	}
}

func TestSearch_EmptyResultsNotCached(t *testing.T) {
	p := &fakeProvider{configured: true}
	svc := newHotelService(p, newMemStore())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		out, err := svc.Search(ctx, miamiQuery())
		if err != nil || len(out) != 0 {
			t.Fatalf("expected empty result, got %v %v", out, err)
		}
	}
	if p.searches != 2 {
		t.Fatalf("empty results should not be cached, got %d calls", p.searches)
	}
}

func TestSearch_UnsupportedDestination(t *testing.T) {
	p := &fakeProvider{configured: true, err: &domain.UnsupportedDestinationError{Destination: "Atlantis", Supported: []string{"miami"}}}
	svc := newHotelService(p, newMemStore())

	q := miamiQuery()
	q.Destination = "Atlantis"
	_, err := svc.Search(context.Background(), q)
	if !errors.Is(err, domain.ErrUnsupportedDestination) {
		t.Fatalf("expected ErrUnsupportedDestination, got %v", err)
	}
}

func TestSearch_FallsBackToMock(t *testing.T) {
	cases := map[string]*fakeProvider{
		"unconfigured": {configured: false},
		"unavailable":  {configured: true, err: errors.Wrap(domain.ErrProviderUnavailable, "boom")},
		"bad shape":    {configured: true, err: domain.ErrUnexpectedResponse},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			svc := newHotelService(p, store)
			out, err := svc.Search(context.Background(), miamiQuery())
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(out) != 2 || out[0].ID != 1001 {
				t.Fatalf("expected mock catalog, got %+v", out)
			}
			if len(store.search) != 0 {
				t.Fatalf("fallback results must not be cached")
			}
		})
	}
}

func TestSearch_InvalidInput(t *testing.T) {
	svc := newHotelService(&fakeProvider{}, newMemStore())
	q := miamiQuery()
	q.CheckOut = "2026-02-01"
	if _, err := svc.Search(context.Background(), q); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGetHotel_ProviderThenCache(t *testing.T) {
	p := &fakeProvider{configured: true, detail: map[int64]domain.Hotel{7: hotel(7, "Seven")}}
	svc := newHotelService(p, newMemStore())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		h, err := svc.GetHotel(ctx, 7)
		if err != nil || h.Name != "Seven" {
			t.Fatalf("get: %+v %v", h, err)
		}
	}
	if p.details != 1 {
		t.Fatalf("expected one provider call, got %d", p.details)
	}
}

func TestGetHotel_Fallbacks(t *testing.T) {
	ctx := context.Background()

	// provider 404 -> mock catalog
	svc := newHotelService(&fakeProvider{configured: true}, newMemStore())
	if h, err := svc.GetHotel(ctx, 1002); err != nil || h.Name != "Mock Two" {
		t.Fatalf("expected mock hotel, got %+v %v", h, err)
	}
	// missing everywhere -> not found
	if _, err := svc.GetHotel(ctx, 9999); !errors.Is(err, domain.ErrHotelNotFound) {
		t.Fatalf("expected ErrHotelNotFound, got %v", err)
	}

	// provider down, mock has it -> mock
	down := newHotelService(&fakeProvider{configured: true, err: domain.ErrProviderUnavailable}, newMemStore())
	if h, err := down.GetHotel(ctx, 1001); err != nil || h.ID != 1001 {
		t.Fatalf("expected mock hotel, got %+v %v", h, err)
	}
	// provider down, mock misses -> provider failure surfaces
	if _, err := down.GetHotel(ctx, 9999); !errors.Is(err, domain.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}

	// unconfigured provider is never called
	p := &fakeProvider{}
	off := newHotelService(p, newMemStore())
	if _, err := off.GetHotel(ctx, 1001); err != nil || p.details != 0 {
		t.Fatalf("unexpected: err=%v calls=%d", err, p.details)
	}
}

func TestCacheWarmer_Warm(t *testing.T) {
	p := &fakeProvider{configured: true, hotels: []domain.Hotel{hotel(1, "A"), hotel(2, "B")}}
	store := newMemStore()
	w := app.NewCacheWarmer(newHotelService(p, store), 2)

	res, err := w.Warm(context.Background(), []string{"miami", "paris", "rome"}, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2, 2)
	if err != nil {
		t.Fatalf("warm: %v", err)
	}
	if len(res) != 3 || p.searches != 3 {
		t.Fatalf("expected 3 warmed destinations, got %d results %d calls", len(res), p.searches)
	}
	for _, r := range res {
		if r.Err != nil || r.Hotels != 2 {
			t.Fatalf("unexpected result: %+v", r)
		}
	}
	key := domain.SearchKey{Destination: "paris", CheckIn: "2026-03-01", CheckOut: "2026-03-03"}
	if _, ok, _ := store.GetSearch(context.Background(), key); !ok {
		t.Fatalf("expected warmed cache entry for %s", key)
	}
}
