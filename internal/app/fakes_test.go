package app_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"wanderbook/internal/domain"
)

// ---- fakes ----

type fakeProvider struct {
	mu         sync.Mutex
	configured bool
	hotels     []domain.Hotel
	detail     map[int64]domain.Hotel
	err        error
	searches   int
	details    int
}

func (p *fakeProvider) Configured() bool                { return p.configured }
func (p *fakeProvider) BaseURL() string                 { return "http://provider.test" }
func (p *fakeProvider) SupportedDestinations() []string { return []string{"miami", "paris"} }

func (p *fakeProvider) Mode() string {
	if p.configured {
		return "real"
	}
	return "mock"
}

func (p *fakeProvider) SearchHotels(ctx context.Context, q domain.SearchQuery) ([]domain.Hotel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.searches++
	if p.err != nil {
		return nil, p.err
	}
	return domain.CloneHotels(p.hotels), nil
}

func (p *fakeProvider) GetHotelDetails(ctx context.Context, id int64) (domain.Hotel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.details++
	if p.err != nil {
		return domain.Hotel{}, p.err
	}
	h, ok := p.detail[id]
	if !ok {
		return domain.Hotel{}, domain.ErrHotelNotFound
	}
	return h, nil
}

type fakeCatalog struct{ hotels []domain.Hotel }

func (c *fakeCatalog) All() []domain.Hotel { return domain.CloneHotels(c.hotels) }
func (c *fakeCatalog) Get(id int64) (domain.Hotel, bool) {
	for _, h := range c.hotels {
		if h.ID == id {
			return h.Clone(), true
		}
	}
	return domain.Hotel{}, false
}
func (c *fakeCatalog) Search(dest string) []domain.Hotel { return c.All() }

type cacheEntry struct {
	v       any
	expires time.Time
}

// memStore implements every repository port plus the hotel cache.
type memStore struct {
	mu       sync.Mutex
	now      func() time.Time
	search   map[string]cacheEntry
	detail   map[int64]cacheEntry
	users    map[string]domain.User
	sessions map[string]domain.Session
	bookings map[string]domain.Booking
	payments map[string]domain.PaymentTransaction

	userCreates     int
	bookingConfirms int
}

func newMemStore() *memStore {
	return &memStore{
		now:      time.Now,
		search:   map[string]cacheEntry{},
		detail:   map[int64]cacheEntry{},
		users:    map[string]domain.User{},
		sessions: map[string]domain.Session{},
		bookings: map[string]domain.Booking{},
		payments: map[string]domain.PaymentTransaction{},
	}
}

func (m *memStore) GetSearch(ctx context.Context, key domain.SearchKey) ([]domain.Hotel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.search[key.String()]
	if !ok || !m.now().Before(e.expires) {
		return nil, false, nil
	}
	return domain.CloneHotels(e.v.([]domain.Hotel)), true, nil
}

func (m *memStore) PutSearch(ctx context.Context, key domain.SearchKey, hotels []domain.Hotel, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.search[key.String()] = cacheEntry{v: domain.CloneHotels(hotels), expires: m.now().Add(ttl)}
	return nil
}

func (m *memStore) GetDetail(ctx context.Context, id int64) (domain.Hotel, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.detail[id]
	if !ok || !m.now().Before(e.expires) {
		return domain.Hotel{}, false, nil
	}
	return e.v.(domain.Hotel).Clone(), true, nil
}

func (m *memStore) PutDetail(ctx context.Context, id int64, h domain.Hotel, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detail[id] = cacheEntry{v: h.Clone(), expires: m.now().Add(ttl)}
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (m *memStore) CreateUser(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if x.Email == u.Email {
			return domain.ErrConflict
		}
	}
	m.users[u.UserID] = u
	m.userCreates++
	return nil
}

func (m *memStore) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if x, ok := m.users[u.UserID]; ok {
		x.Name, x.Picture = u.Name, u.Picture
		m.users[u.UserID] = x
		return x, nil
	}
	for id, x := range m.users {
		if x.Email == u.Email {
			x.Name, x.Picture, x.Guest = u.Name, u.Picture, false
			m.users[id] = x
			return x, nil
		}
	}
	m.users[u.UserID] = u
	m.userCreates++
	return u, nil
}

func (m *memStore) CreateSession(ctx context.Context, s domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionToken] = s
	return nil
}

func (m *memStore) GetSession(ctx context.Context, token string) (domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memStore) CreateBooking(ctx context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings[b.BookingID] = b
	return nil
}

func (m *memStore) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListBookingsByUser(ctx context.Context, userID string, limit int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ConfirmBooking(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingPendingPayment {
		return false, nil
	}
	b.Status = domain.BookingConfirmed
	m.bookings[id] = b
	m.bookingConfirms++
	return true, nil
}

func (m *memStore) CreatePayment(ctx context.Context, p domain.PaymentTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.SessionID] = p
	return nil
}

func (m *memStore) GetPaymentBySession(ctx context.Context, sessionID string) (domain.PaymentTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[sessionID]
	if !ok {
		return domain.PaymentTransaction{}, domain.ErrNotFound
	}
	return p, nil
}

func (m *memStore) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[sessionID]
	if !ok || p.PaymentStatus == domain.PaymentPaid {
		return false, nil
	}
	p.PaymentStatus, p.Status = domain.PaymentPaid, domain.TransactionCompleted
	m.payments[sessionID] = p
	return true, nil
}

type fakeCheckout struct {
	status     domain.CheckoutStatus
	webhook    domain.WebhookEvent
	webhookErr error
	created    []domain.CheckoutRequest
}

func (c *fakeCheckout) Name() string { return "fake" }

func (c *fakeCheckout) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	c.created = append(c.created, req)
	return domain.CheckoutSession{SessionID: "cs_test_1", RedirectURL: "https://pay.test/cs_test_1"}, nil
}

func (c *fakeCheckout) GetCheckoutStatus(ctx context.Context, sessionID string) (domain.CheckoutStatus, error) {
	st := c.status
	st.SessionID = sessionID
	return st, nil
}

func (c *fakeCheckout) HandleWebhook(ctx context.Context, payload []byte, sig string) (domain.WebhookEvent, error) {
	return c.webhook, c.webhookErr
}

type fakeIDP struct {
	ident domain.ExternalIdentity
	err   error
}

func (f *fakeIDP) ExchangeSession(ctx context.Context, sessionID string) (domain.ExternalIdentity, error) {
	return f.ident, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []domain.BookingConfirmedEvent
}

func (p *fakePublisher) PublishBookingConfirmed(ctx context.Context, ev domain.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func hotel(id int64, name string) domain.Hotel {
	return domain.Hotel{ID: id, Name: name, City: "Miami", Country: "US", Price: 100, Currency: "USD",
		ImageURLs: []string{}, Amenities: []string{}}
}
