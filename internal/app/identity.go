package app

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/domain"
)

type ResolutionKind int

const (
	Unauthenticated ResolutionKind = iota
	Authenticated
	Expired
	Invalid
)

func (k ResolutionKind) String() string {
	switch k {
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case Invalid:
		return "invalid"
	}
	return "unauthenticated"
}

// Credential is a session token together with where it was found (cookie, bearer).
type Credential struct {
	Source string
	Token  string
}

// Resolution is the outcome of resolving a request's credentials.
type Resolution struct {
	Kind    ResolutionKind
	Source  string
	User    domain.User
	Session domain.Session
}

// Require converts anything but Authenticated into the matching error.
func (r Resolution) Require() (domain.User, error) {
	switch r.Kind {
	case Authenticated:
		return r.User, nil
	case Expired:
		return domain.User{}, domain.ErrSessionExpired
	}
	return domain.User{}, domain.ErrNotAuthenticated
}

type IdentityService struct {
	users      domain.UserRepository
	sessions   domain.SessionRepository
	idp        domain.IdentityProvider
	sessionTTL time.Duration
	now        func() time.Time
}

func NewIdentityService(u domain.UserRepository, s domain.SessionRepository, idp domain.IdentityProvider, sessionTTL time.Duration) *IdentityService {
	return &IdentityService{users: u, sessions: s, idp: idp, sessionTTL: sessionTTL, now: time.Now}
}

// WithClock overrides the time source; tests use it to expire sessions.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// Resolve evaluates credentials in order; the first non-empty token decides the outcome.
// Store failures are returned as errors, never as a resolution.
func (s *IdentityService) Resolve(ctx context.Context, creds []Credential) (Resolution, error) {
	for _, c := range creds {
		token := strings.TrimSpace(c.Token)
		if token == "" {
			continue
		}
		return s.resolveToken(ctx, c.Source, token)
	}
	return Resolution{Kind: Unauthenticated}, nil
}

func (s *IdentityService) resolveToken(ctx context.Context, source, token string) (Resolution, error) {
	sess, err := s.sessions.GetSession(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return Resolution{Kind: Invalid, Source: source}, nil
	}
	if err != nil {
		return Resolution{}, errors.Wrap(err, "load session")
	}
	if sess.Expired(s.now()) {
		return Resolution{Kind: Expired, Source: source, Session: sess}, nil
	}
	u, err := s.users.GetUser(ctx, sess.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Warn().Str("user_id", sess.UserID).Msg("session references a missing user")
		return Resolution{Kind: Invalid, Source: source}, nil
	}
	if err != nil {
		return Resolution{}, errors.Wrap(err, "load session user")
	}
	return Resolution{Kind: Authenticated, Source: source, User: u, Session: sess}, nil
}

// ExchangeSession trades an identity-provider session id for a local user and session.
func (s *IdentityService) ExchangeSession(ctx context.Context, sessionID string) (domain.User, domain.Session, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.User{}, domain.Session{}, domain.NewInvalidInput("session_id is required")
	}
	ext, err := s.idp.ExchangeSession(ctx, sessionID)
	if err != nil {
		return domain.User{}, domain.Session{}, err
	}
	if ext.ID == "" || ext.SessionToken == "" || !domain.ValidEmail(domain.NormalizeEmail(ext.Email)) {
		return domain.User{}, domain.Session{}, errors.Wrap(domain.ErrUnexpectedResponse, "identity provider returned an incomplete identity")
	}

	now := s.now().UTC()
	u, err := s.users.UpsertUser(ctx, domain.User{
		UserID:    ext.ID,
		Email:     domain.NormalizeEmail(ext.Email),
		Name:      ext.Name,
		Picture:   ext.Picture,
		CreatedAt: now,
	})
	if err != nil {
		return domain.User{}, domain.Session{}, errors.Wrap(err, "upsert user")
	}
	sess := domain.Session{
		SessionToken: ext.SessionToken,
		UserID:       u.UserID,
		ExpiresAt:    now.Add(s.sessionTTL),
		CreatedAt:    now,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		return domain.User{}, domain.Session{}, errors.Wrap(err, "create session")
	}
	return u, sess, nil
}

func (s *IdentityService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// GuestUser returns the user owning email, creating a guest-flagged one on first use.
func (s *IdentityService) GuestUser(ctx context.Context, email, firstName, lastName string) (domain.User, error) {
	email = domain.NormalizeEmail(email)
	u, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, errors.Wrap(err, "lookup guest user")
	}

	u = domain.User{
		UserID:    newID("guest"),
		Email:     email,
		Name:      strings.TrimSpace(firstName + " " + lastName),
		Guest:     true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			// a concurrent request created it first
			return s.users.GetUserByEmail(ctx, email)
		}
		return domain.User{}, errors.Wrap(err, "create guest user")
	}
	log.Info().Str("user_id", u.UserID).Msg("guest user created")
	return u, nil
}
