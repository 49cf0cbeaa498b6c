package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// Listener receives auth state changes. sess is nil for EventSignedOut.
type Listener func(event Event, sess *Session)

// Provider is the single entry point for session state. It is created once
// per process and passed explicitly to whatever needs it.
type Provider struct {
	creds    Credentials
	sessions *sessionStore
	logger   *slog.Logger

	ttl           time.Duration
	refreshWindow time.Duration
	hashCost      int
	now           func() time.Time

	mu        sync.RWMutex
	listeners map[uint64]Listener
	nextID    uint64
	closed    bool
}

type Option func(*Provider)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(p *Provider) { p.hashCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

func NewProvider(creds Credentials, client *redis.Client, cfg config.SessionConfig, logger *slog.Logger, opts ...Option) *Provider {
	p := &Provider{
		creds:         creds,
		sessions:      &sessionStore{client: client},
		logger:        logger,
		ttl:           cfg.TTL,
		refreshWindow: cfg.RefreshWindow,
		hashCost:      bcrypt.DefaultCost,
		now:           time.Now,
		listeners:     make(map[uint64]Listener),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := p.creds.CreateUser(ctx, in.Email, string(hash), in.Name)
	if err != nil {
		return nil, err
	}

	p.logger.Info("user signed up", "user_id", user.ID.String())

	return p.issue(ctx, user.ID, user.Email)
}

func (p *Provider) SignInWithPassword(ctx context.Context, in SignInInput) (*Session, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := p.creds.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return p.issue(ctx, user.ID, user.Email)
}

func (p *Provider) issue(ctx context.Context, userID uuid.UUID, email string) (*Session, error) {
	if p.isClosed() {
		return nil, ErrProviderClosed
	}

	sess := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Email:     email,
		ExpiresAt: p.now().Add(p.ttl).Truncate(time.Second),
	}

	if err := p.sessions.save(ctx, sess, p.ttl); err != nil {
		return nil, err
	}

	p.broadcast(EventSignedIn, sess)

	return sess, nil
}

// GetSession resolves a token. Sessions close to expiry are extended by a
// full TTL and announced as EventTokenRefreshed.
func (p *Provider) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := p.sessions.load(ctx, token)
	if err != nil {
		return nil, err
	}

	now := p.now()
	if !now.Before(sess.ExpiresAt) {
		return nil, ErrSessionNotFound
	}

	if sess.ExpiresAt.Sub(now) <= p.refreshWindow {
		sess.ExpiresAt = now.Add(p.ttl).Truncate(time.Second)
		if err := p.sessions.save(ctx, sess, p.ttl); err != nil {
			p.logger.Warn("session refresh failed", "user_id", sess.UserID.String(), "error", err)
			return sess, nil
		}
		p.broadcast(EventTokenRefreshed, sess)
	}

	return sess, nil
}

// SignOut is idempotent: signing out an unknown token succeeds without an event.
func (p *Provider) SignOut(ctx context.Context, token string) error {
	existed, err := p.sessions.remove(ctx, token)
	if err != nil {
		return err
	}

	if existed {
		p.broadcast(EventSignedOut, nil)
	}

	return nil
}

// Subscription is returned by OnAuthStateChange.
type Subscription struct {
	p    *Provider
	id   uint64
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.p.mu.Lock()
		delete(s.p.listeners, s.id)
		s.p.mu.Unlock()
	})
}

// OnAuthStateChange registers fn for every subsequent state change. Listeners
// run synchronously, in subscription order, on the goroutine that caused the
// change.
func (p *Provider) OnAuthStateChange(fn Listener) *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	sub := &Subscription{p: p, id: p.nextID}
	if !p.closed {
		p.listeners[sub.id] = fn
	}
	return sub
}

// Close drops every subscription. New sessions can no longer be issued.
func (p *Provider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	clear(p.listeners)
}

func (p *Provider) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *Provider) broadcast(event Event, sess *Session) {
	p.mu.RLock()
	listeners := make([]Listener, 0, len(p.listeners))
	for _, id := range slices.Sorted(maps.Keys(p.listeners)) {
		listeners = append(listeners, p.listeners[id])
	}
	p.mu.RUnlock()

	for _, fn := range listeners {
		var copied *Session
		if sess != nil {
			c := *sess
			copied = &c
		}
		fn(event, copied)
	}
}
