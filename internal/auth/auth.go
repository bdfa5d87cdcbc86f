// Package auth keeps the signed-in learner for the running process.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sync"

	"github.com/chdqbank/qbank/internal/store"
)

// ErrInvalidEmail is returned by SignIn for an address that does not parse.
var ErrInvalidEmail = errors.New("auth: invalid email address")

// UserRepo finds and creates learner accounts.
type UserRepo interface {
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateUser(ctx context.Context, email string) (*store.User, error)
}

// Listener is notified with the new user after every session change.
// It receives nil on sign-out.
type Listener func(user *store.User)

// Provider caches the current session. CurrentUser never blocks on I/O.
type Provider struct {
	repo   UserRepo
	logger *slog.Logger

	mu        sync.RWMutex
	user      *store.User
	listeners map[int]Listener
	nextID    int
}

// NewProvider returns a signed-out provider.
func NewProvider(repo UserRepo, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{repo: repo, logger: logger, listeners: make(map[int]Listener)}
}

// SignIn finds or creates the account for email and makes it current.
func (p *Provider) SignIn(ctx context.Context, email string) (*store.User, error) {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	u, err := p.repo.UserByEmail(ctx, addr.Address)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	if u == nil {
		if u, err = p.repo.CreateUser(ctx, addr.Address); err != nil {
			return nil, fmt.Errorf("sign in: %w", err)
		}
		p.logger.Info("created account", "user", u.ID)
	}

	p.setUser(u)
	return u, nil
}

// SignOut clears the session.
func (p *Provider) SignOut() {
	p.setUser(nil)
}

// CurrentUser returns the id of the signed-in user.
func (p *Provider) CurrentUser() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return "", false
	}
	return p.user.ID, true
}

// User returns a copy of the signed-in user, or nil.
func (p *Provider) User() *store.User {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.user == nil {
		return nil
	}
	u := *p.user
	return &u
}

// Subscribe registers fn for session changes and returns a function that
// removes it.
func (p *Provider) Subscribe(fn Listener) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

func (p *Provider) setUser(u *store.User) {
	p.mu.Lock()
	p.user = u
	listeners := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		var cp *store.User
		if u != nil {
			v := *u
			cp = &v
		}
		fn(cp)
	}
}
