package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// User is a learner account.
type User struct {
	ID        string
	Email     string
	Alias     *string
	CreatedAt time.Time
}

func (s *Store) userWhere(ctx context.Context, pred *entsql.Predicate) (*User, error) {
	b := builder()
	query, args := b.Select("id", "email", "alias", "created_at").
		From(b.Table(tableUsers)).
		Where(pred).
		Query()
	var (
		u         User
		alias     sql.NullString
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&u.ID, &u.Email, &alias, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	u.Alias = stringPtr(alias)
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

// UserByEmail returns the user with the given email, or nil if none exists.
// Emails compare case-insensitively.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.userWhere(ctx, entsql.EQ("email", normalizeEmail(email)))
}

// UserByID returns the user with the given id, or nil if none exists.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.userWhere(ctx, entsql.EQ("id", id))
}

// CreateUser inserts a new user. The alias defaults to the local part of
// the email.
func (s *Store) CreateUser(ctx context.Context, email string) (*User, error) {
	email = normalizeEmail(email)
	alias, _, _ := strings.Cut(email, "@")
	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Alias:     &alias,
		CreatedAt: fromMillis(s.nowMillis()),
	}
	query, args := builder().Insert(tableUsers).
		Columns("id", "email", "alias", "created_at").
		Values(u.ID, u.Email, alias, u.CreatedAt.UnixMilli()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
