package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/chdqbank/qbank/internal/store"
)

type mockRepo struct {
	users       map[string]*store.User
	lookupCalls int
	createCalls int
	err         error
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: map[string]*store.User{}}
}

func (m *mockRepo) UserByEmail(_ context.Context, email string) (*store.User, error) {
	m.lookupCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.users[email], nil
}

func (m *mockRepo) CreateUser(_ context.Context, email string) (*store.User, error) {
	m.createCalls++
	u := &store.User{ID: "id-" + email, Email: email}
	m.users[email] = u
	return u, nil
}

func TestSignInCreatesThenReuses(t *testing.T) {
	repo := newMockRepo()
	p := NewProvider(repo, nil)
	ctx := context.Background()

	if _, ok := p.CurrentUser(); ok {
		t.Fatal("expected signed-out provider")
	}

	u, err := p.SignIn(ctx, "Dr Who <who@example.com>")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.Email != "who@example.com" || repo.createCalls != 1 {
		t.Errorf("user = %+v, creates = %d", u, repo.createCalls)
	}
	id, ok := p.CurrentUser()
	if !ok || id != "id-who@example.com" {
		t.Errorf("CurrentUser = %q, %v", id, ok)
	}

	p.SignOut()
	if _, err := p.SignIn(ctx, "who@example.com"); err != nil {
		t.Fatalf("second SignIn: %v", err)
	}
	if repo.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", repo.createCalls)
	}
}

func TestSignInRejectsInvalidEmail(t *testing.T) {
	repo := newMockRepo()
	p := NewProvider(repo, nil)

	_, err := p.SignIn(context.Background(), "not an email")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("err = %v, want ErrInvalidEmail", err)
	}
	if repo.lookupCalls != 0 {
		t.Error("invalid email reached the repo")
	}
}

func TestSignInRepoError(t *testing.T) {
	repo := newMockRepo()
	repo.err = errors.New("db down")
	p := NewProvider(repo, nil)

	if _, err := p.SignIn(context.Background(), "a@b.co"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := p.CurrentUser(); ok {
		t.Error("failed sign-in left a session")
	}
}

func TestSubscribe(t *testing.T) {
	p := NewProvider(newMockRepo(), nil)
	var events []string
	unsubscribe := p.Subscribe(func(u *store.User) {
		if u == nil {
			events = append(events, "out")
			return
		}
		events = append(events, "in:"+u.Email)
	})

	if _, err := p.SignIn(context.Background(), "a@b.co"); err != nil {
		t.Fatal(err)
	}
	p.SignOut()
	unsubscribe()
	unsubscribe()
	p.SignOut()

	if len(events) != 2 || events[0] != "in:a@b.co" || events[1] != "out" {
		t.Errorf("events = %v", events)
	}
}
