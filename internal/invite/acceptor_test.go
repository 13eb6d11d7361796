package invite

import (
	"context"
	"testing"
	"time"

	"rentlink/internal/api"
	"rentlink/internal/models"
)

func tenant(email string, onboarded bool) models.Identity {
	return models.Identity{
		UserID:    "user-1",
		Email:     email,
		Onboarded: onboarded,
	}
}

func TestAcceptTwiceIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	linked := false
	authority := &fakeAuthority{
		acceptFn: func(token string) (*api.AcceptResponse, error) {
			if linked {
				return &api.AcceptResponse{Success: true, AlreadyLinked: true, PropertyName: "Maple St Duplex"}, nil
			}
			linked = true
			return &api.AcceptResponse{Success: true, PropertyName: "Maple St Duplex"}, nil
		},
	}
	a := NewAcceptor(authority, NewValidator(authority, store, testPolicy()))

	first := a.Accept(context.Background(), "ABC123", tenant("alice@example.com", true), "", time.Now())
	if first.Kind != ResultSuccess {
		t.Fatalf("first accept: expected success, got %+v", first)
	}

	second := a.Accept(context.Background(), "ABC123", tenant("alice@example.com", true), "", time.Now())
	if second.Kind != ResultAlreadyLinked {
		t.Fatalf("second accept: expected already_linked, got %+v", second)
	}
	if second.PropertyName != "Maple St Duplex" {
		t.Fatalf("already_linked should carry the property name, got %q", second.PropertyName)
	}
}

func TestAcceptShortCircuitsWhenAlreadyLinked(t *testing.T) {
	store := newTestStore(t)
	authority := &fakeAuthority{
		linkedFn: func() ([]models.PropertyPreview, error) {
			return []models.PropertyPreview{{ID: "prop-1", Name: "Maple St Duplex"}}, nil
		},
	}
	a := NewAcceptor(authority, NewValidator(authority, store, testPolicy()))

	res := a.Accept(context.Background(), "ABC123", tenant("alice@example.com", true), "prop-1", time.Now())
	if res.Kind != ResultAlreadyLinked {
		t.Fatalf("expected already_linked short circuit, got %+v", res)
	}

	_, accepts, acceptNews := authority.counts()
	if accepts != 0 || acceptNews != 0 {
		t.Fatalf("short circuit must not issue a consuming call (accept=%d accept_new=%d)", accepts, acceptNews)
	}
}

func TestAcceptChoosesAtomicPathForNewAccounts(t *testing.T) {
	store := newTestStore(t)
	authority := &fakeAuthority{
		acceptNewFn: func(token, displayName string) (*api.AcceptResponse, error) {
			return &api.AcceptResponse{Success: true, PropertyName: "Maple St Duplex"}, nil
		},
	}
	a := NewAcceptor(authority, NewValidator(authority, store, testPolicy()))

	res := a.Accept(context.Background(), "ABC123", tenant("new@example.com", false), "", time.Now())
	if res.Kind != ResultSuccess {
		t.Fatalf("expected success, got %+v", res)
	}

	_, accepts, acceptNews := authority.counts()
	if accepts != 0 || acceptNews != 1 {
		t.Fatalf("new account must use the atomic path (accept=%d accept_new=%d)", accepts, acceptNews)
	}
}

func TestAcceptRevalidatesStaleVerdict(t *testing.T) {
	store := newTestStore(t)
	authority := &fakeAuthority{
		validateFn: func(token string) (*api.ValidateResponse, error) {
			return &api.ValidateResponse{Valid: false, Error: "revoked"}, nil
		},
	}
	a := NewAcceptor(authority, NewValidator(authority, store, testPolicy()))

	// Validation happened a minute ago; revocation in the meantime must be
	// caught before the token is spent.
	res := a.Accept(context.Background(), "ABC123", tenant("alice@example.com", true), "", time.Now().Add(-time.Minute))
	if res.Kind != ResultFailed || res.Reason != FailRevoked {
		t.Fatalf("expected revoked failure, got %+v", res)
	}

	validates, accepts, _ := authority.counts()
	if validates != 1 {
		t.Fatalf("expected one re-validation, got %d", validates)
	}
	if accepts != 0 {
		t.Fatalf("revoked token must not be consumed")
	}
}

func TestAcceptSkipsRevalidationForFreshVerdict(t *testing.T) {
	store := newTestStore(t)
	authority := &fakeAuthority{
		acceptFn: func(token string) (*api.AcceptResponse, error) {
			return &api.AcceptResponse{Success: true, PropertyName: "Maple St Duplex"}, nil
		},
	}
	a := NewAcceptor(authority, NewValidator(authority, store, testPolicy()))

	res := a.Accept(context.Background(), "ABC123", tenant("alice@example.com", true), "", time.Now())
	if res.Kind != ResultSuccess {
		t.Fatalf("expected success, got %+v", res)
	}

	validates, _, _ := authority.counts()
	if validates != 0 {
		t.Fatalf("fresh verdict should not re-validate, got %d calls", validates)
	}
}

func TestAcceptOfflineRevalidationBlocksConsume(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutCachedPreview("ABC123", models.PropertyPreview{ID: "prop-1", Name: "Maple St Duplex"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	authority := &fakeAuthority{
		validateFn: func(token string) (*api.ValidateResponse, error) {
			return nil, context.DeadlineExceeded
		},
	}
	a := NewAcceptor(authority, NewValidator(authority, store, testPolicy()))

	res := a.Accept(context.Background(), "ABC123", tenant("alice@example.com", true), "", time.Now().Add(-time.Minute))
	if res.Kind != ResultFailed || res.Reason != FailNetwork {
		t.Fatalf("cached verdict must not authorize consumption, got %+v", res)
	}

	_, accepts, acceptNews := authority.counts()
	if accepts != 0 || acceptNews != 0 {
		t.Fatalf("offline accept must not reach the consuming call")
	}
}
