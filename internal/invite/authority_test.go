package invite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rentlink/internal/api"
	"rentlink/internal/models"
	"rentlink/internal/retry"
	"rentlink/internal/storage"
)

// fakeAuthority scripts the remote side of the handshake and counts calls.
type fakeAuthority struct {
	mu             sync.Mutex
	validateCalls  int
	acceptCalls    int
	acceptNewCalls int
	linkedCalls    int
	exchangeCalls  int

	validateFn  func(token string) (*api.ValidateResponse, error)
	acceptFn    func(token string) (*api.AcceptResponse, error)
	acceptNewFn func(token, displayName string) (*api.AcceptResponse, error)
	linkedFn    func() ([]models.PropertyPreview, error)
	exchangeFn  func(propertyID string) (string, error)
}

func (f *fakeAuthority) ValidateInvite(_ context.Context, token string) (*api.ValidateResponse, error) {
	f.mu.Lock()
	f.validateCalls++
	fn := f.validateFn
	f.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("validate not scripted")
	}
	return fn(token)
}

func (f *fakeAuthority) AcceptInvite(_ context.Context, token string) (*api.AcceptResponse, error) {
	f.mu.Lock()
	f.acceptCalls++
	fn := f.acceptFn
	f.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("accept not scripted")
	}
	return fn(token)
}

func (f *fakeAuthority) AcceptInviteNewAccount(_ context.Context, token, displayName string) (*api.AcceptResponse, error) {
	f.mu.Lock()
	f.acceptNewCalls++
	fn := f.acceptNewFn
	f.mu.Unlock()
	if fn == nil {
		return nil, fmt.Errorf("accept_new not scripted")
	}
	return fn(token, displayName)
}

func (f *fakeAuthority) LinkedProperties(_ context.Context) ([]models.PropertyPreview, error) {
	f.mu.Lock()
	f.linkedCalls++
	fn := f.linkedFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn()
}

func (f *fakeAuthority) ExchangeLegacyPropertyID(_ context.Context, propertyID string) (string, error) {
	f.mu.Lock()
	f.exchangeCalls++
	fn := f.exchangeFn
	f.mu.Unlock()
	if fn == nil {
		return "", fmt.Errorf("exchange not scripted")
	}
	return fn(propertyID)
}

func (f *fakeAuthority) counts() (validate, accept, acceptNew int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateCalls, f.acceptCalls, f.acceptNewCalls
}

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "rentlink.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func validResponse(propertyID, name, intendedEmail string) *api.ValidateResponse {
	return &api.ValidateResponse{
		Valid: true,
		Property: &models.PropertyPreview{
			ID:      propertyID,
			Name:    name,
			Address: "12 Maple St",
		},
		IntendedEmail: intendedEmail,
	}
}
