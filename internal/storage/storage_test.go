package storage

import (
	"path/filepath"
	"testing"
	"time"

	"rentlink/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "rentlink.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPendingInviteRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if pending, err := store.GetPendingInvite(); err != nil || pending != nil {
		t.Fatalf("fresh store must have no pending invite, got %+v (%v)", pending, err)
	}

	rec := models.PendingInvite{
		Value: "ABC123",
		Kind:  models.InviteKindToken,
		Metadata: &models.PendingInviteMetadata{
			PropertyID:   "prop-1",
			PropertyName: "Maple St Duplex",
		},
	}
	if err := store.SavePendingInvite(rec); err != nil {
		t.Fatalf("save pending: %v", err)
	}

	got, err := store.GetPendingInvite()
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if got == nil || got.Value != "ABC123" || got.Kind != models.InviteKindToken {
		t.Fatalf("unexpected record %+v", got)
	}
	if got.Metadata == nil || got.Metadata.PropertyName != "Maple St Duplex" {
		t.Fatalf("metadata lost in round trip: %+v", got.Metadata)
	}
	if got.SavedAt.IsZero() {
		t.Fatalf("SavedAt must be stamped on save")
	}

	if err := store.ClearPendingInvite(); err != nil {
		t.Fatalf("clear pending: %v", err)
	}
	if pending, _ := store.GetPendingInvite(); pending != nil {
		t.Fatalf("expected empty store after clear, got %+v", pending)
	}
}

func TestSavePendingInviteRejectsEmptyValue(t *testing.T) {
	store := newTestStore(t)
	if err := store.SavePendingInvite(models.PendingInvite{Kind: models.InviteKindToken}); err == nil {
		t.Fatalf("expected an error for an empty invite value")
	}
}

func TestPendingInviteLastWriterWins(t *testing.T) {
	store := newTestStore(t)
	if err := store.SavePendingInvite(models.PendingInvite{Value: "OLD", Kind: models.InviteKindToken}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SavePendingInvite(models.PendingInvite{Value: "NEW", Kind: models.InviteKindLegacyPropertyID}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.GetPendingInvite()
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if got.Value != "NEW" || got.Kind != models.InviteKindLegacyPropertyID {
		t.Fatalf("expected the newer record, got %+v", got)
	}
}

func TestCachedPreviewIsKeyedByToken(t *testing.T) {
	store := newTestStore(t)
	if err := store.PutCachedPreview("TOK1", models.PropertyPreview{ID: "prop-1", Name: "Maple St Duplex"}); err != nil {
		t.Fatalf("put preview: %v", err)
	}
	if err := store.PutCachedPreview("TOK2", models.PropertyPreview{ID: "prop-2", Name: "Birch Court"}); err != nil {
		t.Fatalf("put preview: %v", err)
	}

	got, err := store.GetCachedPreview("TOK1")
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	if got == nil || got.Property.ID != "prop-1" {
		t.Fatalf("wrong entry for TOK1: %+v", got)
	}
	if got.CachedAt.IsZero() {
		t.Fatalf("CachedAt must be stamped on write")
	}

	if miss, _ := store.GetCachedPreview("UNSEEN"); miss != nil {
		t.Fatalf("unseen token must miss, got %+v", miss)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	store := newTestStore(t)

	if sess, err := store.GetSession(); err != nil || sess != nil {
		t.Fatalf("fresh store must have no session, got %+v (%v)", sess, err)
	}

	sess := models.Session{
		AccessToken: "jwt-token",
		Identity: models.Identity{
			UserID:    "user-1",
			Email:     "alice@example.com",
			Onboarded: true,
		},
	}
	if err := store.SaveSession(sess); err != nil {
		t.Fatalf("save session: %v", err)
	}

	got, err := store.GetSession()
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.AccessToken != "jwt-token" || got.Identity.Email != "alice@example.com" {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.ClearSession(); err != nil {
		t.Fatalf("clear session: %v", err)
	}
	if sess, _ := store.GetSession(); sess != nil {
		t.Fatalf("expected empty session after clear, got %+v", sess)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rentlink.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.SavePendingInvite(models.PendingInvite{
		Value:   "PERSIST",
		Kind:    models.InviteKindToken,
		SavedAt: time.Now(),
	}); err != nil {
		t.Fatalf("save pending: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetPendingInvite()
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if got == nil || got.Value != "PERSIST" {
		t.Fatalf("pending invite must survive a restart, got %+v", got)
	}
}
