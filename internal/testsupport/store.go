package testsupport

import (
	"context"
	"testing"

	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/config"
	"github.com/iabdelrhmaneyad/Gemini-3-Flash-sub001/internal/sessions"
)

// MustOpenStore opens a sessions.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *sessions.Store {
	t.Helper()

	store, err := sessions.Open(cfg)
	if err != nil {
		t.Fatalf("sessions.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustCreate inserts a session built by mutate and returns the stored copy.
func MustCreate(t testing.TB, store *sessions.Store, id string, mutate func(*sessions.Session)) *sessions.Session {
	t.Helper()

	session := sessions.New(id)
	session.TutorID = "T1"
	if mutate != nil {
		mutate(session)
	}
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("store.Create(%s): %v", id, err)
	}
	stored, err := store.Get(context.Background(), id)
	if err != nil || stored == nil {
		t.Fatalf("store.Get(%s): %v", id, err)
	}
	return stored
}
