package server

import (
	"testing"

	"github.com/google/uuid"

	"github.com/michaelbrown/ibrl/internal/agent"
	"github.com/michaelbrown/ibrl/internal/balance"
	"github.com/michaelbrown/ibrl/internal/session"
)

func TestSessionManagerCreate(t *testing.T) {
	sm := NewSessionManager(nil)
	defer sm.CloseAll()

	a := sm.Create()
	b := sm.Create()

	if a.ID == b.ID {
		t.Fatal("sessions share an id")
	}
	if _, err := uuid.Parse(a.ID); err != nil {
		t.Errorf("id %q is not a uuid: %v", a.ID, err)
	}
	if a.Conversation == nil || a.Conversation == b.Conversation {
		t.Error("each session needs its own conversation")
	}
	if sm.Len() != 2 {
		t.Errorf("Len() = %d, want 2", sm.Len())
	}

	got, ok := sm.Get(a.ID)
	if !ok || got != a {
		t.Error("Get did not return the created session")
	}
}

func TestSessionManagerRemoveCancels(t *testing.T) {
	sm := NewSessionManager(nil)
	as := sm.Create()

	sm.Remove(as.ID)

	if _, ok := sm.Get(as.ID); ok {
		t.Error("session still present after Remove")
	}
	select {
	case <-as.Context().Done():
	default:
		t.Error("Remove did not cancel the session context")
	}

	// Removing twice is harmless.
	sm.Remove(as.ID)
}

func TestSessionManagerCloseAll(t *testing.T) {
	sm := NewSessionManager(nil)
	sessions := []*ActiveSession{sm.Create(), sm.Create(), sm.Create()}

	sm.CloseAll()

	if sm.Len() != 0 {
		t.Errorf("Len() = %d after CloseAll", sm.Len())
	}
	for _, as := range sessions {
		if as.Context().Err() == nil {
			t.Errorf("session %s not cancelled", as.ID)
		}
	}
}

func TestActiveSessionOneTurnAtATime(t *testing.T) {
	as := NewSessionManager(nil).Create()

	if !as.tryBegin() {
		t.Fatal("first turn should start")
	}
	if as.tryBegin() {
		t.Fatal("second turn started while first in flight")
	}
	as.end()
	if !as.tryBegin() {
		t.Fatal("turn should start after the previous one ended")
	}
}

func TestSessionManagerBuildsCollaboratorsPerSession(t *testing.T) {
	built := 0
	sm := NewSessionManager(func() (*session.Context, *agent.Agent) {
		built++
		return &session.Context{Balances: balance.NewCache(0)}, &agent.Agent{}
	})
	defer sm.CloseAll()

	a, b := sm.Create(), sm.Create()
	if built != 2 {
		t.Fatalf("factory called %d times, want 2", built)
	}
	if a.Session == nil || a.Agent == nil {
		t.Fatal("session collaborators not set")
	}
	if a.Session == b.Session || a.Session.Balances == b.Session.Balances || a.Agent == b.Agent {
		t.Error("sessions share collaborators")
	}
}
