package server

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/michaelbrown/ibrl/internal/agent"
	"github.com/michaelbrown/ibrl/internal/session"
)

// ChatFactory builds the collaborators of one chat session.
type ChatFactory func() (*session.Context, *agent.Agent)

// ActiveSession is one websocket connection's in-memory conversation along
// with the session context and agent that serve it.
type ActiveSession struct {
	ID           string
	Conversation *agent.Conversation
	Session      *session.Context
	Agent        *agent.Agent
	CreatedAt    time.Time

	ctx    context.Context
	cancel context.CancelFunc // cancels the in-flight turn
	busy   atomic.Bool        // one turn at a time per session
}

// Context is cancelled when the session is removed.
func (as *ActiveSession) Context() context.Context {
	return as.ctx
}

// tryBegin claims the session for a turn; it fails while another turn runs.
func (as *ActiveSession) tryBegin() bool {
	return as.busy.CompareAndSwap(false, true)
}

func (as *ActiveSession) end() {
	as.busy.Store(false)
}

// SessionManager tracks the live chat sessions. Nothing outlives its connection.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*ActiveSession
	newChat  ChatFactory
}

// NewSessionManager creates a new SessionManager. newChat is called once per
// session; a nil factory leaves Session and Agent unset.
func NewSessionManager(newChat ChatFactory) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*ActiveSession),
		newChat:  newChat,
	}
}

// Create starts a fresh session with an empty conversation.
func (sm *SessionManager) Create() *ActiveSession {
	ctx, cancel := context.WithCancel(context.Background())
	as := &ActiveSession{
		ID:           uuid.New().String(),
		Conversation: agent.NewConversation(),
		CreatedAt:    time.Now().UTC(),
		ctx:          ctx,
		cancel:       cancel,
	}
	if sm.newChat != nil {
		as.Session, as.Agent = sm.newChat()
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[as.ID] = as
	return as
}

// Get returns an active session if it exists.
func (sm *SessionManager) Get(sessionID string) (*ActiveSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	as, ok := sm.sessions[sessionID]
	return as, ok
}

// Len returns the number of live sessions.
func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Remove removes an active session and cancels any in-flight work.
func (sm *SessionManager) Remove(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if as, ok := sm.sessions[sessionID]; ok {
		as.cancel()
		delete(sm.sessions, sessionID)
	}
}

// CloseAll cancels all active sessions.
func (sm *SessionManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, as := range sm.sessions {
		as.cancel()
		delete(sm.sessions, id)
	}
}
