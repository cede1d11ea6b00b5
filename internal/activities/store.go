package activities

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/agentfold/contextbudget/internal/compression"
	"github.com/agentfold/contextbudget/internal/exposure"
	"github.com/agentfold/contextbudget/internal/masking"
	"github.com/agentfold/contextbudget/internal/mcp"
	"github.com/agentfold/contextbudget/internal/models"
	"github.com/agentfold/contextbudget/internal/offload"
	"github.com/agentfold/contextbudget/internal/tokens"
)

// SessionState bundles the per-session engines. The exposure service and the
// truncation counter carry state across activity calls, so they must live on
// the worker for the session's lifetime rather than in activity inputs.
type SessionState struct {
	Config     models.SessionConfiguration
	Offload    *offload.Store
	Masker     *masking.Masker
	Truncator  *compression.Truncator
	Exposure   *exposure.Service
	Discoverer *mcp.Discoverer
}

// SessionStore is a worker-scoped store of per-session state. Created once
// at worker startup, shared across activities.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*SessionState

	est tokens.Estimator
	log masking.Logger
	rec masking.Recorder
}

// NewSessionStore creates an empty store. The estimator, logger, and
// recorder are shared by every session's engines; nil values select the
// heuristic estimator and no-ops.
func NewSessionStore(est tokens.Estimator, log masking.Logger, rec masking.Recorder) *SessionStore {
	if est == nil {
		est = tokens.Heuristic{}
	}
	if log == nil {
		log = masking.NopLogger()
	}
	if rec == nil {
		rec = masking.NopRecorder()
	}
	return &SessionStore{
		sessions: make(map[string]*SessionState),
		est:      est,
		log:      log,
		rec:      rec,
	}
}

// GetOrCreate returns the state for a session, building it on first use.
func (s *SessionStore) GetOrCreate(sessionID string, cfg models.SessionConfiguration) *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.sessions[sessionID]; ok {
		return st
	}

	cfg.Budget.ApplyDefaults()
	root := cfg.Budget.StorageDir
	if root == "" {
		root = os.TempDir()
	}
	store := offload.NewStore(filepath.Join(root, sessionID), nil)

	st := &SessionState{
		Config:  cfg,
		Offload: store,
		Masker: masking.NewMasker(store, s.est, masking.Config{
			ProtectTokens:     cfg.Budget.ProtectTokens,
			HysteresisTokens:  cfg.Budget.HysteresisTokens,
			ProtectLatestTurn: cfg.Budget.ProtectLatestTurn,
		}, masking.WithLogger(s.log), masking.WithRecorder(s.rec)),
		Truncator:  compression.NewTruncator(store, s.est, cfg.Budget.ResponseTokenBudget, nil),
		Exposure:   exposure.NewService(cfg.Budget.ExposureCharBudget),
		Discoverer: mcp.NewDiscoverer(),
	}
	s.sessions[sessionID] = st
	return st
}

// Get returns the state for a session, or nil when the session is unknown.
func (s *SessionStore) Get(sessionID string) *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

// Remove tears down a session's state and closes its MCP sessions.
func (s *SessionStore) Remove(sessionID string) {
	s.mu.Lock()
	st, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if ok {
		st.Discoverer.Close()
	}
}

// Count returns the number of active sessions.
func (s *SessionStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
