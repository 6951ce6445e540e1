package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/conductor-ai/conductor/pkg/config"
)

// Manager is the in-memory session store. It enforces three bounds:
// per-session history size, total session capacity (least-recently-active
// eviction), and idle timeout (periodic cleanup loop). Thread-safe.
type Manager struct {
	cfg config.ContextConfig

	mu       sync.Mutex
	sessions map[string]*ConversationContext

	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

// NewManager creates a session manager with the given context policy.
func NewManager(cfg config.ContextConfig) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*ConversationContext),
		logger:   slog.Default(),
	}
}

// Start launches the background cleanup loop. No-op if already running.
func (m *Manager) Start(ctx context.Context) {
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go m.run(ctx)

	m.logger.Info("Session manager started",
		"session_timeout", m.cfg.SessionTimeout,
		"max_sessions", m.cfg.MaxSessions,
		"cleanup_interval", m.cfg.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.done = nil
	m.logger.Info("Session manager stopped")
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CleanupExpired()
		}
	}
}

// GetOrCreate returns a working copy of the session's context, creating it
// if absent. Both paths stamp the session's last activity. Creation that
// would exceed capacity first evicts the least-recently-active sessions,
// exactly as many as needed to make room.
func (m *Manager) GetOrCreate(sessionID string) *ConversationContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.sessions[sessionID]; ok {
		existing.LastActivityAt = now
		return existing.clone()
	}

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.evictLeastActiveLocked(len(m.sessions) - m.cfg.MaxSessions + 1)
	}

	created := &ConversationContext{
		SessionID:      sessionID,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	m.sessions[sessionID] = created
	m.logger.Debug("Session created", "session_id", sessionID, "active", len(m.sessions))
	return created.clone()
}

// Get returns a copy of an existing session's context without touching its
// activity time.
func (m *Manager) Get(sessionID string) (*ConversationContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return existing.clone(), true
}

// Update stores the caller's mutated context back, trimming message history
// to the configured bound (oldest first) and stamping last activity.
func (m *Manager) Update(ctx *ConversationContext) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := ctx.clone()
	if max := m.cfg.MaxHistorySize; max > 0 && len(stored.Messages) > max {
		stored.Messages = stored.Messages[len(stored.Messages)-max:]
	}
	stored.LastActivityAt = time.Now()
	m.sessions[stored.SessionID] = stored
}

// Clear removes one session. Reports whether it existed.
func (m *Manager) Clear(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

// CleanupExpired removes sessions idle past the session timeout and returns
// how many were removed.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.cfg.SessionTimeout)
	removed := 0
	for id, sess := range m.sessions {
		if sess.LastActivityAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("Expired sessions cleaned up",
			"removed", removed, "active", len(m.sessions))
	}
	return removed
}

// List returns one Info per active session, sorted by most recent activity.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]Info, 0, len(m.sessions))
	for _, sess := range m.sessions {
		infos = append(infos, Info{
			SessionID:      sess.SessionID,
			MessageCount:   len(sess.Messages),
			StepCount:      len(sess.ExecutionHistory),
			CreatedAt:      sess.CreatedAt,
			LastActivityAt: sess.LastActivityAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].LastActivityAt.After(infos[j].LastActivityAt)
	})
	return infos
}

// Metrics summarizes the store for the status endpoint.
func (m *Manager) Metrics() Metrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := Metrics{ActiveSessions: len(m.sessions)}
	for _, sess := range m.sessions {
		metrics.TotalMessages += len(sess.Messages)
		metrics.TotalSteps += len(sess.ExecutionHistory)
		if metrics.OldestActivity.IsZero() || sess.LastActivityAt.Before(metrics.OldestActivity) {
			metrics.OldestActivity = sess.LastActivityAt
		}
	}
	return metrics
}

// evictLeastActiveLocked removes the k sessions with the oldest activity.
// Caller holds m.mu.
func (m *Manager) evictLeastActiveLocked(k int) {
	type candidate struct {
		id       string
		activity time.Time
	}
	candidates := make([]candidate, 0, len(m.sessions))
	for id, sess := range m.sessions {
		candidates = append(candidates, candidate{id: id, activity: sess.LastActivityAt})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].activity.Before(candidates[j].activity)
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	for _, c := range candidates[:k] {
		delete(m.sessions, c.id)
	}
	m.logger.Info("Evicted least-recently-active sessions",
		"evicted", k, "active", len(m.sessions))
}
