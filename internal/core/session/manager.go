package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"github.com/omnibank/fraudline-voice-service/pkg/redis"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/core/callflow"
)

const (
	CleanupChannel   = "fraudline:voice:session:cleanup"
	SessionKeyPrefix = "fraudline:voice:session:info"
	SessionTTL       = 1 * time.Hour
)

// ErrSessionNotFound indicates the call ID does not map to a live session.
var ErrSessionNotFound = errors.New("session not found")

// Info is the monitoring payload registered in Redis for a live call,
// so operators can see which pod owns which conversation.
type Info struct {
	SessionID string    `json:"sessionId"`
	PodID     string    `json:"podId"`
	AgentName string    `json:"agentName"`
	StartTime time.Time `json:"startTime"`
}

// CleanupMessage is the payload for cleanup broadcast
type CleanupMessage struct {
	SessionID string `json:"sessionId"`
}

// Manager owns the live conversation sessions for this process. Each
// session is private to one call; the manager itself is safe for
// concurrent use. Redis registration is optional and only feeds
// multi-pod monitoring, never call-flow state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*callflow.Session

	redisSvc  redis.ServiceInterface
	podID     string
	agentName string
}

// NewManager creates a session manager. redisSvc may be nil for
// single-pod deployments.
func NewManager(redisSvc redis.ServiceInterface, podID, agentName string) *Manager {
	return &Manager{
		sessions:  make(map[string]*callflow.Session),
		redisSvc:  redisSvc,
		podID:     podID,
		agentName: agentName,
	}
}

// Create starts a new session with a fresh call ID and registers it for
// monitoring.
func (m *Manager) Create(ctx context.Context) (*callflow.Session, error) {
	sess := callflow.NewSession(uuid.New().String())

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	logger.Base().Info("Session created", zap.String("session_id", sess.ID), zap.String("pod_id", m.podID))

	if m.redisSvc != nil {
		info := Info{
			SessionID: sess.ID,
			PodID:     m.podID,
			AgentName: m.agentName,
			StartTime: sess.StartedAt,
		}
		data, _ := json.Marshal(info)
		key := fmt.Sprintf("%s:%s", SessionKeyPrefix, sess.ID)
		if err := m.redisSvc.SetValue(ctx, key, string(data), SessionTTL); err != nil {
			// Monitoring only; the call proceeds without it.
			logger.Base().Warn("Failed to register session in Redis", zap.String("session_id", sess.ID), zap.Error(err))
		}
	}

	return sess, nil
}

// Get returns the live session for a call ID.
func (m *Manager) Get(id string) (*callflow.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// End discards a session and unregisters it from monitoring. The session
// is ephemeral per-call state; its case bindings die with it.
func (m *Manager) End(ctx context.Context, id string) (*callflow.Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	logger.Base().Info("Session ended",
		zap.String("session_id", id),
		zap.String("final_state", func() string { st, _ := sess.Snapshot(); return st.String() }()),
	)

	if m.redisSvc != nil {
		key := fmt.Sprintf("%s:%s", SessionKeyPrefix, id)
		if err := m.redisSvc.DelValue(ctx, key); err != nil {
			logger.Base().Warn("Failed to unregister session from Redis", zap.String("session_id", id), zap.Error(err))
		}
	}

	return sess, nil
}

// Count returns the number of live sessions on this pod.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle ends every session idle for longer than maxIdle and returns
// how many were reaped. Abandoned calls otherwise pin their case binding
// forever, since nothing in the call flow itself times out.
func (m *Manager) ReapIdle(ctx context.Context, maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var stale []string
	for id, sess := range m.sessions {
		if sess.IdleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		if _, err := m.End(ctx, id); err == nil {
			logger.Base().Info("Reaped idle session", zap.String("session_id", id))
		}
	}
	return len(stale)
}

// StartReaper runs ReapIdle on a fixed interval until ctx is cancelled.
func (m *Manager) StartReaper(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.ReapIdle(ctx, maxIdle)
			}
		}
	}()
}

// NotifyCleanup broadcasts a cleanup request to all pods.
func (m *Manager) NotifyCleanup(ctx context.Context, sessionID string) error {
	if m.redisSvc == nil {
		return nil
	}
	logger.Base().Info("Broadcasting cleanup request", zap.String("session_id", sessionID))
	return m.redisSvc.Publish(ctx, CleanupChannel, CleanupMessage{SessionID: sessionID})
}

// SubscribeToCleanup listens for cleanup broadcasts and ends the local
// session if this pod owns it.
func (m *Manager) SubscribeToCleanup(ctx context.Context) error {
	if m.redisSvc == nil {
		return nil
	}
	return m.redisSvc.Subscribe(ctx, CleanupChannel, func(payload string) {
		var msg CleanupMessage
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			logger.Base().Error("Failed to unmarshal cleanup message", zap.Error(err))
			return
		}
		if _, err := m.End(ctx, msg.SessionID); err == nil {
			logger.Base().Info("Session cleaned up via broadcast", zap.String("session_id", msg.SessionID))
		}
	})
}
