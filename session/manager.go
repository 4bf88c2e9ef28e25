package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/graph"
	"github.com/switchboard-dev/switchboard/logging"
)

// Manager runs turns against stored sessions. It loads the session's
// history into fresh turn state, hands it to the graph executor, and
// persists the grown history when the turn returns. A per-session mutex
// keeps turns strictly sequential within one session while independent
// sessions run concurrently.
type Manager struct {
	store    Store
	executor *graph.Executor
	logger   *logging.Scoped

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ManagerOptions configure NewManager.
type ManagerOptions struct {
	Logger logging.Logger
}

// NewManager wires a manager over the store and executor.
func NewManager(store Store, executor *graph.Executor, optFns ...func(o *ManagerOptions)) *Manager {
	opts := ManagerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Manager{
		store:    store,
		executor: executor,
		logger:   logging.NewScoped(opts.Logger).WithComponent("session_manager"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// RunTurn executes one turn for the session and returns the final turn
// state. The sink is turn-scoped and closed before RunTurn returns, error
// or not; the executor translates engine failures into the reply, so an
// error here means the session store itself failed.
func (m *Manager) RunTurn(ctx context.Context, sessionID, query string, sink *core.Sink) (*core.ChatbotState, error) {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.store.Get(sessionID)
	if err != nil {
		sink.Close()
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}

	logger := m.logger.WithSession(sessionID)
	start := time.Now()

	state := core.NewChatbotState(sess.Messages, query)
	state = m.executor.RunTurn(ctx, state, sink)

	sess.Messages = state.Messages
	if err := m.store.Save(sess); err != nil {
		return state, fmt.Errorf("save session %q: %w", sessionID, err)
	}

	logger.LogTurn(string(state.WorkflowStep), time.Since(start), nil)
	return state, nil
}

// Reset discards the session's history.
func (m *Manager) Reset(sessionID string) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return m.store.Delete(sessionID)
}

// History returns a copy of the session's current messages.
func (m *Manager) History(sessionID string) ([]core.Message, error) {
	sess, err := m.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Messages, nil
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[sessionID] = lock
	}
	return lock
}
