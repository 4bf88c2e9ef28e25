package session

import (
	"time"

	"github.com/switchboard-dev/switchboard/core"
)

// Session is one client's conversation across turns. History grows by the
// user/assistant pair each completed turn appends; summarization may
// replace a prefix with a single system synopsis, which the manager
// mirrors back here through the state it persists.
type Session struct {
	// ID identifies the session; one ID per client conversation.
	ID string
	// Messages is the conversation history carried into the next turn.
	Messages []core.Message
	// CreatedAt is when the session was first stored.
	CreatedAt time.Time
	// UpdatedAt is when the session was last written.
	UpdatedAt time.Time
}

// NewSession builds an empty session.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// Clone returns a copy whose message slice is independent of the
// original. Messages themselves are immutable once appended, so sharing
// them is safe.
func (s *Session) Clone() *Session {
	messages := make([]core.Message, len(s.Messages))
	copy(messages, s.Messages)
	return &Session{
		ID:        s.ID,
		Messages:  messages,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Store persists sessions between turns. Get creates a session lazily so
// clients never need an explicit create step; implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the session for id, creating an empty one if absent.
	Get(id string) (*Session, error)
	// Save writes the session snapshot.
	Save(s *Session) error
	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(id string) error
}
