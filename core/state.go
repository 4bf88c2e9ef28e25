package core

import "fmt"

// Step names the stage a turn is in as it moves through the graph.
type Step string

const (
	// StepSupervisor marks the supervisor node running.
	StepSupervisor Step = "supervisor"
	// StepFormatter marks the formatter node running.
	StepFormatter Step = "formatter"
	// StepComplete marks a finished turn.
	StepComplete Step = "complete"
	// StepError marks a turn aborted by an error or timeout.
	StepError Step = "error"
)

// ChatbotState is the value a turn threads through the two-node graph.
// The executor owns it for the duration of the turn; concurrent readers
// take a Clone.
type ChatbotState struct {
	// Messages is the conversation history, append-only except at
	// summarization boundaries.
	Messages []Message
	// UserQuery is the current turn's input.
	UserQuery string
	// AgentResults holds the supervisor's raw output before formatting.
	// It is set exactly once per turn and never appended to Messages.
	AgentResults string
	// ChatbotResponse is the final user-visible reply.
	ChatbotResponse string
	// WorkflowStep tracks graph progress.
	WorkflowStep Step
}

// NewChatbotState builds turn state from prior history and the new query.
// The new user message is appended to the copied history.
func NewChatbotState(history []Message, query string) *ChatbotState {
	messages := make([]Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, NewUserMessage(query))
	return &ChatbotState{
		Messages:     messages,
		UserQuery:    query,
		WorkflowStep: StepSupervisor,
	}
}

// AppendMessage adds a message to the conversation.
func (s *ChatbotState) AppendMessage(msg Message) {
	s.Messages = append(s.Messages, msg)
}

// ReplacePrefixWithSummary substitutes the first n messages with exactly one
// system message carrying a synopsis. It is the only sanctioned non-append
// mutation of the history.
func (s *ChatbotState) ReplacePrefixWithSummary(n int, summary Message) error {
	if n < 1 || n > len(s.Messages) {
		return fmt.Errorf("summary prefix %d out of range for %d messages", n, len(s.Messages))
	}
	if summary.Role != RoleSystem {
		return fmt.Errorf("summary message must have role %q, got %q", RoleSystem, summary.Role)
	}
	replaced := make([]Message, 0, len(s.Messages)-n+1)
	replaced = append(replaced, summary)
	replaced = append(replaced, s.Messages[n:]...)
	s.Messages = replaced
	return nil
}

// Clone returns a deep enough copy for concurrent readers. Message parts are
// immutable so sharing them is safe; the slice itself is copied.
func (s *ChatbotState) Clone() *ChatbotState {
	messages := make([]Message, len(s.Messages))
	copy(messages, s.Messages)
	return &ChatbotState{
		Messages:        messages,
		UserQuery:       s.UserQuery,
		AgentResults:    s.AgentResults,
		ChatbotResponse: s.ChatbotResponse,
		WorkflowStep:    s.WorkflowStep,
	}
}
