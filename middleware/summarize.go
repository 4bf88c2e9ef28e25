package middleware

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/model"
)

// SummaryMarker opens every synopsis body. Repeated summarization folds a
// marked synopsis into the next one instead of re-compressing it verbatim.
const SummaryMarker = "<!-- conversation-summary -->"

const summarizationPrompt = `Condense the conversation transcript below into a short synopsis.
Preserve user goals, decisions, tool findings, and unresolved questions.
If the transcript contains an earlier synopsis marked <!-- conversation-summary -->, fold its content in rather than repeating it.
Reply with the synopsis text only.`

// TokenCounter estimates the token cost of a piece of text.
type TokenCounter func(text string) int

// SummarizationOptions configure the Summarization middleware.
type SummarizationOptions struct {
	// TriggerTokens is the estimated conversation size that forces a
	// compression pass.
	TriggerTokens int
	// KeepMessages is how many trailing messages survive verbatim. Zero
	// keeps none; the whole eligible prefix is compressed.
	KeepMessages int
	// Model names the tokenizer used for estimates. Unknown or empty models
	// fall back to the cl100k_base encoding.
	Model string
	// Counter overrides the token estimator.
	Counter TokenCounter
	// OnCompress observes each applied compression so callers can mirror
	// the replacement into their persistent state.
	OnCompress func(removed int, summary core.Message)
	// Logger receives compression diagnostics.
	Logger logging.Logger
}

// Summarization keeps long conversations inside the model's effective
// context by replacing the message prefix with one synopsis message once the
// estimated token count passes the trigger. The synopsis is produced by a
// second short model call through the same policy-wrapped client.
type Summarization struct {
	client  *model.Client
	opts    SummarizationOptions
	counter TokenCounter
	logger  *logging.Scoped
}

// NewSummarization creates the middleware around the client that will run
// the synopsis calls.
func NewSummarization(client *model.Client, optFns ...func(o *SummarizationOptions)) *Summarization {
	opts := SummarizationOptions{
		TriggerTokens: 8000,
		KeepMessages:  6,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	counter := opts.Counter
	if counter == nil {
		counter = newTokenCounter(opts.Model)
	}
	return &Summarization{
		client:  client,
		opts:    opts,
		counter: counter,
		logger:  logging.NewScoped(opts.Logger).WithComponent("summarization"),
	}
}

// Name identifies the middleware in chain diagnostics.
func (m *Summarization) Name() string { return "summarization" }

// WrapModelCall compresses the conversation prefix when the estimated token
// count exceeds the trigger, then forwards the call. A failed synopsis call
// is logged and the conversation passes through uncompressed.
func (m *Summarization) WrapModelCall(ctx context.Context, req *model.Request, next Handler) (*model.Result, error) {
	tokens := m.estimate(req.Messages)
	if tokens <= m.opts.TriggerTokens {
		return next(ctx, req)
	}

	cut := len(req.Messages) - m.opts.KeepMessages
	if cut > len(req.Messages) {
		cut = len(req.Messages)
	}
	// Tool results must stay adjacent to the assistant message that issued
	// the calls, so the cut backs up until the kept suffix starts cleanly.
	for cut > 0 && cut < len(req.Messages) && req.Messages[cut].Role == core.RoleTool {
		cut--
	}
	if cut <= 0 {
		return next(ctx, req)
	}

	summary, err := m.summarize(ctx, req.Model, req.Messages[:cut])
	if err != nil {
		m.logger.Warn("synopsis call failed, continuing uncompressed",
			"error", err.Error(), "estimated_tokens", tokens)
		return next(ctx, req)
	}

	kept := req.Messages[cut:]
	compressed := make([]core.Message, 0, len(kept)+1)
	compressed = append(compressed, summary)
	compressed = append(compressed, kept...)
	req.Messages = compressed

	m.logger.Info("conversation prefix compressed",
		"estimated_tokens", tokens, "removed_messages", cut, "kept_messages", len(kept))
	if m.opts.OnCompress != nil {
		m.opts.OnCompress(cut, summary)
	}
	return next(ctx, req)
}

// estimate totals text, tool call arguments, and tool results, plus a small
// per message allowance for the provider's own framing.
func (m *Summarization) estimate(messages []core.Message) int {
	total := 0
	for _, msg := range messages {
		total += 4
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case core.TextPart:
				total += m.counter(p.Text)
			case core.ToolCallPart:
				total += m.counter(p.ToolCall.Name) + m.counter(p.ToolCall.Arguments)
			case core.ToolResultPart:
				total += m.counter(p.ToolResult.Content)
			}
		}
	}
	return total
}

func (m *Summarization) summarize(ctx context.Context, modelID string, prefix []core.Message) (core.Message, error) {
	res, err := m.client.Invoke(ctx, model.Request{
		System:   summarizationPrompt,
		Messages: []core.Message{core.NewUserMessage(transcript(prefix))},
		Model:    modelID,
	})
	if err != nil {
		return core.Message{}, err
	}
	body := strings.TrimSpace(res.Message.Text())
	if body == "" {
		return core.Message{}, fmt.Errorf("synopsis call returned no text")
	}
	return core.NewSystemMessage(SummaryMarker + "\n" + body), nil
}

// transcript renders messages as plain text for the synopsis call.
func transcript(messages []core.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case core.TextPart:
				fmt.Fprintf(&b, "%s: %s\n", msg.Role, p.Text)
			case core.ToolCallPart:
				fmt.Fprintf(&b, "%s: called %s(%s)\n", msg.Role, p.ToolCall.Name, p.ToolCall.Arguments)
			case core.ToolResultPart:
				fmt.Fprintf(&b, "tool %s: %s\n", p.ToolResult.Name, p.ToolResult.Content)
			}
		}
	}
	return b.String()
}

// newTokenCounter builds the default estimator for modelID. Tokenizer setup
// is deferred to first use because it may fetch encoding data; when no
// tokenizer is available the estimate degrades to bytes divided by four,
// which is approximate but adequate for a compression trigger.
func newTokenCounter(modelID string) TokenCounter {
	var (
		once sync.Once
		enc  *tiktoken.Tiktoken
	)
	return func(text string) int {
		once.Do(func() {
			var err error
			if modelID != "" {
				enc, err = tiktoken.EncodingForModel(modelID)
				if err == nil {
					return
				}
			}
			enc, err = tiktoken.GetEncoding("cl100k_base")
			if err != nil {
				enc = nil
			}
		})
		if enc == nil {
			return approxTokens(text)
		}
		return len(enc.Encode(text, nil, nil))
	}
}

func approxTokens(text string) int {
	return (len(text) + 3) / 4
}
