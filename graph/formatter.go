package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/model"
)

// FormatterBuilder composes the formatter system prompt from four
// sections: CORE (synthesis behavior, rarely customized), TONE (voice),
// FORMAT (output structure) and EXTRA (domain additions, empty by
// default). Prompt output is deterministic; empty sections are skipped.
type FormatterBuilder struct {
	core   string
	tone   string
	format string
	extra  string
}

// NewFormatterBuilder returns a builder loaded with the default sections.
func NewFormatterBuilder() *FormatterBuilder {
	return &FormatterBuilder{
		core:   formatterCore,
		tone:   formatterTone,
		format: formatterFormat,
	}
}

// WithCore replaces the synthesis section.
func (b *FormatterBuilder) WithCore(s string) *FormatterBuilder {
	b.core = s
	return b
}

// WithTone replaces the voice/style section.
func (b *FormatterBuilder) WithTone(s string) *FormatterBuilder {
	b.tone = s
	return b
}

// WithFormat replaces the output structure section.
func (b *FormatterBuilder) WithFormat(s string) *FormatterBuilder {
	b.format = s
	return b
}

// WithExtra sets the domain-specific section, empty by default.
func (b *FormatterBuilder) WithExtra(s string) *FormatterBuilder {
	b.extra = s
	return b
}

// Prompt renders the sections in fixed order joined by blank lines.
func (b *FormatterBuilder) Prompt() string {
	sections := make([]string, 0, 4)
	for _, s := range []string{b.core, b.tone, b.format, b.extra} {
		if strings.TrimSpace(s) != "" {
			sections = append(sections, strings.TrimSpace(s))
		}
	}
	return strings.Join(sections, "\n\n")
}

// Formatter turns the supervisor's raw output into the user-visible reply
// with a single LLM call: no tools, no loop. Any failure falls back to the
// raw text, so a turn that reached the formatter always produces a reply.
type Formatter struct {
	client   *model.Client
	settings *config.Settings
	prompt   string
	logger   *logging.Scoped
}

// FormatterOptions configure NewFormatter.
type FormatterOptions struct {
	Builder *FormatterBuilder
	Logger  logging.Logger
}

// NewFormatter builds the formatter node. The prompt is rendered once; use
// a customized FormatterBuilder to change it.
func NewFormatter(client *model.Client, settings *config.Settings, optFns ...func(o *FormatterOptions)) *Formatter {
	opts := FormatterOptions{
		Builder: NewFormatterBuilder(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Formatter{
		client:   client,
		settings: settings,
		prompt:   opts.Builder.Prompt(),
		logger:   logging.NewScoped(opts.Logger).WithComponent("formatter"),
	}
}

// Format produces the reply for state.AgentResults. Empty supervisor
// output short-circuits to a fixed "not enough information" reply without
// calling the model. Timeouts, call errors and empty model output all fall
// back to the raw agent results verbatim.
//
// When the provider streams, fragments are forwarded to the sink as
// PartialToken events.
func (f *Formatter) Format(ctx context.Context, state *core.ChatbotState, sink *core.Sink) string {
	if strings.TrimSpace(state.AgentResults) == "" {
		f.logger.Warn("formatter invoked with empty agent results")
		return noInformationReply
	}

	fmtCtx, cancel := context.WithTimeout(ctx, f.settings.FormatterTimeout.Duration())
	defer cancel()

	req := model.Request{
		System:      f.prompt,
		Messages:    append(conversationContext(state.Messages), f.synthesisMessage(state)),
		Model:       f.settings.ModelFor("formatter"),
		Temperature: f.settings.LLMTemperature,
		Timeout:     f.settings.LLMRequestTimeout.Duration(),
		Stream:      true,
	}

	result, err := f.client.Invoke(fmtCtx, req, func(o *model.InvokeOptions) {
		o.OnToken = func(text string) {
			_ = sink.Send(fmtCtx, core.PartialToken{Text: text})
		}
	})
	if err != nil {
		f.logger.Warn("formatter call failed, returning raw agent results", "error", err)
		return state.AgentResults
	}

	reply := strings.TrimSpace(result.Message.Text())
	if reply == "" {
		f.logger.Warn("formatter returned empty text, returning raw agent results")
		return state.AgentResults
	}
	return reply
}

// synthesisMessage carries the question and the raw specialist output into
// the formatter call.
func (f *Formatter) synthesisMessage(state *core.ChatbotState) core.Message {
	return core.NewUserMessage(fmt.Sprintf(
		"User question: %s\n\nInformation from specialist systems:\n%s\n\nNow provide a natural, conversational response to the user's question using this information.",
		state.UserQuery, state.AgentResults))
}

// conversationContext is the history shown to the formatter: everything up
// to, but not including, the current turn's trailing user message, which
// the synthesis message re-carries.
func conversationContext(msgs []core.Message) []core.Message {
	if n := len(msgs); n > 0 && msgs[n-1].Role == core.RoleUser {
		return msgs[:n-1]
	}
	return msgs
}
