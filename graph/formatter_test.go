package graph

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/internal/testutil"
	"github.com/switchboard-dev/switchboard/model"
)

func newFormatter(t *testing.T, optFns ...func(o *FormatterOptions)) (*Formatter, *model.MockModel) {
	t.Helper()
	mock := model.NewMockModel("mock-model", "mock")
	return NewFormatter(model.NewClient(mock), config.Defaults(), optFns...), mock
}

func formatterState(query, agentResults string) *core.ChatbotState {
	state := core.NewChatbotState(nil, query)
	state.AgentResults = agentResults
	state.WorkflowStep = core.StepFormatter
	return state
}

func TestFormatterBuilderPromptSectionOrder(t *testing.T) {
	prompt := NewFormatterBuilder().
		WithCore("CORE SECTION").
		WithTone("TONE SECTION").
		WithFormat("FORMAT SECTION").
		WithExtra("EXTRA SECTION").
		Prompt()

	order := []string{"CORE SECTION", "TONE SECTION", "FORMAT SECTION", "EXTRA SECTION"}
	last := -1
	for _, section := range order {
		at := strings.Index(prompt, section)
		require.GreaterOrEqual(t, at, 0, section)
		assert.Greater(t, at, last)
		last = at
	}
}

func TestFormatterBuilderSkipsEmptySections(t *testing.T) {
	prompt := NewFormatterBuilder().
		WithCore("ONLY CORE").
		WithTone("").
		WithFormat("   ").
		Prompt()

	assert.Equal(t, "ONLY CORE", prompt)
}

func TestFormatterBuilderDefaults(t *testing.T) {
	prompt := NewFormatterBuilder().Prompt()
	assert.Contains(t, prompt, "natural, conversational response")
	assert.Contains(t, prompt, "PLAIN TEXT")
	// EXTRA is empty by default; the prompt is identical across builds.
	assert.Equal(t, prompt, NewFormatterBuilder().Prompt())
}

func TestFormatReturnsPolishedReply(t *testing.T) {
	formatter, mock := newFormatter(t)
	mock.Enqueue(core.NewAssistantTextMessage("  Here is your weather report.  "))

	reply := formatter.Format(context.Background(), formatterState("weather?", "Sunny, 22°C"), nil)
	assert.Equal(t, "Here is your weather report.", reply)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	// No tools, a single call: the formatter has no loop to enter.
	assert.Empty(t, reqs[0].Tools)
	assert.Contains(t, reqs[0].Messages[len(reqs[0].Messages)-1].Text(), "Sunny, 22°C")
	assert.Contains(t, reqs[0].Messages[len(reqs[0].Messages)-1].Text(), "weather?")
}

func TestFormatEmptyAgentResultsSkipsModel(t *testing.T) {
	formatter, mock := newFormatter(t)

	reply := formatter.Format(context.Background(), formatterState("anything", "   "), nil)
	assert.Contains(t, reply, "don't have enough information")
	assert.Empty(t, mock.Requests())
}

func TestFormatFallsBackOnError(t *testing.T) {
	formatter, mock := newFormatter(t)
	mock.EnqueueError(&model.Error{Kind: model.KindServer, Provider: "mock", Message: "boom"})

	reply := formatter.Format(context.Background(), formatterState("q", "raw agent results"), nil)
	assert.Equal(t, "raw agent results", reply)
}

func TestFormatFallsBackOnEmptyModelOutput(t *testing.T) {
	formatter, mock := newFormatter(t)
	mock.Enqueue(core.NewAssistantTextMessage("   "))

	reply := formatter.Format(context.Background(), formatterState("q", "raw agent results"), nil)
	assert.Equal(t, "raw agent results", reply)
}

func TestFormatStreamsPartialTokens(t *testing.T) {
	formatter, mock := newFormatter(t)
	mock.Enqueue(core.NewAssistantTextMessage("Hi!"))

	sink := core.NewSink(64)
	reply := formatter.Format(context.Background(), formatterState("q", "greeting"), sink)
	sink.Close()

	assert.Equal(t, "Hi!", reply)
	tokens := testutil.EventsOfType[core.PartialToken](testutil.DrainSink(sink))
	require.NotEmpty(t, tokens)
	var streamed strings.Builder
	for _, tok := range tokens {
		streamed.WriteString(tok.Text)
	}
	assert.Equal(t, "Hi!", streamed.String())
}

func TestFormatHistoryExcludesTrailingUserMessage(t *testing.T) {
	formatter, mock := newFormatter(t)
	mock.Enqueue(core.NewAssistantTextMessage("reply"))

	state := core.NewChatbotState([]core.Message{
		core.NewUserMessage("earlier question"),
		core.NewAssistantTextMessage("earlier answer"),
	}, "current question")
	state.AgentResults = "fresh findings"

	formatter.Format(context.Background(), state, nil)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	// History plus the synthesis message; the trailing user message is
	// re-carried inside the synthesis text, not duplicated.
	require.Len(t, msgs, 3)
	assert.Equal(t, "earlier question", msgs[0].Text())
	assert.Equal(t, "earlier answer", msgs[1].Text())
	assert.Contains(t, msgs[2].Text(), "current question")
}
