package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/middleware"
	"github.com/switchboard-dev/switchboard/model"
	"github.com/switchboard-dev/switchboard/tool"
)

type runtimeFixture struct {
	mock     *model.MockModel
	settings *config.Settings
	runtime  *Runtime
}

func newRuntimeFixture(t *testing.T, optFns ...func(o *RuntimeOptions)) *runtimeFixture {
	t.Helper()
	mock := model.NewMockModel("mock-model", "mock")
	settings := config.Defaults()
	return &runtimeFixture{
		mock:     mock,
		settings: settings,
		runtime:  NewRuntime(model.NewClient(mock), settings, optFns...),
	}
}

func toolCallMessage(calls ...core.ToolCall) core.Message {
	parts := make([]core.Part, 0, len(calls))
	for _, call := range calls {
		parts = append(parts, core.ToolCallPart{ToolCall: call})
	}
	return core.NewAssistantMessage(parts...)
}

func specialist(t *testing.T, tools ...*tool.Tool) *Agent {
	t.Helper()
	return MustNew("helper", "Answers test queries.", func(o *Options) {
		o.Tools = tools
	})
}

func TestRunReturnsDirectAnswer(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("The answer is 42."))

	result, err := fx.runtime.Run(context.Background(), specialist(t), "what is the answer?")
	require.NoError(t, err)

	assert.Equal(t, "The answer is 42.", result.Response)
	assert.Equal(t, "helper", result.AgentName)
	assert.Empty(t, result.ToolsUsed)
	assert.Equal(t, 1, result.Metadata.Steps)
	assert.False(t, result.Metadata.TimedOut)
	assert.Greater(t, result.Metadata.Duration, time.Duration(0))
}

func TestRunExecutesToolCalls(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text":"hello"}`}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("done"))

	result, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "say hello")
	require.NoError(t, err)

	assert.Equal(t, "done", result.Response)
	assert.Equal(t, 2, result.Metadata.Steps)
	assert.Equal(t, []string{"echo"}, result.ToolsUsed)

	reqs := fx.mock.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, core.RoleUser, msgs[0].Role)
	assert.Equal(t, core.RoleAssistant, msgs[1].Role)
	require.Equal(t, core.RoleTool, msgs[2].Role)

	results := msgs[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, "call_1", results[0].ToolCallID)
	assert.Equal(t, "echo", results[0].Name)
	assert.Equal(t, "hello", results[0].Content)
}

func TestRunDeduplicatesToolsUsed(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":"a"}`}))
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c2", Name: "echo", Arguments: `{"text":"b"}`}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("done"))

	result, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "twice")
	require.NoError(t, err)

	assert.Equal(t, []string{"echo"}, result.ToolsUsed)
	assert.Equal(t, 3, result.Metadata.Steps)
}

func TestRunParallelToolResultsKeepCallOrder(t *testing.T) {
	slow := tool.MustNew("slow", "Slow tool.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "slow done", nil
		})
	fast := tool.MustNew("fast", "Fast tool.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "fast done", nil
		})

	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(
		core.ToolCall{ID: "c1", Name: "slow", Arguments: "{}"},
		core.ToolCall{ID: "c2", Name: "fast", Arguments: "{}"},
	))
	fx.mock.Enqueue(core.NewAssistantTextMessage("done"))

	result, err := fx.runtime.Run(context.Background(), specialist(t, slow, fast), "both")
	require.NoError(t, err)
	assert.Equal(t, []string{"slow", "fast"}, result.ToolsUsed)

	reqs := fx.mock.Requests()
	require.Len(t, reqs, 2)
	msgs := reqs[1].Messages
	require.Len(t, msgs, 4)

	first := msgs[2].ToolResults()
	second := msgs[3].ToolResults()
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "slow", first[0].Name)
	assert.Equal(t, "slow done", first[0].Content)
	assert.Equal(t, "fast", second[0].Name)
	assert.Equal(t, "fast done", second[0].Content)
}

func TestRunUnknownToolBecomesErrorResult(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "missing", Arguments: "{}"}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("recovered"))

	result, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "query")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Response)

	content := toolResultContent(t, fx.mock.Requests()[1].Messages)
	assert.True(t, strings.HasPrefix(content, "ERROR:"), "content %q", content)
	assert.Contains(t, content, `unknown tool "missing"`)
}

func TestRunInvalidArgumentsBecomeErrorResult(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":`}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("recovered"))

	_, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "query")
	require.NoError(t, err)

	content := toolResultContent(t, fx.mock.Requests()[1].Messages)
	assert.True(t, strings.HasPrefix(content, "ERROR:"), "content %q", content)
	assert.Contains(t, content, "invalid arguments")
}

func TestRunToolFailureBecomesErrorResult(t *testing.T) {
	failing := tool.MustNew("flaky", "Always fails.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			return "", errors.New("kaput")
		})

	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "flaky", Arguments: "{}"}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("recovered"))

	_, err := fx.runtime.Run(context.Background(), specialist(t, failing), "query")
	require.NoError(t, err)

	content := toolResultContent(t, fx.mock.Requests()[1].Messages)
	assert.True(t, strings.HasPrefix(content, "ERROR:"), "content %q", content)
	assert.Contains(t, content, "kaput")
}

func TestRunValidationFailureBecomesErrorResult(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "echo", Arguments: "{}"}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("recovered"))

	_, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "query")
	require.NoError(t, err)

	content := toolResultContent(t, fx.mock.Requests()[1].Messages)
	assert.True(t, strings.HasPrefix(content, "ERROR:"), "content %q", content)
	assert.Contains(t, content, "argument validation failed")
}

func TestRunMintsMissingToolCallIDs(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{Name: "echo", Arguments: `{"text":"hi"}`}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("done"))

	_, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "query")
	require.NoError(t, err)

	msgs := fx.mock.Requests()[1].Messages
	calls := msgs[1].ToolCalls()
	require.Len(t, calls, 1)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"), "id %q", calls[0].ID)

	results := msgs[2].ToolResults()
	require.Len(t, results, 1)
	assert.Equal(t, calls[0].ID, results[0].ToolCallID)
}

func TestRunRecursionLimitExceeded(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.settings.RecursionLimit = 1
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":"a"}`}))
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c2", Name: "echo", Arguments: `{"text":"b"}`}))

	result, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "loop forever")
	require.Error(t, err)
	assert.Nil(t, result)

	var recErr *RecursionError
	require.ErrorAs(t, err, &recErr)
	assert.Equal(t, "helper", recErr.Agent)
	assert.Equal(t, 1, recErr.Limit)
}

func TestRunSpecialistTimeoutReturnsRecoverableResult(t *testing.T) {
	blocking := tool.MustNew("wait", "Waits forever.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	fx := newRuntimeFixture(t)
	fx.settings.SpecialistTimeout = config.Seconds(0.05)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "wait", Arguments: "{}"}))
	fx.mock.EnqueueError(errors.New("unreachable"))

	result, err := fx.runtime.Run(context.Background(), specialist(t, blocking), "query")
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "Agent 'helper' timed out after 0.05s", result.Response)
	assert.True(t, result.Metadata.TimedOut)
}

func TestRunSupervisorTimeoutRaisesError(t *testing.T) {
	blocking := tool.MustNew("wait", "Waits forever.", map[string]any{"type": "object"},
		func(ctx context.Context, args map[string]any) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	fx := newRuntimeFixture(t)
	fx.settings.SupervisorTimeout = config.Seconds(0.05)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "wait", Arguments: "{}"}))
	fx.mock.EnqueueError(errors.New("unreachable"))

	result, err := fx.runtime.Run(context.Background(), specialist(t, blocking), "query", AsSupervisor())
	require.Error(t, err)
	assert.Nil(t, result)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "helper", timeoutErr.Agent)
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
}

func TestRunModelErrorPropagates(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.EnqueueError(errors.New("bad gateway"))

	result, err := fx.runtime.Run(context.Background(), specialist(t), "query")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorContains(t, err, "bad gateway")

	var timeoutErr *TimeoutError
	assert.False(t, errors.As(err, &timeoutErr))
}

func TestRunEmitsProgressEvents(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "echo", Arguments: `{"text":"hi"}`}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("done"))

	sink := core.NewSink(16)
	_, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "query", WithSink(sink))
	require.NoError(t, err)
	sink.Close()

	var events []core.Event
	for ev := range sink.Events() {
		events = append(events, ev)
	}
	require.Len(t, events, 3)

	progress, ok := events[0].(core.ProgressText)
	require.True(t, ok)
	assert.Equal(t, "helper", progress.Source)
	assert.Equal(t, "processing query", progress.Text)

	started, ok := events[1].(core.ToolCallStarted)
	require.True(t, ok)
	assert.Equal(t, "helper", started.Agent)
	assert.Equal(t, "echo", started.Tool)
	assert.Equal(t, `{"text":"hi"}`, started.ArgsPreview)

	finished, ok := events[2].(core.ToolCallFinished)
	require.True(t, ok)
	assert.Equal(t, "echo", finished.Tool)
	assert.True(t, finished.OK)
}

func TestRunTruncatesArgsPreview(t *testing.T) {
	fx := newRuntimeFixture(t)
	long := `{"text":"` + strings.Repeat("x", 300) + `"}`
	fx.mock.Enqueue(toolCallMessage(core.ToolCall{ID: "c1", Name: "echo", Arguments: long}))
	fx.mock.Enqueue(core.NewAssistantTextMessage("done"))

	sink := core.NewSink(16)
	_, err := fx.runtime.Run(context.Background(), specialist(t, echoTool(t)), "query", WithSink(sink))
	require.NoError(t, err)
	sink.Close()

	for ev := range sink.Events() {
		if started, ok := ev.(core.ToolCallStarted); ok {
			assert.Less(t, len(started.ArgsPreview), len(long))
			assert.Contains(t, started.ArgsPreview, "truncated")
			return
		}
	}
	t.Fatal("no ToolCallStarted event seen")
}

func TestRunSpecialistSystemPromptAddsPlanning(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	ag := MustNew("helper", "Answers test queries.")
	_, err := fx.runtime.Run(context.Background(), ag, "query")
	require.NoError(t, err)

	system := fx.mock.Requests()[0].System
	assert.True(t, strings.HasPrefix(system, "Answers test queries."), "system %q", system)
	assert.Contains(t, system, "Plan before you act")
}

func TestRunSupervisorSystemPromptVerbatim(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	ag := MustNew("supervisor", "Routes queries to specialists.")
	_, err := fx.runtime.Run(context.Background(), ag, "query", AsSupervisor())
	require.NoError(t, err)

	system := fx.mock.Requests()[0].System
	assert.True(t, strings.HasPrefix(system, "Routes queries to specialists."), "system %q", system)
	assert.NotContains(t, system, "Plan before you act")
}

func TestRunDatetimeModeByRole(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	_, err := fx.runtime.Run(context.Background(), specialist(t), "query", AsSupervisor())
	require.NoError(t, err)
	_, err = fx.runtime.Run(context.Background(), specialist(t), "query")
	require.NoError(t, err)

	reqs := fx.mock.Requests()
	require.Len(t, reqs, 2)
	assert.Contains(t, reqs[0].System, "Current DateTime Context")
	assert.Contains(t, reqs[0].System, "Reference dates")
	assert.Contains(t, reqs[1].System, "Current DateTime Context")
	assert.NotContains(t, reqs[1].System, "Reference dates")
}

func TestRunDatetimeModeOverride(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	_, err := fx.runtime.Run(context.Background(), specialist(t), "query",
		WithDatetimeMode(middleware.DatetimeFull))
	require.NoError(t, err)

	assert.Contains(t, fx.mock.Requests()[0].System, "Reference dates")
}

func TestRunHistoryPrecedesQuery(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	history := []core.Message{
		core.NewUserMessage("earlier question"),
		core.NewAssistantTextMessage("earlier answer"),
	}
	_, err := fx.runtime.Run(context.Background(), specialist(t), "follow-up", WithHistory(history))
	require.NoError(t, err)

	msgs := fx.mock.Requests()[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, "earlier question", msgs[0].Text())
	assert.Equal(t, "earlier answer", msgs[1].Text())
	assert.Equal(t, "follow-up", msgs[2].Text())
}

func TestRunAppliesAgentMiddleware(t *testing.T) {
	fx := newRuntimeFixture(t)
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	ag := MustNew("helper", "Answers test queries.", func(o *Options) {
		o.Middleware = []middleware.Middleware{middleware.FromHook(tagHook{})}
	})
	_, err := fx.runtime.Run(context.Background(), ag, "query")
	require.NoError(t, err)

	assert.Contains(t, fx.mock.Requests()[0].System, "[tagged]")
}

func TestRunDebugLogsModelTraffic(t *testing.T) {
	logger := &captureLogger{}
	fx := newRuntimeFixture(t, func(o *RuntimeOptions) {
		o.Logger = logger
	})
	fx.settings.Debug = true
	fx.mock.Enqueue(core.NewAssistantTextMessage("ok"))

	_, err := fx.runtime.Run(context.Background(), specialist(t), "query")
	require.NoError(t, err)

	assert.True(t, logger.has("model request"))
	assert.True(t, logger.has("model response"))
}

func TestRunNilAgent(t *testing.T) {
	fx := newRuntimeFixture(t)
	result, err := fx.runtime.Run(context.Background(), nil, "query")
	require.Error(t, err)
	assert.Nil(t, result)
}

// toolResultContent extracts the single tool result content from the first
// Tool message in msgs.
func toolResultContent(t *testing.T, msgs []core.Message) string {
	t.Helper()
	for _, msg := range msgs {
		if msg.Role != core.RoleTool {
			continue
		}
		results := msg.ToolResults()
		require.Len(t, results, 1)
		return results[0].Content
	}
	t.Fatal("no tool message found")
	return ""
}

// tagHook marks the system prompt so tests can see agent middleware ran.
type tagHook struct{}

func (tagHook) Name() string { return "tag" }

func (tagHook) BeforeModel(ctx context.Context, req *model.Request) error {
	req.System += "\n[tagged]"
	return nil
}

type captureLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *captureLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *captureLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func (l *captureLogger) Debug(msg string, args ...any) { l.record(msg) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record(msg) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record(msg) }
func (l *captureLogger) Error(msg string, args ...any) { l.record(msg) }
