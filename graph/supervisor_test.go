package graph

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-dev/switchboard/agent"
	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/model"
)

func newSupervisorBuilder(t *testing.T, agents ...*agent.Agent) (*SupervisorBuilder, *agent.Registry) {
	t.Helper()
	registry := agent.NewRegistry()
	for _, ag := range agents {
		require.NoError(t, registry.Register(ag))
	}
	mock := model.NewMockModel("mock-model", "mock")
	runtime := agent.NewRuntime(model.NewClient(mock), config.Defaults())
	return NewSupervisorBuilder(registry, runtime), registry
}

func TestSupervisorPromptListsCapabilitiesInInsertionOrder(t *testing.T) {
	builder, _ := newSupervisorBuilder(t,
		agent.MustNew("weather", "Answers weather questions."),
		agent.MustNew("docs", "Searches internal documentation."),
	)

	supervisor, err := builder.Build(nil)
	require.NoError(t, err)

	prompt := supervisor.Capabilities
	weatherAt := strings.Index(prompt, "### weather")
	docsAt := strings.Index(prompt, "### docs")
	require.GreaterOrEqual(t, weatherAt, 0)
	require.GreaterOrEqual(t, docsAt, 0)
	assert.Less(t, weatherAt, docsAt)
	assert.Contains(t, prompt, "Answers weather questions.")
	assert.Contains(t, prompt, "Searches internal documentation.")
	assert.Contains(t, prompt, "Plan before you act")
}

func TestSupervisorPromptDeterministic(t *testing.T) {
	builder, _ := newSupervisorBuilder(t,
		agent.MustNew("weather", "Answers weather questions."),
		agent.MustNew("docs", "Searches internal documentation."),
	)

	first, err := builder.Build(nil)
	require.NoError(t, err)
	second, err := builder.Build(nil)
	require.NoError(t, err)

	assert.Equal(t, first.Capabilities, second.Capabilities)
}

func TestSupervisorPromptWithEmptyRegistry(t *testing.T) {
	builder, _ := newSupervisorBuilder(t)

	supervisor, err := builder.Build(nil)
	require.NoError(t, err)

	assert.Contains(t, supervisor.Capabilities, "No specialist agents are registered")
	assert.Empty(t, supervisor.Tools)
}

func TestSupervisorWrapperToolsAreGeneric(t *testing.T) {
	builder, _ := newSupervisorBuilder(t,
		agent.MustNew("weather", "Answers weather questions with rich detail."),
	)

	supervisor, err := builder.Build(nil)
	require.NoError(t, err)

	require.Len(t, supervisor.Tools, 1)
	wrapper := supervisor.Tools[0]
	assert.Equal(t, "weather", wrapper.Name)
	// Routing lives in the prompt catalog; the tool description stays
	// generic so the two never drift apart.
	assert.NotContains(t, wrapper.Description, "rich detail")
	assert.Contains(t, wrapper.Description, "specialist agent")
}

func TestSupervisorTracksRegistryChanges(t *testing.T) {
	builder, registry := newSupervisorBuilder(t,
		agent.MustNew("weather", "Answers weather questions."),
	)

	before, err := builder.Build(nil)
	require.NoError(t, err)
	require.Len(t, before.Tools, 1)

	require.NoError(t, registry.Register(agent.MustNew("docs", "Searches documentation.")))

	after, err := builder.Build(nil)
	require.NoError(t, err)
	assert.Len(t, after.Tools, 2)
	assert.Contains(t, after.Capabilities, "### docs")
	assert.NotContains(t, before.Capabilities, "### docs")
}

func TestSupervisorWrapperDelegatesQuery(t *testing.T) {
	mock := model.NewMockModel("mock-model", "mock")
	settings := config.Defaults()
	runtime := agent.NewRuntime(model.NewClient(mock, func(o *model.Options) {
		o.RetryDelay = time.Millisecond
	}), settings)

	registry := agent.NewRegistry()
	require.NoError(t, registry.Register(agent.MustNew("weather", "Answers weather questions.")))
	builder := NewSupervisorBuilder(registry, runtime)

	supervisor, err := builder.Build(nil)
	require.NoError(t, err)

	mock.Enqueue(core.NewAssistantTextMessage("Sunny in Berlin."))
	out, err := supervisor.Tools[0].Call(context.Background(), map[string]any{"query": "weather in Berlin"})
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Berlin.", out)

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	msgs := reqs[0].Messages
	assert.Equal(t, "weather in Berlin", msgs[len(msgs)-1].Text())
}
