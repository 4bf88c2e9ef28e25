package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/switchboard-dev/switchboard/agent"
	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/middleware"
	"github.com/switchboard-dev/switchboard/tool"
)

// SupervisorName is the reserved name of the orchestrating agent.
const SupervisorName = "supervisor"

// SupervisorBuilder assembles the supervisor agent for one turn: a system
// prompt carrying the capabilities catalog of every registered agent and
// one generic wrapper tool per agent. Building per turn keeps the prompt
// and tool list aligned with a registry that may change between turns.
type SupervisorBuilder struct {
	registry   *agent.Registry
	runtime    *agent.Runtime
	middleware []middleware.Middleware
}

// SupervisorBuilderOptions configure NewSupervisorBuilder.
type SupervisorBuilderOptions struct {
	// Middleware is attached to the supervisor agent, after the engine's
	// fixed pipeline.
	Middleware []middleware.Middleware
}

// NewSupervisorBuilder wires a builder over the registry and the runtime
// the wrapper tools delegate to.
func NewSupervisorBuilder(registry *agent.Registry, runtime *agent.Runtime, optFns ...func(o *SupervisorBuilderOptions)) *SupervisorBuilder {
	var opts SupervisorBuilderOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SupervisorBuilder{
		registry:   registry,
		runtime:    runtime,
		middleware: opts.Middleware,
	}
}

// Build composes the supervisor agent for one turn. The sink is threaded
// into every wrapper tool so nested specialist runs stream progress into
// the same turn-scoped queue.
//
// The returned agent's prompt is byte-identical across calls for an
// unchanged registry: agents appear in insertion order and every piece of
// the prompt is deterministic.
func (b *SupervisorBuilder) Build(sink *core.Sink) (*agent.Agent, error) {
	specialists := b.registry.All()

	tools := make([]*tool.Tool, 0, len(specialists))
	for _, sp := range specialists {
		wrapped, err := b.wrapperTool(sp, sink)
		if err != nil {
			return nil, fmt.Errorf("wrapper tool for agent %q: %w", sp.Name, err)
		}
		tools = append(tools, wrapped)
	}

	return agent.New(SupervisorName, b.prompt(specialists), func(o *agent.Options) {
		o.Tools = tools
		o.Middleware = b.middleware
	})
}

// prompt renders header, capabilities catalog and planning block. Routing
// is driven by this catalog, not by per-tool descriptions.
func (b *SupervisorBuilder) prompt(specialists []*agent.Agent) string {
	var sb strings.Builder
	sb.WriteString(supervisorPromptHeader)
	sb.WriteString("\n\n")
	if len(specialists) == 0 {
		sb.WriteString(noSpecialistsNote)
		sb.WriteString("\n\n")
	} else {
		for _, sp := range specialists {
			sb.WriteString("### ")
			sb.WriteString(sp.Name)
			sb.WriteString("\n")
			sb.WriteString(strings.TrimSpace(sp.Capabilities))
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(supervisorPromptRules)
	sb.WriteString("\n\n")
	sb.WriteString(agent.PlanningPrompt)
	return sb.String()
}

// wrapperTool exposes one specialist as a supervisor tool. The description
// is intentionally generic; capabilities live in the prompt catalog so
// routing knowledge is written exactly once.
func (b *SupervisorBuilder) wrapperTool(sp *agent.Agent, sink *core.Sink) (*tool.Tool, error) {
	description := fmt.Sprintf("Invoke the %s specialist agent for queries about its domain.", sp.Name)
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The question for the specialist, in natural language.",
			},
		},
		"required": []string{"query"},
	}
	return tool.New(sp.Name, description, schema, func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		result, err := b.runtime.Run(ctx, sp, query, agent.AsTool(), agent.WithSink(sink))
		if err != nil {
			return "", err
		}
		return result.Response, nil
	})
}
