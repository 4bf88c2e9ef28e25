package agent

import (
	"fmt"
	"sync"

	"github.com/switchboard-dev/switchboard/knowledge"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/middleware"
	"github.com/switchboard-dev/switchboard/tool"
)

// Agent describes one specialist: its identity, the capabilities text, and
// the tools it may call. Capabilities serves double duty as the supervisor's
// routing section for this agent and as the agent's own base system prompt.
// One string, no duplication, so routing and behavior cannot drift apart.
type Agent struct {
	// Name uniquely identifies the agent process-wide. Identifier
	// characters only; it doubles as the supervisor's wrapper tool name.
	Name string
	// Capabilities is the free text description of what the agent can do.
	Capabilities string
	// Tools the agent may call during its loop.
	Tools []*tool.Tool
	// Knowledge optionally backs the read_skill and read_fact tools.
	Knowledge *knowledge.Store
	// Middleware runs between the engine mandated middlewares on every
	// model call of this agent.
	Middleware []middleware.Middleware
	// DatetimeMode overrides the temporal block mode. Empty selects the
	// role default: minimal for specialists, full for the supervisor.
	DatetimeMode middleware.DatetimeMode

	instructionsOnce sync.Once
	instructions     *middleware.ToolInstructions
}

// Options configure New.
type Options struct {
	Tools        []*tool.Tool
	Knowledge    *knowledge.Store
	Middleware   []middleware.Middleware
	DatetimeMode middleware.DatetimeMode
}

// New validates the identity fields and assembles an Agent. A knowledge
// store contributes its reader tools automatically.
func New(name, capabilities string, optFns ...func(o *Options)) (*Agent, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if !validName(name) {
		return nil, fmt.Errorf("invalid agent name %q: letters, digits and underscores only, no leading digit", name)
	}
	if capabilities == "" {
		return nil, fmt.Errorf("agent %q needs a capabilities description", name)
	}
	tools := append([]*tool.Tool{}, opts.Tools...)
	if opts.Knowledge != nil {
		tools = append(tools, opts.Knowledge.Tools()...)
	}
	return &Agent{
		Name:         name,
		Capabilities: capabilities,
		Tools:        tools,
		Knowledge:    opts.Knowledge,
		Middleware:   opts.Middleware,
		DatetimeMode: opts.DatetimeMode,
	}, nil
}

// MustNew is New that panics on error, for static startup wiring.
func MustNew(name, capabilities string, optFns ...func(o *Options)) *Agent {
	ag, err := New(name, capabilities, optFns...)
	if err != nil {
		panic(err)
	}
	return ag
}

// instructionsMiddleware returns the agent's knowledge instructions
// middleware, built on first use so the inventory directories are read once
// per process, not once per request.
func (a *Agent) instructionsMiddleware(logger logging.Logger) *middleware.ToolInstructions {
	a.instructionsOnce.Do(func() {
		a.instructions = middleware.NewToolInstructions(a.Tools, a.Knowledge, func(o *middleware.ToolInstructionsOptions) {
			o.Logger = logger
		})
	})
	return a.instructions
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
