package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/switchboard-dev/switchboard/knowledge"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/model"
	"github.com/switchboard-dev/switchboard/tool"
)

// Instruction texts injected when the matching reader tools are present.
// These tool names are part of the public contract; renamed tools are not
// detected.
const skillsInstructions = `## Skills System
Use skills to discover how to perform tasks correctly:
- read_skill(path): get detailed steps for a specific task

The available skills are listed below. Always check skills before guessing
how to use APIs or execute complex tasks.`

const factsInstructions = `## Facts System
Use facts to get accurate contextual information:
- read_fact(path): get specific details (names, policies, configurations)

The available facts are listed below. Use facts for accurate names,
identifiers, and business rules.`

const knowledgeInstructions = `## Knowledge System
You have access to skills (how-to instructions) and facts (contextual information):

**Skills** - Task instructions:
- read_skill(path) to learn how to do something

**Facts** - Contextual data:
- read_fact(path) to get accurate information

The inventories below list what is available. Documents may point at further
documents by relative path, readable with the same tools.

Check skills before complex tasks. Use facts for precise details.`

// ToolInstructionsOptions configure the ToolInstructions middleware.
type ToolInstructionsOptions struct {
	// Logger receives inventory read diagnostics.
	Logger logging.Logger
}

// ToolInstructions prepends knowledge usage guidance and the document
// inventory to the system message of agents that carry knowledge reader
// tools. The block is assembled once at construction, so directory reads
// happen at startup, never per request.
type ToolInstructions struct {
	block string
}

// NewToolInstructions inspects the agent's tools and, when it finds the
// knowledge readers, builds the static instruction block from the store's
// top-level inventory. Agents without knowledge tools get an inert instance.
func NewToolInstructions(tools []*tool.Tool, store *knowledge.Store, optFns ...func(o *ToolInstructionsOptions)) *ToolInstructions {
	opts := ToolInstructionsOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	logger := logging.NewScoped(opts.Logger).WithComponent("tool_instructions")

	names := map[string]bool{}
	for _, t := range tools {
		if t != nil {
			names[t.Name] = true
		}
	}
	hasSkills := names[knowledge.ToolReadSkill]
	hasFacts := names[knowledge.ToolReadFact]
	if !hasSkills && !hasFacts {
		return &ToolInstructions{}
	}

	var sections []string
	switch {
	case hasSkills && hasFacts:
		// The combined pattern takes precedence over the individual blocks.
		sections = append(sections, knowledgeInstructions)
	case hasSkills:
		sections = append(sections, skillsInstructions)
	default:
		sections = append(sections, factsInstructions)
	}
	if hasSkills {
		sections = append(sections, inventorySection("Available skills", knowledge.CategorySkills, store, logger))
	}
	if hasFacts {
		sections = append(sections, inventorySection("Available facts", knowledge.CategoryFacts, store, logger))
	}
	return &ToolInstructions{block: strings.Join(sections, "\n\n")}
}

// inventorySection lists top-level documents only; subdirectory documents
// stay unadvertised and are reached by explicit path reads.
func inventorySection(title string, cat knowledge.Category, store *knowledge.Store, logger *logging.Scoped) string {
	var docs []knowledge.Document
	if store != nil {
		var err error
		docs, err = store.ListTopLevel(cat)
		if err != nil {
			logger.Warn("could not list knowledge inventory", "category", string(cat), "error", err.Error())
		}
	}
	var b strings.Builder
	b.WriteString("### " + title)
	if len(docs) == 0 {
		b.WriteString("\n(none)")
		return b.String()
	}
	for _, d := range docs {
		fmt.Fprintf(&b, "\n- %s — %s", d.Name, d.Description)
	}
	return b.String()
}

// Name identifies the middleware in chain diagnostics.
func (m *ToolInstructions) Name() string { return "tool_instructions" }

// BeforeModel prepends the static block, skipping when it is already there.
func (m *ToolInstructions) BeforeModel(_ context.Context, req *model.Request) error {
	if m.block == "" || strings.Contains(req.System, m.block) {
		return nil
	}
	if req.System == "" {
		req.System = m.block
		return nil
	}
	req.System = m.block + "\n\n" + req.System
	return nil
}
