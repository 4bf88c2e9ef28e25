package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/switchboard-dev/switchboard/tool"
)

// Names of the tools a Store exposes. Middleware detects knowledge-capable
// agents by these names.
const (
	ToolReadSkill = "read_skill"
	ToolReadFact  = "read_fact"
)

// Tools returns the read tools for the categories present on disk. There is
// deliberately no list tool: the inventory is injected into the system
// prompt, so models never burn a tool round-trip on discovery.
func (s *Store) Tools() []*tool.Tool {
	var tools []*tool.Tool
	if s.HasCategory(CategorySkills) {
		tools = append(tools, s.readTool(
			ToolReadSkill,
			"Read a skill document describing how to perform a task. Use the inventory in your instructions to pick the path.",
			CategorySkills,
		))
	}
	if s.HasCategory(CategoryFacts) {
		tools = append(tools, s.readTool(
			ToolReadFact,
			"Read a fact document containing reference data. Use the inventory in your instructions to pick the path.",
			CategoryFacts,
		))
	}
	return tools
}

func (s *Store) readTool(name, description string, cat Category) *tool.Tool {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": fmt.Sprintf("Path relative to the %s directory, e.g. \"example.md\"", cat),
			},
		},
		"required": []string{"path"},
	}
	return tool.MustNew(name, description, schema, func(ctx context.Context, args map[string]any) (string, error) {
		path, _ := args["path"].(string)
		body, err := s.Read(cat, path)
		if err != nil {
			var traversal *PathTraversalError
			if errors.As(err, &traversal) {
				return "", fmt.Errorf("invalid path %q: paths must stay inside the %s directory", path, cat)
			}
			return "", fmt.Errorf("could not read %s document %q", cat, path)
		}
		return body, nil
	})
}
