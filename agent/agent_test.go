package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/switchboard-dev/switchboard/knowledge"
	"github.com/switchboard-dev/switchboard/tool"
)

func echoTool(t *testing.T) *tool.Tool {
	t.Helper()
	return tool.MustNew("echo", "Echo the input back.", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}, func(ctx context.Context, args map[string]any) (string, error) {
		text, _ := args["text"].(string)
		return text, nil
	})
}

func TestNewAgent(t *testing.T) {
	ag, err := New("weather_agent", "Answers weather questions.", func(o *Options) {
		o.Tools = []*tool.Tool{echoTool(t)}
	})
	require.NoError(t, err)

	assert.Equal(t, "weather_agent", ag.Name)
	assert.Equal(t, "Answers weather questions.", ag.Capabilities)
	require.Len(t, ag.Tools, 1)
	assert.Equal(t, "echo", ag.Tools[0].Name)
}

func TestNewAgentRejectsInvalidNames(t *testing.T) {
	for _, name := range []string{"", "9agent", "has space", "dash-name"} {
		_, err := New(name, "caps")
		assert.Error(t, err, "name %q", name)
	}
}

func TestNewAgentRejectsEmptyCapabilities(t *testing.T) {
	_, err := New("agent", "")
	assert.Error(t, err)

	_, err = New("agent", "   \n")
	assert.Error(t, err)
}

func TestNewAgentCopiesToolSlice(t *testing.T) {
	tools := []*tool.Tool{echoTool(t)}
	ag, err := New("agent", "caps", func(o *Options) {
		o.Tools = tools
	})
	require.NoError(t, err)

	tools[0] = nil
	require.NotNil(t, ag.Tools[0])
	assert.Equal(t, "echo", ag.Tools[0].Name)
}

func TestNewAgentAppendsKnowledgeTools(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "skills"), 0o755))
	doc := "---\nname: deploy\ndescription: how to deploy\n---\nRun the deploy script.\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skills", "deploy.md"), []byte(doc), 0o644))

	store, err := knowledge.NewStore(dir)
	require.NoError(t, err)

	ag, err := New("agent", "caps", func(o *Options) {
		o.Tools = []*tool.Tool{echoTool(t)}
		o.Knowledge = store
	})
	require.NoError(t, err)

	names := make([]string, 0, len(ag.Tools))
	for _, tl := range ag.Tools {
		names = append(names, tl.Name)
	}
	assert.Contains(t, names, "echo")
	assert.Contains(t, names, knowledge.ToolReadSkill)
}

func TestMustNewPanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() {
		MustNew("", "caps")
	})
}
