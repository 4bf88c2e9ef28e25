package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/switchboard-dev/switchboard/agent"
	"github.com/switchboard-dev/switchboard/config"
	"github.com/switchboard-dev/switchboard/graph"
	"github.com/switchboard-dev/switchboard/logging"
	"github.com/switchboard-dev/switchboard/model"
	"github.com/switchboard-dev/switchboard/model/anthropic"
	"github.com/switchboard-dev/switchboard/model/openai"
	"github.com/switchboard-dev/switchboard/session"
)

// App describes one chatbot executable. Fill in the fields and call Run
// from main.
type App struct {
	// Name is the executable name, also the prefix of the API key
	// variable (<NAME>_API_KEY).
	Name string
	// Version is printed by --version.
	Version string
	// Description is the one-line help text.
	Description string
	// Register adds the chatbot's specialist agents to the registry.
	// Nil leaves the registry empty, which yields a single-agent chat.
	Register func(r *agent.Registry, s *config.Settings) error
	// Formatter overrides the default formatter prompt sections.
	Formatter *graph.FormatterBuilder
	// ConfigPath overrides the config file searched in the working
	// directory.
	ConfigPath string
	// NewModel overrides provider selection, for tests and local
	// providers.
	NewModel func(s *config.Settings) model.Model
}

// globalFlags carries the persistent flag values of one Execute run.
type globalFlags struct {
	verbosity int
	quiet     bool
	logLevel  string
	logFile   string
	debug     bool
}

// Run executes the app and exits the process with 1 on failure.
func (a *App) Run() {
	if err := a.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Execute parses arguments and runs the selected command.
func (a *App) Execute() error {
	return a.rootCmd().Execute()
}

func (a *App) rootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           a.Name,
		Short:         a.Description,
		Version:       a.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.CountVarP(&flags.verbosity, "verbose", "v", "increase log verbosity (-v debug, -vv debug plus prompt logging)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "log warnings and errors only")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&flags.logFile, "log-file", "", "log file path (chat mode)")
	pf.BoolVar(&flags.debug, "debug", false, "enable prompt debug logging")

	root.AddCommand(
		a.chatCmd(flags),
		a.webCmd(flags),
		a.agentsCmd(flags),
		a.infoCmd(flags),
	)
	return root
}

// loadSettings resolves settings and layers the global flags on top.
func (a *App) loadSettings(flags *globalFlags) (*config.Settings, error) {
	return config.Load(a.ConfigPath, func(s *config.Settings) {
		switch {
		case flags.quiet:
			s.LogLevel = "warn"
		case flags.verbosity >= 1:
			s.LogLevel = "debug"
		}
		if flags.logLevel != "" {
			s.LogLevel = flags.logLevel
		}
		if flags.verbosity >= 2 || flags.debug {
			s.Debug = true
		}
		if flags.logFile != "" {
			s.LogDir = filepath.Dir(flags.logFile)
			s.LogFilename = filepath.Base(flags.logFile)
		}
	})
}

// newModel picks the provider adapter from the configured model id. The
// API key comes from <NAME>_API_KEY, falling back to the SDK's own
// environment lookup.
func (a *App) newModel(s *config.Settings) model.Model {
	if a.NewModel != nil {
		return a.NewModel(s)
	}
	apiKey := os.Getenv(strings.ToUpper(strings.ReplaceAll(a.Name, "-", "_")) + "_API_KEY")
	if strings.HasPrefix(s.LLMModel, "claude") {
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = apiKey
		})
	}
	return openai.NewModel(func(o *openai.Options) {
		o.APIKey = apiKey
	})
}

// engine is the shared wiring behind the chat and web commands.
type engine struct {
	settings *config.Settings
	registry *agent.Registry
	manager  *session.Manager
	logger   logging.Logger
	closer   io.Closer
}

// Close releases the log file, when one is open.
func (e *engine) Close() {
	if e.closer != nil {
		_ = e.closer.Close()
	}
}

// buildEngine assembles settings, logging, registry, model client, graph
// executor and session manager. Chat mode logs to a file under log_dir;
// web mode logs to stderr.
func (a *App) buildEngine(flags *globalFlags, logToStderr bool) (*engine, error) {
	settings, err := a.loadSettings(flags)
	if err != nil {
		return nil, err
	}

	level := logging.ParseLevel(settings.LogLevel)
	var logger logging.Logger
	var closer io.Closer
	if logToStderr {
		logger = logging.NewStderrLogger(level)
	} else {
		logger, closer, err = logging.NewFileLogger(settings.LogDir, settings.LogFilename, level)
		if err != nil {
			return nil, err
		}
	}
	for _, warning := range settings.TimeoutWarnings() {
		logger.Warn(warning)
	}

	registry := agent.NewRegistry()
	if a.Register != nil {
		if err := a.Register(registry, settings); err != nil {
			if closer != nil {
				_ = closer.Close()
			}
			return nil, fmt.Errorf("register agents: %w", err)
		}
	}

	client := model.NewClient(a.newModel(settings), func(o *model.Options) {
		o.Timeout = settings.LLMRequestTimeout.Duration()
		o.Logger = logger
	})
	executor := graph.New(settings, registry, client, func(o *graph.Options) {
		o.Logger = logger
		if a.Formatter != nil {
			o.Formatter = a.Formatter
		}
	})
	manager := session.NewManager(session.NewInMemoryStore(), executor, func(o *session.ManagerOptions) {
		o.Logger = logger
	})

	return &engine{
		settings: settings,
		registry: registry,
		manager:  manager,
		logger:   logger,
		closer:   closer,
	}, nil
}

// buildRegistry assembles just the registry, for commands that inspect
// agents without running the engine. Works without an API key.
func (a *App) buildRegistry(settings *config.Settings) (*agent.Registry, error) {
	registry := agent.NewRegistry()
	if a.Register != nil {
		if err := a.Register(registry, settings); err != nil {
			return nil, fmt.Errorf("register agents: %w", err)
		}
	}
	return registry, nil
}
