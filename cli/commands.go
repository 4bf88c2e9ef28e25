package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/switchboard-dev/switchboard/web"
)

func (a *App) webCmd(flags *globalFlags) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Start the WebSocket server with the browser chat client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 12-factor: web mode logs to stderr, no file.
			eng, err := a.buildEngine(flags, true)
			if err != nil {
				return err
			}

			server := web.NewServer(eng.manager, func(o *web.Options) {
				o.Logger = eng.logger
			})
			addr := fmt.Sprintf("%s:%d", host, port)
			fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on http://%s\n", a.Name, addr)
			return server.Start(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	return cmd
}

func (a *App) agentsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List registered agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.loadSettings(flags)
			if err != nil {
				return err
			}
			registry, err := a.buildRegistry(settings)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			agents := registry.All()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No agents registered.")
				return nil
			}
			for _, ag := range agents {
				description := strings.SplitN(strings.TrimSpace(ag.Capabilities), "\n", 2)[0]
				fmt.Fprintf(out, "%s  %s (%d tools)\n", titleStyle.Render(ag.Name), description, len(ag.Tools))
			}
			return nil
		},
	}
}

func (a *App) infoCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.loadSettings(flags)
			if err != nil {
				return err
			}
			registry, err := a.buildRegistry(settings)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(a.Name+" "+a.Version))
			fmt.Fprintf(out, "model:                %s\n", settings.LLMModel)
			fmt.Fprintf(out, "temperature:          %g\n", settings.LLMTemperature)
			if settings.LLMReasoningEffort != "" {
				fmt.Fprintf(out, "reasoning effort:     %s\n", settings.LLMReasoningEffort)
			}
			fmt.Fprintf(out, "recursion limit:      %d\n", settings.RecursionLimit)
			fmt.Fprintf(out, "supervisor timeout:   %gs\n", float64(settings.SupervisorTimeout))
			fmt.Fprintf(out, "specialist timeout:   %gs\n", float64(settings.SpecialistTimeout))
			fmt.Fprintf(out, "formatter timeout:    %gs\n", float64(settings.FormatterTimeout))
			fmt.Fprintf(out, "llm request timeout:  %gs\n", float64(settings.LLMRequestTimeout))
			fmt.Fprintf(out, "summarization:        %v\n", settings.SummarizationEnabled)
			fmt.Fprintf(out, "url security:         %v\n", settings.URLSecurity.Enabled)
			fmt.Fprintf(out, "log level:            %s\n", settings.LogLevel)
			fmt.Fprintf(out, "registered agents:    %d\n", registry.Len())
			for _, warning := range settings.TimeoutWarnings() {
				fmt.Fprintln(out, errorStyle.Render("warning: "+warning))
			}
			return nil
		},
	}
}
