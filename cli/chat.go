package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/google/uuid"

	"github.com/switchboard-dev/switchboard/core"
)

var (
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	replyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusStyle = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func (a *App) chatCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive terminal session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.buildEngine(flags, false)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return a.chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), eng)
		},
	}
}

// chatLoop reads one query per line and runs one turn per query. EOF,
// interrupt, or an "exit"/"quit" line ends the session.
func (a *App) chatLoop(ctx context.Context, in io.Reader, out io.Writer, eng *engine) error {
	fmt.Fprintln(out, titleStyle.Render(a.Name)+": type your question, or 'exit' to leave.")

	sessionID := uuid.NewString()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		sink := core.NewSink(0)
		done := make(chan struct{})
		go func() {
			defer close(done)
			renderEvents(out, sink)
		}()

		if _, err := eng.manager.RunTurn(ctx, sessionID, query, sink); err != nil {
			<-done
			fmt.Fprintln(out, errorStyle.Render("Error: "+err.Error()))
			continue
		}
		<-done
	}
}

// renderEvents prints the turn's progress stream: status lines dimmed,
// formatter tokens streamed in place, the final reply styled. When tokens
// were streamed the final event only closes the line, it is not reprinted.
func renderEvents(out io.Writer, sink *core.Sink) {
	streamed := false
	for ev := range sink.Events() {
		switch e := ev.(type) {
		case core.ProgressText:
			fmt.Fprintln(out, statusStyle.Render("· "+e.Source+": "+e.Text))
		case core.ToolCallStarted:
			line := "→ " + e.Agent + " calling " + e.Tool
			if e.ArgsPreview != "" {
				line += " " + e.ArgsPreview
			}
			fmt.Fprintln(out, statusStyle.Render(line))
		case core.ToolCallFinished:
			marker := "done"
			if !e.OK {
				marker = "failed"
			}
			fmt.Fprintln(out, statusStyle.Render("← "+e.Agent+" "+e.Tool+" "+marker))
		case core.PartialToken:
			if !streamed {
				streamed = true
			}
			fmt.Fprint(out, replyStyle.Render(e.Text))
		case core.Final:
			if streamed {
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, replyStyle.Render(e.Text))
			}
			fmt.Fprintln(out)
		case core.Error:
			fmt.Fprintln(out, errorStyle.Render(e.Message))
			fmt.Fprintln(out)
		}
	}
}
