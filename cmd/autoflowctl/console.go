package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"AutoFlow-Agent/cmd/autoflowctl/ui"
	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/dashboard"
	"AutoFlow-Agent/sdk/go/autoflow"
)

func consoleCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Agent console: simulated runs and execution logs",
	}
	cmd.AddCommand(consoleStatusCmd(g))
	cmd.AddCommand(consoleStartCmd(g))
	cmd.AddCommand(consoleStopCmd(g))
	cmd.AddCommand(consoleRetryCmd(g))
	cmd.AddCommand(consoleLogsCmd(g))
	cmd.AddCommand(consoleClearCmd(g))
	cmd.AddCommand(consoleExportCmd(g))
	return cmd
}

func consoleStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show run progress and statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			view, err := client.Console(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(renderRunState(view))
			return nil
		},
	}
}

func consoleStartCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a simulated run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			res, err := client.StartRun(cmd.Context())
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Println(ui.Muted("a run is already in progress"))
				return nil
			}
			fmt.Println(ui.SuccessMsg("run started"))
			return nil
		},
	}
}

func consoleStopCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			res, err := client.StopRun(cmd.Context())
			if err != nil {
				return err
			}
			if !res.Changed {
				fmt.Println(ui.Muted("no run in progress"))
				return nil
			}
			fmt.Println(ui.SuccessMsg("run stopped at %.0f%%", res.State.Progress))
			return nil
		},
	}
}

func consoleRetryCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Retry the last failed step",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			entry, err := client.RetryLastStep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(renderEntry(entry))
			return nil
		},
	}
}

func consoleLogsCmd(g *globals) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:     "logs",
		Aliases: []string{"log"},
		Short:   "List execution log entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			entries, err := client.Logs(cmd.Context(), category)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(ui.Muted("no log entries"))
				return nil
			}
			fmt.Println(renderEntries(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Only show one category (info, success, error, action, warning)")
	return cmd
}

func consoleClearCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every log entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			if err := client.ClearLogs(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("logs cleared"))
			return nil
		},
	}
}

func consoleExportCmd(g *globals) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the log as a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			export, err := client.ExportLogs(cmd.Context())
			if err != nil {
				return err
			}
			name := export.Filename
			if name == "" {
				name = console.ExportFilename(time.Now())
			}
			path := filepath.Join(dir, filepath.Base(name))
			if err := os.WriteFile(path, export.Data, 0o644); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("wrote %s (%d bytes)", path, len(export.Data)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", ".", "Directory to write the export into")
	return cmd
}

func renderRunState(view autoflow.Console) string {
	state := view.State
	status := dashboard.RunStatus(view.RunStatus)
	current := state.CurrentStep
	if current == "" {
		current = "-"
	}
	return ui.KeyValues("",
		ui.KV("Status", ui.Badge(dashboard.RunStatusStyle(status))),
		ui.KV("Progress", ui.Progress(state.Progress, 24)),
		ui.KV("Current step", current),
		ui.KV("Steps", fmt.Sprintf("%d/%d completed, %d failed", state.Stats.CompletedSteps, state.Stats.TotalSteps, state.Stats.FailedSteps)),
		ui.KV("Duration", (time.Duration(state.Stats.DurationMs)*time.Millisecond).String()),
		ui.KV("Entries", fmt.Sprintf("%d/%d", len(view.Entries), view.Capacity)),
	)
}

func renderEntry(e autoflow.Entry) string {
	style := dashboard.CategoryStyle(console.Category(e.Category))
	line := fmt.Sprintf("%s %s %s", ui.Muted(e.Timestamp), ui.Badge(style), e.Message)
	if e.Details != "" {
		line += " " + ui.Muted("("+e.Details+")")
	}
	return line
}

func renderEntries(entries []autoflow.Entry) string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		style := dashboard.CategoryStyle(console.Category(e.Category))
		duration := "-"
		if e.DurationMs > 0 {
			duration = strconv.FormatFloat(e.DurationMs, 'f', 0, 64) + "ms"
		}
		rows[i] = []string{
			e.Timestamp,
			ui.Badge(style),
			ui.Tinted(style, e.Message),
			e.Details,
			duration,
		}
	}
	return ui.Table([]string{"Time", "Category", "Message", "Details", "Duration"}, rows)
}
