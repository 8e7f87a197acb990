package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"AutoFlow-Agent/cmd/autoflowctl/ui"
	"AutoFlow-Agent/internal/dashboard"
	"AutoFlow-Agent/internal/workflow"
	"AutoFlow-Agent/sdk/go/autoflow"
)

func builderCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builder",
		Short: "Edit the workflow canvas",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the nodes on the canvas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			b, err := client.Builder(cmd.Context())
			if err != nil {
				return err
			}
			state := "idle"
			if b.Running {
				state = "running"
			}
			fmt.Println(ui.Bold(b.Name) + " " + ui.Muted("("+state+")"))
			if len(b.Nodes) == 0 {
				fmt.Println(ui.Muted("canvas is empty"))
				return nil
			}
			fmt.Println(renderNodes(b.Nodes))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "templates",
		Short: "List the node presets per kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			templates, err := client.Templates(cmd.Context())
			if err != nil {
				return err
			}
			var rows [][]string
			for _, kind := range workflow.NodeKinds() {
				for _, t := range templates[string(kind)] {
					rows = append(rows, []string{ui.Badge(dashboard.KindStyle(kind)), t.Title, t.Description})
				}
			}
			fmt.Println(ui.Table([]string{"Kind", "Title", "Description"}, rows))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add <kind> [title]",
		Short: "Append a node; without a title the first preset of the kind is used",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 2 {
				title = args[1]
			}
			node, err := client.AddNode(cmd.Context(), args[0], title)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("added %s %s", node.Title, ui.Muted(node.ID)))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a node from the canvas",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			removed, err := client.RemoveNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println(ui.Muted("no node " + args[0]))
				return nil
			}
			fmt.Println(ui.SuccessMsg("removed %s", args[0]))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "save [name]",
		Short: "Save the canvas as a draft",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			name := strings.Join(args, "")
			draft, err := client.SaveDraft(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("saved %q with %d nodes", draft.Name, len(draft.Nodes)))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Preview-run the canvas",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			started, err := client.RunBuilder(cmd.Context())
			if err != nil {
				return err
			}
			if !started {
				fmt.Println(ui.Muted("canvas is empty or already running"))
				return nil
			}
			fmt.Println(ui.InfoMsg("running"))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "drafts",
		Short: "List saved drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			drafts, err := client.Drafts(cmd.Context())
			if err != nil {
				return err
			}
			if len(drafts) == 0 {
				fmt.Println(ui.Muted("no drafts saved"))
				return nil
			}
			rows := make([][]string, len(drafts))
			for i, d := range drafts {
				rows[i] = []string{strconv.Itoa(i + 1), d.Name, strconv.Itoa(len(d.Nodes)), d.CreatedAt.Local().Format("2006-01-02 15:04")}
			}
			fmt.Println(ui.Table([]string{"#", "Name", "Nodes", "Saved"}, rows))
			return nil
		},
	})
	return cmd
}

func workflowsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflows",
		Aliases: []string{"wf"},
		Short:   "Browse and run saved workflows",
	}

	var search, category string
	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			items, err := client.Workflows(cmd.Context(), search, category)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println(ui.Muted("no workflows found"))
				return nil
			}
			fmt.Println(renderWorkflows(items))
			return nil
		},
	}
	list.Flags().StringVarP(&search, "query", "q", "", "Match name or description")
	list.Flags().StringVar(&category, "category", workflow.CategoryAll, "Filter by category")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show catalog totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			stats, err := client.WorkflowStats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(renderStats(stats))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy a workflow as a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			wf, err := client.DuplicateWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("created %q %s", wf.Name, ui.Muted(wf.ID)))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "run <id>",
		Short: "Queue a run of a saved workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			wf, err := client.RunWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(ui.InfoMsg("queued %q", wf.Name))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved workflow",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			deleted, err := client.DeleteWorkflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Println(ui.Muted("no workflow " + args[0]))
				return nil
			}
			fmt.Println(ui.SuccessMsg("deleted %s", args[0]))
			return nil
		},
	})
	return cmd
}

func renderNodes(nodes []autoflow.Node) string {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			ui.Badge(dashboard.KindStyle(workflow.NodeKind(n.Kind))),
			n.Title,
			n.Description,
			ui.Muted(n.ID),
		}
	}
	return ui.Table([]string{"#", "Kind", "Title", "Description", "ID"}, rows)
}

func renderWorkflows(items []autoflow.Workflow) string {
	rows := make([][]string, len(items))
	for i, wf := range items {
		lastRun := "never"
		if wf.LastRun != nil {
			lastRun = wf.LastRun.Local().Format("2006-01-02 15:04")
		}
		rows[i] = []string{
			wf.ID,
			wf.Name,
			ui.Badge(dashboard.StatusStyle(workflow.Status(wf.Status))),
			ui.Badge(dashboard.WorkflowCategoryStyle(workflow.Category(wf.Category))),
			strconv.Itoa(len(wf.Nodes)),
			strconv.Itoa(wf.RunCount),
			lastRun,
		}
	}
	return ui.Table([]string{"ID", "Name", "Status", "Category", "Nodes", "Runs", "Last run"}, rows)
}

func renderStats(s autoflow.WorkflowStats) string {
	lastRun := "never"
	if s.LastRun != nil {
		lastRun = s.LastRun.Local().Format("2006-01-02 15:04")
	}
	pairs := []ui.Pair{
		ui.KV("Workflows", strconv.Itoa(s.Total)),
		ui.KV("Runs", strconv.Itoa(s.TotalRuns)),
		ui.KV("Steps", strconv.Itoa(s.TotalNodes)),
		ui.KV("Last run", lastRun),
	}
	for _, status := range workflow.Statuses() {
		pairs = append(pairs, ui.KV(ui.Badge(dashboard.StatusStyle(status)), strconv.Itoa(s.ByStatus[string(status)])))
	}
	return ui.KeyValues("", pairs...)
}
