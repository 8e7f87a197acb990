package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"AutoFlow-Agent/cmd/autoflowctl/ui"
	"AutoFlow-Agent/internal/dashboard"
	"AutoFlow-Agent/sdk/go/autoflow"
)

func dashboardCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Inspect or change the dashboard page and theme",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the active section and theme",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			d, err := client.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(renderDashboard(d))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "goto <section>",
		Short:     "Switch the active section",
		Args:      cobra.ExactArgs(1),
		ValidArgs: sectionNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			d, err := client.Navigate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("now on %s", d.Label))
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:       "theme [dark|light]",
		Short:     "Switch the colour theme; without an argument the theme is toggled",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(dashboard.ThemeDark), string(dashboard.ThemeLight)},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := g.client()
			if err != nil {
				return err
			}
			var d autoflow.Dashboard
			if len(args) == 0 {
				d, err = client.ToggleTheme(cmd.Context())
			} else {
				d, err = client.SetTheme(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("theme %s", d.Theme))
			return nil
		},
	})
	return cmd
}

func sectionNames() []string {
	sections := dashboard.Sections()
	out := make([]string, len(sections))
	for i, s := range sections {
		out[i] = string(s)
	}
	return out
}

func renderDashboard(d autoflow.Dashboard) string {
	return ui.KeyValues("",
		ui.KV("Section", ui.Accent(d.Label)),
		ui.KV("Theme", d.Theme),
		ui.KV("Version", fmt.Sprint(d.Version)),
	)
}
