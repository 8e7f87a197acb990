package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"AutoFlow-Agent/cmd/autoflowctl/ui"
	"AutoFlow-Agent/sdk/go/autoflow"
)

const defaultServer = "http://127.0.0.1:8080"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.ErrorMsg("%v", err))
		os.Exit(1)
	}
}

type globals struct {
	server  string
	timeout time.Duration
}

func (g *globals) client() (*autoflow.Client, error) {
	return autoflow.NewClient(g.server, &http.Client{Timeout: g.timeout})
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:           "autoflowctl",
		Short:         "Drive the AutoFlow agent console and workflows",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	server := os.Getenv("AUTOFLOW_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().StringVar(&g.server, "server", server, "AutoFlow API base URL")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", autoflow.DefaultHTTPTimeout, "Request timeout")

	root.AddCommand(consoleCmd(g))
	root.AddCommand(builderCmd(g))
	root.AddCommand(workflowsCmd(g))
	root.AddCommand(dashboardCmd(g))
	return root
}
