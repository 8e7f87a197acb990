package main

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"
	"time"

	"AutoFlow-Agent/internal/api"
	"AutoFlow-Agent/internal/console"
	"AutoFlow-Agent/internal/dashboard"
	"AutoFlow-Agent/internal/workflow"
	"AutoFlow-Agent/sdk/go/autoflow"
)

func main() {
	ctx := context.Background()

	entries := console.NewLog()
	entries.Seed(console.BootSteps())
	runner := console.NewRunner(entries, console.WithStepDelay(50*time.Millisecond, 100*time.Millisecond))
	builder := workflow.NewBuilder(workflow.WithSlot(workflow.NewMemorySlot()))
	catalog, err := workflow.NewCatalog(ctx)
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	srv := api.NewServer("", api.Dependencies{
		Runner:    runner,
		Builder:   builder,
		Catalog:   catalog,
		Dashboard: dashboard.NewState(),
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client, err := autoflow.NewClient(ts.URL, ts.Client())
	if err != nil {
		log.Fatalf("client: %v", err)
	}

	if _, err := client.StartRun(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	if err := runner.Wait(ctx); err != nil {
		log.Fatalf("wait: %v", err)
	}
	view, err := client.Console(ctx)
	if err != nil {
		log.Fatalf("console: %v", err)
	}
	fmt.Printf("run %s: %d/%d steps\n", view.RunStatus, view.State.Stats.CompletedSteps, view.State.Stats.TotalSteps)
	for _, e := range view.Entries {
		fmt.Printf("  [%s] %-7s %s\n", e.Timestamp, e.Category, e.Message)
	}

	if _, err := client.AddNode(ctx, "action", "Navigate"); err != nil {
		log.Fatalf("add node: %v", err)
	}
	draft, err := client.SaveDraft(ctx, "SDK demo")
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("saved %q with %d nodes\n", draft.Name, len(draft.Nodes))

	export, err := client.ExportLogs(ctx)
	if err != nil {
		log.Fatalf("export: %v", err)
	}
	fmt.Printf("exported %d bytes as %s\n", len(export.Data), export.Filename)
}
