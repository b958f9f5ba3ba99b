// Package mcptools exposes the farmops core as MCP tools over HTTP.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// NewFarmOpsMCPServer creates an MCP server with all farm operation tools
// registered. The version comes from the binary's main package so there is
// a single linker target for it.
func NewFarmOpsMCPServer(svc *FarmService, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "farmops",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_category",
		Description: "Add a new work category to the end of the pipeline ordering.",
	}, svc.AddCategory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_next_category",
		Description: "Set or clear a category's successor link. Links that would close a cycle are rejected.",
	}, svc.SetNextCategory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remove_category",
		Description: "Delete a work category. Refused while any stored job still carries a schedule for it.",
	}, svc.RemoveCategory)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pipeline",
		Description: "List the configured category chains, plus a Mermaid diagram of the pipeline.",
	}, svc.ListPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_job",
		Description: "Create a job for a farmer and field, auto-populating one schedule per category in the chain starting at the given entry category.",
	}, svc.CreateJob)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "advance_stage",
		Description: "Move a category schedule to its next stage or cancel it. Completion captures the settlement amount. Moving into in_progress without an assigned worker returns the eligible candidates instead of applying.",
	}, svc.AdvanceStage)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "assign_worker",
		Description: "Assign a worker to a category schedule, snapshotting the worker's name. A schedule in preparing advances to in_progress on assignment.",
	}, svc.AssignWorker)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "register_settlement",
		Description: "Register an additional settlement amount against one of a job's categories. Zero amounts are rejected.",
	}, svc.RegisterSettlement)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_progress",
		Description: "Report a job's completion over its resolved category chain, counting in-progress schedules as half done.",
	}, svc.JobProgress)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_jobs",
		Description: "List job summaries, optionally filtered by farmer or payment status, with pagination.",
	}, svc.ListJobs)

	return server
}

// RunMCPServer starts an HTTP server exposing the farm operation MCP tools.
func RunMCPServer(ctx context.Context, svc *FarmService, addr, version string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	server := NewFarmOpsMCPServer(svc, version)

	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	log.Info("mcp server listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
