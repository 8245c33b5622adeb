package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("Mapty", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Mapty workout tracker. Log running and cycling workouts at a map location and read back the workouts recorded in the current session. Workouts are not kept once the session ends."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolLogWorkout, Handler: h.logWorkout},
		server.ServerTool{Tool: toolSetPosition, Handler: h.setPosition},
	)

	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workouts},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

var resWorkouts = mcp.NewResource(
	"mapty://workouts",
	"Session Workouts",
	mcp.WithResourceDescription("All workouts recorded in the current session, oldest first"),
	mcp.WithMIMEType("application/json"),
)
