package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// registerTools registers the wizard tools with the MCP server.
func (s *Server) registerTools() {
	flowArg := mcp.WithString("flow", mcp.Required(),
		mcp.Description("Wizard key, see wizard-list"),
		mcp.Enum(s.flows.Keys()...),
	)
	ownerArg := mcp.WithString("owner", mcp.Required(),
		mcp.Description("Whose record to work on, e.g. the user's email"),
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-list",
			mcp.WithDescription("List the wizards with their steps and fields"),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-state",
			mcp.WithDescription("Show the step a wizard resumes at, the record so far and the keys still missing"),
			flowArg, ownerArg,
		),
		s.handleState,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-next",
			mcp.WithDescription("Fill in one step and move to the next. On the confirm step this submits."),
			flowArg, ownerArg,
			mcp.WithString("step", mcp.Required(), mcp.Description("Route of the step being filled in")),
			mcp.WithObject("fields",
				mcp.Description(`Field values by key. A location is {"lat": 46.05, "lng": 14.5}.`),
				mcp.AdditionalProperties(true),
			),
		),
		s.handleNext,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-back",
			mcp.WithDescription("Go back one step without changing the record"),
			flowArg, ownerArg,
			mcp.WithString("step", mcp.Required(), mcp.Description("Route of the current step")),
		),
		s.handleBack,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-submit",
			mcp.WithDescription("Submit a completed wizard"),
			flowArg, ownerArg,
		),
		s.handleSubmit,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-reset",
			mcp.WithDescription("Discard the record of a wizard and start over"),
			flowArg, ownerArg,
		),
		s.handleReset,
	)
}
