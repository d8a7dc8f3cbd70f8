package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register adds every board tool, resource and prompt to server.
func Register(server *mcp.Server, h *BoardHandlers) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_pipelines",
		Description: "List pipelines with their ordered stages",
	}, h.ListPipelines)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_pipeline",
		Description: "Show another pipeline on the board, by id or name",
	}, h.SelectPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_board",
		Description: "Show the selected pipeline as columns of deals, honouring active filters",
	}, h.ListBoard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "filter_deals",
		Description: "Filter the board by search text, company, contact status or tag; empty input clears filters",
	}, h.FilterDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a deal for a contact in the selected pipeline's first stage",
	}, h.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update a deal's title, value, currency, priority and optionally its stage",
	}, h.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "move_deal",
		Description: "Move a deal to another stage; the board rolls back if the server rejects it",
	}, h.MoveDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal; requires confirm=true",
	}, h.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "enroll_deal",
		Description: "Enroll a deal's contact in an email sequence and advance the deal one stage",
	}, h.EnrollDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "send_email",
		Description: "Email a deal's contact from the account they last corresponded with",
	}, h.SendEmail)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a follow-up task linked to a deal",
	}, h.CreateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_task",
		Description: "Change a follow-up task's status and report whether it is overdue",
	}, h.UpdateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pipeline_graph",
		Description: "Graphviz source and stage summary for the selected pipeline",
	}, h.PipelineGraph)

	server.AddResource(&mcp.Resource{
		URI:         BoardURI,
		Name:        "board",
		Description: "The selected pipeline's board as JSON",
		MIMEType:    "application/json",
	}, h.ReadResource)

	server.AddResource(&mcp.Resource{
		URI:         PipelinesURI,
		Name:        "pipelines",
		Description: "All pipelines and their stages as JSON",
		MIMEType:    "application/json",
	}, h.ReadResource)

	server.AddPrompt(&mcp.Prompt{
		Name:        "deal-review",
		Description: "Review one deal and suggest the next step",
		Arguments: []*mcp.PromptArgument{
			{Name: "deal_id", Description: "UUID of the deal", Required: true},
		},
	}, h.GetPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "pipeline-health",
		Description: "Summarise where the selected pipeline is stuck",
	}, h.GetPrompt)
}
