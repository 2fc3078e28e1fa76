package mcp

import "github.com/mark3labs/mcp-go/mcp"

// invokeCapabilityTool defines the invoke_capability MCP tool.
var invokeCapabilityTool = mcp.NewTool("invoke_capability",
	mcp.WithDescription("Invoke a diagnostic capability for a conversation. Returns structured data with confidence and refinement metadata; degraded results come back as data, not errors."),
	mcp.WithString("conversation_id",
		mcp.Required(),
		mcp.Description("Conversation this call belongs to; established facts accumulate per conversation"),
	),
	mcp.WithString("capability",
		mcp.Required(),
		mcp.Description("Capability name, e.g. symptom.analyze or parts.price"),
	),
	mcp.WithString("args",
		mcp.Description("Capability arguments as a JSON object, e.g. {\"symptom\": \"squealing brakes\"}"),
	),
)

// listCapabilitiesTool defines the list_capabilities MCP tool.
var listCapabilitiesTool = mcp.NewTool("list_capabilities",
	mcp.WithDescription("List registered capabilities with their classification, confidence threshold, and refinement budget."),
)

// getSessionContextTool defines the get_session_context MCP tool.
var getSessionContextTool = mcp.NewTool("get_session_context",
	mcp.WithDescription("Get the established facts and vehicle identity for a conversation, including ruled-out causes."),
	mcp.WithString("conversation_id",
		mcp.Required(),
		mcp.Description("Conversation to inspect"),
	),
)

// invalidateCacheTool defines the invalidate_cache MCP tool.
var invalidateCacheTool = mcp.NewTool("invalidate_cache",
	mcp.WithDescription("Evict the cached outcome for a capability call, forcing the next invocation to fetch live data."),
	mcp.WithString("capability",
		mcp.Required(),
		mcp.Description("Capability name"),
	),
	mcp.WithString("args",
		mcp.Description("The exact arguments of the cached call as a JSON object"),
	),
)
