package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/carwise/gearbox/internal/capability"
	"github.com/carwise/gearbox/internal/session"
	"github.com/carwise/gearbox/internal/synth"
)

// handleInvokeCapability executes a capability and returns the synthesized
// result as JSON text.
func (s *Server) handleInvokeCapability(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: conversation_id"), nil
	}
	name, err := request.RequireString("capability")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: capability"), nil
	}

	args, err := parseArgs(request.GetString("args", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid args: %v", err)), nil
	}

	res, err := s.orch.Invoke(ctx, conversationID, name, args)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invoke failed: %v", err)), nil
	}

	return mcp.NewToolResultText(formatResult(res)), nil
}

// handleListCapabilities returns the registered capability descriptors.
func (s *Server) handleListCapabilities(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	descs := s.orch.Registry().List()
	if len(descs) == 0 {
		return mcp.NewToolResultText("No capabilities registered."), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d capabilities:\n", len(descs))
	for _, d := range descs {
		fmt.Fprintf(&sb, "\n- %s (%s)\n", d.Name, d.Classification)
		fmt.Fprintf(&sb, "  confidence threshold: %d, refinement attempts: %d, cacheable: %t\n",
			d.Threshold(), d.MaxAttempts(), d.Cacheable)
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetSessionContext returns the conversation's established facts.
func (s *Server) handleGetSessionContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationID, err := request.RequireString("conversation_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: conversation_id"), nil
	}

	sc, err := s.orch.Sessions().Load(ctx, conversationID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading session: %v", err)), nil
	}

	return mcp.NewToolResultText(formatContext(sc)), nil
}

// handleInvalidateCache evicts a cached capability outcome.
func (s *Server) handleInvalidateCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("capability")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: capability"), nil
	}
	args, err := parseArgs(request.GetString("args", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid args: %v", err)), nil
	}

	s.orch.Invalidate(name, args)
	return mcp.NewToolResultText(fmt.Sprintf("Cache entry for %s invalidated.", name)), nil
}

func parseArgs(raw string) (capability.Args, error) {
	if strings.TrimSpace(raw) == "" {
		return capability.Args{}, nil
	}
	var args capability.Args
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, err
	}
	return args, nil
}

// formatResult renders the result as indented JSON; MCP clients pass it to
// a model, which handles JSON well.
func formatResult(res *synth.Result) string {
	encoded, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Sprintf("encoding result: %v", err)
	}
	return string(encoded)
}

func formatContext(sc *session.Context) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Conversation %s\n", sc.ConversationID)

	if sc.Vehicle != nil {
		fmt.Fprintf(&sb, "Vehicle: %s %s", sc.Vehicle.Make, sc.Vehicle.Model)
		if sc.Vehicle.Year != 0 {
			fmt.Fprintf(&sb, " (%d)", sc.Vehicle.Year)
		}
		sb.WriteString("\n")
	}

	active := sc.Active()
	if len(active) == 0 {
		sb.WriteString("No established facts.\n")
	} else {
		fmt.Fprintf(&sb, "%d established fact(s):\n", len(active))
		for _, f := range active {
			fmt.Fprintf(&sb, "- [%s] %s: %s (confidence %d)\n", f.Type, f.Topic, f.Value, f.Confidence)
		}
	}

	var ruledOut []session.Fact
	for _, f := range sc.Facts {
		if f.RuledOut {
			ruledOut = append(ruledOut, f)
		}
	}
	if len(ruledOut) > 0 {
		fmt.Fprintf(&sb, "%d ruled-out fact(s):\n", len(ruledOut))
		for _, f := range ruledOut {
			fmt.Fprintf(&sb, "- %s (ruled out by %s)\n", f.Value, f.RuledOutBy)
		}
	}

	return sb.String()
}
