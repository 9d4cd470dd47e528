package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for ragindex resources.
	uriScheme = "ragindex://"

	// historyLimit caps the scan history resource.
	historyLimit = 20
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Scanner state and recent failures",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "history",
		Name:        "history",
		Description: "Most recent scan cycles",
		MIMEType:    "application/json",
	}, s.handleHistoryResource)
}

// handleStatusResource returns the scheduler status as JSON.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Scheduler == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	return jsonResource(req.Params.URI, toStatusOutput(s.ports.Scheduler.Status(ctx)))
}

// handleHistoryResource returns recent scan results, most recent first.
func (s *Server) handleHistoryResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Scheduler == nil {
		return jsonResource(req.Params.URI, []ScanOutput{})
	}

	history, err := s.ports.Scheduler.History(ctx, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("reading scan history: %w", err)
	}

	scans := make([]ScanOutput, len(history))
	for i := range history {
		scans[i] = toScanOutput(&history[i])
	}
	return jsonResource(req.Params.URI, scans)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
