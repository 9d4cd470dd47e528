package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragindex/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question string `json:"question" jsonschema:"the natural-language question to match against indexed chunks"`
	K        int    `json:"k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput is one retrieved chunk with its citation details.
type ChunkOutput struct {
	ID             string         `json:"id"`
	SourceFilename string         `json:"source_filename"`
	Position       int            `json:"position"`
	Text           string         `json:"text"`
	Score          float64        `json:"score"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// EmptyInput is used by tools without arguments.
type EmptyInput struct{}

// StatusOutput is the output schema for index_status and the scanner tools.
type StatusOutput struct {
	Enabled        bool                 `json:"enabled"`
	State          string               `json:"state"`
	Scanning       bool                 `json:"scanning"`
	WatchDirectory string               `json:"watch_directory"`
	IntervalSecs   float64              `json:"interval_seconds"`
	ProcessedCount int                  `json:"processed_count"`
	LastScan       string               `json:"last_scan,omitempty"`
	LastResult     *ScanOutput          `json:"last_result,omitempty"`
	RecentFailures []domain.FileFailure `json:"recent_failures,omitempty"`
}

// ScanOutput is the output schema for force_scan.
type ScanOutput struct {
	ID            string               `json:"id"`
	Trigger       string               `json:"trigger"`
	DurationSecs  float64              `json:"duration_seconds"`
	FilesSeen     int                  `json:"files_seen"`
	Indexed       int                  `json:"indexed"`
	Skipped       int                  `json:"skipped"`
	Failed        int                  `json:"failed"`
	ChunksWritten int                  `json:"chunks_written"`
	Failures      []domain.FileFailure `json:"failures,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// StatsOutput is the output schema for collection_stats.
type StatsOutput struct {
	TotalDocuments int `json:"total_documents"`
	VectorSize     int `json:"vector_size"`
	TotalFiles     int `json:"total_files"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Retrieve the indexed document chunks most similar to a question",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_status",
		Description: "Show scanner state, processed file count and recent failures",
	}, s.handleIndexStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "force_scan",
		Description: "Scan the watch directory now and index new or changed files",
	}, s.handleForceScan)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "start_scanner",
		Description: "Start periodic scanning of the watch directory",
	}, s.handleStartScanner)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stop_scanner",
		Description: "Stop periodic scanning; an in-flight file finishes first",
	}, s.handleStopScanner)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "collection_stats",
		Description: "Show the number of stored chunk vectors and their size",
	}, s.handleCollectionStats)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	// The retrieval service applies the default k.
	chunks, err := s.ports.Retrieval.Retrieve(ctx, input.Question, input.K)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Chunks: make([]ChunkOutput, len(chunks)),
		Count:  len(chunks),
	}
	for i := range chunks {
		c := chunks[i].Chunk
		output.Chunks[i] = ChunkOutput{
			ID:             c.ID,
			SourceFilename: c.SourceFilename,
			Position:       c.Position,
			Text:           c.Text,
			Score:          chunks[i].Score,
			Metadata:       c.Metadata,
		}
	}

	return nil, output, nil
}

// handleIndexStatus handles the index_status tool invocation.
func (s *Server) handleIndexStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Scheduler == nil {
		return nil, StatusOutput{}, ErrSchedulerUnavailable
	}
	return nil, toStatusOutput(s.ports.Scheduler.Status(ctx)), nil
}

// handleForceScan handles the force_scan tool invocation.
func (s *Server) handleForceScan(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, ScanOutput, error) {
	if s.ports.Scheduler == nil {
		return nil, ScanOutput{}, ErrSchedulerUnavailable
	}

	result, err := s.ports.Scheduler.ForceScan(ctx)
	if err != nil {
		return nil, ScanOutput{}, err
	}
	return nil, toScanOutput(result), nil
}

// handleStartScanner handles the start_scanner tool invocation.
// The loop outlives the request, so it does not inherit its cancellation.
func (s *Server) handleStartScanner(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Scheduler == nil {
		return nil, StatusOutput{}, ErrSchedulerUnavailable
	}

	if err := s.ports.Scheduler.Start(context.WithoutCancel(ctx)); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, toStatusOutput(s.ports.Scheduler.Status(ctx)), nil
}

// handleStopScanner handles the stop_scanner tool invocation.
func (s *Server) handleStopScanner(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	if s.ports.Scheduler == nil {
		return nil, StatusOutput{}, ErrSchedulerUnavailable
	}

	if err := s.ports.Scheduler.Stop(); err != nil {
		return nil, StatusOutput{}, err
	}
	return nil, toStatusOutput(s.ports.Scheduler.Status(ctx)), nil
}

// handleCollectionStats handles the collection_stats tool invocation.
func (s *Server) handleCollectionStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	if s.ports.Index == nil {
		return nil, StatsOutput{}, ErrIndexUnavailable
	}

	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{
		TotalDocuments: stats.TotalDocuments,
		VectorSize:     stats.VectorSize,
		TotalFiles:     stats.TotalFiles,
	}, nil
}

func toStatusOutput(status domain.ScanStatus) StatusOutput {
	out := StatusOutput{
		Enabled:        status.Enabled,
		State:          string(status.State),
		Scanning:       status.Scanning,
		WatchDirectory: status.WatchDirectory,
		IntervalSecs:   status.Interval.Seconds(),
		ProcessedCount: status.ProcessedCount,
		RecentFailures: status.RecentFailures,
	}
	if !status.LastScan.IsZero() {
		out.LastScan = status.LastScan.UTC().Format(time.RFC3339)
	}
	if status.LastResult != nil {
		last := toScanOutput(status.LastResult)
		out.LastResult = &last
	}
	return out
}

func toScanOutput(r *domain.ScanResult) ScanOutput {
	return ScanOutput{
		ID:            r.ID,
		Trigger:       string(r.Trigger),
		DurationSecs:  r.Duration().Seconds(),
		FilesSeen:     r.FilesSeen,
		Indexed:       r.Indexed,
		Skipped:       r.Skipped,
		Failed:        r.Failed,
		ChunksWritten: r.ChunksWritten,
		Failures:      r.Failures,
		Error:         r.Error,
	}
}
