package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/kieview/internal/export"
	"github.com/kalambet/kieview/internal/mock"
	"github.com/kalambet/kieview/internal/model"
	"github.com/kalambet/kieview/internal/store"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *store.Store
}

// NewMCPServer creates an MCP server exposing the batch collection to
// agent clients: list/inspect/create/delete batches and export results.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"kieview",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("kieview — local document extraction batches: create, inspect, and export key information extraction results."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_batches",
			mcp.WithDescription("List all document batches with their processing statistics."),
		),
		mcpListBatches(deps),
	)

	s.AddTool(
		mcp.NewTool("get_batch",
			mcp.WithDescription("Get a batch with its full document list and extraction results."),
			mcp.WithString("batch_id", mcp.Description("Batch id"), mcp.Required()),
		),
		mcpGetBatch(deps),
	)

	s.AddTool(
		mcp.NewTool("create_batch",
			mcp.WithDescription("Create a new batch of documents and run extraction over them."),
			mcp.WithString("name", mcp.Description("Batch name (max 100 characters)"), mcp.Required()),
			mcp.WithString("document_type", mcp.Description("Document type, e.g. Passport, Invoice, Receipt"), mcp.Required()),
			mcp.WithString("model", mcp.Description("Extraction model: flagship or local (default flagship)")),
			mcp.WithNumber("document_count", mcp.Description("Number of documents to generate (default 10)")),
		),
		mcpCreateBatch(deps),
	)

	s.AddTool(
		mcp.NewTool("delete_batch",
			mcp.WithDescription("Delete a batch and all of its documents."),
			mcp.WithString("batch_id", mcp.Description("Batch id"), mcp.Required()),
		),
		mcpDeleteBatch(deps),
	)

	s.AddTool(
		mcp.NewTool("export_batch",
			mcp.WithDescription("Export a batch's completed extraction results as CSV text."),
			mcp.WithString("batch_id", mcp.Description("Batch id"), mcp.Required()),
		),
		mcpExportBatch(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"kie://batches",
			"Document Batches",
			mcp.WithResourceDescription("All batches with statistics as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceBatches(deps),
	)

	return s
}

func mcpListBatches(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(batchSummaries(deps.Store.Batches()))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal batches: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

type batchSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	DocumentType string `json:"documentType"`
	Total        int    `json:"total"`
	Completed    int    `json:"completed"`
	Processing   int    `json:"processing"`
}

func batchSummaries(batches []model.Batch) []batchSummary {
	out := make([]batchSummary, len(batches))
	for i, b := range batches {
		stats := b.Stats()
		out[i] = batchSummary{
			ID:           b.ID,
			Name:         b.Name,
			Type:         string(b.Type),
			DocumentType: b.DocumentType,
			Total:        stats.Total,
			Completed:    stats.Completed,
			Processing:   stats.Processing,
		}
	}
	return out
}

func mcpGetBatch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("batch_id")
		if err != nil {
			return mcpError("batch_id is required"), nil
		}

		batch, err := deps.Store.Batch(id)
		if errors.Is(err, store.ErrNotFound) {
			return mcpError(fmt.Sprintf("batch %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get batch: %v", err)), nil
		}

		b, err := json.Marshal(batch)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal batch: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpCreateBatch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}
		docType, err := req.RequireString("document_type")
		if err != nil {
			return mcpError("document_type is required"), nil
		}

		extractionModel := model.ModelFlagship
		if m := req.GetString("model", ""); m != "" {
			extractionModel = model.ExtractionModel(m)
		}

		draft := model.Batch{
			Name:         name,
			Type:         model.BatchPretrained,
			DocumentType: docType,
			Model:        extractionModel,
		}
		if err := model.Validate(draft); err != nil {
			return mcpError(err.Error()), nil
		}

		count := req.GetInt("document_count", 10)
		if count <= 0 {
			count = 10
		}
		draft.Documents = mock.Documents(mock.ConfigFor(draft), count, 0, timeNow(), "")

		batch, err := deps.Store.AddBatch(draft)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to create batch: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Created batch %s with %d documents", batch.ID, len(batch.Documents))), nil
	}
}

func mcpDeleteBatch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("batch_id")
		if err != nil {
			return mcpError("batch_id is required"), nil
		}

		if _, err := deps.Store.Batch(id); errors.Is(err, store.ErrNotFound) {
			return mcpError(fmt.Sprintf("batch %s not found", id)), nil
		}
		if err := deps.Store.DeleteBatch(id); err != nil {
			return mcpError(fmt.Sprintf("failed to delete batch: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Deleted batch %s", id)), nil
	}
}

func mcpExportBatch(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("batch_id")
		if err != nil {
			return mcpError("batch_id is required"), nil
		}

		batch, err := deps.Store.Batch(id)
		if errors.Is(err, store.ErrNotFound) {
			return mcpError(fmt.Sprintf("batch %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get batch: %v", err)), nil
		}

		var buf strings.Builder
		if err := export.CSV(&buf, batch); err != nil {
			if errors.Is(err, export.ErrNoData) {
				return mcpError("no completed documents to export"), nil
			}
			return mcpError(fmt.Sprintf("export failed: %v", err)), nil
		}
		return mcpText(buf.String()), nil
	}
}

func mcpResourceBatches(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(batchSummaries(deps.Store.Batches()))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal batches: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
