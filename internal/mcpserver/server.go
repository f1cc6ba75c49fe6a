// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Raido's sync and export operations via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/raido/internal/reconcile"
	"github.com/starford/raido/internal/storage"
)

// Server wraps the MCP server with Raido tools.
type Server struct {
	mcp    *server.MCPServer
	engine *reconcile.Engine
	files  storage.Provider
}

// New creates a new MCP server with all Raido tools registered.
func New(engine *reconcile.Engine, files storage.Provider) *Server {
	s := &Server{engine: engine, files: files}

	s.mcp = server.NewMCPServer(
		"Raido",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("sync_backups",
		mcp.WithDescription("Run a full reconciliation sweep of the backup directory against "+
			"the document store. With dry_run=true no database or file writes happen; the "+
			"report shows what would be done."),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("Acting user id; required for any mutation")),
		mcp.WithBoolean("dry_run", mcp.Description("Classify only, perform no writes")),
	), s.syncBackups)

	s.mcp.AddTool(mcp.NewTool("export_documents",
		mcp.WithDescription("Export every visible document to the backup directory, skipping "+
			"documents that already have a same-named or content-identical backup file. "+
			"Idempotent: a second run produces zero new files."),
		mcp.WithNumber("user_id", mcp.Required(), mcp.Description("Acting user id")),
	), s.exportDocuments)

	s.mcp.AddTool(mcp.NewTool("read_backup",
		mcp.WithDescription("Read the raw content of a backup file. Files follow the backup "+
			"format contract (see the raido://backup-format resource)."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the backup root (e.g. 20240115_Notes_1a2b3c4d.md)")),
	), s.readBackup)

	s.mcp.AddTool(mcp.NewTool("list_backups",
		mcp.WithDescription("List all backup files, or those in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listBackups)

	// Resource: backup format contract.
	s.mcp.AddResource(
		mcp.NewResource("raido://backup-format", "Backup Format Contract",
			mcp.WithResourceDescription("Canonical backup file format: header block and filename patterns."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBackupFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) syncBackups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	dryRun := false
	if v, bErr := req.RequireBool("dry_run"); bErr == nil {
		dryRun = v
	}
	report := s.engine.Sweep(ctx, int64(userID), dryRun)
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) exportDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireInt("user_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report := s.engine.ExportAll(ctx, int64(userID))
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.files.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listBackups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.files.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readBackupFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "raido://backup-format",
			MIMEType: "text/markdown",
			Text:     BackupFormatContract,
		},
	}, nil
}
