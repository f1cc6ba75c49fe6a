package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/reconcile"
	"github.com/starford/raido/internal/storage"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/testutil"
)

func testServer(t *testing.T) (*Server, *store.SQLite, string) {
	t.Helper()

	st := testutil.TestStore(t)
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	engine := reconcile.NewEngine(st, files, nil, reconcile.Options{ConflictWindow: time.Minute}, nil)
	return New(engine, files), st, dir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so the
	// handler functions are called directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "sync_backups":
		result, err = srv.syncBackups(ctx, req)
	case "export_documents":
		result, err = srv.exportDocuments(ctx, req)
	case "read_backup":
		result, err = srv.readBackup(ctx, req)
	case "list_backups":
		result, err = srv.listBackups(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestSyncBackupsTool(t *testing.T) {
	srv, st, dir := testServer(t)
	doc, err := st.Create(context.Background(), &models.Draft{OwnerID: 2, Title: "Plan", Content: "old"})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "2024-03-01_Plan.md")
	if err := os.WriteFile(path, []byte("---\ntitle: Plan\n---\nnew body\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := doc.UpdatedAt.Add(5 * time.Minute)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "sync_backups", map[string]interface{}{"user_id": 2})
	if r.IsError {
		t.Fatalf("sync errored: %s", resultText(r))
	}
	var report reconcile.Report
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatalf("report not JSON: %v", err)
	}
	if report.Updated != 1 || report.Errors != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestSyncBackupsTool_RequiresUserID(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "sync_backups", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error without user_id")
	}
}

func TestSyncBackupsTool_DryRun(t *testing.T) {
	srv, st, dir := testServer(t)
	if err := os.WriteFile(filepath.Join(dir, "2024-03-01_New.md"), []byte("fresh body\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "sync_backups", map[string]interface{}{"user_id": 2, "dry_run": true})
	var report reconcile.Report
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatal(err)
	}
	if !report.DryRun || report.Created != 1 {
		t.Errorf("report = %+v", report)
	}
	// Nothing was written.
	if _, err := st.GetByID(context.Background(), 1); err == nil {
		t.Error("dry run created a document")
	}
}

func TestExportDocumentsTool(t *testing.T) {
	srv, st, dir := testServer(t)
	if _, err := st.Create(context.Background(), &models.Draft{OwnerID: 2, Title: "One", Content: "a"}); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "export_documents", map[string]interface{}{"user_id": 2})
	var report reconcile.ExportReport
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatal(err)
	}
	if report.Exported != 1 {
		t.Errorf("exported = %d, want 1", report.Exported)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("backup dir has %d files", len(entries))
	}
}

func TestReadBackupTool(t *testing.T) {
	srv, _, dir := testServer(t)
	if err := os.WriteFile(filepath.Join(dir, "2024-03-01_Note.md"), []byte("note body\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "read_backup", map[string]interface{}{"path": "2024-03-01_Note.md"})
	if resultText(r) != "note body\n" {
		t.Errorf("read result = %q", resultText(r))
	}
}

func TestReadBackupTool_Missing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_backup", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing backup")
	}
}

func TestListBackupsTool(t *testing.T) {
	srv, _, dir := testServer(t)
	for _, name := range []string{"2024-03-01_A.md", "2024-03-01_B.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	r := callTool(t, srv, "list_backups", map[string]interface{}{})
	lines := strings.Split(strings.TrimSpace(resultText(r)), "\n")
	if len(lines) != 2 {
		t.Errorf("listed %d files, want 2: %q", len(lines), resultText(r))
	}
}

func TestBackupFormatContract(t *testing.T) {
	if !strings.Contains(BackupFormatContract, "Document Backup") {
		t.Error("contract missing header marker")
	}
	if !strings.Contains(BackupFormatContract, "YYYYMMDD") {
		t.Error("contract missing filename pattern description")
	}
}
