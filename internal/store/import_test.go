package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Beta-dev64/customsurvey/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "customsurvey.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestImportRecords_UnknownReportType(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.ImportRecords(context.Background(), model.ImportRequest{ReportType: "nonsense"})
	if err == nil {
		t.Fatalf("unknown report type must be rejected")
	}
}

func TestImportRecords_OutletUpsert(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.ImportRecords(ctx, model.ImportRequest{
		SheetName:  "Outlets",
		ReportType: "outlet",
		Records: []model.Record{
			{"URN": "DCP/001", "Retail Point Name": "Mama Nkechi Stores", "State": "Lagos", "LGA": "Ikeja"},
			{"URN": "DCP/002", "Retail Point Name": "Beta Kiosk"},
			{"Retail Point Name": "No URN Here"},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if *res.Total != 3 || *res.Imported != 2 || *res.Updated != 0 || *res.Errors != 1 {
		t.Fatalf("counts mismatch: %+v", res)
	}
	if len(res.Details) != 1 {
		t.Fatalf("expected one detail line for the missing URN, got %v", res.Details)
	}

	// 再次导入相同 URN 走更新路径
	res, err = s.ImportRecords(ctx, model.ImportRequest{
		SheetName:  "Outlets",
		ReportType: "outlet",
		Records: []model.Record{
			{"URN": "DCP/001", "Retail Point Name": "Mama Nkechi Stores (Renamed)", "State": "Lagos"},
		},
	})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if *res.Imported != 0 || *res.Updated != 1 {
		t.Fatalf("upsert counts mismatch: %+v", res)
	}

	var name string
	if err := s.DB().QueryRow(`SELECT outlet_name FROM outlets WHERE urn = ?`, "DCP/001").Scan(&name); err != nil {
		t.Fatalf("query: %v", err)
	}
	if name != "Mama Nkechi Stores (Renamed)" {
		t.Fatalf("update not applied: %q", name)
	}
}

func TestImportRecords_AgentUpsert(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.ImportRecords(ctx, model.ImportRequest{
		SheetName:  "Agents",
		ReportType: "agent",
		Records: []model.Record{
			{"Username": "abello", "Name": "Ade Bello", "Role": "supervisor"},
			{"Username": "abello", "Name": "Ade Bello", "Role": "agent"},
			{"Name": "No Username"},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if *res.Imported != 1 || *res.Updated != 1 || *res.Errors != 1 {
		t.Fatalf("counts mismatch: %+v", res)
	}

	var role string
	if err := s.DB().QueryRow(`SELECT role FROM agents WHERE username = ?`, "abello").Scan(&role); err != nil {
		t.Fatalf("query: %v", err)
	}
	if role != "agent" {
		t.Fatalf("second row must win the upsert: %q", role)
	}
}

func TestImportRecords_ExecutionSkipsUnknownOutlet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.ImportRecords(ctx, model.ImportRequest{
		ReportType: "outlet",
		Records: []model.Record{
			{"URN": "DCP/001", "Retail Point Name": "Mama Nkechi Stores"},
		},
	}); err != nil {
		t.Fatalf("seed outlet: %v", err)
	}

	res, err := s.ImportRecords(ctx, model.ImportRequest{
		SheetName:  "Executions",
		ReportType: "execution",
		Records: []model.Record{
			{"URN": "DCP/001", "Date": "2025-07-01", "Status": "Completed", "Chair": "true", "Table": "yes"},
			{"URN": "DCP/404", "Date": "2025-07-01"},
			{"Date": "2025-07-01"},
		},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if *res.Imported != 1 || *res.Skipped != 1 || *res.Errors != 1 {
		t.Fatalf("counts mismatch: %+v", res)
	}

	// 同一 (outlet, date) 再次导入走更新路径
	res, err = s.ImportRecords(ctx, model.ImportRequest{
		ReportType: "execution",
		Records: []model.Record{
			{"URN": "DCP/001", "Date": "2025-07-01", "Status": "Pending"},
		},
	})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if *res.Updated != 1 {
		t.Fatalf("duplicate execution must update: %+v", res)
	}

	var status string
	if err := s.DB().QueryRow(`SELECT status FROM executions`).Scan(&status); err != nil {
		t.Fatalf("query: %v", err)
	}
	if status != "Pending" {
		t.Fatalf("update not applied: %q", status)
	}
}
