package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/Beta-dev64/customsurvey/internal/ingest"
	"github.com/Beta-dev64/customsurvey/internal/model"
)

type stubStore struct {
	result  *model.ImportResult
	lastReq model.ImportRequest
}

func (s *stubStore) ImportRecords(_ context.Context, req model.ImportRequest) (*model.ImportResult, error) {
	s.lastReq = req
	return s.result, nil
}

func newTestRouter(store ingest.RecordStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(store, ingest.DefaultOptions())
	handler.RegisterRoutes(router.Group("/api"))
	return router
}

func agentWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", "Agents"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]interface{}{
		{"Name", "Username", "Role"},
		{"Ade Bello", "abello", "supervisor"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Agents", cell, &row); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return buf.Bytes()
}

func uploadFile(t *testing.T, router *gin.Engine, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestUpload_RejectsWrongExtension(t *testing.T) {
	router := newTestRouter(&stubStore{})

	w := uploadFile(t, router, "data.csv", []byte("a,b,c"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status mismatch: got=%d want=400 body=%s", w.Code, w.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("rejection must carry a user-visible message")
	}
}

func TestUpload_RejectsUndecodableContent(t *testing.T) {
	router := newTestRouter(&stubStore{})

	w := uploadFile(t, router, "broken.xlsx", []byte("definitely not a workbook"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status mismatch: got=%d want=400 body=%s", w.Code, w.Body.String())
	}
}

func TestUpload_FailureLeavesNoSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(&stubStore{}, ingest.DefaultOptions())
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api"))

	if w := uploadFile(t, router, "broken.xlsx", []byte("not a workbook")); w.Code != http.StatusBadRequest {
		t.Fatalf("status mismatch: got=%d want=400 body=%s", w.Code, w.Body.String())
	}

	// 会话只在解析成功后登记，失败的上传不能留下孤儿会话
	handler.mu.RLock()
	n := len(handler.sessions)
	handler.mu.RUnlock()
	if n != 0 {
		t.Fatalf("failed upload must not register a session, registry has %d", n)
	}
}

func TestUploadSelectImportFlow(t *testing.T) {
	store := &stubStore{result: &model.ImportResult{
		Message:  "Agent import processed successfully.",
		Total:    model.Count(1),
		Imported: model.Count(1),
	}}
	router := newTestRouter(store)

	// 上传
	w := uploadFile(t, router, "agents.xlsx", agentWorkbook(t))
	if w.Code != http.StatusOK {
		t.Fatalf("upload status mismatch: got=%d body=%s", w.Code, w.Body.String())
	}
	var uploadResp struct {
		SessionID string   `json:"sessionId"`
		Sheets    []string `json:"sheets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &uploadResp); err != nil {
		t.Fatalf("unmarshal upload: %v", err)
	}
	if uploadResp.SessionID == "" || len(uploadResp.Sheets) != 1 {
		t.Fatalf("upload response mismatch: %+v", uploadResp)
	}

	base := "/api/sessions/" + uploadResp.SessionID

	// 选表
	w = postJSON(t, router, base+"/select", map[string]string{"sheet": "Agents"})
	if w.Code != http.StatusOK {
		t.Fatalf("select status mismatch: got=%d body=%s", w.Code, w.Body.String())
	}
	var selectResp struct {
		ReportType string `json:"reportType"`
		Preview    struct {
			TotalRows int `json:"totalRows"`
		} `json:"preview"`
		Issues []ingest.Issue `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &selectResp); err != nil {
		t.Fatalf("unmarshal select: %v", err)
	}
	if selectResp.ReportType != "agent" || selectResp.Preview.TotalRows != 1 {
		t.Fatalf("select response mismatch: %+v", selectResp)
	}
	if len(selectResp.Issues) != 0 {
		t.Fatalf("clean sheet must have no issues: %v", selectResp.Issues)
	}

	// 导入
	w = postJSON(t, router, base+"/import", map[string]bool{"confirm": false})
	if w.Code != http.StatusOK {
		t.Fatalf("import status mismatch: got=%d body=%s", w.Code, w.Body.String())
	}
	var importResp struct {
		State   string   `json:"state"`
		Summary []string `json:"summary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &importResp); err != nil {
		t.Fatalf("unmarshal import: %v", err)
	}
	if importResp.State != string(ingest.StateCompleted) {
		t.Fatalf("state mismatch: %s", importResp.State)
	}
	if len(importResp.Summary) != 2 {
		t.Fatalf("summary must render only returned counts: %v", importResp.Summary)
	}
	if store.lastReq.ReportType != "agent" || len(store.lastReq.Records) != 1 {
		t.Fatalf("store request mismatch: %+v", store.lastReq)
	}
}

func TestMappingEndpoints(t *testing.T) {
	router := newTestRouter(&stubStore{})

	w := uploadFile(t, router, "agents.xlsx", agentWorkbook(t))
	var uploadResp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &uploadResp); err != nil {
		t.Fatalf("unmarshal upload: %v", err)
	}
	base := "/api/sessions/" + uploadResp.SessionID

	if w = postJSON(t, router, base+"/select", map[string]string{"sheet": "Agents"}); w.Code != http.StatusOK {
		t.Fatalf("select: %s", w.Body.String())
	}

	// 改写映射
	payload, _ := json.Marshal(map[string]interface{}{"column": 2, "field": "Region"})
	req := httptest.NewRequest(http.MethodPut, base+"/mapping", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("mapping update status mismatch: got=%d body=%s", w.Code, w.Body.String())
	}

	var mappingResp struct {
		Mapping map[string]string `json:"mapping"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &mappingResp); err != nil {
		t.Fatalf("unmarshal mapping: %v", err)
	}
	if mappingResp.Mapping["2"] != "Region" {
		t.Fatalf("mapping edit not applied: %v", mappingResp.Mapping)
	}
}

func TestSessionNotFound(t *testing.T) {
	router := newTestRouter(&stubStore{})

	w := postJSON(t, router, "/api/sessions/no-such-id/select", map[string]string{"sheet": "Agents"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status mismatch: got=%d want=404", w.Code)
	}
}
