package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Beta-dev64/customsurvey/internal/ingest"
)

// SelectSheetRequest 选表请求
type SelectSheetRequest struct {
	Sheet  string `json:"sheet" binding:"required"`
	Schema string `json:"schema"` // 可选的手工报表类型覆盖
}

// MappingUpdateRequest 列映射修改请求
type MappingUpdateRequest struct {
	Column int    `json:"column"`
	Field  string `json:"field"` // 空串表示清除该列映射
}

// ImportRequest 导入请求
type ImportRequest struct {
	Confirm bool `json:"confirm"` // 存在校验问题时必须显式确认
}

// GetSession 会话状态快照
// GET /api/sessions/:id
func (h *Handler) GetSession(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	resp := gin.H{
		"sessionId": session.ID,
		"state":     session.State(),
	}
	if sheets, err := session.SheetNames(); err == nil {
		resp["sheets"] = sheets
	}
	if classification, err := session.Classification(); err == nil {
		resp["classification"] = classification
	}
	if schema, err := session.ActiveSchema(); err == nil {
		resp["reportType"] = schema.Name
	}
	if lastErr := session.LastError(); lastErr != nil {
		resp["lastError"] = lastErr.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// SelectSheet 选定活动工作表
// POST /api/sessions/:id/select
func (h *Handler) SelectSheet(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req SelectSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := session.SelectSheet(req.Sheet, req.Schema); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ingest.ErrSubmitInProgress) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	preview, _ := session.Preview()
	classification, _ := session.Classification()
	schema, _ := session.ActiveSchema()
	issues, _ := session.Issues()
	mapping, _ := session.Mapping()
	vocabulary, _ := session.Vocabulary()

	c.JSON(http.StatusOK, gin.H{
		"state":          session.State(),
		"preview":        preview,
		"classification": classification,
		"reportType":     schema.Name,
		"issues":         issues,
		"mapping":        mapping,
		"vocabulary":     vocabulary,
	})
}

// GetPreview 活动工作表预览
// GET /api/sessions/:id/preview
func (h *Handler) GetPreview(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	preview, err := session.Preview()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, preview)
}

// GetValidation 活动工作表校验问题
// GET /api/sessions/:id/validation
func (h *Handler) GetValidation(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	issues, err := session.Issues()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// GetMapping 当前列映射
// GET /api/sessions/:id/mapping
func (h *Handler) GetMapping(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	mapping, err := session.Mapping()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	vocabulary, _ := session.Vocabulary()
	c.JSON(http.StatusOK, gin.H{
		"mapping":    mapping,
		"vocabulary": vocabulary,
	})
}

// UpdateMapping 改写某列映射
// PUT /api/sessions/:id/mapping
func (h *Handler) UpdateMapping(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req MappingUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := session.MapColumn(req.Column, req.Field); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, ingest.ErrSubmitInProgress) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	mapping, _ := session.Mapping()
	c.JSON(http.StatusOK, gin.H{"mapping": mapping})
}

// Import 提交导入
// POST /api/sessions/:id/import
func (h *Handler) Import(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	outcome, err := session.Import(c.Request.Context(), h.store, req.Confirm)
	if err != nil {
		var unconfirmed *ingest.UnconfirmedIssuesError
		var importErr *ingest.ImportError
		switch {
		case errors.As(err, &unconfirmed):
			issues, _ := session.Issues()
			c.JSON(http.StatusConflict, gin.H{
				"error":  err.Error(),
				"issues": issues,
			})
		case errors.Is(err, ingest.ErrSubmitInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &importErr):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":   session.State(),
		"outcome": outcome,
		"summary": outcome.Summary(),
	})
}

// Reset 重置会话
// POST /api/sessions/:id/reset
func (h *Handler) Reset(c *gin.Context) {
	session, ok := h.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := session.Reset(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": session.State()})
}

// GetSchemas 全部规范 Schema
// GET /api/schemas
func (h *Handler) GetSchemas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"schemas": ingest.Schemas()})
}
