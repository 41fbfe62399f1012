package api

import (
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/Beta-dev64/customsurvey/internal/ingest"
)

// Handler 导入管线 API 处理器
type Handler struct {
	store ingest.RecordStore
	opts  ingest.Options

	mu       sync.RWMutex
	sessions map[string]*ingest.Session
}

// NewHandler 创建处理器
func NewHandler(store ingest.RecordStore, opts ingest.Options) *Handler {
	return &Handler{
		store:    store,
		opts:     opts,
		sessions: make(map[string]*ingest.Session),
	}
}

// RegisterRoutes 注册 API 路由
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	// 工作簿上传
	router.POST("/upload", h.Upload)

	// 会话操作
	router.GET("/sessions/:id", h.GetSession)
	router.POST("/sessions/:id/select", h.SelectSheet)
	router.GET("/sessions/:id/preview", h.GetPreview)
	router.GET("/sessions/:id/validation", h.GetValidation)
	router.GET("/sessions/:id/mapping", h.GetMapping)
	router.PUT("/sessions/:id/mapping", h.UpdateMapping)
	router.POST("/sessions/:id/import", h.Import)
	router.POST("/sessions/:id/reset", h.Reset)

	// 静态配置
	router.GET("/schemas", h.GetSchemas)
}

// register 登记会话；只在工作簿解析成功后调用，失败的上传不留会话
func (h *Handler) register(session *ingest.Session) {
	h.mu.Lock()
	h.sessions[session.ID] = session
	h.mu.Unlock()
}

// session 按 ID 查找会话
func (h *Handler) session(id string) (*ingest.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}
