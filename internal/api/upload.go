package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Beta-dev64/customsurvey/internal/ingest"
)

// Upload 上传工作簿并创建会话
// POST /api/upload (multipart, 字段名 file)
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file found in upload"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read uploaded file"})
		return
	}

	session := ingest.NewSession(h.opts)
	if err := session.LoadWorkbook(fileHeader.Filename, data); err != nil {
		// 扩展名/解码失败都在建立任何状态之前拒绝，原因文本透传给用户
		var unsupported *ingest.UnsupportedFileTypeError
		var parseErr *ingest.ParseError
		if errors.As(err, &unsupported) || errors.As(err, &parseErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.register(session)

	sheets, _ := session.SheetNames()
	c.JSON(http.StatusOK, gin.H{
		"sessionId": session.ID,
		"filename":  fileHeader.Filename,
		"sheets":    sheets,
	})
}
