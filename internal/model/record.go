package model

// Record 单条待导入记录，键为规范字段名
type Record map[string]string

// ImportRequest 提交给记录存储的批量导入请求
type ImportRequest struct {
	SheetName  string   `json:"sheetName"`
	ReportType string   `json:"reportType"`
	Records    []Record `json:"records"`
}

// ImportResult 记录存储返回的导入结果
// 所有计数字段均可缺省，渲染时只展示存在的字段
type ImportResult struct {
	Message  string   `json:"message,omitempty"`
	Total    *int     `json:"total,omitempty"`
	Imported *int     `json:"imported,omitempty"`
	Updated  *int     `json:"updated,omitempty"`
	Skipped  *int     `json:"skipped,omitempty"`
	Errors   *int     `json:"errors,omitempty"`
	Details  []string `json:"details,omitempty"`
}

// Count 构造计数指针
func Count(n int) *int {
	return &n
}
