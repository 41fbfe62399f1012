package ingest

import "fmt"

// IssueKind 校验问题类型
type IssueKind string

const (
	IssueNoData        IssueKind = "no_data"
	IssueMissingColumn IssueKind = "missing_column"
	IssueEmptyCell     IssueKind = "empty_cell"
	IssueMoreEmpty     IssueKind = "more_empty_cells"
)

// Issue 一条校验问题
// 校验从不失败，问题以列表形式返回，由操作员决定是否继续
type Issue struct {
	Kind    IssueKind `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Row     int       `json:"row,omitempty"` // 1 基行号，表头为第 1 行
	Column  string    `json:"column,omitempty"`
	Message string    `json:"message"`
}

// DefaultIssueCap 逐条列出的空单元格问题上限
const DefaultIssueCap = 5

// Validate 按选定 Schema 校验工作表
// 顺序：缺列 -> 逐行空值（超过 limit 条后折叠为一条汇总）；
// 无数据行时只返回一条 "no data found" 问题
func Validate(sheet *Sheet, schema Schema, limit int) []Issue {
	if limit <= 0 {
		limit = DefaultIssueCap
	}

	if sheet.RowCount() == 0 {
		return []Issue{{
			Kind:    IssueNoData,
			Message: "no data found in this sheet",
		}}
	}

	header := sheet.Header()
	var issues []Issue

	// 必填字段对应的列索引；同一字段可能命中多列，全部检查
	present := make(map[string][]int)
	for _, field := range schema.Required {
		var cols []int
		for idx, label := range header {
			if fieldMatchesLabel(field, label) {
				cols = append(cols, idx)
			}
		}
		if len(cols) == 0 {
			issues = append(issues, Issue{
				Kind:    IssueMissingColumn,
				Field:   field,
				Message: fmt.Sprintf("Missing required column %q for the %s report", field, schema.Title),
			})
			continue
		}
		present[field] = cols
	}

	var empty []Issue
	for _, field := range schema.Required {
		for _, idx := range present[field] {
			label := header[idx]
			for i := 0; i < sheet.RowCount(); i++ {
				row := sheet.DataRow(i)
				if row[idx].IsEmpty() {
					empty = append(empty, Issue{
						Kind:    IssueEmptyCell,
						Field:   field,
						Row:     i + 2, // 表头占第 1 行
						Column:  label,
						Message: fmt.Sprintf("Row %d has no value for %q", i+2, label),
					})
				}
			}
		}
	}

	if len(empty) > limit {
		overflow := len(empty) - limit
		empty = empty[:limit]
		empty = append(empty, Issue{
			Kind:    IssueMoreEmpty,
			Message: fmt.Sprintf("And %d more empty required cells", overflow),
		})
	}

	return append(issues, empty...)
}
