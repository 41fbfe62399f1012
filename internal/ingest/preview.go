package ingest

// UnnamedColumn 空表头标签的占位名
const UnnamedColumn = "Unnamed Column"

// DefaultPreviewRows 预览窗口的默认行数上限
const DefaultPreviewRows = 100

// SheetPreview 工作表预览
// TotalRows 是真实数据行数，Rows 只截取窗口内的行
type SheetPreview struct {
	SheetName string     `json:"sheetName"`
	Headers   []string   `json:"headers"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"totalRows"`
}

// PreviewSheet 生成工作表的有界预览
// 纯派生，不改动任何状态，同一工作表上重复调用结果一致
func PreviewSheet(sheet *Sheet, maxRows int) *SheetPreview {
	if maxRows <= 0 {
		maxRows = DefaultPreviewRows
	}

	header := sheet.Header()
	headers := make([]string, len(header))
	for i, label := range header {
		if label == "" {
			headers[i] = UnnamedColumn
		} else {
			headers[i] = label
		}
	}

	total := sheet.RowCount()
	n := total
	if n > maxRows {
		n = maxRows
	}

	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		cells := sheet.DataRow(i)
		row := make([]string, len(cells))
		for j, c := range cells {
			row[j] = c.String()
		}
		rows = append(rows, row)
	}

	return &SheetPreview{
		SheetName: sheet.Name,
		Headers:   headers,
		Rows:      rows,
		TotalRows: total,
	}
}
