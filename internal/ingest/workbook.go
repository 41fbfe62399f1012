package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// UnsupportedFileTypeError 文件扩展名不被接受，解析前即拒绝
type UnsupportedFileTypeError struct {
	Filename string
}

func (e *UnsupportedFileTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: please upload a .xlsx or .xls file", filepath.Ext(e.Filename))
}

// ParseError 文件内容无法按电子表格解码
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot read workbook: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Workbook 一次上传解析出的整个工作簿
// 归当前上传会话独占，会话结束或重置时丢弃
type Workbook struct {
	Filename string
	Sheets   []*Sheet
}

// Sheet 工作簿中的一个工作表
// 第 0 行为表头，其余为数据行
type Sheet struct {
	Name string
	rows [][]Cell
}

// AcceptedExtension 判断文件扩展名是否可接受（大小写不敏感）
func AcceptedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return true
	}
	return false
}

// ParseWorkbook 把上传的二进制内容解析为 Workbook
// 扩展名不符直接返回 UnsupportedFileTypeError，不读内容；
// 解码失败返回 ParseError，不产生部分结果
func ParseWorkbook(filename string, data []byte) (*Workbook, error) {
	if !AcceptedExtension(filename) {
		return nil, &UnsupportedFileTypeError{Filename: filename}
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	defer f.Close()

	wb := &Workbook{Filename: filepath.Base(filename)}
	for _, name := range f.GetSheetList() {
		raw, err := f.GetRows(name)
		if err != nil {
			return nil, &ParseError{Err: fmt.Errorf("sheet %q: %w", name, err)}
		}

		rows := make([][]Cell, len(raw))
		for i, r := range raw {
			cells := make([]Cell, len(r))
			for j, v := range r {
				cells[j] = inferCell(v)
			}
			rows[i] = cells
		}
		wb.Sheets = append(wb.Sheets, &Sheet{Name: name, rows: rows})
	}

	return wb, nil
}

// SheetNames 按工作簿内顺序返回所有表名
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet 按名称查找工作表
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for _, s := range w.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Header 表头标签（第 0 行各单元格的展示字符串，去除首尾空白）
func (s *Sheet) Header() []string {
	if len(s.rows) == 0 {
		return nil
	}
	header := make([]string, len(s.rows[0]))
	for i, c := range s.rows[0] {
		header[i] = strings.TrimSpace(c.String())
	}
	return header
}

// RowCount 数据行数（不含表头）
func (s *Sheet) RowCount() int {
	if len(s.rows) <= 1 {
		return 0
	}
	return len(s.rows) - 1
}

// DataRow 读取第 i 个数据行（0 基），短于表头的行右侧补空值
func (s *Sheet) DataRow(i int) []Cell {
	width := 0
	if len(s.rows) > 0 {
		width = len(s.rows[0])
	}
	row := make([]Cell, width)
	for j := range row {
		row[j] = EmptyCell()
	}
	if i < 0 || i >= s.RowCount() {
		return row
	}
	for j, c := range s.rows[i+1] {
		if j < width {
			row[j] = c
		}
	}
	return row
}
