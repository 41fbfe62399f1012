package ingest

import (
	"testing"

	"github.com/xuri/excelize/v2"
)

// newTestSheet 直接构造工作表（表头 + 数据行）
func newTestSheet(name string, header []string, dataRows [][]string) *Sheet {
	rows := make([][]Cell, 0, len(dataRows)+1)

	headerCells := make([]Cell, len(header))
	for i, h := range header {
		headerCells[i] = inferCell(h)
	}
	rows = append(rows, headerCells)

	for _, r := range dataRows {
		cells := make([]Cell, len(r))
		for i, v := range r {
			cells[i] = inferCell(v)
		}
		rows = append(rows, cells)
	}

	return &Sheet{Name: name, rows: rows}
}

// sheetData 构造 xlsx 用的单表数据
type sheetData struct {
	Name string
	Rows [][]interface{}
}

// buildXLSX 在内存里生成 xlsx 文件内容
func buildXLSX(t *testing.T, sheets []sheetData) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.Name); err != nil {
				t.Fatalf("rename sheet: %v", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.Name); err != nil {
				t.Fatalf("new sheet: %v", err)
			}
		}
		for r, row := range sheet.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
				t.Fatalf("set row: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return buf.Bytes()
}
