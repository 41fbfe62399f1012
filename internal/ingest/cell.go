package ingest

import (
	"strconv"
	"strings"
)

// CellKind 单元格值类型
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellBool
)

// Cell 单元格值（带类型标签的联合体）
// 解析边界统一转成显式类型，避免一路裸字符串传递
type Cell struct {
	Kind   CellKind `json:"kind"`
	Text   string   `json:"text,omitempty"`
	Number float64  `json:"number,omitempty"`
	Bool   bool     `json:"bool,omitempty"`
}

// EmptyCell 空单元格
func EmptyCell() Cell {
	return Cell{Kind: CellEmpty}
}

// TextCell 文本单元格
func TextCell(s string) Cell {
	return Cell{Kind: CellText, Text: s}
}

// NumberCell 数值单元格
func NumberCell(f float64) Cell {
	return Cell{Kind: CellNumber, Number: f}
}

// BoolCell 布尔单元格
func BoolCell(b bool) Cell {
	return Cell{Kind: CellBool, Bool: b}
}

// IsEmpty 判断是否为空值（空类型或纯空白文本）
func (c Cell) IsEmpty() bool {
	if c.Kind == CellEmpty {
		return true
	}
	if c.Kind == CellText {
		return strings.TrimSpace(c.Text) == ""
	}
	return false
}

// String 单元格的展示字符串
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellBool:
		if c.Bool {
			return "TRUE"
		}
		return "FALSE"
	}
	return ""
}

// inferCell 从 excelize 读出的字符串推断单元格类型
// 规则：空串 -> 空；TRUE/FALSE -> 布尔；可解析数字 -> 数值；其余 -> 文本
func inferCell(raw string) Cell {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return EmptyCell()
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return BoolCell(true)
	case "FALSE":
		return BoolCell(false)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return NumberCell(f)
	}
	return TextCell(raw)
}
