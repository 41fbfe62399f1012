package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Beta-dev64/customsurvey/internal/model"
)

// ColumnMapping 列索引到规范字段名的映射
// 自动播种后操作员可逐列改写或清除；允许多列指向同一字段，
// 投影时按列序后写覆盖（刻意简化，方便操作员，不视为错误）
type ColumnMapping struct {
	vocab   []string
	entries map[int]string
}

// AutoMap 按表头文本相似度自动播种映射
// 取词表中第一个是表头标签大小写不敏感子串的字段；无命中则留空
func AutoMap(header []string, vocab []string) *ColumnMapping {
	m := &ColumnMapping{
		vocab:   vocab,
		entries: make(map[int]string),
	}
	for idx, label := range header {
		for _, field := range vocab {
			if fieldMatchesLabel(field, label) {
				m.entries[idx] = field
				break
			}
		}
	}
	return m
}

// Vocabulary 映射可用的字段词表
func (m *ColumnMapping) Vocabulary() []string {
	out := make([]string, len(m.vocab))
	copy(out, m.vocab)
	return out
}

// Set 指定列的目标字段，完全替换该列现有映射
// 字段必须在词表内；映射阶段不做其它校验
func (m *ColumnMapping) Set(column int, field string) error {
	if column < 0 {
		return fmt.Errorf("invalid column index %d", column)
	}
	for _, v := range m.vocab {
		if strings.EqualFold(v, field) {
			m.entries[column] = v
			return nil
		}
	}
	return fmt.Errorf("unknown field %q", field)
}

// Clear 清除某列的映射
func (m *ColumnMapping) Clear(column int) {
	delete(m.entries, column)
}

// Field 查询某列当前映射的字段
func (m *ColumnMapping) Field(column int) (string, bool) {
	f, ok := m.entries[column]
	return f, ok
}

// Columns 已映射的列索引（升序）
func (m *ColumnMapping) Columns() []int {
	cols := make([]int, 0, len(m.entries))
	for c := range m.entries {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}

// Entries 映射快照（列索引 -> 字段名）
func (m *ColumnMapping) Entries() map[int]string {
	out := make(map[int]string, len(m.entries))
	for c, f := range m.entries {
		out[c] = f
	}
	return out
}

// Project 按映射把数据行投影为规范记录
// 未映射的列丢弃；多列同字段按列序后写覆盖
func (m *ColumnMapping) Project(row []Cell) model.Record {
	rec := make(model.Record, len(m.entries))
	for _, col := range m.Columns() {
		field := m.entries[col]
		if col < len(row) {
			rec[field] = row[col].String()
		} else {
			rec[field] = ""
		}
	}
	return rec
}
