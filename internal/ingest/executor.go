package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Beta-dev64/customsurvey/internal/model"
)

// RecordStore 记录存储边界
// 导入执行器只通过这个接口提交批次；重复提交的幂等性由存储方保证
type RecordStore interface {
	ImportRecords(ctx context.Context, req model.ImportRequest) (*model.ImportResult, error)
}

// ImportError 提交记录存储失败
// Timeout 表示超时归类的失败；不会在客户端伪造部分结果
type ImportError struct {
	Timeout bool
	Err     error
}

func (e *ImportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("import timed out: %v", e.Err)
	}
	return fmt.Sprintf("import failed: %v", e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// DefaultSubmitTimeout 提交记录存储的默认超时
const DefaultSubmitTimeout = 30 * time.Second

// DefaultDetailCap 结果明细行数上限
const DefaultDetailCap = 50

// Outcome 一次导入尝试的最终账目，返回后不再变更
type Outcome struct {
	SheetName  string             `json:"sheetName"`
	ReportType string             `json:"reportType"`
	Result     model.ImportResult `json:"result"`
	FinishedAt time.Time          `json:"finishedAt"`
}

// Summary 渲染计数摘要，只展示存储实际返回的字段
func (o *Outcome) Summary() []string {
	var lines []string
	add := func(label string, n *int) {
		if n != nil {
			lines = append(lines, fmt.Sprintf("%s: %d", label, *n))
		}
	}
	add("Total rows", o.Result.Total)
	add("Imported", o.Result.Imported)
	add("Updated", o.Result.Updated)
	add("Skipped", o.Result.Skipped)
	add("Errors", o.Result.Errors)
	return lines
}

// Executor 导入执行器：把投影后的批次提交给记录存储
type Executor struct {
	store     RecordStore
	timeout   time.Duration
	detailCap int
}

// NewExecutor 创建执行器
func NewExecutor(store RecordStore, timeout time.Duration, detailCap int) *Executor {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	if detailCap <= 0 {
		detailCap = DefaultDetailCap
	}
	return &Executor{store: store, timeout: timeout, detailCap: detailCap}
}

// Execute 提交一个完整批次并包装结果
// 失败时没有部分结果：要么拿到存储返回的完整账目，要么整体报错
func (e *Executor) Execute(ctx context.Context, sheetName, reportType string, records []model.Record) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	log.Info().
		Str("sheet", sheetName).
		Str("report_type", reportType).
		Int("records", len(records)).
		Msg("submitting import batch")

	result, err := e.store.ImportRecords(ctx, model.ImportRequest{
		SheetName:  sheetName,
		ReportType: reportType,
		Records:    records,
	})
	if err != nil {
		timeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)
		log.Error().Err(err).Bool("timeout", timeout).Str("sheet", sheetName).Msg("import batch failed")
		return nil, &ImportError{Timeout: timeout, Err: err}
	}

	outcome := &Outcome{
		SheetName:  sheetName,
		ReportType: reportType,
		Result:     *result,
		FinishedAt: time.Now(),
	}
	if len(outcome.Result.Details) > e.detailCap {
		outcome.Result.Details = outcome.Result.Details[:e.detailCap]
	}

	log.Info().Str("sheet", sheetName).Strs("summary", outcome.Summary()).Msg("import batch done")
	return outcome, nil
}
