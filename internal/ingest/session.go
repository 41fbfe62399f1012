package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Beta-dev64/customsurvey/internal/model"
)

// State 上传会话状态
type State string

const (
	StateIdle         State = "idle"          // 无工作簿
	StateParsed       State = "parsed"        // 工作簿已解析，未选表
	StateMappingReady State = "mapping_ready" // 已选表，分类/校验/映射均已就绪
	StateSubmitting   State = "submitting"    // 批次提交中
	StateCompleted    State = "completed"     // 本次提交成功，账目已生成
)

var (
	// ErrSubmitInProgress 提交期间拒绝换表/重置，避免静默竞争
	ErrSubmitInProgress = errors.New("a submission is in progress")
	// ErrNoWorkbook 尚未上传工作簿
	ErrNoWorkbook = errors.New("no workbook has been uploaded")
	// ErrNoSheetSelected 尚未选择工作表
	ErrNoSheetSelected = errors.New("no sheet has been selected")
)

// UnconfirmedIssuesError 存在未确认的校验问题
// 软性拦截：操作员显式确认后即可继续导入
type UnconfirmedIssuesError struct {
	Count int
}

func (e *UnconfirmedIssuesError) Error() string {
	return fmt.Sprintf("%d validation issues are outstanding; confirm to import anyway", e.Count)
}

// Options 会话级的管线参数
type Options struct {
	PreviewRows   int
	IssueCap      int
	DetailCap     int
	SubmitTimeout time.Duration
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		PreviewRows:   DefaultPreviewRows,
		IssueCap:      DefaultIssueCap,
		DetailCap:     DefaultDetailCap,
		SubmitTimeout: DefaultSubmitTimeout,
	}
}

// Session 一次上传会话的显式状态机
// Idle -> Parsed -> MappingReady -> Submitting -> Completed
// 提交失败回到 MappingReady 并记录错误，操作员可修正后重试；
// 换表会丢弃并重算全部派生状态；Reset 无条件回到 Idle
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	opts           Options
	state          State
	workbook       *Workbook
	sheet          *Sheet
	classification Classification
	schema         Schema
	issues         []Issue
	mapping        *ColumnMapping
	outcome        *Outcome
	lastErr        error
}

// NewSession 创建空会话
func NewSession(opts Options) *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		opts:      opts,
		state:     StateIdle,
	}
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastError 最近一次提交失败的错误（若有）
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// LoadWorkbook 解析上传内容并进入 Parsed 状态
// 整体失败不产生部分状态：解析失败时会话保持原样
func (s *Session) LoadWorkbook(filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}

	wb, err := ParseWorkbook(filename, data)
	if err != nil {
		return err
	}

	s.workbook = wb
	s.clearDerivedLocked()
	s.state = StateParsed

	log.Info().
		Str("session", s.ID).
		Str("file", wb.Filename).
		Int("sheets", len(wb.Sheets)).
		Msg("workbook parsed")
	return nil
}

// SheetNames 工作簿内所有表名
func (s *Session) SheetNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workbook == nil {
		return nil, ErrNoWorkbook
	}
	return s.workbook.SheetNames(), nil
}

// SelectSheet 选定活动工作表并重算派生状态
// schemaOverride 非空时跳过自动分类，按操作员指定的 Schema 处理
func (s *Session) SelectSheet(name, schemaOverride string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if s.workbook == nil {
		return ErrNoWorkbook
	}

	sheet, ok := s.workbook.Sheet(name)
	if !ok {
		return fmt.Errorf("sheet %q not found in workbook", name)
	}

	classification := Classify(sheet.Header())
	schema := classification.Schema
	if schemaOverride != "" {
		override, ok := SchemaByName(schemaOverride)
		if !ok {
			return fmt.Errorf("unknown report type %q", schemaOverride)
		}
		schema = override
	}

	s.sheet = sheet
	s.classification = classification
	s.schema = schema
	s.issues = Validate(sheet, schema, s.opts.IssueCap)
	s.mapping = AutoMap(sheet.Header(), FieldVocabulary(schema))
	s.outcome = nil
	s.lastErr = nil
	s.state = StateMappingReady

	log.Info().
		Str("session", s.ID).
		Str("sheet", name).
		Str("report_type", schema.Name).
		Bool("unclassified", classification.Unclassified).
		Int("issues", len(s.issues)).
		Msg("sheet selected")
	return nil
}

// Preview 活动工作表的有界预览
func (s *Session) Preview() (*SheetPreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return nil, ErrNoSheetSelected
	}
	return PreviewSheet(s.sheet, s.opts.PreviewRows), nil
}

// Classification 活动工作表的分类结果
func (s *Session) Classification() (Classification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return Classification{}, ErrNoSheetSelected
	}
	return s.classification, nil
}

// ActiveSchema 当前生效的 Schema（可能是操作员覆盖的）
func (s *Session) ActiveSchema() (Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return Schema{}, ErrNoSheetSelected
	}
	return s.schema, nil
}

// Issues 活动工作表的校验问题
func (s *Session) Issues() ([]Issue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sheet == nil {
		return nil, ErrNoSheetSelected
	}
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out, nil
}

// MapColumn 改写某列映射；field 为空串时清除该列
func (s *Session) MapColumn(column int, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	if s.mapping == nil {
		return ErrNoSheetSelected
	}
	if column < 0 || column >= len(s.sheet.Header()) {
		return fmt.Errorf("column index %d out of range", column)
	}
	if field == "" {
		s.mapping.Clear(column)
		return nil
	}
	return s.mapping.Set(column, field)
}

// Mapping 当前映射快照
func (s *Session) Mapping() (map[int]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapping == nil {
		return nil, ErrNoSheetSelected
	}
	return s.mapping.Entries(), nil
}

// Vocabulary 当前映射可用的字段词表
func (s *Session) Vocabulary() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mapping == nil {
		return nil, ErrNoSheetSelected
	}
	return s.mapping.Vocabulary(), nil
}

// Outcome 最近一次成功导入的账目
func (s *Session) Outcome() (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return nil, errors.New("no import has completed")
	}
	return s.outcome, nil
}

// Import 把活动工作表按当前映射提交给记录存储
// 存在未确认校验问题且 confirm 为假时软性拦截；
// 提交期间状态为 Submitting，成功进入 Completed，
// 失败回到 MappingReady 并记录错误供重试
func (s *Session) Import(ctx context.Context, store RecordStore, confirm bool) (*Outcome, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		s.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if s.state == StateCompleted {
		s.mu.Unlock()
		return nil, errors.New("import already completed; re-select a sheet to submit again")
	}
	if s.state != StateMappingReady {
		s.mu.Unlock()
		return nil, ErrNoSheetSelected
	}
	if len(s.issues) > 0 && !confirm {
		n := len(s.issues)
		s.mu.Unlock()
		return nil, &UnconfirmedIssuesError{Count: n}
	}

	records := make([]model.Record, 0, s.sheet.RowCount())
	for i := 0; i < s.sheet.RowCount(); i++ {
		records = append(records, s.mapping.Project(s.sheet.DataRow(i)))
	}
	sheetName := s.sheet.Name
	reportType := s.schema.Name
	executor := NewExecutor(store, s.opts.SubmitTimeout, s.opts.DetailCap)

	s.state = StateSubmitting
	s.mu.Unlock()

	outcome, err := executor.Execute(ctx, sheetName, reportType, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// 本次提交终止，回到可重试状态
		s.state = StateMappingReady
		s.lastErr = err
		return nil, err
	}

	s.outcome = outcome
	s.lastErr = nil
	s.state = StateCompleted
	return outcome, nil
}

// Reset 丢弃工作簿及全部派生状态，回到 Idle
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSubmitting {
		return ErrSubmitInProgress
	}
	s.workbook = nil
	s.clearDerivedLocked()
	s.state = StateIdle
	log.Info().Str("session", s.ID).Msg("session reset")
	return nil
}

func (s *Session) clearDerivedLocked() {
	s.sheet = nil
	s.classification = Classification{}
	s.schema = Schema{}
	s.issues = nil
	s.mapping = nil
	s.outcome = nil
	s.lastErr = nil
}
