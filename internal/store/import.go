package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Beta-dev64/customsurvey/internal/model"
)

// detailLimit 导入结果明细行数上限
const detailLimit = 50

// posmProducts 物料清单，执行记录按布尔列收集
var posmProducts = []string{"Table", "Chair", "Parasol", "Tarpaulin", "Hawker Jacket"}

// ImportRecords 按报表类型把一个批次写入存储
// 每行独立计数：新建 imported、已存在 updated、主键缺失 errors、
// 关联不上 skipped；整批在一个事务内提交
func (s *Store) ImportRecords(ctx context.Context, req model.ImportRequest) (*model.ImportResult, error) {
	var (
		result *model.ImportResult
		err    error
	)

	switch req.ReportType {
	case "outlet":
		result, err = s.importOutlets(ctx, req)
	case "agent":
		result, err = s.importAgents(ctx, req)
	case "execution":
		result, err = s.importExecutions(ctx, req)
	default:
		return nil, fmt.Errorf("unknown report type %q", req.ReportType)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("sheet", req.SheetName).
		Str("report_type", req.ReportType).
		Int("total", len(req.Records)).
		Msg("import batch committed")
	return result, nil
}

// importOutlets 按 URN upsert 网点记录
func (s *Store) importOutlets(ctx context.Context, req model.ImportRequest) (*model.ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	imported, updated, errors := 0, 0, 0
	var details []string
	addDetail := func(format string, args ...interface{}) {
		if len(details) < detailLimit {
			details = append(details, fmt.Sprintf(format, args...))
		}
	}

	for i, rec := range req.Records {
		urn := field(rec, "URN")
		if urn == "" {
			errors++
			addDetail("Row %d: missing URN", i+2)
			continue
		}

		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM outlets WHERE urn = ?`, urn).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO outlets (urn, outlet_name, agent_name, address, phone, outlet_type, region, state, local_govt)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, urn, field(rec, "Retail Point Name"), field(rec, "Agent Name"),
				field(rec, "Address"), field(rec, "Phone"), fieldOr(rec, "Outlet Type", "Shop"),
				field(rec, "Region"), field(rec, "State"), field(rec, "LGA"))
			if err != nil {
				errors++
				addDetail("Row %d: %v", i+2, err)
				continue
			}
			imported++
		case err != nil:
			return nil, fmt.Errorf("failed to look up outlet: %w", err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE outlets
				SET outlet_name = ?, agent_name = ?, address = ?, phone = ?, outlet_type = ?, region = ?, state = ?, local_govt = ?
				WHERE urn = ?
			`, field(rec, "Retail Point Name"), field(rec, "Agent Name"),
				field(rec, "Address"), field(rec, "Phone"), fieldOr(rec, "Outlet Type", "Shop"),
				field(rec, "Region"), field(rec, "State"), field(rec, "LGA"), urn)
			if err != nil {
				errors++
				addDetail("Row %d: %v", i+2, err)
				continue
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &model.ImportResult{
		Message:  "Outlet import processed successfully.",
		Total:    model.Count(len(req.Records)),
		Imported: model.Count(imported),
		Updated:  model.Count(updated),
		Errors:   model.Count(errors),
		Details:  details,
	}, nil
}

// importAgents 按 Username upsert 代理记录
func (s *Store) importAgents(ctx context.Context, req model.ImportRequest) (*model.ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	imported, updated, errors := 0, 0, 0
	var details []string
	addDetail := func(format string, args ...interface{}) {
		if len(details) < detailLimit {
			details = append(details, fmt.Sprintf(format, args...))
		}
	}

	for i, rec := range req.Records {
		username := field(rec, "Username")
		if username == "" {
			errors++
			addDetail("Row %d: missing Username", i+2)
			continue
		}

		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM agents WHERE username = ?`, username).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO agents (username, name, role, region, state, phone, email)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, username, field(rec, "Name"), fieldOr(rec, "Role", "agent"),
				field(rec, "Region"), field(rec, "State"), field(rec, "Phone"), field(rec, "Email"))
			if err != nil {
				errors++
				addDetail("Row %d: %v", i+2, err)
				continue
			}
			imported++
		case err != nil:
			return nil, fmt.Errorf("failed to look up agent: %w", err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE agents
				SET name = ?, role = ?, region = ?, state = ?, phone = ?, email = ?
				WHERE username = ?
			`, field(rec, "Name"), fieldOr(rec, "Role", "agent"),
				field(rec, "Region"), field(rec, "State"), field(rec, "Phone"), field(rec, "Email"), username)
			if err != nil {
				errors++
				addDetail("Row %d: %v", i+2, err)
				continue
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &model.ImportResult{
		Message:  "Agent import processed successfully.",
		Total:    model.Count(len(req.Records)),
		Imported: model.Count(imported),
		Updated:  model.Count(updated),
		Errors:   model.Count(errors),
		Details:  details,
	}, nil
}

// importExecutions 按 URN 关联网点写入执行记录
// 关联不上的行计为 skipped；(outlet, date) 冲突时覆盖旧记录计为 updated
func (s *Store) importExecutions(ctx context.Context, req model.ImportRequest) (*model.ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	imported, updated, skipped, errors := 0, 0, 0, 0
	var details []string
	addDetail := func(format string, args ...interface{}) {
		if len(details) < detailLimit {
			details = append(details, fmt.Sprintf(format, args...))
		}
	}

	for i, rec := range req.Records {
		urn := field(rec, "URN")
		if urn == "" {
			errors++
			addDetail("Row %d: missing URN", i+2)
			continue
		}

		var outletID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM outlets WHERE urn = ?`, urn).Scan(&outletID)
		if err == sql.ErrNoRows {
			skipped++
			addDetail("Row %d: no outlet found for URN %q", i+2, urn)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to look up outlet: %w", err)
		}

		products := make(map[string]bool, len(posmProducts))
		for _, p := range posmProducts {
			products[p] = truthy(field(rec, p))
		}
		productsJSON, _ := json.Marshal(products)

		date := field(rec, "Date")
		var existing int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM executions WHERE outlet_id = ? AND execution_date = ?`,
			outletID, date).Scan(&existing)
		switch {
		case err == sql.ErrNoRows:
			_, err = tx.ExecContext(ctx, `
				INSERT INTO executions (outlet_id, agent_name, execution_date, status, notes, products_available)
				VALUES (?, ?, ?, ?, ?, ?)
			`, outletID, field(rec, "Agent Name"), date,
				fieldOr(rec, "Status", "Completed"), field(rec, "Notes"), string(productsJSON))
			if err != nil {
				errors++
				addDetail("Row %d: %v", i+2, err)
				continue
			}
			imported++
		case err != nil:
			return nil, fmt.Errorf("failed to look up execution: %w", err)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE executions
				SET agent_name = ?, status = ?, notes = ?, products_available = ?
				WHERE id = ?
			`, field(rec, "Agent Name"), fieldOr(rec, "Status", "Completed"),
				field(rec, "Notes"), string(productsJSON), existing)
			if err != nil {
				errors++
				addDetail("Row %d: %v", i+2, err)
				continue
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &model.ImportResult{
		Message:  "Execution import processed successfully.",
		Total:    model.Count(len(req.Records)),
		Imported: model.Count(imported),
		Updated:  model.Count(updated),
		Skipped:  model.Count(skipped),
		Errors:   model.Count(errors),
		Details:  details,
	}, nil
}

// field 读取记录字段并去除首尾空白
func field(rec model.Record, name string) string {
	return strings.TrimSpace(rec[name])
}

// fieldOr 读取记录字段，空值时取默认
func fieldOr(rec model.Record, name, def string) string {
	if v := field(rec, name); v != "" {
		return v
	}
	return def
}

// truthy 布尔列取值判断
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
