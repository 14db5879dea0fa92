package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"swarm/internal/decision"
	"swarm/internal/store/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Journal 把每个决策周期写入 sqlite，供状态接口回看。
type Journal struct {
	db *gorm.DB
}

var _ decision.Journal = (*Journal)(nil)

// Open 打开（必要时创建）决策日志库。path 为 ":memory:" 时使用内存库。
func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("journal: 决策日志路径不能为空")
	}
	dsn := "file::memory:?cache=shared"
	if path != ":memory:" {
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&model.CycleModel{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 所有 agent 共用一个库，写入串行化，避免 SQLITE_BUSY。
	sqlDB.SetMaxOpenConns(1)
	return &Journal{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) Record(ctx context.Context, rec decision.CycleRecord) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal 未初始化")
	}
	if rec.AgentID == "" {
		return fmt.Errorf("journal: agent_id 必填")
	}
	row := toModel(rec)
	return j.db.WithContext(ctx).Create(&row).Error
}

func toModel(rec decision.CycleRecord) model.CycleModel {
	trace := rec.TraceID
	if trace == "" {
		trace = uuid.NewString()
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	row := model.CycleModel{
		TraceID:     trace,
		AgentID:     rec.AgentID,
		AgentName:   rec.AgentName,
		Personality: rec.Personality,
		Outcome:     string(rec.Outcome),
		Source:      string(rec.Source),
		Context:     rec.Context,
		Error:       rec.Error,
		StartedAt:   started.UnixMilli(),
		ElapsedMs:   rec.Elapsed.Milliseconds(),
	}
	var payload model.DecisionPayload
	if d := rec.Decision; d != nil {
		row.Action = string(d.Action)
		row.InstrumentID = d.InstrumentID
		row.Quantity = d.Quantity
		row.Price = d.Price
		payload = model.DecisionPayload{
			Action:       string(d.Action),
			InstrumentID: d.InstrumentID,
			OrderType:    string(d.Kind),
			Price:        d.Price,
			Quantity:     d.Quantity,
			Score:        d.Score,
			Origin:       string(d.Origin),
			Reasoning:    d.Reasoning,
		}
	}
	row.Decision = datatypes.NewJSONType(payload)
	return row
}

// Query 过滤条件，零值表示不过滤。
type Query struct {
	AgentID string
	Outcome string
	Limit   int
}

// Entry 是决策日志对外的只读视图。
type Entry struct {
	TraceID     string                 `json:"trace_id"`
	AgentID     string                 `json:"agent_id"`
	AgentName   string                 `json:"agent_name"`
	Personality string                 `json:"personality"`
	Outcome     string                 `json:"outcome"`
	Source      string                 `json:"source,omitempty"`
	Decision    *model.DecisionPayload `json:"decision,omitempty"`
	Context     string                 `json:"context,omitempty"`
	Error       string                 `json:"error,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	ElapsedMs   int64                  `json:"elapsed_ms"`
}

// List 按时间倒序返回最近的周期记录。
func (j *Journal) List(ctx context.Context, q Query) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal 未初始化")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	tx := j.db.WithContext(ctx).Model(&model.CycleModel{})
	if id := strings.TrimSpace(q.AgentID); id != "" {
		tx = tx.Where("agent_id = ?", id)
	}
	if outcome := strings.TrimSpace(q.Outcome); outcome != "" {
		tx = tx.Where("outcome = ?", outcome)
	}
	var rows []model.CycleModel
	if err := tx.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{
			TraceID:     r.TraceID,
			AgentID:     r.AgentID,
			AgentName:   r.AgentName,
			Personality: r.Personality,
			Outcome:     r.Outcome,
			Source:      r.Source,
			Context:     r.Context,
			Error:       r.Error,
			StartedAt:   time.UnixMilli(r.StartedAt),
			ElapsedMs:   r.ElapsedMs,
		}
		if payload := r.Decision.Data(); payload.Action != "" {
			e.Decision = &payload
		}
		out = append(out, e)
	}
	return out, nil
}

// Count 返回某个 agent 的累计周期数，agentID 为空时统计全部。
func (j *Journal) Count(ctx context.Context, agentID string) (int64, error) {
	if j == nil || j.db == nil {
		return 0, fmt.Errorf("journal 未初始化")
	}
	tx := j.db.WithContext(ctx).Model(&model.CycleModel{})
	if agentID != "" {
		tx = tx.Where("agent_id = ?", agentID)
	}
	var n int64
	err := tx.Count(&n).Error
	return n, err
}
