package mysql

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"NovaWallet/pkg/logger"
)

const memoryWindow = 512

// PreviewRecord 是一次转账预览的审计记录。
type PreviewRecord struct {
	PreviewID     string   `json:"previewId"`
	SessionID     string   `json:"sessionId,omitempty"`
	FromAddress   string   `json:"fromAddress"`
	ToAddress     string   `json:"toAddress"`
	Amount        float64  `json:"amount"`
	TokenSymbol   string   `json:"tokenSymbol"`
	ChainID       int64    `json:"chainId"`
	Success       bool     `json:"success"`
	Severity      string   `json:"severity"`
	Issues        []string `json:"issues"`
	Warnings      []string `json:"warnings"`
	DoubleConfirm bool     `json:"doubleConfirm"`
	CreatedAt     int64    `json:"createdAt"`
}

// PreviewRepository 抽象审计记录的持久化接口。
type PreviewRepository interface {
	Save(ctx context.Context, record PreviewRecord) error
	ListLatest(ctx context.Context, limit int) ([]PreviewRecord, error)
	ListByAddress(ctx context.Context, fromAddress string, limit int) ([]PreviewRecord, error)
}

// MemoryPreviewRepository 将审计记录追加写入本地 JSON 行文件，并在内存中保留最近的记录。
type MemoryPreviewRepository struct {
	mu       sync.RWMutex
	dataFile string
	records  []PreviewRecord
}

// NewMemoryPreviewRepository 创建文件审计仓库，并从已有文件恢复。
func NewMemoryPreviewRepository(dataDir string) (*MemoryPreviewRepository, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	repo := &MemoryPreviewRepository{dataFile: filepath.Join(dataDir, "previews.log")}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// Save 以追加写的方式记录预览。
func (m *MemoryPreviewRepository) Save(_ context.Context, record PreviewRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开审计日志失败: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("序列化审计记录失败: %w", err)
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入审计日志失败: %w", err)
	}

	m.records = append([]PreviewRecord{record}, m.records...)
	if len(m.records) > memoryWindow {
		m.records = m.records[:memoryWindow]
	}
	return nil
}

// ListLatest 返回最近的记录，按时间倒序。
func (m *MemoryPreviewRepository) ListLatest(_ context.Context, limit int) ([]PreviewRecord, error) {
	return m.filter(limit, func(PreviewRecord) bool { return true }), nil
}

// ListByAddress 返回某个发送方最近的记录。
func (m *MemoryPreviewRepository) ListByAddress(_ context.Context, fromAddress string, limit int) ([]PreviewRecord, error) {
	return m.filter(limit, func(r PreviewRecord) bool {
		return strings.EqualFold(r.FromAddress, fromAddress)
	}), nil
}

func (m *MemoryPreviewRepository) filter(limit int, keep func(PreviewRecord) bool) []PreviewRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]PreviewRecord, 0)
	for _, r := range m.records {
		if !keep(r) {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (m *MemoryPreviewRepository) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取审计日志失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var restored []PreviewRecord
	for scanner.Scan() {
		var record PreviewRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		restored = append([]PreviewRecord{record}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析审计日志失败: %w", err)
	}
	if len(restored) > memoryWindow {
		restored = restored[:memoryWindow]
	}
	m.records = restored
	return nil
}

// SQLPreviewRepository 使用 MySQL 存储审计记录。
type SQLPreviewRepository struct {
	db *sql.DB
}

// NewSQLPreviewRepository 打开连接池并执行迁移。
func NewSQLPreviewRepository(ctx context.Context, cfg Config) (*SQLPreviewRepository, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	applied, err := Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if len(applied) > 0 {
		logger.Named("storage").Info("preview audit schema migrated", slog.Any("versions", applied))
	}
	return &SQLPreviewRepository{db: db}, nil
}

// NewSQLPreviewRepositoryWithDB 复用已有连接，不执行迁移。
func NewSQLPreviewRepositoryWithDB(db *sql.DB) *SQLPreviewRepository {
	return &SQLPreviewRepository{db: db}
}

const (
	insertPreviewSQL = `INSERT INTO preview_audit
    (preview_id, session_id, from_address, to_address, amount, token_symbol, chain_id, success, severity, issues, warnings, double_confirm, created_at)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectPreviewSQL = `SELECT preview_id, session_id, from_address, to_address, amount, token_symbol, chain_id, success, severity, issues, warnings, double_confirm, created_at
    FROM preview_audit`
)

// Save 写入一条审计记录。
func (s *SQLPreviewRepository) Save(ctx context.Context, record PreviewRecord) error {
	issues, err := json.Marshal(nonNil(record.Issues))
	if err != nil {
		return fmt.Errorf("序列化 issues 失败: %w", err)
	}
	warnings, err := json.Marshal(nonNil(record.Warnings))
	if err != nil {
		return fmt.Errorf("序列化 warnings 失败: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, insertPreviewSQL,
		record.PreviewID,
		record.SessionID,
		record.FromAddress,
		record.ToAddress,
		record.Amount,
		record.TokenSymbol,
		record.ChainID,
		record.Success,
		record.Severity,
		string(issues),
		string(warnings),
		record.DoubleConfirm,
		record.CreatedAt,
	); err != nil {
		return fmt.Errorf("写入 MySQL 失败: %w", err)
	}
	return nil
}

// ListLatest 查询最近的审计记录。
func (s *SQLPreviewRepository) ListLatest(ctx context.Context, limit int) ([]PreviewRecord, error) {
	return s.query(ctx, selectPreviewSQL+` ORDER BY created_at DESC, id DESC LIMIT ?`, normalizeLimit(limit))
}

// ListByAddress 查询某个发送方的审计记录。
func (s *SQLPreviewRepository) ListByAddress(ctx context.Context, fromAddress string, limit int) ([]PreviewRecord, error) {
	return s.query(ctx, selectPreviewSQL+` WHERE from_address = ? ORDER BY created_at DESC, id DESC LIMIT ?`, fromAddress, normalizeLimit(limit))
}

func (s *SQLPreviewRepository) query(ctx context.Context, stmt string, args ...any) ([]PreviewRecord, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("查询审计记录失败: %w", err)
	}
	defer rows.Close()

	var records []PreviewRecord
	for rows.Next() {
		var (
			r                PreviewRecord
			issues, warnings string
		)
		if err := rows.Scan(&r.PreviewID, &r.SessionID, &r.FromAddress, &r.ToAddress, &r.Amount, &r.TokenSymbol,
			&r.ChainID, &r.Success, &r.Severity, &issues, &warnings, &r.DoubleConfirm, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析审计记录失败: %w", err)
		}
		_ = json.Unmarshal([]byte(issues), &r.Issues)
		_ = json.Unmarshal([]byte(warnings), &r.Warnings)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历审计记录失败: %w", err)
	}
	return records, nil
}

// Close 关闭底层数据库连接。
func (s *SQLPreviewRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 20
	}
	return limit
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
