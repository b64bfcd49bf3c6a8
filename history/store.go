package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Record History 的落库形态。
// Attempts 以 JSON 序列化保存，作为事后审计数据，不参与编排决策。
type Record struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"size:64;uniqueIndex"`
	AttemptCount int
	Resolved     bool
	Attempts     []byte `gorm:"type:text"`
	CreatedAt    time.Time
}

// TableName 指定表名
func (Record) TableName() string { return "reask_histories" }

// Store History 审计存储
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore 创建存储并迁移表结构
func NewStore(db *gorm.DB, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate history store: %w", err)
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "history_store"))}, nil
}

// Save 持久化一次完成的运行
func (s *Store) Save(ctx context.Context, h *History) error {
	payload, err := json.Marshal(h.Attempts)
	if err != nil {
		return fmt.Errorf("serialize attempts: %w", err)
	}
	record := &Record{
		RunID:        h.ID,
		AttemptCount: h.Len(),
		Resolved:     h.Resolved(),
		Attempts:     payload,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("save history %s: %w", h.ID, err)
	}
	s.logger.Debug("history saved",
		zap.String("run_id", h.ID),
		zap.Int("attempts", record.AttemptCount),
		zap.Bool("resolved", record.Resolved),
	)
	return nil
}

// Get 按运行 ID 查询
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	var record Record
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListUnresolved 列出预算耗尽仍未解决的运行（新到旧）
func (s *Store) ListUnresolved(ctx context.Context, limit int) ([]Record, error) {
	var records []Record
	err := s.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
