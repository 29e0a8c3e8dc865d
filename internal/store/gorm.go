package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
)

// GormCaseStore is the Postgres-backed CaseStore, used when the service is
// pointed at an external case database instead of the built-in seed table.
type GormCaseStore struct {
	db *gorm.DB
}

// OpenDatabase opens the Postgres connection shared by the case store and
// the call log repository.
func OpenDatabase(dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.New(
			logger.NewGORMWriter(),
			gormlogger.Config{
				SlowThreshold:             200 * time.Millisecond,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
	}

	db, err := gorm.Open(postgres.Open(dsn), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// NewGormCaseStore migrates the fraud_cases table and seeds it with the
// given records if it is empty.
func NewGormCaseStore(db *gorm.DB, seed []*domain.CaseRecord) (*GormCaseStore, error) {
	if err := db.AutoMigrate(&domain.CaseRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate fraud_cases: %w", err)
	}

	var count int64
	if err := db.Model(&domain.CaseRecord{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count fraud cases: %w", err)
	}

	if count == 0 && len(seed) > 0 {
		for _, rec := range seed {
			rec.CustomerKey = strings.ToLower(strings.TrimSpace(rec.CustomerKey))
		}
		if err := db.Create(seed).Error; err != nil {
			return nil, fmt.Errorf("failed to seed fraud cases: %w", err)
		}
		logger.Base().Info("Seeded fraud case table", zap.Int("cases", len(seed)))
	}

	return &GormCaseStore{db: db}, nil
}

// Find implements CaseStore. Tokens are checked in utterance order so the
// first spoken match wins, same as the in-memory store.
func (s *GormCaseStore) Find(ctx context.Context, utterance string) (string, error) {
	for _, token := range SpokenTokens(utterance) {
		var rec domain.CaseRecord
		err := s.db.WithContext(ctx).Select("customer_key").Where("customer_key = ?", token).First(&rec).Error
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("failed to look up fraud case: %w", err)
		}
	}
	return "", ErrCaseNotFound
}

// Get implements CaseStore.
func (s *GormCaseStore) Get(ctx context.Context, key string) (*domain.CaseRecord, error) {
	var rec domain.CaseRecord
	err := s.db.WithContext(ctx).Where("customer_key = ?", strings.ToLower(key)).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, fmt.Errorf("failed to get fraud case: %w", err)
	}
	return &rec, nil
}

// Update implements CaseStore. The guarded UPDATE only matches rows still
// in pending_review or already carrying the identical resolution, so two
// sessions racing on the same case cannot record conflicting outcomes.
func (s *GormCaseStore) Update(ctx context.Context, key, status, outcomeNote string) error {
	key = strings.ToLower(key)

	res := s.db.WithContext(ctx).
		Model(&domain.CaseRecord{}).
		Where("customer_key = ?", key).
		Where("status = ? OR (status = ? AND outcome_note = ?)", domain.CaseStatusPendingReview, status, outcomeNote).
		Updates(map[string]interface{}{"status": status, "outcome_note": outcomeNote})
	if res.Error != nil {
		return fmt.Errorf("failed to update fraud case: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Either the key is absent (silent no-op by contract) or the case
		// was already resolved with a different outcome.
		var count int64
		if err := s.db.WithContext(ctx).Model(&domain.CaseRecord{}).Where("customer_key = ?", key).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check fraud case: %w", err)
		}
		if count > 0 {
			return ErrCaseResolved
		}
		logger.Base().Warn("Update for unknown case key ignored", zap.String("key", key))
	}
	return nil
}

// All implements CaseStore.
func (s *GormCaseStore) All(ctx context.Context) ([]*domain.CaseRecord, error) {
	var recs []*domain.CaseRecord
	if err := s.db.WithContext(ctx).Order("customer_key").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list fraud cases: %w", err)
	}
	return recs, nil
}
