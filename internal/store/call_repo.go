package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
)

// CallLogRepository persists one row per verification call when a database
// is configured. It is optional: without a database the service keeps no
// call history.
type CallLogRepository struct {
	db *gorm.DB
}

// NewCallLogRepository migrates the fraud_calls table.
func NewCallLogRepository(db *gorm.DB) (*CallLogRepository, error) {
	if err := db.AutoMigrate(&domain.CallRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate fraud_calls: %w", err)
	}
	return &CallLogRepository{db: db}, nil
}

// CallStarted records the start of a call.
func (r *CallLogRepository) CallStarted(ctx context.Context, callID, agentName string) error {
	now := time.Now()
	rec := &domain.CallRecord{
		ID:        uuid.New().String(),
		CallID:    callID,
		AgentName: agentName,
		Status:    domain.CallStatusActive,
		StartedAt: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create call record: %w", err)
	}
	return nil
}

// CallEnded marks a call as ended and records the final conversational state.
func (r *CallLogRepository) CallEnded(ctx context.Context, callID, finalState string) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&domain.CallRecord{}).
		Where("call_id = ?", callID).
		Updates(map[string]interface{}{
			"status":      domain.CallStatusEnded,
			"final_state": finalState,
			"ended_at":    now,
			"updated_at":  now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to end call record: %w", res.Error)
	}
	return nil
}

// GetByCallID retrieves a call record, or nil if none exists.
func (r *CallLogRepository) GetByCallID(ctx context.Context, callID string) (*domain.CallRecord, error) {
	var rec domain.CallRecord
	err := r.db.WithContext(ctx).Where("call_id = ?", callID).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return &rec, nil
}
