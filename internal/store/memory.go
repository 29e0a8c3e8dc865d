package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
)

// MemoryCaseStore is the default CaseStore: a mutex-guarded map seeded at
// construction. The map is read-mostly; writes only happen when a case is
// resolved at the end of a call.
type MemoryCaseStore struct {
	mu    sync.RWMutex
	cases map[string]*domain.CaseRecord
}

// NewMemoryCaseStore builds a store from the given seed records. Keys are
// normalized to lower case so lookup never depends on seed casing.
func NewMemoryCaseStore(seed []*domain.CaseRecord) *MemoryCaseStore {
	s := &MemoryCaseStore{
		cases: make(map[string]*domain.CaseRecord, len(seed)),
	}
	for _, rec := range seed {
		cp := &domain.CaseRecord{}
		if err := copier.Copy(cp, rec); err != nil {
			logger.Base().Error("Failed to copy seed case", zap.String("case_id", rec.CaseID), zap.Error(err))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(cp.CustomerKey))
		cp.CustomerKey = key
		s.cases[key] = cp
	}
	logger.Base().Info("Case store seeded", zap.Int("cases", len(s.cases)))
	return s
}

// Find implements CaseStore.
func (s *MemoryCaseStore) Find(ctx context.Context, utterance string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, token := range SpokenTokens(utterance) {
		if _, ok := s.cases[token]; ok {
			return token, nil
		}
	}
	return "", ErrCaseNotFound
}

// Get implements CaseStore. The returned record is a deep copy so callers
// can never mutate store state behind the lock.
func (s *MemoryCaseStore) Get(ctx context.Context, key string) (*domain.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.cases[strings.ToLower(key)]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return s.copyCase(rec), nil
}

// Update implements CaseStore. Absent keys are a silent no-op; a terminal
// case only accepts an identical repeat of the recorded resolution.
func (s *MemoryCaseStore) Update(ctx context.Context, key, status, outcomeNote string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cases[strings.ToLower(key)]
	if !ok {
		logger.Base().Warn("Update for unknown case key ignored", zap.String("key", key))
		return nil
	}

	if rec.Resolved() && (rec.Status != status || rec.OutcomeNote != outcomeNote) {
		return ErrCaseResolved
	}

	rec.Status = status
	rec.OutcomeNote = outcomeNote
	logger.Base().Info("Updated fraud case",
		zap.String("case_id", rec.CaseID),
		zap.String("key", rec.CustomerKey),
		zap.String("status", status),
		zap.String("outcome_note", outcomeNote),
	)
	return nil
}

// All implements CaseStore.
func (s *MemoryCaseStore) All(ctx context.Context) ([]*domain.CaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.CaseRecord, 0, len(s.cases))
	for _, rec := range s.cases {
		out = append(out, s.copyCase(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CustomerKey < out[j].CustomerKey })
	return out, nil
}

// copyCase returns a deep copy of a record. Caller must hold the lock.
func (s *MemoryCaseStore) copyCase(rec *domain.CaseRecord) *domain.CaseRecord {
	cp := &domain.CaseRecord{}
	if err := copier.Copy(cp, rec); err != nil {
		logger.Base().Error("Failed to copy case record", zap.String("case_id", rec.CaseID), zap.Error(err))
		clone := *rec
		return &clone
	}
	return cp
}
