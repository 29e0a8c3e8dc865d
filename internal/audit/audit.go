package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// Entry is one append-only audit record, written when a fraud case is
// resolved. Field names match the downstream ingestion schema.
type Entry struct {
	CaseID             string `json:"case_id"`
	CustomerName       string `json:"customer_name"`
	SecurityIdentifier string `json:"security_identifier"`
	TransactionAmount  string `json:"transaction_amount"`
	MerchantName       string `json:"merchant_name"`
	Location           string `json:"location"`
	Timestamp          string `json:"timestamp"`
	FinalStatus        string `json:"final_status"`
	OutcomeNote        string `json:"outcome_note"`
}

// Sink receives resolved-case audit entries.
type Sink interface {
	Append(ctx context.Context, entry Entry) error
	Close() error
}

// FileSink appends JSON Lines to a local file. Each entry is marshalled
// and written with a single Write on an O_APPEND descriptor, so a crash
// mid-entry cannot corrupt previously written lines.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileSink opens (creating if needed) the audit log at path.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log %s: %w", path, err)
	}
	logger.Base().Info("Audit log opened", zap.String("path", path))
	return &FileSink{file: f, path: path}, nil
}

// Append implements Sink.
func (s *FileSink) Append(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	line := append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(line); err != nil {
		return fmt.Errorf("failed to append audit entry to %s: %w", s.path, err)
	}
	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// MemorySink keeps entries in memory. Used in tests and as the fallback
// when no audit log path is configured.
type MemorySink struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append implements Sink.
func (s *MemorySink) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Close implements Sink.
func (s *MemorySink) Close() error { return nil }

// Entries returns a snapshot of everything appended so far.
func (s *MemorySink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
