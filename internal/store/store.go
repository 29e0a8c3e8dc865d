package store

import (
	"context"
	"errors"
	"strings"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
)

var (
	// ErrCaseNotFound indicates no stored key matched the utterance.
	ErrCaseNotFound = errors.New("fraud case not found")
	// ErrCaseResolved indicates a write tried to move a case out of a
	// terminal status with different values than the ones already recorded.
	ErrCaseResolved = errors.New("fraud case already resolved")
)

// CaseStore owns the authoritative set of fraud cases, keyed by a
// case-insensitive customer lookup key.
type CaseStore interface {
	// Find key-spots the utterance against the stored keys: each
	// whitespace-separated token is lower-cased and compared for an exact
	// key match, scanning tokens in utterance order. Returns the first
	// matching key or ErrCaseNotFound.
	Find(ctx context.Context, utterance string) (string, error)

	// Get returns a copy of the case for the given key, or ErrCaseNotFound.
	Get(ctx context.Context, key string) (*domain.CaseRecord, error)

	// Update overwrites status and outcome note for the given key.
	// Absent keys are a silent no-op: callers are expected to have bound
	// the key via a prior successful Find. A case already in a terminal
	// status only accepts an identical repeat of the recorded values,
	// so two sessions cannot resolve the same case differently.
	Update(ctx context.Context, key, status, outcomeNote string) error

	// All returns copies of every stored case.
	All(ctx context.Context) ([]*domain.CaseRecord, error)
}

// SpokenTokens splits a transcribed utterance into lower-cased candidate
// lookup tokens, preserving utterance order. Transcriptions arrive as
// free-form speech ("my name is Ravi"), so lookup is by key-spotting
// rather than exact match.
func SpokenTokens(utterance string) []string {
	fields := strings.Fields(utterance)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := strings.ToLower(strings.TrimSpace(f)); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
