package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntry(status string) Entry {
	return Entry{
		CaseID:             "FRD-7777",
		CustomerName:       "Ravi Sharma",
		SecurityIdentifier: "ID-300C",
		TransactionAmount:  "150.50",
		MerchantName:       "Local Grocery Store",
		Location:           "Mumbai, India",
		Timestamp:          "Nov 25, 2025, 7:15 PM IST",
		FinalStatus:        status,
		OutcomeNote:        "Customer denied transaction. Card blocked and dispute raised.",
	}
}

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e), "line must be a complete JSON object")
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestFileSinkAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	defer sink.Close()

	ctx := context.Background()
	require.NoError(t, sink.Append(ctx, sampleEntry("confirmed_fraud")))
	require.NoError(t, sink.Append(ctx, sampleEntry("confirmed_safe")))

	entries := readLines(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "confirmed_fraud", entries[0].FinalStatus)
	assert.Equal(t, "confirmed_safe", entries[1].FinalStatus)
	assert.Equal(t, "FRD-7777", entries[0].CaseID)
	assert.Equal(t, "150.50", entries[0].TransactionAmount)
}

func TestFileSinkPreservesExistingEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	first, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(context.Background(), sampleEntry("confirmed_safe")))
	require.NoError(t, first.Close())

	// Reopening appends; prior lines stay intact.
	second, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, second.Append(context.Background(), sampleEntry("confirmed_fraud")))
	require.NoError(t, second.Close())

	entries := readLines(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "confirmed_safe", entries[0].FinalStatus)
	assert.Equal(t, "confirmed_fraud", entries[1].FinalStatus)
}

func TestFileSinkFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	sink, err := NewFileSink(path)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Append(context.Background(), sampleEntry("confirmed_fraud")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &m))
	for _, field := range []string{
		"case_id", "customer_name", "security_identifier", "transaction_amount",
		"merchant_name", "location", "timestamp", "final_status", "outcome_note",
	} {
		assert.Contains(t, m, field)
	}
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, sampleEntry("confirmed_safe")))
	require.NoError(t, sink.Append(ctx, sampleEntry("confirmed_fraud")))

	entries := sink.Entries()
	require.Len(t, entries, 2)

	// Entries is a snapshot, not a live view.
	entries[0].FinalStatus = "tampered"
	assert.Equal(t, "confirmed_safe", sink.Entries()[0].FinalStatus)
	assert.NoError(t, sink.Close())
}
