package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnibank/fraudline-voice-service/internal/audit"
	"github.com/omnibank/fraudline-voice-service/internal/core/callflow"
	"github.com/omnibank/fraudline-voice-service/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *callflow.Session) {
	t.Helper()
	s := store.NewMemoryCaseStore(store.SeedCases())
	controller := callflow.NewController(s, audit.NewMemorySink())
	return NewManager(controller), callflow.NewSession("call-1")
}

func TestDefinitionsListBuiltInTools(t *testing.T) {
	m, _ := newTestManager(t)

	defs := m.Definitions()
	require.Len(t, defs, 3)

	names := make([]string, 0, len(defs))
	for _, d := range defs {
		def := d.(map[string]interface{})
		assert.Equal(t, "function", def["type"])
		assert.NotEmpty(t, def["description"])
		assert.NotNil(t, def["parameters"])
		names = append(names, def["name"].(string))
	}
	// Registration order is the call-flow order.
	assert.Equal(t, []string{
		ToolNameLoadFraudCase,
		ToolNameVerifySecurityAnswer,
		ToolNameConfirmTransaction,
	}, names)
}

func TestExecuteToolRoutesFullFlow(t *testing.T) {
	m, sess := newTestManager(t)
	ctx := context.Background()

	out, err := m.ExecuteTool(ctx, sess, ToolNameLoadFraudCase, `{"username": "hi this is ravi"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "case_loaded")

	out, err = m.ExecuteTool(ctx, sess, ToolNameVerifySecurityAnswer, `{"user_response": "5432"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Verification successful")

	out, err = m.ExecuteTool(ctx, sess, ToolNameConfirmTransaction, `{"is_legitimate": "no"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "marked as fraudulent")
}

func TestExecuteToolUnknownTool(t *testing.T) {
	m, sess := newTestManager(t)

	_, err := m.ExecuteTool(context.Background(), sess, "book_flight", `{}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestExecuteToolMalformedArguments(t *testing.T) {
	m, sess := newTestManager(t)

	_, err := m.ExecuteTool(context.Background(), sess, ToolNameLoadFraudCase, `{"username": `)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse tool arguments")

	// Bad arguments never bind the session.
	state, key := sess.Snapshot()
	assert.Equal(t, callflow.StateUnbound, state)
	assert.Empty(t, key)
}

func TestExecuteToolEmptyArgumentsDefaultToEmptyObject(t *testing.T) {
	m, sess := newTestManager(t)

	out, err := m.ExecuteTool(context.Background(), sess, ToolNameLoadFraudCase, "")
	require.NoError(t, err)
	// An empty username is a lookup miss, not an invocation error.
	assert.Contains(t, out, "could not find a pending fraud alert")
}

func TestExecuteToolTouchesSession(t *testing.T) {
	m, sess := newTestManager(t)
	before := sess.IdleSince()

	_, err := m.ExecuteTool(context.Background(), sess, ToolNameLoadFraudCase, `{"username": "ravi"}`)
	require.NoError(t, err)
	assert.False(t, sess.IdleSince().Before(before))
}
