package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/core/session"
	"github.com/omnibank/fraudline-voice-service/internal/core/tool"
	"github.com/omnibank/fraudline-voice-service/internal/prompts"
	"github.com/omnibank/fraudline-voice-service/internal/store"
)

// CallHandler exposes the call lifecycle and the tool-invocation surface
// the external orchestrator drives. Speech, model and synthesis all live
// on the orchestrator's side; this API only carries text in and spoken
// strings out.
type CallHandler struct {
	sessions *session.Manager
	tools    *tool.Manager
	callLog  *store.CallLogRepository // nil without a database
}

// NewCallHandler creates a new call handler.
func NewCallHandler(sessions *session.Manager, tools *tool.Manager, callLog *store.CallLogRepository) *CallHandler {
	return &CallHandler{
		sessions: sessions,
		tools:    tools,
		callLog:  callLog,
	}
}

// StartCallResponse is returned when a new call session is created.
type StartCallResponse struct {
	CallID      string `json:"call_id"`
	AgentName   string `json:"agent_name"`
	OpeningLine string `json:"opening_line"`
	State       string `json:"state"`
}

// InvokeToolRequest is one tool invocation from the orchestrator.
type InvokeToolRequest struct {
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
}

// InvokeToolResponse carries the tool output back to the orchestrator.
// Output is spoken text (or a JSON payload for load_fraud_case) to be
// relayed to the model.
type InvokeToolResponse struct {
	CallID   string `json:"call_id"`
	ToolName string `json:"tool_name"`
	Output   string `json:"output"`
	State    string `json:"state"`
}

// EndCallResponse reports the conversational state a call ended in.
type EndCallResponse struct {
	CallID     string `json:"call_id"`
	FinalState string `json:"final_state"`
}

// StartCall creates a new conversation session.
// POST /api/calls
func (h *CallHandler) StartCall(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Create(r.Context())
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	if h.callLog != nil {
		if err := h.callLog.CallStarted(r.Context(), sess.ID, prompts.AgentName); err != nil {
			logger.Base().Warn("Failed to persist call start", zap.String("call_id", sess.ID), zap.Error(err))
		}
	}

	state, _ := sess.Snapshot()
	writeJSON(w, http.StatusCreated, StartCallResponse{
		CallID:      sess.ID,
		AgentName:   prompts.AgentName,
		OpeningLine: prompts.OpeningLine,
		State:       state.String(),
	})
}

// InvokeTool runs one named tool against the call's session.
// POST /api/calls/{id}/tools/invoke
func (h *CallHandler) InvokeTool(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]

	sess, err := h.sessions.Get(callID)
	if err != nil {
		http.Error(w, "call not found", http.StatusNotFound)
		return
	}

	var req InvokeToolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ToolName == "" {
		http.Error(w, "tool_name is required", http.StatusBadRequest)
		return
	}

	output, err := h.tools.ExecuteTool(r.Context(), sess, req.ToolName, string(req.Arguments))
	if err != nil {
		logger.Base().Warn("Tool invocation rejected",
			zap.String("call_id", callID),
			zap.String("tool_name", req.ToolName),
			zap.Error(err),
		)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	state, _ := sess.Snapshot()
	writeJSON(w, http.StatusOK, InvokeToolResponse{
		CallID:   callID,
		ToolName: req.ToolName,
		Output:   output,
		State:    state.String(),
	})
}

// EndCall discards the call's session.
// DELETE /api/calls/{id}
func (h *CallHandler) EndCall(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]

	sess, err := h.sessions.End(r.Context(), callID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			http.Error(w, "call not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	state, _ := sess.Snapshot()
	if h.callLog != nil {
		if err := h.callLog.CallEnded(r.Context(), callID, state.String()); err != nil {
			logger.Base().Warn("Failed to persist call end", zap.String("call_id", callID), zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, EndCallResponse{
		CallID:     callID,
		FinalState: state.String(),
	})
}

// AgentDefinitionResponse is the bootstrap package for the orchestrator:
// persona, system prompt, and the function-tool schemas to register with
// its model.
type AgentDefinitionResponse struct {
	AgentName    string        `json:"agent_name"`
	Instructions string        `json:"instructions"`
	OpeningLine  string        `json:"opening_line"`
	Tools        []interface{} `json:"tools"`
}

// GetAgentDefinition returns the agent persona and tool schemas.
// GET /api/agent/definition
func (h *CallHandler) GetAgentDefinition(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AgentDefinitionResponse{
		AgentName:    prompts.AgentName,
		Instructions: prompts.AgentInstructions,
		OpeningLine:  prompts.OpeningLine,
		Tools:        h.tools.Definitions(),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Base().Error("Failed to encode response", zap.Error(err))
	}
}
