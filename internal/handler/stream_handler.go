package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/core/session"
	"github.com/omnibank/fraudline-voice-service/internal/core/tool"
)

const (
	streamReadLimit   = 64 * 1024
	streamIdleTimeout = 5 * time.Minute
	streamWriteWait   = 10 * time.Second
)

// Frame types on the call stream
const (
	FrameTypeToolInvoke = "tool_invoke"
	FrameTypeToolResult = "tool_result"
	FrameTypeError      = "error"
)

// StreamFrame is one message on the per-call WebSocket. The orchestrator
// sends tool_invoke frames turn by turn and receives tool_result (or
// error) frames; InvokeID correlates the two.
type StreamFrame struct {
	Type      string          `json:"type"`
	InvokeID  string          `json:"invoke_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Output    string          `json:"output,omitempty"`
	State     string          `json:"state,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// StreamHandler serves the per-call duplex channel for orchestrators that
// prefer a persistent connection over request/response.
type StreamHandler struct {
	sessions *session.Manager
	tools    *tool.Manager
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(sessions *session.Manager, tools *tool.Manager) *StreamHandler {
	return &StreamHandler{
		sessions: sessions,
		tools:    tools,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Auth happens in middleware before the upgrade.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Stream upgrades the connection and serves tool invocations until the
// orchestrator disconnects. Disconnecting does not end the session; the
// orchestrator can reconnect or fall back to the HTTP endpoint.
// GET /api/calls/{id}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	callID := mux.Vars(r)["id"]

	sess, err := h.sessions.Get(callID)
	if err != nil {
		http.Error(w, "call not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Base().Warn("WebSocket upgrade failed", zap.String("call_id", callID), zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(streamReadLimit)
	logger.Base().Info("Call stream opened", zap.String("call_id", callID))

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamIdleTimeout))

		var frame StreamFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Base().Warn("Call stream closed unexpectedly", zap.String("call_id", callID), zap.Error(err))
			} else {
				logger.Base().Info("Call stream closed", zap.String("call_id", callID))
			}
			return
		}

		if frame.Type != FrameTypeToolInvoke {
			h.writeFrame(conn, StreamFrame{
				Type:     FrameTypeError,
				InvokeID: frame.InvokeID,
				Message:  "unsupported frame type: " + frame.Type,
			})
			continue
		}

		output, err := h.tools.ExecuteTool(r.Context(), sess, frame.ToolName, string(frame.Arguments))
		if err != nil {
			h.writeFrame(conn, StreamFrame{
				Type:     FrameTypeError,
				InvokeID: frame.InvokeID,
				ToolName: frame.ToolName,
				Message:  err.Error(),
			})
			continue
		}

		state, _ := sess.Snapshot()
		h.writeFrame(conn, StreamFrame{
			Type:     FrameTypeToolResult,
			InvokeID: frame.InvokeID,
			ToolName: frame.ToolName,
			Output:   output,
			State:    state.String(),
		})
	}
}

func (h *StreamHandler) writeFrame(conn *websocket.Conn, frame StreamFrame) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	if err := conn.WriteJSON(frame); err != nil {
		logger.Base().Warn("Failed to write stream frame", zap.Error(err))
	}
}
