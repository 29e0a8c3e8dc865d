package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/core/callflow"
)

// Tool name constants
const (
	ToolNameLoadFraudCase        = "load_fraud_case"
	ToolNameVerifySecurityAnswer = "verify_security_answer"
	ToolNameConfirmTransaction   = "confirm_transaction"
)

// LoadFraudCaseSchema defines the parameters for the case lookup tool
var LoadFraudCaseSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"username": map[string]interface{}{
			"type":        "string",
			"description": "The customer's spoken name, as transcribed. Free-form speech is fine ('my name is Ravi'); matching is done word by word.",
		},
	},
	"required": []string{"username"},
}

// VerifySecurityAnswerSchema defines the parameters for the security check tool
var VerifySecurityAnswerSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"user_response": map[string]interface{}{
			"type":        "string",
			"description": "The customer's answer to the security question, exactly as transcribed. Do NOT attempt to judge the answer yourself.",
		},
	},
	"required": []string{"user_response"},
}

// ConfirmTransactionSchema defines the parameters for the final decision tool
var ConfirmTransactionSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"is_legitimate": map[string]interface{}{
			"type":        "string",
			"description": "The customer's answer to whether they made the transaction.",
			"enum":        []string{"yes", "no"},
		},
	},
	"required": []string{"is_legitimate"},
}

// ExecutorFunc is the function signature for tool execution. The session
// is resolved by the transport layer before dispatch; arguments arrive as
// the raw JSON string produced by the model.
type ExecutorFunc func(ctx context.Context, sess *callflow.Session, argumentsJSON string) (string, error)

// Definition describes one callable tool: metadata surfaced to the
// orchestrator's model plus the execution function.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Executor    ExecutorFunc
}

// Manager owns the tool registry and routes invocations to the call-flow
// controller. The external orchestrator decides which tool to call each
// turn; the controller enforces whether the call is legal in the
// session's current state.
type Manager struct {
	controller *callflow.Controller
	registry   map[string]*Definition
	order      []string
}

// NewManager creates a tool manager with the built-in verification tools
// registered.
func NewManager(controller *callflow.Controller) *Manager {
	m := &Manager{
		controller: controller,
		registry:   make(map[string]*Definition),
	}
	m.registerBuiltInTools()
	return m
}

// registerBuiltInTools registers the three call-flow tools. This is the
// single place to add new tools.
func (m *Manager) registerBuiltInTools() {
	m.Register(&Definition{
		Name: ToolNameLoadFraudCase,
		Description: "Loads the details of a single, pending fraud case for the given customer name. " +
			"MUST be called immediately after getting the customer's name. Returns the case details " +
			"and the security question to ask, or an error message if no case matches.",
		Parameters: LoadFraudCaseSchema,
		Executor:   m.executeLoadFraudCase,
	})

	m.Register(&Definition{
		Name: ToolNameVerifySecurityAnswer,
		Description: "Checks the customer's response against the stored security answer. MUST be called " +
			"after the customer answers the security question. Returns the transaction summary on success " +
			"or a failure notice; a failed check is final and the call must be ended.",
		Parameters: VerifySecurityAnswerSchema,
		Executor:   m.executeVerifySecurityAnswer,
	})

	m.Register(&Definition{
		Name: ToolNameConfirmTransaction,
		Description: "Records the customer's final yes/no decision on the suspicious transaction and " +
			"returns the closing message to read back verbatim before ending the call.",
		Parameters: ConfirmTransactionSchema,
		Executor:   m.executeConfirmTransaction,
	})
}

// Register adds a tool to the registry.
func (m *Manager) Register(def *Definition) {
	if _, exists := m.registry[def.Name]; !exists {
		m.order = append(m.order, def.Name)
	}
	m.registry[def.Name] = def
	logger.Base().Info("Registered tool", zap.String("name", def.Name))
}

// Definitions returns the flat function-tool definitions in registration
// order, in the shape realtime model APIs expect.
func (m *Manager) Definitions() []interface{} {
	tools := make([]interface{}, 0, len(m.order))
	for _, name := range m.order {
		def := m.registry[name]
		tools = append(tools, map[string]interface{}{
			"type":        "function",
			"name":        def.Name,
			"description": def.Description,
			"parameters":  def.Parameters,
		})
	}
	return tools
}

// ExecuteTool is the unified entry point for all tool executions. The
// returned string is the tool output for the orchestrator; an error means
// the invocation itself was malformed (unknown tool, bad arguments), not
// a call-flow outcome.
func (m *Manager) ExecuteTool(ctx context.Context, sess *callflow.Session, toolName, argumentsJSON string) (string, error) {
	logger.Base().Info("ExecuteTool called",
		zap.String("tool_name", toolName),
		zap.String("session_id", sess.ID),
	)

	def, exists := m.registry[toolName]
	if !exists {
		return "", fmt.Errorf("unknown tool: %s", toolName)
	}

	sess.Touch()
	return def.Executor(ctx, sess, argumentsJSON)
}

func (m *Manager) executeLoadFraudCase(ctx context.Context, sess *callflow.Session, argumentsJSON string) (string, error) {
	var args struct {
		Username string `json:"username"`
	}
	if err := parseArguments(argumentsJSON, &args); err != nil {
		return "", err
	}
	return m.controller.LoadCase(ctx, sess, args.Username), nil
}

func (m *Manager) executeVerifySecurityAnswer(ctx context.Context, sess *callflow.Session, argumentsJSON string) (string, error) {
	var args struct {
		UserResponse string `json:"user_response"`
	}
	if err := parseArguments(argumentsJSON, &args); err != nil {
		return "", err
	}
	return m.controller.VerifyAnswer(ctx, sess, args.UserResponse), nil
}

func (m *Manager) executeConfirmTransaction(ctx context.Context, sess *callflow.Session, argumentsJSON string) (string, error) {
	var args struct {
		IsLegitimate string `json:"is_legitimate"`
	}
	if err := parseArguments(argumentsJSON, &args); err != nil {
		return "", err
	}
	return m.controller.ConfirmTransaction(ctx, sess, args.IsLegitimate), nil
}

func parseArguments(argumentsJSON string, out interface{}) error {
	if argumentsJSON == "" {
		argumentsJSON = "{}"
	}
	if err := json.Unmarshal([]byte(argumentsJSON), out); err != nil {
		return fmt.Errorf("failed to parse tool arguments: %w", err)
	}
	return nil
}
