package callflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/omnibank/fraudline-voice-service/pkg/logger"
	"go.uber.org/zap"

	"github.com/omnibank/fraudline-voice-service/internal/audit"
	"github.com/omnibank/fraudline-voice-service/internal/domain"
	"github.com/omnibank/fraudline-voice-service/internal/store"
)

// Spoken results returned to the orchestrator. Every outcome crosses the
// boundary as human-readable text to be relayed (or paraphrased) to the
// caller; nothing in this package panics or leaks structured errors.
const (
	msgInternalVerifyError = "Internal Error: Unable to verify account details."
	msgVerificationFailed  = "Verification failed. We cannot proceed further with the verification process."
	msgCaseIssue           = "I'm sorry, an issue occurred with your case details. Please call our main fraud line for assistance."
	msgProcessingIssue     = "I'm sorry, an issue occurred while processing your request. Please call our main fraud line for assistance."
	msgConfirmedSafe       = "Thank you. The transaction has been marked as legitimate and your card is safe to use."
	msgConfirmedFraud      = "Thank you for confirming. The transaction has been marked as fraudulent. We have immediately blocked your card and initiated a dispute. A new card will be sent to you in 3-5 business days."
	msgAuditDegraded       = " Please note there was an internal issue recording the outcome; our team will follow up to make sure it is captured."
	msgAlreadyBound        = "A case is already being handled on this call. Please continue with the current verification."
)

// Controller exposes the three call-flow operations the external
// orchestrator drives turn by turn. It enforces the legal ordering: the
// orchestrator picks which operation to invoke, but an invocation only
// succeeds in the states where it is legal.
type Controller struct {
	store store.CaseStore
	audit audit.Sink
}

// NewController wires the controller to its case store and audit sink.
func NewController(cs store.CaseStore, sink audit.Sink) *Controller {
	return &Controller{store: cs, audit: sink}
}

// loadResult is the structured payload returned by LoadCase so the LLM
// can frame the conversation around the case details.
type loadResult struct {
	Status      string       `json:"status"`
	Message     string       `json:"message"`
	CaseDetails *caseDetails `json:"case_details,omitempty"`
}

type caseDetails struct {
	CustomerName      string `json:"customer_name"`
	TransactionAmount string `json:"transaction_amount"`
	MerchantName      string `json:"merchant_name"`
	MaskedCard        string `json:"masked_card"`
	Location          string `json:"location"`
	Timestamp         string `json:"timestamp"`
	SecurityQuestion  string `json:"security_question"`
}

// LoadCase looks up a pending fraud case from the customer's spoken name
// and binds it to the session. Binding is write-once: a second load on
// the same session is rejected without touching the bound case. A lookup
// miss leaves the session unbound; the orchestrator ends the call.
func (c *Controller) LoadCase(ctx context.Context, sess *Session, utterance string) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateUnbound {
		logger.Base().Warn("load_fraud_case called with a case already bound",
			zap.String("session_id", sess.ID),
			zap.String("state", sess.State.String()),
		)
		return marshalLoadResult(loadResult{Status: "error", Message: msgAlreadyBound})
	}

	key, err := c.store.Find(ctx, utterance)
	if err != nil {
		logger.Base().Info("No fraud case matched utterance", zap.String("session_id", sess.ID))
		return marshalLoadResult(loadResult{
			Status: "error",
			Message: fmt.Sprintf("I'm sorry, I could not find a pending fraud alert associated with the name '%s'. "+
				"To protect your security, I must end this call. Please call our main fraud line later.", strings.TrimSpace(utterance)),
		})
	}

	rec, err := c.store.Get(ctx, key)
	if err != nil {
		logger.Base().Error("Case vanished between find and get", zap.String("key", key), zap.Error(err))
		return marshalLoadResult(loadResult{Status: "error", Message: msgCaseIssue})
	}

	sess.ActiveCaseKey = key
	sess.State = StateBound
	logger.Base().Info("Fraud case bound to session",
		zap.String("session_id", sess.ID),
		zap.String("case_id", rec.CaseID),
		zap.String("key", key),
	)

	return marshalLoadResult(loadResult{
		Status:  "case_loaded",
		Message: fmt.Sprintf("Case loaded. Proceed to security question: '%s'", rec.SecurityQuestion),
		CaseDetails: &caseDetails{
			CustomerName:      rec.CustomerName,
			TransactionAmount: rec.TransactionAmount,
			MerchantName:      rec.MerchantName,
			MaskedCard:        rec.MaskedCard,
			Location:          rec.Location,
			Timestamp:         rec.Timestamp,
			SecurityQuestion:  rec.SecurityQuestion,
		},
	})
}

// VerifyAnswer checks the customer's response against the bound case's
// security answer, case-insensitively and whitespace-trimmed. A mismatch
// is terminal for the session: there is no second attempt.
func (c *Controller) VerifyAnswer(ctx context.Context, sess *Session, answer string) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateBound || sess.ActiveCaseKey == "" {
		sess.VerificationFailed = true
		logger.Base().Warn("verify_security_answer called without a bound case",
			zap.String("session_id", sess.ID),
			zap.String("state", sess.State.String()),
		)
		return msgInternalVerifyError
	}

	rec, err := c.store.Get(ctx, sess.ActiveCaseKey)
	if err != nil {
		sess.VerificationFailed = true
		logger.Base().Error("Failed to load bound case for verification",
			zap.String("session_id", sess.ID),
			zap.String("key", sess.ActiveCaseKey),
			zap.Error(err),
		)
		return msgInternalVerifyError
	}

	expected := strings.ToLower(strings.TrimSpace(rec.SecurityAnswer))
	given := strings.ToLower(strings.TrimSpace(answer))

	if given != expected {
		sess.State = StateFailed
		sess.VerificationFailed = true
		logger.Base().Info("Security verification failed",
			zap.String("session_id", sess.ID),
			zap.String("case_id", rec.CaseID),
		)
		return msgVerificationFailed
	}

	sess.State = StateVerified
	logger.Base().Info("Security verification passed",
		zap.String("session_id", sess.ID),
		zap.String("case_id", rec.CaseID),
	)

	details := fmt.Sprintf("a purchase of $%s at %s in %s on %s using card number %s",
		rec.TransactionAmount, rec.MerchantName, rec.Location, rec.Timestamp, rec.MaskedCard)
	return fmt.Sprintf("Verification successful. The suspicious transaction details are: %s. "+
		"You must now ask the user if they made this transaction (yes/no).", details)
}

// ConfirmTransaction records the customer's yes/no decision on the bound
// case and returns the closing message the orchestrator must relay
// verbatim as the call's final utterance. Only legal from Verified; any
// other state gets the internal-error result, with a best-effort
// processing_error recorded if a case happens to be bound.
func (c *Controller) ConfirmTransaction(ctx context.Context, sess *Session, decision string) string {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateVerified || sess.ActiveCaseKey == "" {
		logger.Base().Warn("confirm_transaction called outside verified state",
			zap.String("session_id", sess.ID),
			zap.String("state", sess.State.String()),
		)
		if sess.ActiveCaseKey != "" {
			if err := c.store.Update(ctx, sess.ActiveCaseKey, domain.CaseStatusProcessingError, "Confirmation received out of order."); err != nil {
				logger.Base().Warn("Skipped out-of-order status write", zap.String("key", sess.ActiveCaseKey), zap.Error(err))
			}
		}
		return msgCaseIssue
	}

	rec, err := c.store.Get(ctx, sess.ActiveCaseKey)
	if err != nil {
		logger.Base().Error("Failed to load bound case for confirmation",
			zap.String("session_id", sess.ID),
			zap.String("key", sess.ActiveCaseKey),
			zap.Error(err),
		)
		return msgCaseIssue
	}

	status := domain.CaseStatusProcessingError
	note := "Processing failed."
	message := msgProcessingIssue

	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "yes":
		status = domain.CaseStatusConfirmedSafe
		note = "Customer confirmed transaction as legitimate."
		message = msgConfirmedSafe
	case "no":
		status = domain.CaseStatusConfirmedFraud
		note = "Customer denied transaction. Card blocked and dispute raised."
		message = msgConfirmedFraud
	default:
		logger.Base().Warn("Unrecognized confirmation decision",
			zap.String("session_id", sess.ID),
			zap.String("decision", decision),
		)
	}

	if err := c.store.Update(ctx, sess.ActiveCaseKey, status, note); err != nil {
		logger.Base().Error("Failed to record case resolution",
			zap.String("session_id", sess.ID),
			zap.String("case_id", rec.CaseID),
			zap.Error(err),
		)
		return msgProcessingIssue
	}

	sess.State = StateResolved
	logger.Base().Info("Fraud case resolved",
		zap.String("session_id", sess.ID),
		zap.String("case_id", rec.CaseID),
		zap.String("status", status),
		zap.String("outcome_note", note),
	)

	entry := audit.Entry{
		CaseID:             rec.CaseID,
		CustomerName:       rec.CustomerName,
		SecurityIdentifier: rec.SecurityIdentifier,
		TransactionAmount:  rec.TransactionAmount,
		MerchantName:       rec.MerchantName,
		Location:           rec.Location,
		Timestamp:          rec.Timestamp,
		FinalStatus:        status,
		OutcomeNote:        note,
	}
	if err := c.audit.Append(ctx, entry); err != nil {
		// Audit failure degrades gracefully: the caller still hears the
		// outcome, the trail is incomplete and the message says so.
		logger.Base().Error("Failed to append audit entry",
			zap.String("case_id", rec.CaseID),
			zap.Error(err),
		)
		return message + msgAuditDegraded
	}

	return message
}

func marshalLoadResult(res loadResult) string {
	data, err := json.Marshal(res)
	if err != nil {
		logger.Base().Error("Failed to marshal load result", zap.Error(err))
		return msgCaseIssue
	}
	return string(data)
}
