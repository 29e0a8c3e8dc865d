package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
	"github.com/omnibank/fraudline-voice-service/internal/store"
)

// CaseHandler exposes read-only case inspection for operators. The
// security answer never leaves the service; only the question and the
// descriptive fields are shown.
type CaseHandler struct {
	cases store.CaseStore
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(cases store.CaseStore) *CaseHandler {
	return &CaseHandler{cases: cases}
}

// CaseView is the redacted external view of a case record.
type CaseView struct {
	CustomerKey        string `json:"customer_key"`
	CaseID             string `json:"case_id"`
	CustomerName       string `json:"customer_name"`
	SecurityIdentifier string `json:"security_identifier"`
	MaskedCard         string `json:"masked_card"`
	TransactionAmount  string `json:"transaction_amount"`
	MerchantName       string `json:"merchant_name"`
	Location           string `json:"location"`
	Timestamp          string `json:"timestamp"`
	SecurityQuestion   string `json:"security_question"`
	Status             string `json:"status"`
	OutcomeNote        string `json:"outcome_note"`
}

// ListCases returns all cases.
// GET /api/cases
func (h *CaseHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	recs, err := h.cases.All(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	views := make([]CaseView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, redact(rec))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cases": views,
		"total": len(views),
	})
}

// GetCase returns one case by customer key.
// GET /api/cases/{key}
func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	rec, err := h.cases.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrCaseNotFound) {
			http.Error(w, "case not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, redact(rec))
}

func redact(rec *domain.CaseRecord) CaseView {
	return CaseView{
		CustomerKey:        rec.CustomerKey,
		CaseID:             rec.CaseID,
		CustomerName:       rec.CustomerName,
		SecurityIdentifier: rec.SecurityIdentifier,
		MaskedCard:         rec.MaskedCard,
		TransactionAmount:  rec.TransactionAmount,
		MerchantName:       rec.MerchantName,
		Location:           rec.Location,
		Timestamp:          rec.Timestamp,
		SecurityQuestion:   rec.SecurityQuestion,
		Status:             rec.Status,
		OutcomeNote:        rec.OutcomeNote,
	}
}
