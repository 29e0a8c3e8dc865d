package domain

// Case status constants for the fraud case lifecycle.
// A case starts in pending_review and is terminal once it reaches
// any of the other values.
const (
	CaseStatusPendingReview   = "pending_review"
	CaseStatusConfirmedSafe   = "confirmed_safe"
	CaseStatusConfirmedFraud  = "confirmed_fraud"
	CaseStatusProcessingError = "processing_error"
)

// CaseRecord identifies one pending fraud investigation.
// CustomerKey is the lookup key spoken by the customer (lower-case first
// name in the seed data) and is distinct from CaseID, the bank-side
// reference number.
type CaseRecord struct {
	CustomerKey        string `json:"customer_key" gorm:"column:customer_key;primaryKey"`
	CaseID             string `json:"case_id" gorm:"column:case_id;uniqueIndex"`
	CustomerName       string `json:"customer_name" gorm:"column:customer_name"`
	SecurityIdentifier string `json:"security_identifier" gorm:"column:security_identifier"`
	MaskedCard         string `json:"masked_card" gorm:"column:masked_card"`
	TransactionAmount  string `json:"transaction_amount" gorm:"column:transaction_amount"`
	MerchantName       string `json:"merchant_name" gorm:"column:merchant_name"`
	Location           string `json:"location" gorm:"column:location"`
	Timestamp          string `json:"timestamp" gorm:"column:timestamp"`
	SecurityQuestion   string `json:"security_question" gorm:"column:security_question"`
	SecurityAnswer     string `json:"security_answer" gorm:"column:security_answer"`
	Status             string `json:"status" gorm:"column:status"`
	OutcomeNote        string `json:"outcome_note" gorm:"column:outcome_note"`
}

// TableName sets the table name for GORM
func (CaseRecord) TableName() string {
	return "fraud_cases"
}

// Resolved reports whether the case has reached a terminal status.
func (c *CaseRecord) Resolved() bool {
	return c.Status != CaseStatusPendingReview
}
