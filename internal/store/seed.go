package store

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/omnibank/fraudline-voice-service/internal/domain"
)

// SeedCases returns the built-in demo dataset: four pending cases used
// when no external seed source is configured.
func SeedCases() []*domain.CaseRecord {
	return []*domain.CaseRecord{
		{
			CustomerKey:        "ravi",
			CaseID:             "FRD-7777",
			CustomerName:       "Ravi Sharma",
			SecurityIdentifier: "ID-300C",
			MaskedCard:         "**** 6789",
			TransactionAmount:  "150.50",
			MerchantName:       "Local Grocery Store",
			Location:           "Mumbai, India",
			Timestamp:          "Nov 25, 2025, 7:15 PM IST",
			SecurityQuestion:   "What is the last four digits of your registered phone number?",
			SecurityAnswer:     "5432",
			Status:             domain.CaseStatusPendingReview,
		},
		{
			CustomerKey:        "doremon",
			CaseID:             "FRD-2222",
			CustomerName:       "The Doremon",
			SecurityIdentifier: "ID-567G",
			MaskedCard:         "**** 2020",
			TransactionAmount:  "20.00",
			MerchantName:       "World Martial Arts",
			Location:           "Toronto, Canada",
			Timestamp:          "Nov 26, 2025, 4:00 PM EST",
			SecurityQuestion:   "who is your friend?",
			SecurityAnswer:     "nobita",
			Status:             domain.CaseStatusPendingReview,
		},
		{
			CustomerKey:        "hetvi",
			CaseID:             "FRD-4445",
			CustomerName:       "Hetvi",
			SecurityIdentifier: "ID-112A",
			MaskedCard:         "**** 4040",
			TransactionAmount:  "5.00",
			MerchantName:       "Clovers General Store",
			Location:           "jaipur,Rajsthan",
			Timestamp:          "Nov 26, 2025, 10:00 AM CET",
			SecurityQuestion:   "What is the color of your cloak?",
			SecurityAnswer:     "black",
			Status:             domain.CaseStatusPendingReview,
		},
		{
			CustomerKey:        "aria",
			CaseID:             "FRD-5556",
			CustomerName:       "Aria",
			SecurityIdentifier: "ID-334Y",
			MaskedCard:         "**** 5050",
			TransactionAmount:  "60.00",
			MerchantName:       "Blue Lock Football",
			Location:           "Surat,India",
			Timestamp:          "Nov 27, 2025, 5:00 PM CET",
			SecurityQuestion:   "What is your primary weapon?",
			SecurityAnswer:     "cool",
			Status:             domain.CaseStatusPendingReview,
		},
	}
}

// LoadSeedFile reads a JSON array of case records from path. Records with
// an empty status default to pending_review.
func LoadSeedFile(path string) ([]*domain.CaseRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var cases []*domain.CaseRecord
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	for _, c := range cases {
		if c.Status == "" {
			c.Status = domain.CaseStatusPendingReview
		}
	}
	return cases, nil
}
