package models

// Provenance tells where a suggestion came from.
type Provenance string

const (
	ProvenanceRule Provenance = "rule"
	ProvenanceAI   Provenance = "ai"
)

// Confidence is a coarse quality grade for a suggestion.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Suggestion is a transient, unapplied category recommendation.
// CategoryID is nil when the suggested label matched none of the owner's categories.
type Suggestion struct {
	TransactionID uint       `json:"transaction_id"`
	CategoryID    *uint      `json:"category_id"`
	CategoryName  string     `json:"category_name,omitempty"`
	Provenance    Provenance `json:"provenance"`
	Confidence    Confidence `json:"confidence"`
	Rationale     string     `json:"rationale,omitempty"`
}
