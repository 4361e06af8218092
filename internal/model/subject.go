// Package model defines the core data types for the aggregation pipeline.
package model

import "strings"

// Subject identifies the researcher being aggregated. The optional fields
// narrow the confidence scoring; MemberID is the stable key used for
// delivery dedup against the backend.
type Subject struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Institution  string `json:"current_institution,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
	MemberID     string `json:"member_document_id,omitempty"`
}

// FullName returns "First Last" with surrounding whitespace trimmed.
func (s Subject) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// HasDeliveryKey reports whether the subject carries a well-formed external
// identifier. Without one, delivery filtering is skipped entirely.
func (s Subject) HasDeliveryKey() bool {
	return strings.TrimSpace(s.MemberID) != ""
}
