package types

import "strings"

// Address is the shipping/contact address stored as JSON on order rows.
type Address struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

// IsZero reports whether no field is populated.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Oneline renders the address for log lines and order summaries.
func (a Address) Oneline() string {
	parts := []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country}
	filled := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			filled = append(filled, p)
		}
	}
	return strings.Join(filled, ", ")
}
