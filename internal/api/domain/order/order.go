package order

import (
	"regexp"
	"time"
)

type Order struct {
	ID            string    `json:"id"`
	InvoiceID     *string   `json:"invoice_id,omitempty"`
	ExternalID    *string   `json:"external_id,omitempty"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Language      Language  `json:"language"`
	ServiceName   string    `json:"service_name"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MaxInvoiceIDLength bounds identifiers used as lookup keys.
const MaxInvoiceIDLength = 255

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is a well-formed order id. Candidate ids coming
// from payloads or from the store are checked before they are used.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// UsableInvoiceID reports whether an invoice identifier may be used as a lookup key.
func UsableInvoiceID(id string) bool {
	return id != "" && len(id) <= MaxInvoiceIDLength
}

type Language string

const (
	LanguageEN Language = "en"
	LanguageID Language = "id"
)

// NewLanguage maps unknown or empty codes to English.
func NewLanguage(code string) Language {
	switch Language(code) {
	case LanguageID:
		return LanguageID
	default:
		return LanguageEN
	}
}
