package order

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidID(t *testing.T) {
	testCases := []struct {
		id       string
		expected bool
	}{
		{id: "ord_123-ABC", expected: true},
		{id: "a", expected: true},
		{id: strings.Repeat("x", 64), expected: true},
		{id: strings.Repeat("x", 65), expected: false},
		{id: "", expected: false},
		{id: "ord 1", expected: false},
		{id: "ord';DROP", expected: false},
		{id: "ord/1", expected: false},
		{id: "ördér", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			assert.Equal(t, tc.expected, ValidID(tc.id))
		})
	}
}

func TestUsableInvoiceID(t *testing.T) {
	assert.True(t, UsableInvoiceID("INV-1"))
	assert.True(t, UsableInvoiceID(strings.Repeat("i", 255)))
	assert.False(t, UsableInvoiceID(strings.Repeat("i", 256)))
	assert.False(t, UsableInvoiceID(""))
}

func TestNewStatus(t *testing.T) {
	s, err := NewStatus("pending")
	assert.NoError(t, err)
	assert.Equal(t, StatusPending, s)
	assert.True(t, s.IsAwaitingPayment())

	_, err = NewStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	assert.False(t, StatusCompleted.IsAwaitingPayment())
	assert.False(t, StatusDocumentVerification.IsAwaitingPayment())
}

func TestNewLanguage(t *testing.T) {
	assert.Equal(t, LanguageID, NewLanguage("id"))
	assert.Equal(t, LanguageEN, NewLanguage("en"))
	assert.Equal(t, LanguageEN, NewLanguage("fr"))
	assert.Equal(t, LanguageEN, NewLanguage(""))
}

func TestLookupQuery_Validate(t *testing.T) {
	since := time.Now()

	assert.ErrorIs(t, LookupQuery{}.Validate(), ErrInvalidQuery)
	assert.ErrorIs(t, LookupQuery{InvoiceID: strings.Repeat("i", 256)}.Validate(), ErrInvalidQuery)
	assert.NoError(t, LookupQuery{InvoiceID: "INV-1"}.Validate())
	assert.NoError(t, LookupQuery{Statuses: AwaitingPayment, CreatedAfter: &since}.Validate())
}

func TestEventQuery_Normalize(t *testing.T) {
	assert.Equal(t, DefaultEventPageSize, EventQuery{}.Normalize().Limit)
	assert.Equal(t, MaxEventPageSize, EventQuery{Limit: 10_000}.Normalize().Limit)
	assert.Equal(t, 7, EventQuery{Limit: 7}.Normalize().Limit)
}
