package order_repo

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"PaymentWebhooks/internal/api/domain/order"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const selectOrders = `SELECT id, invoice_id, external_id, customer_name, customer_email, language, service_name, status, created_at, updated_at FROM orders`

func newMockRepo(t *testing.T) (*repo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return &repo{db: mock, builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)}, mock
}

func orderRows(mock pgxmock.PgxPoolIface) *pgxmock.Rows {
	return mock.NewRows([]string{"id", "invoice_id", "external_id", "customer_name", "customer_email", "language", "service_name", "status", "created_at", "updated_at"})
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	invoiceID := "INV-1"

	t.Run("should return order", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOrders+` WHERE id = $1`)).
			WithArgs("ord_1").
			WillReturnRows(orderRows(mock).AddRow("ord_1", &invoiceID, nil, "Siti", "siti@example.com", "id", "Trademark", "pending_payment", createdAt, createdAt))

		result, err := repo.FindByID(ctx, "ord_1")

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, "ord_1", result.ID)
		require.NotNil(t, result.InvoiceID)
		assert.Equal(t, "INV-1", *result.InvoiceID)
		assert.Nil(t, result.ExternalID)
		assert.Equal(t, order.LanguageID, result.Language)
		assert.Equal(t, order.StatusPendingPayment, result.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return nil when order not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOrders+` WHERE id = $1`)).
			WithArgs("missing").
			WillReturnRows(orderRows(mock))

		result, err := repo.FindByID(ctx, "missing")

		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("should reject unknown status stored in database", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOrders+` WHERE id = $1`)).
			WithArgs("ord_1").
			WillReturnRows(orderRows(mock).AddRow("ord_1", nil, nil, "Siti", "siti@example.com", "", "Trademark", "archived", createdAt, createdAt))

		_, err := repo.FindByID(ctx, "ord_1")

		assert.ErrorIs(t, err, order.ErrInvalidStatus)
	})

	t.Run("should handle database error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOrders)).
			WithArgs("ord_1").
			WillReturnError(assert.AnError)

		result, err := repo.FindByID(ctx, "ord_1")

		require.ErrorIs(t, err, assert.AnError)
		assert.Nil(t, result)
		assert.Contains(t, err.Error(), "query order by id")
	})
}

func TestFindOne(t *testing.T) {
	ctx := context.Background()
	since := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		query order.LookupQuery
		sql   string
		args  []interface{}
	}{
		{
			name:  "exact invoice id",
			query: order.LookupQuery{InvoiceID: "INV-1"},
			sql:   selectOrders + ` WHERE invoice_id = $1 ORDER BY created_at DESC LIMIT 1`,
			args:  []interface{}{"INV-1"},
		},
		{
			name:  "invoice substring escapes wildcards",
			query: order.LookupQuery{InvoiceIDContains: `50%_off\x`},
			sql:   selectOrders + ` WHERE invoice_id LIKE $1 ORDER BY created_at DESC LIMIT 1`,
			args:  []interface{}{`%50\%\_off\\x%`},
		},
		{
			name:  "recent awaiting payment",
			query: order.LookupQuery{Statuses: order.AwaitingPayment, CreatedAfter: &since},
			sql:   selectOrders + ` WHERE status IN ($1,$2) AND created_at >= $3 ORDER BY created_at DESC LIMIT 1`,
			args:  []interface{}{order.StatusPendingPayment, order.StatusPending, since},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta(tc.sql)).
				WithArgs(tc.args...).
				WillReturnRows(orderRows(mock))

			result, err := repo.FindOne(ctx, tc.query)

			require.NoError(t, err)
			assert.Nil(t, result)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("should refuse lookup without criteria", func(t *testing.T) {
		repo, _ := newMockRepo(t)

		_, err := repo.FindOne(ctx, order.LookupQuery{})

		assert.ErrorIs(t, err, order.ErrInvalidQuery)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	updatedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	update := order.StatusUpdate{
		OrderID:   "ord_1",
		From:      order.AwaitingPayment,
		To:        order.StatusDocumentVerification,
		UpdatedAt: updatedAt,
	}
	const sql = `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status IN ($4,$5)`

	testCases := []struct {
		name     string
		affected int64
		expected bool
	}{
		{name: "should apply when order still awaits payment", affected: 1, expected: true},
		{name: "should report noop when order already moved", affected: 0, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectExec(regexp.QuoteMeta(sql)).
				WithArgs(order.StatusDocumentVerification, updatedAt, "ord_1", order.StatusPendingPayment, order.StatusPending).
				WillReturnResult(pgxmock.NewResult("UPDATE", tc.affected))

			applied, err := repo.UpdateStatus(ctx, update)

			require.NoError(t, err)
			assert.Equal(t, tc.expected, applied)
		})
	}

	t.Run("should handle database error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(sql)).
			WithArgs(order.StatusDocumentVerification, updatedAt, "ord_1", order.StatusPendingPayment, order.StatusPending).
			WillReturnError(assert.AnError)

		_, err := repo.UpdateStatus(ctx, update)

		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "update order status")
	})
}

func TestCreateWebhookEvent(t *testing.T) {
	ctx := context.Background()
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	const sql = `INSERT INTO webhook_events (id,idempotency_key,order_id,outcome,provider_event_id,payload,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)`

	newEvent := order.NewWebhookEvent{
		IdempotencyKey: "expired:order-ord_1",
		OrderID:        "ord_1",
		Outcome:        "expired",
		Payload:        json.RawMessage(`{"event":"invoice.expired"}`),
		CreatedAt:      createdAt,
	}

	t.Run("should store event without provider id", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(sql)).
			WithArgs(pgxmock.AnyArg(), "expired:order-ord_1", "ord_1", "expired", (*string)(nil), newEvent.Payload, createdAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		result, err := repo.CreateWebhookEvent(ctx, newEvent)

		require.NoError(t, err)
		assert.NotEmpty(t, result.ID)
		assert.Equal(t, newEvent, result.NewWebhookEvent)
	})

	t.Run("should map unique violation to already stored", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(sql)).
			WithArgs(pgxmock.AnyArg(), "expired:order-ord_1", "ord_1", "expired", (*string)(nil), newEvent.Payload, createdAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "webhook_events_idempotency_key_key"})

		result, err := repo.CreateWebhookEvent(ctx, newEvent)

		assert.Nil(t, result)
		assert.ErrorIs(t, err, order.ErrEventAlreadyStored)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should handle database error", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectExec(regexp.QuoteMeta(sql)).
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(assert.AnError)

		_, err := repo.CreateWebhookEvent(ctx, newEvent)

		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "create webhook event")
		assert.False(t, errors.Is(err, order.ErrEventAlreadyStored))
	})
}

func TestGetWebhookEvents(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"id", "idempotency_key", "order_id", "outcome", "provider_event_id", "payload", "created_at"}
	const selectEvents = `SELECT id, idempotency_key, order_id, outcome, provider_event_id, payload, created_at FROM webhook_events`

	t.Run("should page with cursor", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		providerID := "inv_1"
		mock.ExpectQuery(regexp.QuoteMeta(selectEvents+` WHERE order_id IN ($1) ORDER BY created_at DESC, id DESC LIMIT 3`)).
			WithArgs("ord_1").
			WillReturnRows(mock.NewRows(columns).
				AddRow("e3", "paid:inv_1", "ord_1", "paid", &providerID, json.RawMessage(`{}`), base.Add(3*time.Minute)).
				AddRow("e2", "expired:inv_0", "ord_1", "expired", nil, json.RawMessage(`{}`), base.Add(2*time.Minute)).
				AddRow("e1", "expired:inv_x", "ord_1", "expired", nil, json.RawMessage(`{}`), base.Add(time.Minute)))

		page, err := repo.GetWebhookEvents(ctx, order.EventQuery{OrderIDs: []string{"ord_1"}, Limit: 2})

		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
		assert.Equal(t, "inv_1", page.Items[0].ProviderEventID)
		assert.Empty(t, page.Items[1].ProviderEventID)

		cursor, err := decodeEventCursor(page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, "e2", cursor.EventID)

		mock.ExpectQuery(regexp.QuoteMeta(selectEvents+` WHERE order_id IN ($1) AND (created_at, id) < ($2, $3) ORDER BY created_at DESC, id DESC LIMIT 3`)).
			WithArgs("ord_1", base.Add(2*time.Minute), "e2").
			WillReturnRows(mock.NewRows(columns).
				AddRow("e1", "expired:inv_x", "ord_1", "expired", nil, json.RawMessage(`{}`), base.Add(time.Minute)))

		page, err = repo.GetWebhookEvents(ctx, order.EventQuery{OrderIDs: []string{"ord_1"}, Limit: 2, Cursor: page.NextCursor})

		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.False(t, page.HasMore)
		assert.Empty(t, page.NextCursor)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return empty list instead of null", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectEvents+` WHERE outcome IN ($1) ORDER BY created_at ASC, id ASC LIMIT 51`)).
			WithArgs("paid").
			WillReturnRows(mock.NewRows(columns))

		page, err := repo.GetWebhookEvents(ctx, order.EventQuery{Outcomes: []string{"paid"}, SortAsc: true})

		require.NoError(t, err)
		assert.NotNil(t, page.Items)
		assert.Empty(t, page.Items)
	})

	t.Run("should reject malformed cursor", func(t *testing.T) {
		repo, _ := newMockRepo(t)

		_, err := repo.GetWebhookEvents(ctx, order.EventQuery{Cursor: "not-base64!"})

		assert.ErrorIs(t, err, order.ErrInvalidQuery)
	})
}
