package order_repo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"PaymentWebhooks/internal/api/domain/order"
	"PaymentWebhooks/pkg/postgres"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{
	"id", "invoice_id", "external_id", "customer_name", "customer_email",
	"language", "service_name", "status", "created_at", "updated_at",
}

var eventColumns = []string{
	"id", "idempotency_key", "order_id", "outcome", "provider_event_id", "payload", "created_at",
}

// PgOrderRepo is the main repository
type PgOrderRepo struct {
	pg *postgres.Postgres
	repo
}

var _ order.Repo = (*PgOrderRepo)(nil)

func NewPgOrderRepo(pg *postgres.Postgres) *PgOrderRepo {
	return &PgOrderRepo{
		pg:   pg,
		repo: repo{db: pg.Pool, builder: pg.Builder},
	}
}

func (r *PgOrderRepo) InTransaction(ctx context.Context, fn func(repo order.TxRepo) error) error {
	return r.pg.InTransaction(ctx, func(tx postgres.Executor) error {
		txRepo := &repo{db: tx, builder: r.pg.Builder}
		return fn(txRepo)
	})
}

type repo struct {
	db      postgres.Executor
	builder squirrel.StatementBuilderType
}

func (r *repo) FindByID(ctx context.Context, id string) (*order.Order, error) {
	query, args, err := r.builder.Select(orderColumns...).
		From("orders").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find by id query: %w", err)
	}

	return r.queryOne(ctx, "query order by id", query, args)
}

func (r *repo) FindOne(ctx context.Context, q order.LookupQuery) (*order.Order, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	b := r.builder.Select(orderColumns...).From("orders")

	if q.InvoiceID != "" {
		b = b.Where(squirrel.Eq{"invoice_id": q.InvoiceID})
	}

	if q.InvoiceIDContains != "" {
		b = b.Where(squirrel.Like{"invoice_id": "%" + escapeLike(q.InvoiceIDContains) + "%"})
	}

	if len(q.Statuses) > 0 {
		b = b.Where(squirrel.Eq{"status": q.Statuses})
	}

	if q.CreatedAfter != nil {
		b = b.Where("created_at >= ?", q.CreatedAfter.UTC())
	}

	query, args, err := b.OrderBy("created_at DESC").Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookup query: %w", err)
	}

	return r.queryOne(ctx, "query order", query, args)
}

func (r *repo) UpdateStatus(ctx context.Context, u order.StatusUpdate) (bool, error) {
	b := r.builder.Update("orders").
		Set("status", u.To).
		Set("updated_at", u.UpdatedAt).
		Where(squirrel.Eq{"id": u.OrderID})
	if len(u.From) > 0 {
		b = b.Where(squirrel.Eq{"status": u.From})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("build update status query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repo) CreateWebhookEvent(ctx context.Context, event order.NewWebhookEvent) (*order.WebhookEvent, error) {
	id := uuid.New().String()

	var providerEventID *string
	if event.ProviderEventID != "" {
		providerEventID = &event.ProviderEventID
	}

	query, args, err := r.builder.Insert("webhook_events").
		Columns(eventColumns...).
		Values(id, event.IdempotencyKey, event.OrderID, event.Outcome, providerEventID, event.Payload, event.CreatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}

	_, err = r.db.Exec(ctx, query, args...)
	if postgres.IsPgErrorUniqueViolation(err) {
		return nil, order.ErrEventAlreadyStored
	}
	if err != nil {
		return nil, fmt.Errorf("create webhook event: %w", err)
	}

	return &order.WebhookEvent{
		ID:              id,
		NewWebhookEvent: event,
	}, nil
}

func (r *repo) GetWebhookEvents(ctx context.Context, q order.EventQuery) (order.EventPage, error) {
	q = q.Normalize()

	sqlQuery, args, err := r.buildEventPageQuery(q)
	if err != nil {
		return order.EventPage{}, err
	}

	rows, err := r.db.Query(ctx, sqlQuery, args...)
	if err != nil {
		return order.EventPage{}, fmt.Errorf("query webhook events: %w", err)
	}
	defer rows.Close()

	items, err := parseEventRows(rows)
	if err != nil {
		return order.EventPage{}, fmt.Errorf("parse webhook events: %w", err)
	}

	hasMore := len(items) > q.Limit
	if hasMore {
		items = items[:q.Limit]
	}

	var nextCursor string
	if hasMore {
		last := items[len(items)-1]
		nextCursor = encodeEventCursor(eventCursor{EventID: last.ID, CreatedAt: last.CreatedAt})
	}

	if items == nil {
		items = []order.WebhookEvent{}
	}

	return order.EventPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

type eventCursor struct {
	EventID   string    `json:"event_id"`
	CreatedAt time.Time `json:"created_at"`
}

func encodeEventCursor(c eventCursor) string {
	b, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(b)
}

func decodeEventCursor(s string) (eventCursor, error) {
	var c eventCursor
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, err
	}
	if c.EventID == "" || c.CreatedAt.IsZero() {
		return c, fmt.Errorf("incomplete cursor")
	}
	return c, nil
}

// SELECT ... FROM webhook_events
// WHERE order_id IN @OrderIDs AND outcome IN @Outcomes
//
//	AND (created_at, id) < (@cursor.CreatedAt, @cursor.EventID)
//
// ORDER BY created_at DESC, id DESC
// LIMIT @Limit+1
func (r *repo) buildEventPageQuery(q order.EventQuery) (string, []interface{}, error) {
	b := r.builder.Select(eventColumns...).From("webhook_events")

	if len(q.OrderIDs) > 0 {
		b = b.Where(squirrel.Eq{"order_id": q.OrderIDs})
	}

	if len(q.Outcomes) > 0 {
		b = b.Where(squirrel.Eq{"outcome": q.Outcomes})
	}

	if q.Cursor != "" {
		cursor, err := decodeEventCursor(q.Cursor)
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad cursor: %v", order.ErrInvalidQuery, err)
		}

		if q.SortAsc {
			b = b.Where("(created_at, id) > (?, ?)", cursor.CreatedAt.UTC(), cursor.EventID)
		} else {
			b = b.Where("(created_at, id) < (?, ?)", cursor.CreatedAt.UTC(), cursor.EventID)
		}
	}

	if q.SortAsc {
		b = b.OrderBy("created_at ASC", "id ASC")
	} else {
		b = b.OrderBy("created_at DESC", "id DESC")
	}

	sql, args, err := b.Limit(uint64(q.Limit + 1)).ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build webhook event query: %w", err)
	}
	return sql, args, nil
}

func (r *repo) queryOne(ctx context.Context, op, query string, args []interface{}) (*order.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	orders, err := parseOrderRows(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func parseOrderRows(rows pgx.Rows) ([]order.Order, error) {
	var orders []order.Order
	for rows.Next() {
		var o order.Order
		var rawStatus, rawLanguage string
		err := rows.Scan(&o.ID, &o.InvoiceID, &o.ExternalID, &o.CustomerName, &o.CustomerEmail,
			&rawLanguage, &o.ServiceName, &rawStatus, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		status, err := order.NewStatus(rawStatus)
		if err != nil {
			return nil, fmt.Errorf("invalid status in database: %w", err)
		}
		o.Status = status
		o.Language = order.NewLanguage(rawLanguage)

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	return orders, nil
}

func parseEventRows(rows pgx.Rows) ([]order.WebhookEvent, error) {
	var events []order.WebhookEvent
	for rows.Next() {
		var e order.WebhookEvent
		var providerEventID *string
		err := rows.Scan(&e.ID, &e.IdempotencyKey, &e.OrderID, &e.Outcome, &providerEventID, &e.Payload, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan webhook event row: %w", err)
		}
		if providerEventID != nil {
			e.ProviderEventID = *providerEventID
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate webhook event rows: %w", err)
	}

	return events, nil
}
