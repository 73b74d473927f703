package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the pgxpool.Pool subset the repository needs; pgxmock
// satisfies it in tests.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores orders in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const orderColumns = `id, group_id, agency_id, phone, customer_name, items, quartier, carrier,
		amount_due, amount_paid, status, source_message_id, created_at, updated_at`

// Create inserts a new row in pending state.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO orders (id, group_id, agency_id, phone, customer_name, items, quartier, carrier, amount_due, status, source_message_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		req.GroupID,
		req.AgencyID,
		req.Phone,
		req.CustomerName,
		req.Items,
		req.Quartier,
		req.Carrier,
		req.AmountDue,
		string(StatusPending),
		req.SourceMessageID,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("orders: insert failed: %w", err)
	}

	return &Order{
		ID:              id,
		GroupID:         req.GroupID,
		AgencyID:        req.AgencyID,
		Phone:           req.Phone,
		CustomerName:    req.CustomerName,
		Items:           req.Items,
		Quartier:        req.Quartier,
		Carrier:         req.Carrier,
		AmountDue:       req.AmountDue,
		Status:          StatusPending,
		SourceMessageID: req.SourceMessageID,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}, nil
}

// GetByID fetches one order.
func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.scanOrder(r.pool.QueryRow(ctx, query, id))
}

// LatestByPhone fetches the most recently created order for a phone,
// whatever its status.
func (r *PostgresRepository) LatestByPhone(ctx context.Context, phone string) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE phone = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanOrder(r.pool.QueryRow(ctx, query, phone))
}

// ApplyUpdate mutates the row in a single UPDATE and appends the audit
// entry in the same transaction.
func (r *PostgresRepository) ApplyUpdate(ctx context.Context, id uuid.UUID, update Update, historyAction, details string) (*Order, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	argNum := 2
	addSet := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}
	if update.Status != nil {
		addSet("status", string(*update.Status))
	}
	if update.AmountPaid != nil {
		addSet("amount_paid", *update.AmountPaid)
	}
	if update.AmountDue != nil {
		addSet("amount_due", *update.AmountDue)
	}
	if update.Items != nil {
		addSet("items", *update.Items)
	}
	if update.Phone != nil {
		addSet("phone", *update.Phone)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("orders: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `UPDATE orders SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + orderColumns
	order, err := r.scanOrder(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, err
	}

	historyQuery := `
		INSERT INTO order_history (id, order_id, action, details)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := tx.Exec(ctx, historyQuery, uuid.New(), id, historyAction, details); err != nil {
		return nil, fmt.Errorf("orders: insert history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("orders: commit update: %w", err)
	}
	return order, nil
}

// ListRecent returns orders newest first, optionally filtered by phone
// and status.
func (r *PostgresRepository) ListRecent(ctx context.Context, filter ListFilter) ([]*Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	var args []any
	argNum := 1
	if filter.Phone != "" {
		query += fmt.Sprintf(" AND phone = $%d", argNum)
		args = append(args, filter.Phone)
		argNum++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filter.Status))
		argNum++
	}
	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT $%d", argNum)
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// History returns the audit trail of an order, oldest first.
func (r *PostgresRepository) History(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error) {
	query := `
		SELECT id, order_id, action, details, created_at
		FROM order_history
		WHERE order_id = $1
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: history query failed: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.Action, &entry.Details, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("orders: history scan failed: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) scanOrder(row pgx.Row) (*Order, error) {
	var order Order
	var status string
	if err := row.Scan(
		&order.ID,
		&order.GroupID,
		&order.AgencyID,
		&order.Phone,
		&order.CustomerName,
		&order.Items,
		&order.Quartier,
		&order.Carrier,
		&order.AmountDue,
		&order.AmountPaid,
		&status,
		&order.SourceMessageID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("orders: scan failed: %w", err)
	}
	order.Status = Status(status)
	return &order, nil
}
