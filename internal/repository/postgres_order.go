package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitegrid/commerce-service/internal/domain"
	"github.com/sitegrid/commerce-service/pkg/logger"
)

// Код ошибки PostgreSQL для нарушения уникальности
const pgUniqueViolationCode = "23505"

// PostgresOrderRepository реализация репозитория заказов через PostgreSQL
type PostgresOrderRepository struct {
	db  *pgxpool.Pool
	log *logger.Logger
}

// NewPostgresOrderRepository создает новый репозиторий заказов через PostgreSQL
func NewPostgresOrderRepository(db *pgxpool.Pool, log *logger.Logger) *PostgresOrderRepository {
	return &PostgresOrderRepository{
		db:  db,
		log: log,
	}
}

// Create создает новый заказ в базе данных.
// Уникальность stripe_session_id обеспечивается ограничением в схеме.
func (r *PostgresOrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	query := `
		INSERT INTO orders (id, org_id, price_id, stripe_session_id,
			amount_total, currency, customer_email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		order.ID,
		order.OrgID,
		order.PriceID,
		order.StripeSessionID,
		order.AmountTotal,
		order.Currency,
		order.CustomerEmail,
		string(order.Status),
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return domain.Order{}, ErrDuplicate
		}
		return domain.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return order, nil
}

// GetByID возвращает заказ по внутреннему ID из базы данных
func (r *PostgresOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	query := `
		SELECT id, org_id, price_id, stripe_session_id,
			amount_total, currency, customer_email, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	return order, nil
}

// GetBySessionID возвращает заказ по ID checkout-сессии из базы данных
func (r *PostgresOrderRepository) GetBySessionID(ctx context.Context, sessionID string) (domain.Order, error) {
	query := `
		SELECT id, org_id, price_id, stripe_session_id,
			amount_total, currency, customer_email, status, created_at, updated_at
		FROM orders
		WHERE stripe_session_id = $1
	`

	order, err := scanOrder(r.db.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("failed to get order by session: %w", err)
	}

	return order, nil
}

// ListByOrgID возвращает заказы организации из базы данных
func (r *PostgresOrderRepository) ListByOrgID(ctx context.Context, orgID uuid.UUID) ([]domain.Order, error) {
	query := `
		SELECT id, org_id, price_id, stripe_session_id,
			amount_total, currency, customer_email, status, created_at, updated_at
		FROM orders
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

// TransitionFromPending условно переводит заказ из pending в указанный статус.
// Условие status = 'pending' в WHERE сериализует конкурентные доставки одного
// события: выигрывает ровно одна, остальные видят rows affected = 0.
func (r *PostgresOrderRepository) TransitionFromPending(ctx context.Context, sessionID string, to domain.OrderStatus) (bool, error) {
	query := `
		UPDATE orders
		SET status = $1, updated_at = now()
		WHERE stripe_session_id = $2 AND status = 'pending'
	`

	tag, err := r.db.Exec(ctx, query, string(to), sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to transition order status: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// scanOrder читает заказ из строки результата
func scanOrder(row pgx.Row) (domain.Order, error) {
	var order domain.Order
	var status string

	err := row.Scan(
		&order.ID,
		&order.OrgID,
		&order.PriceID,
		&order.StripeSessionID,
		&order.AmountTotal,
		&order.Currency,
		&order.CustomerEmail,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	order.Status = domain.OrderStatus(status)
	return order, nil
}
