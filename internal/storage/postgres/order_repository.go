package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const orderColumns = `id, customer_name, drink, quantity, status, created_at`

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.store.conn(ctx).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := orderWhere(filter)
	rows, err := r.store.conn(ctx).Query(ctx,
		`SELECT `+orderColumns+` FROM orders`+where.String()+` ORDER BY id`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func (r *orderRepository) Count(ctx context.Context, filter domain.OrderFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := orderWhere(filter)
	var n int
	if err := r.store.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM orders`+where.String(), where.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	conn := r.store.conn(ctx)

	if order.ID == 0 {
		if order.CreatedAt.IsZero() {
			order.CreatedAt = nowUTC()
		}
		err := conn.QueryRow(ctx, `
			INSERT INTO orders (customer_name, drink, quantity, status, created_at)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id, created_at
		`,
			order.CustomerName, order.Drink, order.Quantity, string(order.Status), order.CreatedAt,
		).Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		order.CreatedAt = order.CreatedAt.UTC()
		return nil
	}

	err := conn.QueryRow(ctx, `
		UPDATE orders
		SET customer_name = $1,
		    drink = $2,
		    quantity = $3,
		    status = $4
		WHERE id = $5
		RETURNING created_at
	`,
		order.CustomerName, order.Drink, order.Quantity, string(order.Status), order.ID,
	).Scan(&order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("update order: %w", err)
	}
	order.CreatedAt = order.CreatedAt.UTC()
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.store.conn(ctx).Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func orderWhere(filter domain.OrderFilter) whereClause {
	var w whereClause
	if filter.Status != nil {
		w.add("status = ?", string(*filter.Status))
	}
	if filter.CustomerContains != "" {
		w.add("strpos(lower(customer_name), lower(?)) > 0", filter.CustomerContains)
	}
	return w
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	if err := row.Scan(&o.ID, &o.CustomerName, &o.Drink, &o.Quantity, &status, &o.CreatedAt); err != nil {
		return domain.Order{}, err
	}
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
