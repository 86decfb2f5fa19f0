package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const productColumns = `id, name, description, price::text, category, available, created_at, updated_at`

type productRepository struct {
	store *Store
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.store.conn(ctx).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return product, nil
}

func (r *productRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := productWhere(filter)
	rows, err := r.store.conn(ctx).Query(ctx,
		`SELECT `+productColumns+` FROM products`+where.String()+` ORDER BY id`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func (r *productRepository) Count(ctx context.Context, filter domain.ProductFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := productWhere(filter)
	var n int
	if err := r.store.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM products`+where.String(), where.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

func (r *productRepository) ExistsByName(ctx context.Context, name string, excludeID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	err := r.store.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM products WHERE lower(name) = lower($1) AND id <> $2
		)
	`, name, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check product name: %w", err)
	}
	return exists, nil
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := nowUTC()
	conn := r.store.conn(ctx)

	if product.ID == 0 {
		err := conn.QueryRow(ctx, `
			INSERT INTO products (
				name, description, price, category, available, created_at, updated_at
			) VALUES ($1,$2,$3::numeric,$4,$5,$6,$6)
			RETURNING id, created_at, updated_at
		`,
			product.Name, product.Description, product.Price.String(), string(product.Category), product.Available, now,
		).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert product: %w", translateUniqueViolation(err))
		}
		return nil
	}

	err := conn.QueryRow(ctx, `
		UPDATE products
		SET name = $1,
		    description = $2,
		    price = $3::numeric,
		    category = $4,
		    available = $5,
		    updated_at = $6
		WHERE id = $7
		RETURNING created_at, updated_at
	`,
		product.Name, product.Description, product.Price.String(), string(product.Category), product.Available, now, product.ID,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrProductNotFound
		}
		return fmt.Errorf("update product: %w", translateUniqueViolation(err))
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.store.conn(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func productWhere(filter domain.ProductFilter) whereClause {
	var w whereClause
	if filter.Category != nil {
		w.add("category = ?", string(*filter.Category))
	}
	if filter.AvailableOnly {
		w.addRaw("available")
	}
	if filter.NameContains != "" {
		w.add("strpos(lower(name), lower(?)) > 0", filter.NameContains)
	}
	if filter.MinPrice != nil {
		w.add("price >= ?::numeric", filter.MinPrice.String())
	}
	if filter.MaxPrice != nil {
		w.add("price <= ?::numeric", filter.MaxPrice.String())
	}
	return w
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p        domain.Product
		price    string
		category string
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &price,
		&category, &p.Available, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return domain.Product{}, err
	}
	parsed, err := decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse product price %q: %w", price, err)
	}
	p.Price = parsed
	p.Category = domain.ProductCategory(category)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
