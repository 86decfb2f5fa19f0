package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/cafe/internal/domain"
)

const clientColumns = `id, first_name, last_name, document_number, birth_date, active, created_at, updated_at`

type clientRepository struct {
	store *Store
}

// NewClientRepository создаёт PostgreSQL-реализацию ClientRepository.
func NewClientRepository(store *Store) domain.ClientRepository {
	return &clientRepository{store: store}
}

func (r *clientRepository) Get(ctx context.Context, id int64) (domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.store.conn(ctx).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, fmt.Errorf("select client: %w", err)
	}
	return client, nil
}

func (r *clientRepository) List(ctx context.Context, filter domain.ClientFilter) ([]domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := clientWhere(filter)
	rows, err := r.store.conn(ctx).Query(ctx,
		`SELECT `+clientColumns+` FROM clients`+where.String()+` ORDER BY id`, where.args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client row: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client rows: %w", err)
	}
	return clients, nil
}

func (r *clientRepository) Count(ctx context.Context, filter domain.ClientFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	where := clientWhere(filter)
	var n int
	if err := r.store.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM clients`+where.String(), where.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

func (r *clientRepository) ExistsByDocument(ctx context.Context, documentNumber string, excludeID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	err := r.store.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clients WHERE document_number = $1 AND id <> $2
		)
	`, documentNumber, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check client document: %w", err)
	}
	return exists, nil
}

func (r *clientRepository) ExistsByName(ctx context.Context, firstName, lastName string, excludeID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	err := r.store.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM clients
			WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2) AND id <> $3
		)
	`, firstName, lastName, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check client name: %w", err)
	}
	return exists, nil
}

func (r *clientRepository) Save(ctx context.Context, client *domain.Client) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	now := nowUTC()
	conn := r.store.conn(ctx)

	if client.ID == 0 {
		err := conn.QueryRow(ctx, `
			INSERT INTO clients (
				first_name, last_name, document_number, birth_date, active, created_at, updated_at
			) VALUES ($1,$2,$3,$4::date,$5,$6,$6)
			RETURNING id, created_at, updated_at
		`,
			client.FirstName, client.LastName, client.DocumentNumber, client.BirthDate, client.Active, now,
		).Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert client: %w", translateUniqueViolation(err))
		}
		return nil
	}

	err := conn.QueryRow(ctx, `
		UPDATE clients
		SET first_name = $1,
		    last_name = $2,
		    document_number = $3,
		    birth_date = $4::date,
		    active = $5,
		    updated_at = $6
		WHERE id = $7
		RETURNING created_at, updated_at
	`,
		client.FirstName, client.LastName, client.DocumentNumber, client.BirthDate, client.Active, now, client.ID,
	).Scan(&client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrClientNotFound
		}
		return fmt.Errorf("update client: %w", translateUniqueViolation(err))
	}
	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tag, err := r.store.conn(ctx).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrClientNotFound
	}
	return nil
}

func clientWhere(filter domain.ClientFilter) whereClause {
	var w whereClause
	if filter.ActiveOnly {
		w.addRaw("active")
	}
	if filter.FirstNameContains != "" {
		w.add("strpos(lower(first_name), lower(?)) > 0", filter.FirstNameContains)
	}
	if filter.LastNameContains != "" {
		w.add("strpos(lower(last_name), lower(?)) > 0", filter.LastNameContains)
	}
	return w
}

func scanClient(row pgx.Row) (domain.Client, error) {
	var c domain.Client
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.DocumentNumber,
		&c.BirthDate, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return domain.Client{}, err
	}
	c.BirthDate = c.BirthDate.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

var _ domain.ClientRepository = (*clientRepository)(nil)
