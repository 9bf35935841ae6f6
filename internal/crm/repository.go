package crm

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for CRM entities.
type Repository interface {
	GetClient(ctx context.Context, id int64) (*Client, error)
	ListClients(ctx context.Context, req ListClientsRequest) ([]ClientWithType, int, error)
	CreateClient(ctx context.Context, client Client) (int64, error)
	UpdateClient(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteClient(ctx context.Context, id int64) error

	GetClientType(ctx context.Context, id int64) (*ClientType, error)
	ListClientTypes(ctx context.Context) ([]ClientType, error)
	CreateClientType(ctx context.Context, ct ClientType) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetClient(ctx context.Context, id int64) (*Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, phone, address, client_type_id, is_active, notes, created_at, updated_at
		FROM clients WHERE id = $1
	`, id)
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *repository) ListClients(ctx context.Context, req ListClientsRequest) ([]ClientWithType, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 0

	if req.Search != nil && *req.Search != "" {
		argPos++
		where += ` AND (c.name ILIKE $` + strconv.Itoa(argPos) + ` OR c.email ILIKE $` + strconv.Itoa(argPos) + `)`
		args = append(args, "%"+*req.Search+"%")
	}
	if req.ClientTypeID != nil {
		argPos++
		where += ` AND c.client_type_id = $` + strconv.Itoa(argPos)
		args = append(args, *req.ClientTypeID)
	}
	if req.IsActive != nil {
		argPos++
		where += ` AND c.is_active = $` + strconv.Itoa(argPos)
		args = append(args, *req.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT c.id, c.name, c.email, c.phone, c.address, c.client_type_id, c.is_active, c.notes,
		       c.created_at, c.updated_at, t.name AS client_type_name
		FROM clients c
		LEFT JOIN client_types t ON c.client_type_id = t.id` + where + `
		ORDER BY c.name ASC, c.id ASC`

	if req.Limit > 0 {
		argPos++
		query += ` LIMIT $` + strconv.Itoa(argPos)
		args = append(args, req.Limit)
		argPos++
		query += ` OFFSET $` + strconv.Itoa(argPos)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var clients []ClientWithType
	for rows.Next() {
		var c ClientWithType
		var email, phone, address, notes, typeName pgtype.Text
		var clientTypeID pgtype.Int8
		err := rows.Scan(&c.ID, &c.Name, &email, &phone, &address, &clientTypeID,
			&c.IsActive, &notes, &c.CreatedAt, &c.UpdatedAt, &typeName)
		if err != nil {
			return nil, 0, err
		}
		if email.Valid {
			c.Email = &email.String
		}
		if phone.Valid {
			c.Phone = &phone.String
		}
		if address.Valid {
			c.Address = &address.String
		}
		if notes.Valid {
			c.Notes = &notes.String
		}
		if clientTypeID.Valid {
			c.ClientTypeID = &clientTypeID.Int64
		}
		if typeName.Valid {
			c.ClientTypeName = &typeName.String
		}
		clients = append(clients, c)
	}

	return clients, total, rows.Err()
}

func (r *repository) CreateClient(ctx context.Context, c Client) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO clients (name, email, phone, address, client_type_id, is_active, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.Name, c.Email, c.Phone, c.Address, c.ClientTypeID, c.IsActive, c.Notes).Scan(&id)
	return id, err
}

func (r *repository) UpdateClient(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := `UPDATE clients SET updated_at = NOW()`
	args := []interface{}{}
	argPos := 0

	for _, col := range []string{"name", "email", "phone", "address", "client_type_id", "is_active", "notes"} {
		if v, ok := updates[col]; ok {
			argPos++
			query += `, ` + col + ` = $` + strconv.Itoa(argPos)
			args = append(args, v)
		}
	}

	argPos++
	query += ` WHERE id = $` + strconv.Itoa(argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteClient(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetClientType(ctx context.Context, id int64) (*ClientType, error) {
	var ct ClientType
	var description pgtype.Text
	err := r.pool.QueryRow(ctx, `SELECT id, name, description FROM client_types WHERE id = $1`, id).
		Scan(&ct.ID, &ct.Name, &description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if description.Valid {
		ct.Description = &description.String
	}
	return &ct, nil
}

func (r *repository) ListClientTypes(ctx context.Context) ([]ClientType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM client_types ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []ClientType
	for rows.Next() {
		var ct ClientType
		var description pgtype.Text
		if err := rows.Scan(&ct.ID, &ct.Name, &description); err != nil {
			return nil, err
		}
		if description.Valid {
			ct.Description = &description.String
		}
		types = append(types, ct)
	}
	return types, rows.Err()
}

func (r *repository) CreateClientType(ctx context.Context, ct ClientType) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO client_types (name, description) VALUES ($1, $2) RETURNING id`,
		ct.Name, ct.Description).Scan(&id)
	return id, err
}

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	var email, phone, address, notes pgtype.Text
	var clientTypeID pgtype.Int8
	err := row.Scan(&c.ID, &c.Name, &email, &phone, &address, &clientTypeID,
		&c.IsActive, &notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		c.Email = &email.String
	}
	if phone.Valid {
		c.Phone = &phone.String
	}
	if address.Valid {
		c.Address = &address.String
	}
	if notes.Valid {
		c.Notes = &notes.String
	}
	if clientTypeID.Valid {
		c.ClientTypeID = &clientTypeID.Int64
	}
	return &c, nil
}
