package catalog

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the service catalog.
type Repository interface {
	GetService(ctx context.Context, id int64) (*Service, error)
	ListServices(ctx context.Context, req ListServicesRequest) ([]ServiceWithCategory, int, error)
	CreateService(ctx context.Context, svc Service) (int64, error)
	UpdateService(ctx context.Context, id int64, updates map[string]interface{}) error
	DeleteService(ctx context.Context, id int64) error

	GetCategory(ctx context.Context, id int64) (*ServiceCategory, error)
	ListCategories(ctx context.Context) ([]ServiceCategory, error)
	CreateCategory(ctx context.Context, c ServiceCategory) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetService(ctx context.Context, id int64) (*Service, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, category_id, unit_price, remarks, timeline_days, is_active, created_at, updated_at
		FROM services WHERE id = $1
	`, id)

	var s Service
	var categoryID pgtype.Int8
	var unitPrice pgtype.Numeric
	var remarks pgtype.Text
	var timelineDays pgtype.Int4
	err := row.Scan(&s.ID, &s.Name, &categoryID, &unitPrice, &remarks, &timelineDays,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if categoryID.Valid {
		s.CategoryID = &categoryID.Int64
	}
	if unitPrice.Valid {
		f, _ := unitPrice.Float64Value()
		s.UnitPrice = f.Float64
	}
	if remarks.Valid {
		s.Remarks = &remarks.String
	}
	if timelineDays.Valid {
		days := int(timelineDays.Int32)
		s.TimelineDays = &days
	}
	return &s, nil
}

func (r *repository) ListServices(ctx context.Context, req ListServicesRequest) ([]ServiceWithCategory, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 0

	if req.Search != nil && *req.Search != "" {
		argPos++
		where += ` AND s.name ILIKE $` + strconv.Itoa(argPos)
		args = append(args, "%"+*req.Search+"%")
	}
	if req.CategoryID != nil {
		argPos++
		where += ` AND s.category_id = $` + strconv.Itoa(argPos)
		args = append(args, *req.CategoryID)
	}
	if req.IsActive != nil {
		argPos++
		where += ` AND s.is_active = $` + strconv.Itoa(argPos)
		args = append(args, *req.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM services s`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT s.id, s.name, s.category_id, s.unit_price, s.remarks, s.timeline_days,
		       s.is_active, s.created_at, s.updated_at, c.name AS category_name
		FROM services s
		LEFT JOIN service_categories c ON s.category_id = c.id` + where + `
		ORDER BY s.name ASC, s.id ASC`

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

	var services []ServiceWithCategory
	for rows.Next() {
		var s ServiceWithCategory
		var categoryID pgtype.Int8
		var unitPrice pgtype.Numeric
		var remarks, categoryName pgtype.Text
		var timelineDays pgtype.Int4
		err := rows.Scan(&s.ID, &s.Name, &categoryID, &unitPrice, &remarks, &timelineDays,
			&s.IsActive, &s.CreatedAt, &s.UpdatedAt, &categoryName)
		if err != nil {
			return nil, 0, err
		}
		if categoryID.Valid {
			s.CategoryID = &categoryID.Int64
		}
		if unitPrice.Valid {
			f, _ := unitPrice.Float64Value()
			s.UnitPrice = f.Float64
		}
		if remarks.Valid {
			s.Remarks = &remarks.String
		}
		if timelineDays.Valid {
			days := int(timelineDays.Int32)
			s.TimelineDays = &days
		}
		if categoryName.Valid {
			s.CategoryName = &categoryName.String
		}
		services = append(services, s)
	}

	return services, total, rows.Err()
}

func (r *repository) CreateService(ctx context.Context, s Service) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO services (name, category_id, unit_price, remarks, timeline_days, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, s.Name, s.CategoryID, s.UnitPrice, s.Remarks, s.TimelineDays, s.IsActive).Scan(&id)
	return id, err
}

func (r *repository) UpdateService(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := `UPDATE services SET updated_at = NOW()`
	args := []interface{}{}
	argPos := 0

	for _, col := range []string{"name", "category_id", "unit_price", "remarks", "timeline_days", "is_active"} {
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

func (r *repository) DeleteService(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetCategory(ctx context.Context, id int64) (*ServiceCategory, error) {
	var c ServiceCategory
	err := r.pool.QueryRow(ctx, `SELECT id, name FROM service_categories WHERE id = $1`, id).
		Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]ServiceCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM service_categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []ServiceCategory
	for rows.Next() {
		var c ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) CreateCategory(ctx context.Context, c ServiceCategory) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO service_categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&id)
	return id, err
}
