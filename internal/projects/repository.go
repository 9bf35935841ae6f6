package projects

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian/internal/platform/db"
	"github.com/meridian-ops/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for projects. The
// proposal reads and the status write live here too so that converting a
// proposal is a single transaction.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, id int64) (*Project, error)
	GetWithClient(ctx context.Context, id int64) (*ProjectWithClient, error)
	GetByProposal(ctx context.Context, proposalID int64) (*Project, error)
	List(ctx context.Context, req ListProjectsRequest) ([]ProjectWithClient, int, error)
	GetLine(ctx context.Context, lineID int64) (*ProjectLine, error)

	Create(ctx context.Context, p Project) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status ProjectStatus) error
	AddPayment(ctx context.Context, id int64, amount float64) error
	Delete(ctx context.Context, id int64) error

	InsertLine(ctx context.Context, line ProjectLine) (int64, error)
	UpdateLineStatus(ctx context.Context, lineID int64, status LineStatus) error
	DeleteLine(ctx context.Context, lineID int64) error

	// RecalculateTotal rewrites the project's denormalized total_amount from
	// its live lines. Zero lines produce a total of 0.
	RecalculateTotal(ctx context.Context, projectID int64) error

	GetProposalSnapshot(ctx context.Context, proposalID int64) (*ProposalSnapshot, error)
	UpdateProposalStatus(ctx context.Context, proposalID int64, status string) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const projectColumns = `id, proposal_id, client_id, name, description, status,
       start_date, end_date, total_amount, paid_amount, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Project, error) {
	row := r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Lines = lines
	return p, nil
}

func (r *repository) GetWithClient(ctx context.Context, id int64) (*ProjectWithClient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT p.id, p.proposal_id, p.client_id, p.name, p.description, p.status,
		       p.start_date, p.end_date, p.total_amount, p.paid_amount,
		       p.created_by, p.created_at, p.updated_at,
		       c.name AS client_name
		FROM projects p
		JOIN clients c ON p.client_id = c.id
		WHERE p.id = $1
	`, id)

	var pw ProjectWithClient
	if err := scanProjectInto(row, &pw.Project, &pw.ClientName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	pw.Lines = lines
	return &pw, nil
}

func (r *repository) GetByProposal(ctx context.Context, proposalID int64) (*Project, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE proposal_id = $1`, proposalID)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *repository) List(ctx context.Context, req ListProjectsRequest) ([]ProjectWithClient, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 0

	if req.ClientID != nil {
		argPos++
		conditions = append(conditions, fmt.Sprintf("p.client_id = $%d", argPos))
		args = append(args, *req.ClientID)
	}
	if req.Status != nil {
		argPos++
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argPos))
		args = append(args, *req.Status)
	}

	whereClause := ""
	for i, cond := range conditions {
		if i == 0 {
			whereClause = " WHERE " + cond
		} else {
			whereClause += " AND " + cond
		}
	}

	var total int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM projects p"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.proposal_id, p.client_id, p.name, p.description, p.status,
		       p.start_date, p.end_date, p.total_amount, p.paid_amount,
		       p.created_by, p.created_at, p.updated_at,
		       c.name AS client_name
		FROM projects p
		JOIN clients c ON p.client_id = c.id
		%s
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos+1, argPos+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []ProjectWithClient
	for rows.Next() {
		var pw ProjectWithClient
		if err := scanProjectInto(rows, &pw.Project, &pw.ClientName); err != nil {
			return nil, 0, err
		}
		results = append(results, pw)
	}
	return results, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, p Project) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO projects (proposal_id, client_id, name, description, status,
		                      start_date, end_date, total_amount, paid_amount, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, p.ProposalID, p.ClientID, p.Name, p.Description, p.Status,
		p.StartDate, p.EndDate, p.TotalAmount, p.PaidAmount, p.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE projects SET updated_at = NOW()"
	var args []interface{}
	argPos := 0

	for _, col := range []string{"name", "description", "start_date", "end_date"} {
		if v, ok := updates[col]; ok {
			argPos++
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
		}
	}

	argPos++
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status ProjectStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) AddPayment(ctx context.Context, id int64, amount float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE projects SET paid_amount = paid_amount + $1, updated_at = NOW() WHERE id = $2`,
		amount, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	// project_services rows go with it (ON DELETE CASCADE)
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetLine(ctx context.Context, lineID int64) (*ProjectLine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, project_id, service_id, description, quantity, price, status,
		       created_at, updated_at
		FROM project_services WHERE id = $1
	`, lineID)
	line, err := scanProjectLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return line, nil
}

func (r *repository) InsertLine(ctx context.Context, line ProjectLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO project_services (project_id, service_id, description, quantity, price, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, line.ProjectID, line.ServiceID, line.Description, line.Quantity,
		line.Price, line.Status).Scan(&id)
	return id, err
}

func (r *repository) UpdateLineStatus(ctx context.Context, lineID int64, status LineStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE project_services SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM project_services WHERE id = $1`, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) RecalculateTotal(ctx context.Context, projectID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE projects
		SET total_amount = COALESCE(
			(SELECT SUM(quantity * price) FROM project_services WHERE project_id = $1), 0),
		    updated_at = NOW()
		WHERE id = $2
	`, projectID, projectID)
	if err != nil {
		return fmt.Errorf("recalculate project total: %w", err)
	}
	return nil
}

func (r *repository) GetProposalSnapshot(ctx context.Context, proposalID int64) (*ProposalSnapshot, error) {
	row := r.db.QueryRow(ctx, `
		SELECT p.id, p.reference, p.client_id, c.name, p.project_name, p.description,
		       p.status, p.total_amount
		FROM proposals p
		JOIN clients c ON p.client_id = c.id
		WHERE p.id = $1
	`, proposalID)

	var snap ProposalSnapshot
	var projectName, description pgtype.Text
	var totalAmount pgtype.Numeric
	err := row.Scan(&snap.ID, &snap.Reference, &snap.ClientID, &snap.ClientName,
		&projectName, &description, &snap.Status, &totalAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if projectName.Valid {
		snap.ProjectName = &projectName.String
	}
	if description.Valid {
		snap.Description = &description.String
	}
	if totalAmount.Valid {
		f, _ := totalAmount.Float64Value()
		snap.TotalAmount = f.Float64
	}

	rows, err := r.db.Query(ctx, `
		SELECT service_id, description, quantity, unit_price, discount_percent
		FROM proposal_services
		WHERE proposal_id = $1
		ORDER BY id ASC
	`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line ProposalLineSnapshot
		var lineDesc pgtype.Text
		var quantity, unitPrice, discountPercent pgtype.Numeric
		err := rows.Scan(&line.ServiceID, &lineDesc, &quantity, &unitPrice, &discountPercent)
		if err != nil {
			return nil, err
		}
		if lineDesc.Valid {
			line.Description = &lineDesc.String
		}
		if quantity.Valid {
			f, _ := quantity.Float64Value()
			line.Quantity = f.Float64
		}
		if unitPrice.Valid {
			f, _ := unitPrice.Float64Value()
			line.UnitPrice = f.Float64
		}
		if discountPercent.Valid {
			f, _ := discountPercent.Float64Value()
			line.DiscountPercent = f.Float64
		}
		snap.Lines = append(snap.Lines, line)
	}
	return &snap, rows.Err()
}

func (r *repository) UpdateProposalStatus(ctx context.Context, proposalID int64, status string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2`, status, proposalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) loadLines(ctx context.Context, projectID int64) ([]ProjectLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, project_id, service_id, description, quantity, price, status,
		       created_at, updated_at
		FROM project_services
		WHERE project_id = $1
		ORDER BY id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ProjectLine
	for rows.Next() {
		line, err := scanProjectLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	if err := scanProjectInto(row, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProjectInto(row pgx.Row, p *Project, extra ...interface{}) error {
	var proposalID pgtype.Int8
	var description pgtype.Text
	var startDate, endDate pgtype.Timestamptz
	var totalAmount, paidAmount pgtype.Numeric

	dest := []interface{}{&p.ID, &proposalID, &p.ClientID, &p.Name, &description,
		&p.Status, &startDate, &endDate, &totalAmount, &paidAmount,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return err
	}
	if proposalID.Valid {
		p.ProposalID = &proposalID.Int64
	}
	if description.Valid {
		p.Description = &description.String
	}
	if startDate.Valid {
		p.StartDate = &startDate.Time
	}
	if endDate.Valid {
		p.EndDate = &endDate.Time
	}
	if totalAmount.Valid {
		f, _ := totalAmount.Float64Value()
		p.TotalAmount = f.Float64
	}
	if paidAmount.Valid {
		f, _ := paidAmount.Float64Value()
		p.PaidAmount = f.Float64
	}
	return nil
}

func scanProjectLine(row pgx.Row) (*ProjectLine, error) {
	var line ProjectLine
	var description pgtype.Text
	var quantity, price pgtype.Numeric
	err := row.Scan(&line.ID, &line.ProjectID, &line.ServiceID, &description,
		&quantity, &price, &line.Status, &line.CreatedAt, &line.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if description.Valid {
		line.Description = &description.String
	}
	if quantity.Valid {
		f, _ := quantity.Float64Value()
		line.Quantity = f.Float64
	}
	if price.Valid {
		f, _ := price.Float64Value()
		line.Price = f.Float64
	}
	return &line, nil
}
