package proposals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian/internal/platform/db"
	"github.com/meridian-ops/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for proposals.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	Get(ctx context.Context, id int64) (*Proposal, error)
	GetWithClient(ctx context.Context, id int64) (*ProposalWithClient, error)
	List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithClient, int, error)
	GetLine(ctx context.Context, lineID int64) (*ProposalLine, error)

	// GenerateReference allocates the next per-month proposal reference
	// (PROP-YYYYMM-NNNN) through an atomic counter row.
	GenerateReference(ctx context.Context, date time.Time) (string, error)

	Create(ctx context.Context, p Proposal) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	UpdateStatus(ctx context.Context, id int64, status ProposalStatus) error
	Delete(ctx context.Context, id int64) error

	InsertLine(ctx context.Context, line ProposalLine) (int64, error)
	UpdateLine(ctx context.Context, line ProposalLine) error
	DeleteLine(ctx context.Context, lineID int64) error
	DeleteLines(ctx context.Context, proposalID int64) error

	// RecalculateTotal rewrites the proposal's denormalized total_amount from
	// its live lines. Zero lines produce a total of 0.
	RecalculateTotal(ctx context.Context, proposalID int64) error
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

const proposalColumns = `id, reference, client_id, project_name, description, proposal_date,
       status, total_amount, notes, created_by, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Proposal, error) {
	row := r.db.QueryRow(ctx, `SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	p, err := scanProposal(row)
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

func (r *repository) GetWithClient(ctx context.Context, id int64) (*ProposalWithClient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT p.id, p.reference, p.client_id, p.project_name, p.description, p.proposal_date,
		       p.status, p.total_amount, p.notes, p.created_by, p.created_at, p.updated_at,
		       c.name AS client_name
		FROM proposals p
		JOIN clients c ON p.client_id = c.id
		WHERE p.id = $1
	`, id)

	var pw ProposalWithClient
	var projectName, description, notes pgtype.Text
	var totalAmount pgtype.Numeric
	err := row.Scan(&pw.ID, &pw.Reference, &pw.ClientID, &projectName, &description,
		&pw.ProposalDate, &pw.Status, &totalAmount, &notes, &pw.CreatedBy,
		&pw.CreatedAt, &pw.UpdatedAt, &pw.ClientName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if projectName.Valid {
		pw.ProjectName = &projectName.String
	}
	if description.Valid {
		pw.Description = &description.String
	}
	if notes.Valid {
		pw.Notes = &notes.String
	}
	if totalAmount.Valid {
		f, _ := totalAmount.Float64Value()
		pw.TotalAmount = f.Float64
	}

	lines, err := r.loadLines(ctx, id)
	if err != nil {
		return nil, err
	}
	pw.Lines = lines
	return &pw, nil
}

func (r *repository) List(ctx context.Context, req ListProposalsRequest) ([]ProposalWithClient, int, error) {
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
	if req.DateFrom != nil {
		argPos++
		conditions = append(conditions, fmt.Sprintf("p.proposal_date >= $%d", argPos))
		args = append(args, *req.DateFrom)
	}
	if req.DateTo != nil {
		argPos++
		conditions = append(conditions, fmt.Sprintf("p.proposal_date <= $%d", argPos))
		args = append(args, *req.DateTo)
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
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM proposals p"+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
		SELECT p.id, p.reference, p.client_id, p.project_name, p.description, p.proposal_date,
		       p.status, p.total_amount, p.notes, p.created_by, p.created_at, p.updated_at,
		       c.name AS client_name
		FROM proposals p
		JOIN clients c ON p.client_id = c.id
		%s
		ORDER BY p.proposal_date DESC, p.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos+1, argPos+2)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var results []ProposalWithClient
	for rows.Next() {
		var pw ProposalWithClient
		var projectName, description, notes pgtype.Text
		var totalAmount pgtype.Numeric
		err := rows.Scan(&pw.ID, &pw.Reference, &pw.ClientID, &projectName, &description,
			&pw.ProposalDate, &pw.Status, &totalAmount, &notes, &pw.CreatedBy,
			&pw.CreatedAt, &pw.UpdatedAt, &pw.ClientName)
		if err != nil {
			return nil, 0, err
		}
		if projectName.Valid {
			pw.ProjectName = &projectName.String
		}
		if description.Valid {
			pw.Description = &description.String
		}
		if notes.Valid {
			pw.Notes = &notes.String
		}
		if totalAmount.Valid {
			f, _ := totalAmount.Float64Value()
			pw.TotalAmount = f.Float64
		}
		results = append(results, pw)
	}

	return results, total, rows.Err()
}

func (r *repository) GenerateReference(ctx context.Context, date time.Time) (string, error) {
	period := date.Format("200601")
	var seq int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO document_sequences (doc_type, period, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq
	`, "PROP", period).Scan(&seq)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PROP-%s-%04d", period, seq), nil
}

func (r *repository) Create(ctx context.Context, p Proposal) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO proposals (reference, client_id, project_name, description, proposal_date,
		                       status, total_amount, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, p.Reference, p.ClientID, p.ProjectName, p.Description, p.ProposalDate,
		p.Status, p.TotalAmount, p.Notes, p.CreatedBy).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE proposals SET updated_at = NOW()"
	var args []interface{}
	argPos := 0

	for _, col := range []string{"project_name", "description", "proposal_date", "notes", "total_amount"} {
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

func (r *repository) UpdateStatus(ctx context.Context, id int64, status ProposalStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	// proposal_services rows go with it (ON DELETE CASCADE)
	tag, err := r.db.Exec(ctx, `DELETE FROM proposals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) GetLine(ctx context.Context, lineID int64) (*ProposalLine, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, proposal_id, service_id, description, quantity, unit_price,
		       discount_percent, line_total, created_at, updated_at
		FROM proposal_services WHERE id = $1
	`, lineID)
	line, err := scanLine(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return line, nil
}

func (r *repository) InsertLine(ctx context.Context, line ProposalLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO proposal_services (proposal_id, service_id, description, quantity,
		                               unit_price, discount_percent, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, line.ProposalID, line.ServiceID, line.Description, line.Quantity,
		line.UnitPrice, line.DiscountPercent, line.LineTotal).Scan(&id)
	return id, err
}

func (r *repository) UpdateLine(ctx context.Context, line ProposalLine) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE proposal_services
		SET service_id = $1, description = $2, quantity = $3, unit_price = $4,
		    discount_percent = $5, line_total = $6, updated_at = NOW()
		WHERE id = $7
	`, line.ServiceID, line.Description, line.Quantity, line.UnitPrice,
		line.DiscountPercent, line.LineTotal, line.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLine(ctx context.Context, lineID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM proposal_services WHERE id = $1`, lineID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLines(ctx context.Context, proposalID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM proposal_services WHERE proposal_id = $1`, proposalID)
	return err
}

func (r *repository) RecalculateTotal(ctx context.Context, proposalID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE proposals
		SET total_amount = COALESCE(
			(SELECT SUM(line_total) FROM proposal_services WHERE proposal_id = $1), 0),
		    updated_at = NOW()
		WHERE id = $2
	`, proposalID, proposalID)
	if err != nil {
		return fmt.Errorf("recalculate proposal total: %w", err)
	}
	return nil
}

func (r *repository) loadLines(ctx context.Context, proposalID int64) ([]ProposalLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, proposal_id, service_id, description, quantity, unit_price,
		       discount_percent, line_total, created_at, updated_at
		FROM proposal_services
		WHERE proposal_id = $1
		ORDER BY id ASC
	`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ProposalLine
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, *line)
	}
	return lines, rows.Err()
}

func scanProposal(row pgx.Row) (*Proposal, error) {
	var p Proposal
	var projectName, description, notes pgtype.Text
	var totalAmount pgtype.Numeric
	err := row.Scan(&p.ID, &p.Reference, &p.ClientID, &projectName, &description,
		&p.ProposalDate, &p.Status, &totalAmount, &notes, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if projectName.Valid {
		p.ProjectName = &projectName.String
	}
	if description.Valid {
		p.Description = &description.String
	}
	if notes.Valid {
		p.Notes = &notes.String
	}
	if totalAmount.Valid {
		f, _ := totalAmount.Float64Value()
		p.TotalAmount = f.Float64
	}
	return &p, nil
}

func scanLine(row pgx.Row) (*ProposalLine, error) {
	var line ProposalLine
	var description pgtype.Text
	var quantity, unitPrice, discountPercent, lineTotal pgtype.Numeric
	err := row.Scan(&line.ID, &line.ProposalID, &line.ServiceID, &description,
		&quantity, &unitPrice, &discountPercent, &lineTotal,
		&line.CreatedAt, &line.UpdatedAt)
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
	if unitPrice.Valid {
		f, _ := unitPrice.Float64Value()
		line.UnitPrice = f.Float64
	}
	if discountPercent.Valid {
		f, _ := discountPercent.Float64Value()
		line.DiscountPercent = f.Float64
	}
	if lineTotal.Valid {
		f, _ := lineTotal.Float64Value()
		line.LineTotal = f.Float64
	}
	return &line, nil
}
