package mailer

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-ops/meridian/internal/shared"
)

// Repository provides PostgreSQL backed persistence for outbound emails.
type Repository interface {
	Get(ctx context.Context, id int64) (*Email, error)
	ListByProposal(ctx context.Context, proposalID int64) ([]Email, error)
	Create(ctx context.Context, e Email) (int64, error)
	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const emailColumns = `id, proposal_id, recipient, subject, body, status, error, sent_at, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Email, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE id = $1`, id)
	e, err := scanEmail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *repository) ListByProposal(ctx context.Context, proposalID int64) ([]Email, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+emailColumns+` FROM emails WHERE proposal_id = $1 ORDER BY id DESC`, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []Email
	for rows.Next() {
		e, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, *e)
	}
	return emails, rows.Err()
}

func (r *repository) Create(ctx context.Context, e Email) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO emails (proposal_id, recipient, subject, body, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, e.ProposalID, e.Recipient, e.Subject, e.Body, e.Status).Scan(&id)
	return id, err
}

func (r *repository) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE emails SET status = $1, error = NULL, sent_at = $2, updated_at = NOW()
		WHERE id = $3
	`, EmailStatusSent, sentAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE emails SET status = $1, error = $2, updated_at = NOW()
		WHERE id = $3
	`, EmailStatusFailed, reason, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanEmail(row pgx.Row) (*Email, error) {
	var e Email
	var errMsg pgtype.Text
	var sentAt pgtype.Timestamptz
	err := row.Scan(&e.ID, &e.ProposalID, &e.Recipient, &e.Subject, &e.Body,
		&e.Status, &errMsg, &sentAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		e.Error = &errMsg.String
	}
	if sentAt.Valid {
		e.SentAt = &sentAt.Time
	}
	return &e, nil
}
