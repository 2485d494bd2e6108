package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/model"
)

type TicketRepo struct {
	db *sql.DB
}

func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

const ticketColumns = "id, user_id, subject, description, status, created_at, updated_at"

func scanTicket(row interface{ Scan(...any) error }) (model.SupportTicket, error) {
	var (
		t      model.SupportTicket
		status string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Subject, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt)
	t.Status = model.TicketStatus(status)
	return t, err
}

func (r *TicketRepo) Create(ctx context.Context, t *model.SupportTicket) error {
	if t.Status == "" {
		t.Status = model.TicketOpen
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO support_tickets (user_id, subject, description, status) VALUES (?,?,?,?)",
		t.UserID, t.Subject, t.Description, string(t.Status))
	if err != nil {
		return parentErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

func (r *TicketRepo) GetByID(ctx context.Context, id uint64) (*model.SupportTicket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, "SELECT "+ticketColumns+" FROM support_tickets WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// List returns one page of tickets, optionally restricted to a user and/or
// a status, newest first.
func (r *TicketRepo) List(ctx context.Context, userID uint64, status model.TicketStatus, p Page) ([]model.SupportTicket, int, error) {
	var (
		where []string
		args  []any
	)
	if userID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, userID)
	}
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, string(status))
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM support_tickets"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM support_tickets"+cond+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []model.SupportTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *TicketRepo) Update(ctx context.Context, id uint64, p model.TicketPatch) error {
	var s setList
	if p.Subject != nil {
		s.add("subject", *p.Subject)
	}
	if p.Description != nil {
		s.add("description", *p.Description)
	}
	if p.Status != nil {
		s.add("status", string(*p.Status))
	}
	if s.empty() {
		return nil
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE support_tickets SET "+strings.Join(s.cols, ", ")+" WHERE id = ?", append(s.args, id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM support_tickets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTicketNotFound
	}
	return nil
}
