package visits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maderia/maderia/internal/platform/db"
	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/shared"
)

// SlotConflictError reports which existing visit blocks the requested
// time. It maps to 409 through the httpx taxonomy.
type SlotConflictError struct {
	VisitID   int64
	VisitDate time.Time
}

func (e *SlotConflictError) Error() string {
	return fmt.Sprintf("time slot not available, blocked by visit %d at %s",
		e.VisitID, e.VisitDate.Format(time.RFC3339))
}

func (e *SlotConflictError) Unwrap() error { return httpx.ErrConflict }

// Repository provides visit persistence. CreateChecked runs the overlap
// query and the insert in one transaction so sequential bookings cannot
// interleave between check and write.
type Repository interface {
	CreateChecked(ctx context.Context, v *Visit) error
	Find(ctx context.Context, id int64) (Visit, error)
	List(ctx context.Context) ([]Visit, error)
	ListByUser(ctx context.Context, userID int64) ([]Visit, error)
	ListActiveOn(ctx context.Context, dayStart, dayEnd time.Time) ([]Booking, error)
	SetStatus(ctx context.Context, id int64, status string) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const visitColumns = `id, user_id, is_guest, guest_name, guest_email, guest_phone,
	visit_date, visit_time, address, status, description, service_ids, created_at, updated_at`

func scanVisit(row pgx.Row) (Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.UserID, &v.IsGuest, &v.GuestName, &v.GuestEmail, &v.GuestPhone,
		&v.VisitDate, &v.VisitTime, &v.Address, &v.Status, &v.Description, &v.ServiceIDs,
		&v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *PGRepository) CreateChecked(ctx context.Context, v *Visit) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var conflict SlotConflictError
		err := tx.QueryRow(ctx, `
			SELECT id, visit_date FROM visits
			WHERE visit_date > $1 AND visit_date < $2
			  AND status NOT IN ('cancelada', 'cancelado')
			ORDER BY visit_date LIMIT 1`,
			v.VisitDate.Add(-ExclusionWindow), v.VisitDate.Add(ExclusionWindow),
		).Scan(&conflict.VisitID, &conflict.VisitDate)
		if err == nil {
			return &conflict
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		return tx.QueryRow(ctx, `
			INSERT INTO visits (user_id, is_guest, guest_name, guest_email, guest_phone,
				visit_date, visit_time, address, status, description, service_ids)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id, created_at, updated_at`,
			v.UserID, v.IsGuest, v.GuestName, v.GuestEmail, v.GuestPhone,
			v.VisitDate, v.VisitTime, v.Address, v.Status, v.Description, v.ServiceIDs,
		).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	})
}

func (r *PGRepository) Find(ctx context.Context, id int64) (Visit, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+visitColumns+` FROM visits WHERE id = $1`, id)
	v, err := scanVisit(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Visit{}, shared.ErrNotFound
	}
	return v, err
}

func (r *PGRepository) listWhere(ctx context.Context, clause string, args ...any) ([]Visit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+visitColumns+` FROM visits `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepository) List(ctx context.Context) ([]Visit, error) {
	return r.listWhere(ctx, `ORDER BY visit_date DESC`)
}

func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Visit, error) {
	return r.listWhere(ctx, `WHERE user_id = $1 ORDER BY visit_date DESC`, userID)
}

// ListActiveOn returns the non-cancelled bookings inside the day window.
func (r *PGRepository) ListActiveOn(ctx context.Context, dayStart, dayEnd time.Time) ([]Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, visit_date FROM visits
		WHERE visit_date >= $1 AND visit_date <= $2
		  AND status NOT IN ('cancelada', 'cancelado')`, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		if err := rows.Scan(&b.ID, &b.Start); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE visits SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
