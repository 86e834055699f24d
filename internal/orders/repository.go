package orders

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

// ErrStaleOrder signals that the order changed between read and write.
var ErrStaleOrder = fmt.Errorf("%w: order was modified concurrently", httpx.ErrConflict)

// ErrDuplicateReview signals a second review by the same user.
var ErrDuplicateReview = errors.New("review already exists for this order")

// Repository provides order persistence. Payment mutations go through
// MutatePayments, which guards the cached totals with the aggregate
// version.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Find(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context) ([]Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListStartedBetween(ctx context.Context, from, to time.Time) ([]Order, error)
	SetStatus(ctx context.Context, id int64, status string) error
	FindRecentByUser(ctx context.Context, userID int64, since time.Time) (Order, error)

	MutatePayments(ctx context.Context, orderID int64, fn func(o *Order) error) (Order, error)

	CreateReview(ctx context.Context, rev *Review) error
	ListReviews(ctx context.Context, orderID int64) ([]Review, error)

	CreateAttachment(ctx context.Context, att *Attachment) error
	ListAttachments(ctx context.Context, orderID int64) ([]Attachment, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const orderColumns = `id, user_id, customer_name, customer_email, customer_phone,
	status, total, paid, started_at, production_started_at, version, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.Status, &o.Total, &o.Paid, &o.StartedAt, &o.ProductionStartedAt,
		&o.Version, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PGRepository) Create(ctx context.Context, o *Order) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO orders (user_id, customer_name, customer_email, customer_phone,
				status, total, paid, started_at, production_started_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, version, created_at, updated_at`,
			o.UserID, o.CustomerName, o.CustomerEmail, o.CustomerPhone,
			o.Status, o.Total, o.Paid, o.StartedAt, o.ProductionStartedAt,
		).Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range o.Items {
			o.Items[i].OrderID = o.ID
			if err := insertItem(ctx, tx, &o.Items[i]); err != nil {
				return err
			}
		}
		for i := range o.Payments {
			o.Payments[i].OrderID = o.ID
			if err := insertPayment(ctx, tx, &o.Payments[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertItem(ctx context.Context, tx pgx.Tx, item *LineItem) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, service_id, name, detail, quantity, value)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		item.OrderID, item.ProductID, item.ServiceID, item.Name, item.Detail, item.Quantity, item.Value,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

func insertPayment(ctx context.Context, tx pgx.Tx, p *Payment) error {
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now()
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO order_payments (order_id, amount, method, status, paid_at, receipt_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.OrderID, p.Amount, p.Method, p.Status, p.PaidAt, p.ReceiptURL,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *PGRepository) Find(ctx context.Context, id int64) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	if o.Items, err = r.loadItems(ctx, r.pool, id); err != nil {
		return Order{}, err
	}
	if o.Payments, err = r.loadPayments(ctx, r.pool, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *PGRepository) loadItems(ctx context.Context, q querier, orderID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, service_id, name, detail, quantity, value
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var it LineItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ServiceID,
			&it.Name, &it.Detail, &it.Quantity, &it.Value); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepository) loadPayments(ctx context.Context, q querier, orderID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, amount, method, status, paid_at, receipt_url, created_at
		FROM order_payments WHERE order_id = $1 ORDER BY paid_at, id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status,
			&p.PaidAt, &p.ReceiptURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *PGRepository) listWhere(ctx context.Context, clause string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PGRepository) List(ctx context.Context) ([]Order, error) {
	return r.listWhere(ctx, `ORDER BY started_at DESC`)
}

func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	return r.listWhere(ctx, `WHERE user_id = $1 ORDER BY started_at DESC`, userID)
}

func (r *PGRepository) ListStartedBetween(ctx context.Context, from, to time.Time) ([]Order, error) {
	orders, err := r.listWhere(ctx,
		`WHERE started_at >= $1 AND started_at < $2 ORDER BY started_at`, from, to)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].Items, err = r.loadItems(ctx, r.pool, orders[i].ID); err != nil {
			return nil, err
		}
		if orders[i].Payments, err = r.loadPayments(ctx, r.pool, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $2, version = version + 1, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindRecentByUser returns the newest order created for the user at or
// after the given instant. Used as the duplicate-order guard on
// quotation acceptance.
func (r *PGRepository) FindRecentByUser(ctx context.Context, userID int64, since time.Time) (Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC LIMIT 1`, userID, since)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, shared.ErrNotFound
	}
	return o, err
}

// MutatePayments loads the aggregate inside a transaction, applies fn
// to its payment set, and writes back the payments plus the derived
// columns. The version check rejects writes based on a stale read.
func (r *PGRepository) MutatePayments(ctx context.Context, orderID int64, fn func(o *Order) error) (Order, error) {
	var result Order
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID)
		o, err := scanOrder(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return err
		}
		if o.Items, err = r.loadItems(ctx, tx, orderID); err != nil {
			return err
		}
		if o.Payments, err = r.loadPayments(ctx, tx, orderID); err != nil {
			return err
		}

		if err := fn(&o); err != nil {
			return err
		}

		if err := syncPayments(ctx, tx, orderID, o.Payments); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE orders
			SET total = $2, paid = $3, status = $4, production_started_at = $5,
			    version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $6`,
			orderID, o.Total, o.Paid, o.Status, o.ProductionStartedAt, o.Version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleOrder
		}
		o.Version++
		result = o
		return nil
	})
	return result, err
}

// syncPayments reconciles the database payment rows with the mutated
// in-memory set: rows absent from the set are deleted, rows with ids are
// updated, rows without ids are inserted.
func syncPayments(ctx context.Context, tx pgx.Tx, orderID int64, payments []Payment) error {
	keep := make([]int64, 0, len(payments))
	for _, p := range payments {
		if p.ID != 0 {
			keep = append(keep, p.ID)
		}
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM order_payments WHERE order_id = $1 AND NOT (id = ANY($2))`,
		orderID, keep); err != nil {
		return err
	}
	for i := range payments {
		payments[i].OrderID = orderID
		if payments[i].ID == 0 {
			if err := insertPayment(ctx, tx, &payments[i]); err != nil {
				return err
			}
			continue
		}
		p := payments[i]
		if _, err := tx.Exec(ctx, `
			UPDATE order_payments
			SET amount = $2, method = $3, status = $4, paid_at = $5, receipt_url = $6
			WHERE id = $1 AND order_id = $7`,
			p.ID, p.Amount, p.Method, p.Status, p.PaidAt, p.ReceiptURL, orderID); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) CreateReview(ctx context.Context, rev *Review) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO order_reviews (order_id, user_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		rev.OrderID, rev.UserID, rev.Rating, rev.Comment,
	).Scan(&rev.ID, &rev.CreatedAt)
	if db.IsUniqueViolation(err, "order_reviews_order_id_user_id_key") {
		return ErrDuplicateReview
	}
	return err
}

func (r *PGRepository) ListReviews(ctx context.Context, orderID int64) ([]Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, user_id, rating, comment, created_at
		FROM order_reviews WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var rev Review
		if err := rows.Scan(&rev.ID, &rev.OrderID, &rev.UserID, &rev.Rating,
			&rev.Comment, &rev.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rev)
	}
	return reviews, rows.Err()
}

func (r *PGRepository) CreateAttachment(ctx context.Context, att *Attachment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO order_attachments (order_id, file_name, content_type, size_bytes, url, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		att.OrderID, att.FileName, att.ContentType, att.SizeBytes, att.URL, att.UploadedBy,
	).Scan(&att.ID, &att.CreatedAt)
}

func (r *PGRepository) ListAttachments(ctx context.Context, orderID int64) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, file_name, content_type, size_bytes, url, uploaded_by, created_at
		FROM order_attachments WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var atts []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.OrderID, &a.FileName, &a.ContentType,
			&a.SizeBytes, &a.URL, &a.UploadedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}
