package quotations

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maderia/maderia/internal/platform/db"
	"github.com/maderia/maderia/internal/platform/httpx"
	"github.com/maderia/maderia/internal/shared"
)

// ErrActiveCartExists maps the partial unique index guarding one
// Carrito per user.
var ErrActiveCartExists = fmt.Errorf("%w: an active cart already exists", httpx.ErrConflict)

// Repository provides quotation persistence.
type Repository interface {
	Create(ctx context.Context, q *Quotation) error
	Find(ctx context.Context, id int64) (Quotation, error)
	FindCart(ctx context.Context, userID int64) (Quotation, error)
	ListByUser(ctx context.Context, userID int64) ([]Quotation, error)
	ListAll(ctx context.Context, status string, page, limit int) ([]Quotation, int, error)
	SetStatus(ctx context.Context, id int64, status string) error
	UpdateQuote(ctx context.Context, q *Quotation) error
	Delete(ctx context.Context, id int64) error

	InsertItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item Item) error
	DeleteItem(ctx context.Context, quotationID, itemID int64) error

	InsertMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, quotationID int64) ([]Message, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const quotationColumns = `id, user_id, status, total_estimate, admin_notes, created_at, updated_at`

func scanQuotation(row pgx.Row) (Quotation, error) {
	var q Quotation
	err := row.Scan(&q.ID, &q.UserID, &q.Status, &q.TotalEstimate, &q.AdminNotes,
		&q.CreatedAt, &q.UpdatedAt)
	return q, err
}

const itemColumns = `id, quotation_id, product_id, is_custom, custom_name, custom_description,
	wood_type, reference_image, quantity, color, size, price, admin_notes, item_status`

func (r *PGRepository) loadItems(ctx context.Context, quotationID int64) ([]Item, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+itemColumns+` FROM quotation_items WHERE quotation_id = $1 ORDER BY id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ProductID, &it.IsCustom,
			&it.CustomName, &it.CustomDescription, &it.WoodType, &it.ReferenceImage,
			&it.Quantity, &it.Color, &it.Size, &it.Price, &it.AdminNotes, &it.ItemStatus); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, q *Quotation) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quotations (user_id, status, total_estimate, admin_notes)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, updated_at`,
			q.UserID, q.Status, q.TotalEstimate, q.AdminNotes,
		).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
		if db.IsUniqueViolation(err, "quotations_one_cart_per_user") {
			return ErrActiveCartExists
		}
		if err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}
		for i := range q.Items {
			q.Items[i].QuotationID = q.ID
			if err := insertItemTx(ctx, tx, &q.Items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertItemTx(ctx context.Context, tx pgx.Tx, item *Item) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, product_id, is_custom, custom_name,
			custom_description, wood_type, reference_image, quantity, color, size,
			price, admin_notes, item_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		item.QuotationID, item.ProductID, item.IsCustom, item.CustomName,
		item.CustomDescription, item.WoodType, item.ReferenceImage, item.Quantity,
		item.Color, item.Size, item.Price, item.AdminNotes, item.ItemStatus,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert quotation item: %w", err)
	}
	return nil
}

func (r *PGRepository) Find(ctx context.Context, id int64) (Quotation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id)
	q, err := scanQuotation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, shared.ErrNotFound
	}
	if err != nil {
		return Quotation{}, err
	}
	q.Items, err = r.loadItems(ctx, q.ID)
	return q, err
}

func (r *PGRepository) FindCart(ctx context.Context, userID int64) (Quotation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE user_id = $1 AND status = $2`,
		userID, StatusCart)
	q, err := scanQuotation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, shared.ErrNotFound
	}
	if err != nil {
		return Quotation{}, err
	}
	q.Items, err = r.loadItems(ctx, q.ID)
	return q, err
}

func (r *PGRepository) listWhere(ctx context.Context, clause string, args ...any) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations `+clause, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = r.loadItems(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PGRepository) ListByUser(ctx context.Context, userID int64) ([]Quotation, error) {
	return r.listWhere(ctx, `WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *PGRepository) ListAll(ctx context.Context, status string, page, limit int) ([]Quotation, int, error) {
	where := ``
	countQuery := `SELECT count(*) FROM quotations`
	args := []any{limit, (page - 1) * limit}
	if status != "" {
		where = `WHERE status = $3 `
		countQuery += ` WHERE status = $1`
		args = append(args, status)
	}
	list, err := r.listWhere(ctx, where+`ORDER BY created_at DESC LIMIT $1 OFFSET $2`, args...)
	if err != nil {
		return nil, 0, err
	}

	var total int
	countArgs := []any{}
	if status != "" {
		countArgs = append(countArgs, status)
	}
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *PGRepository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE quotations SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// UpdateQuote writes the admin pricing result: item prices and notes,
// the estimate, and the Cotizada status, in one transaction.
func (r *PGRepository) UpdateQuote(ctx context.Context, q *Quotation) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE quotations
			SET status = $2, total_estimate = $3, admin_notes = $4, updated_at = now()
			WHERE id = $1`,
			q.ID, q.Status, q.TotalEstimate, q.AdminNotes)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		for _, it := range q.Items {
			if _, err := tx.Exec(ctx, `
				UPDATE quotation_items
				SET price = $3, admin_notes = $4, item_status = $5
				WHERE id = $1 AND quotation_id = $2`,
				it.ID, q.ID, it.Price, it.AdminNotes, it.ItemStatus); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes the quotation together with its items and chat thread.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM quotation_messages WHERE quotation_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM quotations WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

func (r *PGRepository) InsertItem(ctx context.Context, item *Item) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO quotation_items (quotation_id, product_id, is_custom, custom_name,
			custom_description, wood_type, reference_image, quantity, color, size,
			price, admin_notes, item_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		item.QuotationID, item.ProductID, item.IsCustom, item.CustomName,
		item.CustomDescription, item.WoodType, item.ReferenceImage, item.Quantity,
		item.Color, item.Size, item.Price, item.AdminNotes, item.ItemStatus,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("insert quotation item: %w", err)
	}
	return nil
}

func (r *PGRepository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE quotation_items
		SET quantity = $3, color = $4, size = $5, price = $6, admin_notes = $7, item_status = $8
		WHERE id = $1 AND quotation_id = $2`,
		item.ID, item.QuotationID, item.Quantity, item.Color, item.Size,
		item.Price, item.AdminNotes, item.ItemStatus)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) DeleteItem(ctx context.Context, quotationID, itemID int64) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM quotation_items WHERE id = $1 AND quotation_id = $2`, itemID, quotationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) InsertMessage(ctx context.Context, msg *Message) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO quotation_messages (quotation_id, sender_id, body)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		msg.QuotationID, msg.SenderID, msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *PGRepository) ListMessages(ctx context.Context, quotationID int64) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, quotation_id, sender_id, body, created_at
		FROM quotation_messages WHERE quotation_id = $1 ORDER BY created_at`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.QuotationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
