package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maderia/maderia/internal/shared"
)

// Repository provides catalog persistence.
type Repository interface {
	ListProducts(ctx context.Context, category string) ([]Product, error)
	FindProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error

	ListOfferings(ctx context.Context) ([]Offering, error)
	FindOffering(ctx context.Context, id int64) (Offering, error)
	CreateOffering(ctx context.Context, o *Offering) error

	ProductNames(ctx context.Context, ids []int64) (map[int64]string, error)
	OfferingNames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const productColumns = `id, name, description, price, category, image_url, colors, sizes, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.ImageURL, &p.Colors, &p.Sizes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PGRepository) ListProducts(ctx context.Context, category string) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE is_active`
	args := []any{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *PGRepository) FindProduct(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, shared.ErrNotFound
	}
	return p, err
}

func (r *PGRepository) CreateProduct(ctx context.Context, p *Product) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, price, category, image_url, colors, sizes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.Colors, p.Sizes, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PGRepository) UpdateProduct(ctx context.Context, p *Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5,
		    image_url = $6, colors = $7, sizes = $8, is_active = $9, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.ImageURL, p.Colors, p.Sizes, p.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const offeringColumns = `id, name, description, base_price, image_url, is_active, created_at, updated_at`

func scanOffering(row pgx.Row) (Offering, error) {
	var o Offering
	err := row.Scan(&o.ID, &o.Name, &o.Description, &o.BasePrice,
		&o.ImageURL, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func (r *PGRepository) ListOfferings(ctx context.Context) ([]Offering, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+offeringColumns+` FROM services WHERE is_active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offerings []Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		offerings = append(offerings, o)
	}
	return offerings, rows.Err()
}

func (r *PGRepository) FindOffering(ctx context.Context, id int64) (Offering, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+offeringColumns+` FROM services WHERE id = $1`, id)
	o, err := scanOffering(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Offering{}, shared.ErrNotFound
	}
	return o, err
}

func (r *PGRepository) CreateOffering(ctx context.Context, o *Offering) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO services (name, description, base_price, image_url, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		o.Name, o.Description, o.BasePrice, o.ImageURL, o.IsActive,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *PGRepository) names(ctx context.Context, table string, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM `+table+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[id] = name
	}
	return out, rows.Err()
}

// ProductNames resolves display names for a set of product ids.
func (r *PGRepository) ProductNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return r.names(ctx, "products", ids)
}

// OfferingNames resolves display names for a set of service ids.
func (r *PGRepository) OfferingNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	return r.names(ctx, "services", ids)
}
