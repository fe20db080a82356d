package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// Querier is the query surface the HTTP handlers depend on.
type Querier interface {
	CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error)
	GetProduct(ctx context.Context, id pgtype.UUID) (Product, error)
	ListProductsPaginated(ctx context.Context, arg ListProductsPaginatedParams) ([]Product, error)
	UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error)
	DeleteProduct(ctx context.Context, id pgtype.UUID) error
}

type Product struct {
	ID            pgtype.UUID        `json:"id"`
	Name          string             `json:"name"`
	Description   pgtype.Text        `json:"description"`
	Price         pgtype.Numeric     `json:"price"`
	StockQuantity int32              `json:"stockQuantity"`
	CreatedAt     pgtype.Timestamptz `json:"createdAt"`
}

const createProduct = `
INSERT INTO products (name, description, price, stock_quantity)
VALUES ($1, $2, $3, $4)
RETURNING id, name, description, price, stock_quantity, created_at
`

type CreateProductParams struct {
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	StockQuantity int32
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Name, arg.Description, arg.Price, arg.StockQuantity)
	return scanProduct(row)
}

const getProduct = `
SELECT id, name, description, price, stock_quantity, created_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id pgtype.UUID) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	return scanProduct(row)
}

const listProductsPaginated = `
SELECT id, name, description, price, stock_quantity, created_at
FROM products
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListProductsPaginatedParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListProductsPaginated(ctx context.Context, arg ListProductsPaginatedParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsPaginated, arg.Limit, arg.Offset)
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

const updateProduct = `
UPDATE products
SET name = $2, description = $3, price = $4, stock_quantity = $5
WHERE id = $1
RETURNING id, name, description, price, stock_quantity, created_at
`

type UpdateProductParams struct {
	ID            pgtype.UUID
	Name          string
	Description   pgtype.Text
	Price         pgtype.Numeric
	StockQuantity int32
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Name, arg.Description, arg.Price, arg.StockQuantity)
	return scanProduct(row)
}

const deleteProduct = `
DELETE FROM products WHERE id = $1
`

func (q *Queries) DeleteProduct(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteProduct, id)
	return err
}

// deductProductStock is a guarded compare-and-decrement: the WHERE clause
// refuses to drive stock_quantity negative, and the row lock serializes
// concurrent deductions against the same product.
const deductProductStock = `
UPDATE products
SET stock_quantity = stock_quantity - $2
WHERE id = $1 AND stock_quantity >= $2
`

type DeductProductStockParams struct {
	ID       pgtype.UUID
	Quantity int32
}

func (q *Queries) DeductProductStock(ctx context.Context, arg DeductProductStockParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deductProductStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.StockQuantity, &p.CreatedAt)
	return p, err
}
