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
	CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error)
	GetCustomer(ctx context.Context, id pgtype.UUID) (Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (Customer, error)
	ListCustomersPaginated(ctx context.Context, arg ListCustomersPaginatedParams) ([]Customer, error)
	UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error)
	DeleteCustomer(ctx context.Context, id pgtype.UUID) error
}

type Customer struct {
	ID        pgtype.UUID        `json:"id"`
	FirstName string             `json:"firstName"`
	LastName  string             `json:"lastName"`
	Email     string             `json:"email"`
	CreatedAt pgtype.Timestamptz `json:"createdAt"`
}

const createCustomer = `
INSERT INTO customers (first_name, last_name, email)
VALUES ($1, $2, $3)
RETURNING id, first_name, last_name, email, created_at
`

type CreateCustomerParams struct {
	FirstName string
	LastName  string
	Email     string
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, createCustomer, arg.FirstName, arg.LastName, arg.Email)
	return scanCustomer(row)
}

const getCustomer = `
SELECT id, first_name, last_name, email, created_at
FROM customers
WHERE id = $1
`

func (q *Queries) GetCustomer(ctx context.Context, id pgtype.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomer, id)
	return scanCustomer(row)
}

const getCustomerByEmail = `
SELECT id, first_name, last_name, email, created_at
FROM customers
WHERE email = $1
`

func (q *Queries) GetCustomerByEmail(ctx context.Context, email string) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByEmail, email)
	return scanCustomer(row)
}

const listCustomersPaginated = `
SELECT id, first_name, last_name, email, created_at
FROM customers
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`

type ListCustomersPaginatedParams struct {
	Limit  int32
	Offset int32
}

func (q *Queries) ListCustomersPaginated(ctx context.Context, arg ListCustomersPaginatedParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomersPaginated, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

const updateCustomer = `
UPDATE customers
SET first_name = $2, last_name = $3, email = $4
WHERE id = $1
RETURNING id, first_name, last_name, email, created_at
`

type UpdateCustomerParams struct {
	ID        pgtype.UUID
	FirstName string
	LastName  string
	Email     string
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	row := q.db.QueryRow(ctx, updateCustomer, arg.ID, arg.FirstName, arg.LastName, arg.Email)
	return scanCustomer(row)
}

const deleteCustomer = `
DELETE FROM customers WHERE id = $1
`

func (q *Queries) DeleteCustomer(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteCustomer, id)
	return err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.CreatedAt)
	return c, err
}
