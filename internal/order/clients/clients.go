// Package clients holds the synchronous HTTP clients the order service uses
// to validate a customer and price line items before committing an order.
package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrProductNotFound  = errors.New("product not found")
)

const clientTimeout = 5 * time.Second

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int32   `json:"stockQuantity"`
}

type CustomerClient struct {
	http *resty.Client
}

func NewCustomerClient(baseURL string) *CustomerClient {
	return &CustomerClient{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(clientTimeout),
	}
}

func (c *CustomerClient) GetCustomer(ctx context.Context, id string) (*Customer, error) {
	var customer Customer
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&customer).
		SetPathParam("id", id).
		Get("/api/customers/{id}")
	if err != nil {
		return nil, fmt.Errorf("customer service request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &customer, nil
	case http.StatusNotFound:
		return nil, ErrCustomerNotFound
	default:
		return nil, fmt.Errorf("customer service returned status %d", resp.StatusCode())
	}
}

type ProductClient struct {
	http *resty.Client
}

func NewProductClient(baseURL string) *ProductClient {
	return &ProductClient{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(clientTimeout),
	}
}

func (c *ProductClient) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&product).
		SetPathParam("id", id).
		Get("/api/products/{id}")
	if err != nil {
		return nil, fmt.Errorf("product service request failed: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		return &product, nil
	case http.StatusNotFound:
		return nil, ErrProductNotFound
	default:
		return nil, fmt.Errorf("product service returned status %d", resp.StatusCode())
	}
}

type Clients struct {
	Customer *CustomerClient
	Product  *ProductClient
}

func NewClients(customerServiceURL, productServiceURL string) *Clients {
	return &Clients{
		Customer: NewCustomerClient(customerServiceURL),
		Product:  NewProductClient(productServiceURL),
	}
}
