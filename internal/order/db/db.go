package db

import (
	"context"

	"github.com/s223973381/ishika-sit722/internal/order/repository"
)

type DB interface {
	repository.DBTX
	Ping(ctx context.Context) error
}
