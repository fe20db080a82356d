package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/s223973381/ishika-sit722/internal/product/repository"
	"github.com/s223973381/ishika-sit722/shared/logs"
	"github.com/stretchr/testify/assert"
)

func TestProductCache(t *testing.T) {
	logger := logs.NewSlogLogger()
	ctx := context.Background()

	product := repository.Product{Name: "Cached Product", StockQuantity: 7}
	data, err := json.Marshal(product)
	assert.NoError(t, err)

	key := productKeyPrefix + product.ID.String()

	t.Run("GetMiss", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewProductCache(client, logger, time.Minute)

		mock.ExpectGet(key).RedisNil()

		_, ok := cache.Get(ctx, product.ID.String())
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("GetHit", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewProductCache(client, logger, time.Minute)

		mock.ExpectGet(key).SetVal(string(data))

		got, ok := cache.Get(ctx, product.ID.String())
		assert.True(t, ok)
		assert.Equal(t, product.Name, got.Name)
		assert.Equal(t, product.StockQuantity, got.StockQuantity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SetThenInvalidate", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewProductCache(client, logger, time.Minute)

		mock.ExpectSet(key, data, time.Minute).SetVal("OK")
		mock.ExpectDel(key).SetVal(1)

		cache.Set(ctx, product)
		cache.Invalidate(ctx, product.ID.String())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CorruptedEntryIsDropped", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		cache := NewProductCache(client, logger, time.Minute)

		mock.ExpectGet(key).SetVal("not json")
		mock.ExpectDel(key).SetVal(1)

		_, ok := cache.Get(ctx, product.ID.String())
		assert.False(t, ok)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
