package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestProduct(t *testing.T, code, name string, price int64, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(code, name, decimal.NewFromInt(price))
	require.NoError(t, err)
	require.NoError(t, p.SetStock(stock))
	return p
}

func seedProducts(t *testing.T, repo *GormProductRepository) []*catalog.Product {
	t.Helper()
	ctx := context.Background()

	tee := newTestProduct(t, "TEE-001", "Basic Tee", 250, 10)
	tee.SetVariants([]string{"S", "M", "L"}, []string{"Black", "White"})
	hoodie := newTestProduct(t, "HOOD-001", "Zip Hoodie", 900, 0)
	mug := newTestProduct(t, "MUG-001", "Coffee Mug", 120, 40)
	require.NoError(t, mug.Deactivate())

	for _, p := range []*catalog.Product{tee, hoodie, mug} {
		require.NoError(t, repo.Save(ctx, p))
	}
	return []*catalog.Product{tee, hoodie, mug}
}

func TestGormProductRepository_SaveAndFind(t *testing.T) {
	repo := NewGormProductRepository(setupSQLiteDB(t))
	ctx := context.Background()
	products := seedProducts(t, repo)
	tee := products[0]

	t.Run("finds by id with variants", func(t *testing.T) {
		found, err := repo.FindByID(ctx, tee.ID)
		require.NoError(t, err)
		assert.Equal(t, "TEE-001", found.Code)
		assert.Equal(t, "Basic Tee", found.Name)
		assert.True(t, found.Price.Equal(decimal.NewFromInt(250)))
		assert.Equal(t, 10, found.Stock)
		assert.Equal(t, []string{"S", "M", "L"}, found.Sizes)
		assert.Equal(t, []string{"Black", "White"}, found.Colors)
	})

	t.Run("finds by code ignoring case", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, "tee-001")
		require.NoError(t, err)
		assert.Equal(t, tee.ID, found.ID)
	})

	t.Run("unknown id returns not found", func(t *testing.T) {
		found, err := repo.FindByID(ctx, uuid.New())
		assert.Nil(t, found)
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("unknown code returns not found", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "NOPE")
		assert.Equal(t, shared.ErrNotFound, err)
	})

	t.Run("save updates existing row", func(t *testing.T) {
		require.NoError(t, tee.SetStock(3))
		require.NoError(t, repo.Save(ctx, tee))

		found, err := repo.FindByID(ctx, tee.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, found.Stock)

		count, err := repo.Count(ctx, shared.Filter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}

func TestGormProductRepository_FindAll(t *testing.T) {
	repo := NewGormProductRepository(setupSQLiteDB(t))
	ctx := context.Background()
	seedProducts(t, repo)

	tests := []struct {
		name    string
		filter  shared.Filter
		codes   []string
		ordered bool
	}{
		{
			// Basic Tee, Coffee Mug, Zip Hoodie
			name:    "default order is by name",
			filter:  shared.Filter{},
			codes:   []string{"TEE-001", "MUG-001", "HOOD-001"},
			ordered: true,
		},
		{
			name:   "status filter",
			filter: shared.Filter{Filters: map[string]interface{}{"status": "active"}},
			codes:  []string{"TEE-001", "HOOD-001"},
		},
		{
			name:   "search matches name and code",
			filter: shared.Filter{Search: "hood"},
			codes:  []string{"HOOD-001"},
		},
		{
			name:   "in stock only",
			filter: shared.Filter{Filters: map[string]interface{}{"in_stock": true}},
			codes:  []string{"TEE-001", "MUG-001"},
		},
		{
			name:    "sort by price descending",
			filter:  shared.Filter{OrderBy: "price", OrderDir: "desc"},
			codes:   []string{"HOOD-001", "TEE-001", "MUG-001"},
			ordered: true,
		},
		{
			name:   "pagination",
			filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "code", OrderDir: "asc"},
			codes:  []string{"TEE-001"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := repo.FindAll(ctx, tt.filter)
			require.NoError(t, err)

			codes := make([]string, len(products))
			for i, p := range products {
				codes[i] = p.Code
			}
			if tt.ordered {
				assert.Equal(t, tt.codes, codes)
				return
			}
			assert.ElementsMatch(t, tt.codes, codes)
		})
	}
}

func TestGormProductRepository_ExistsByCode(t *testing.T) {
	repo := NewGormProductRepository(setupSQLiteDB(t))
	ctx := context.Background()
	seedProducts(t, repo)

	exists, err := repo.ExistsByCode(ctx, "mug-001")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByCode(ctx, "MUG-999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormProductRepository_PostgresQueries(t *testing.T) {
	t.Run("FindByID selects by primary key", func(t *testing.T) {
		db, mock, mockDB := newPostgresMock(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		id := uuid.New()
		rows := sqlmock.NewRows([]string{"id", "code", "name", "price", "stock", "sizes", "colors", "status"}).
			AddRow(id, "TEE-001", "Basic Tee", "250.0000", 5, `["S"]`, `[]`, "active")

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(rows)

		product, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, product.ID)
		assert.Equal(t, []string{"S"}, product.Sizes)
		assert.Empty(t, product.Colors)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FindByID maps record not found", func(t *testing.T) {
		db, mock, mockDB := newPostgresMock(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), id)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Count applies status filter", func(t *testing.T) {
		db, mock, mockDB := newPostgresMock(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE status = \$1`).
			WithArgs("active").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		count, err := repo.Count(context.Background(), shared.Filter{Filters: map[string]interface{}{"status": "active"}})
		require.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FindAll rejects unknown sort field", func(t *testing.T) {
		db, mock, mockDB := newPostgresMock(t)
		defer mockDB.Close()
		repo := NewGormProductRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "products" ORDER BY name DESC`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		products, err := repo.FindAll(context.Background(), shared.Filter{OrderBy: "name; DROP TABLE products"})
		require.NoError(t, err)
		assert.Empty(t, products)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
