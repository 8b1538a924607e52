//go:build integration

package storage_test

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/MikeMC777/annoor-shop/internal/listing"
	"github.com/MikeMC777/annoor-shop/internal/order"
	"github.com/MikeMC777/annoor-shop/internal/product"
	"github.com/MikeMC777/annoor-shop/internal/storage/mongodb"
	"github.com/MikeMC777/annoor-shop/internal/storage/postgres"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

var (
	mongoURI string
	pgDSN    string
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	mongoC, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	pgC, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "annoor_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		_ = mongoC.Terminate(ctx)
		panic(err)
	}

	mongoURI = fmt.Sprintf("mongodb://%s", endpoint(ctx, mongoC, "27017"))
	pgDSN = fmt.Sprintf("postgres://postgres:password@%s/annoor_test?sslmode=disable", endpoint(ctx, pgC, "5432"))

	code := m.Run()
	_ = mongoC.Terminate(ctx)
	_ = pgC.Terminate(ctx)
	os.Exit(code)
}

func endpoint(ctx context.Context, c tc.Container, port string) string {
	host, err := c.Host(ctx)
	if err != nil {
		panic(err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		panic(err)
	}
	return host + ":" + mapped.Port()
}

type backend struct {
	users    user.Repository
	products product.Repository
	orders   order.Repository
}

// eachBackend runs fn against an empty store of every driver.
func eachBackend(t *testing.T, fn func(t *testing.T, b backend)) {
	t.Run("mongo", func(t *testing.T) {
		ctx := context.Background()
		conn, err := mongodb.NewConnection(ctx, mongoURI, "t"+uuid.NewString()[:8])
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		fn(t, backend{
			users:    user.NewMongoRepo(conn),
			products: product.NewMongoRepo(conn),
			orders:   order.NewMongoRepo(conn),
		})
	})
	t.Run("postgres", func(t *testing.T) {
		ctx := context.Background()
		conn, err := postgres.NewConnection(ctx, pgDSN)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		_, err = conn.Exec(ctx, "TRUNCATE users, products, orders RESTART IDENTITY")
		require.NoError(t, err)
		fn(t, backend{
			users:    user.NewPGRepo(conn),
			products: product.NewPGRepo(conn),
			orders:   order.NewPGRepo(conn),
		})
	})
}

func newProduct(name string, stock int, discount string) *product.Product {
	now := time.Now().UTC()
	return &product.Product{
		Name:        name,
		Category:    "dates",
		Description: "from Madinah",
		Stock:       stock,
		Price:       decimal.RequireFromString("10.50"),
		Discount:    decimal.RequireFromString(discount),
		Image:       "http://localhost/assets/" + name + ".png",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestUserUpsert_Idempotent(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		profile := user.Profile{"name": "Amina", "email": "amina@example.com"}

		require.NoError(t, b.users.Upsert(ctx, "u-1", profile))
		first, err := b.users.GetByUID(ctx, "u-1")
		require.NoError(t, err)

		require.NoError(t, b.users.Upsert(ctx, "u-1", profile))
		second, err := b.users.GetByUID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, first.Profile, second.Profile)
		assert.Equal(t, user.RoleNone, second.Role)

		require.NoError(t, b.users.SetRole(ctx, "u-1", user.RoleAdmin))
		require.NoError(t, b.users.Upsert(ctx, "u-1", user.Profile{"phone": "+880"}))
		third, err := b.users.GetByUID(ctx, "u-1")
		require.NoError(t, err)
		assert.Equal(t, user.RoleAdmin, third.Role, "upsert keeps the role")
		assert.Equal(t, "Amina", third.Profile["name"], "upsert merges profile fields")
		assert.Equal(t, "+880", third.Profile["phone"])

		_, total, err := b.users.List(ctx, mustBuild(t, listing.Params{Page: 1}, user.Filters))
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		assert.ErrorIs(t, b.users.SetRole(ctx, "ghost", user.RoleAdmin), user.ErrNotFound)
	})
}

func mustBuild(t *testing.T, p listing.Params, f listing.Filters) listing.Query {
	t.Helper()
	q, err := listing.Build(p, f)
	require.NoError(t, err)
	return q
}

func TestProductListing(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		for i := 0; i < 20; i++ {
			stock, discount := 5, "0"
			if i == 3 || i == 9 || i == 17 {
				stock = 0
			}
			if i%10 == 0 {
				discount = "1.25"
			}
			require.NoError(t, b.products.Create(ctx, newProduct(fmt.Sprintf("ajwa%02d", i), stock, discount)))
		}

		items, total, err := b.products.List(ctx, mustBuild(t, listing.Params{Page: 1, Filter: "Stock out"}, product.Filters))
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		assert.Len(t, items, 3)

		_, total, err = b.products.List(ctx, mustBuild(t, listing.Params{Page: 1, Filter: "Discounted"}, product.Filters))
		require.NoError(t, err)
		assert.EqualValues(t, 2, total)

		items, total, err = b.products.List(ctx, mustBuild(t, listing.Params{Page: 2}, product.Filters))
		require.NoError(t, err)
		assert.EqualValues(t, 20, total)
		require.Len(t, items, 5)
		assert.Equal(t, "ajwa04", items[0].Name, "newest first")

		items, total, err = b.products.List(ctx, mustBuild(t, listing.Params{Page: 1, Search: "ajwa07", Filter: "Stock out"}, product.Filters))
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, "10.5", items[0].Price.String())
	})
}

func TestProductCRUD(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		p := newProduct("sukkari", 2, "0")
		require.NoError(t, b.products.Create(ctx, p))
		require.NotEmpty(t, p.ID)

		name, discount := "sukkari premium", decimal.RequireFromString("0.5")
		require.NoError(t, b.products.AdjustStock(ctx, p.ID, -1))
		updated, err := b.products.Update(ctx, p.ID, product.Fields{Name: &name, Discount: &discount})
		require.NoError(t, err)
		assert.Equal(t, "sukkari premium", updated.Name)
		assert.Equal(t, 1, updated.Stock, "stock is left alone unless supplied")
		got, err := b.products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "sukkari premium", got.Name)
		assert.Equal(t, 1, got.Stock)
		assert.True(t, got.Discount.Equal(decimal.RequireFromString("0.5")))

		_, err = b.products.Update(ctx, p.ID+"x", product.Fields{Name: &name})
		assert.Error(t, err)

		byCat, err := b.products.ListByCategory(ctx, "dates")
		require.NoError(t, err)
		assert.Len(t, byCat, 1)

		ok, err := b.products.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = b.products.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = b.products.GetByID(ctx, p.ID)
		assert.ErrorIs(t, err, product.ErrNotFound)
	})
}

func TestAdjustStock_NeverNegative(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		p := newProduct("mabroom", 5, "0")
		require.NoError(t, b.products.Create(ctx, p))

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, fail int
		)
		for i := 0; i < 12; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := b.products.AdjustStock(ctx, p.ID, -1)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else {
					assert.ErrorIs(t, err, product.ErrInsufficientStock)
					fail++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, ok)
		assert.Equal(t, 7, fail)
		got, err := b.products.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Zero(t, got.Stock)
	})
}

func TestOrderIDs_UniqueUnderConcurrency(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		const n = 25

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids []int64
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				o := &order.Order{
					Owner:  fmt.Sprintf("cust-%d", i%2),
					Status: order.StatusPending,
					Items:  []order.Item{{ProductID: "p", Name: "ajwa", Quantity: 1, Price: decimal.NewFromInt(10)}},
					Total:  decimal.NewFromInt(10),
				}
				err := b.orders.Create(ctx, o)
				mu.Lock()
				defer mu.Unlock()
				assert.NoError(t, err)
				ids = append(ids, o.ID)
			}(i)
		}
		wg.Wait()

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		require.Len(t, ids, n)
		for i, id := range ids {
			assert.Equal(t, int64(i+1), id)
		}
	})
}

func TestOrderLifecycle(t *testing.T) {
	eachBackend(t, func(t *testing.T, b backend) {
		ctx := context.Background()
		o := &order.Order{
			Owner:  "cust-1",
			Status: order.StatusPending,
			Items:  []order.Item{{ProductID: "p1", Name: "ajwa", Quantity: 2, Price: decimal.RequireFromString("9.75")}},
			Total:  decimal.RequireFromString("19.50"),
		}
		require.NoError(t, b.orders.Create(ctx, o))

		assert.ErrorIs(t, b.orders.Pay(ctx, o.ID, "cust-2", map[string]any{"trxId": "X"}), order.ErrNotFound)
		require.NoError(t, b.orders.Pay(ctx, o.ID, "cust-1", map[string]any{"trxId": "T1", "method": "bkash"}))
		assert.ErrorIs(t, b.orders.Pay(ctx, o.ID, "cust-1", map[string]any{"trxId": "T2"}), order.ErrNotPending)

		got, err := b.orders.GetByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, got.Status)
		assert.Equal(t, "T1", got.Payment["trxId"])
		assert.True(t, got.Total.Equal(decimal.RequireFromString("19.5")))
		require.Len(t, got.Items, 1)
		assert.Equal(t, 2, got.Items[0].Quantity)

		prev, err := b.orders.SetStatus(ctx, o.ID, order.StatusCanceled)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, prev.Status)
		_, err = b.orders.SetStatus(ctx, o.ID, order.StatusShipped)
		assert.ErrorIs(t, err, order.ErrCanceled)

		_, total, err := b.orders.List(ctx, mustBuild(t, listing.Params{Page: 1, Filter: "Canceled"}, order.Filters).Scope(listing.Eq("owner", "cust-1")))
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)

		ok, err := b.orders.Delete(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = b.orders.GetByID(ctx, o.ID)
		assert.ErrorIs(t, err, order.ErrNotFound)
	})
}
