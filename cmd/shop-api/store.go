package main

import (
	"context"
	"fmt"

	"github.com/MikeMC777/annoor-shop/internal/config"
	"github.com/MikeMC777/annoor-shop/internal/order"
	"github.com/MikeMC777/annoor-shop/internal/product"
	"github.com/MikeMC777/annoor-shop/internal/storage/mongodb"
	"github.com/MikeMC777/annoor-shop/internal/storage/postgres"
	"github.com/MikeMC777/annoor-shop/internal/user"
)

// store groups the repositories of the configured driver.
type store struct {
	users    user.Repository
	products product.Repository
	orders   order.Repository
	ping     func(ctx context.Context) error
	close    func() error
}

func openStore(ctx context.Context, db config.Database) (*store, error) {
	ctx, cancel := context.WithTimeout(ctx, db.Timeout)
	defer cancel()

	switch db.Driver {
	case config.DriverMongo:
		conn, err := mongodb.NewConnection(ctx, db.MongoURI, db.MongoName)
		if err != nil {
			return nil, err
		}
		return &store{
			users:    user.NewMongoRepo(conn),
			products: product.NewMongoRepo(conn),
			orders:   order.NewMongoRepo(conn),
			ping:     conn.Ping,
			close:    conn.Close,
		}, nil
	case config.DriverPostgres:
		conn, err := postgres.NewConnection(ctx, db.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &store{
			users:    user.NewPGRepo(conn),
			products: product.NewPGRepo(conn),
			orders:   order.NewPGRepo(conn),
			ping:     conn.Ping,
			close:    conn.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}
