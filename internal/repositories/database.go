package repository

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/atelieforma/storefront/internal/config"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"
)

type Repositories struct {
	DB      *sql.DB
	Product ProductRepository
	Order   OrderRepository
	User    UserRepository
}

func New(cfg *config.Config) (*Repositories, error) {

	db, err := otelsql.Open("postgres", cfg.Database.GetDSN(),
		otelsql.WithAttributes(semconv.DBSystemNamePostgreSQL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repositories{
		DB:      db,
		Product: NewProductRepo(db),
		Order:   NewOrderRepo(db),
		User:    NewUserRepo(db),
	}, nil
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}
