package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// Credentials locate the payment ledger database and its migration files.
type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

func (c *Credentials) dsn() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

const (
	ledgerMaxOpenConns = 100
	ledgerMaxIdleConns = 10
)

// PaymentRepository is the Postgres-backed payment ledger.
type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(ctx context.Context, cred *Credentials) (*PaymentRepository, error) {
	db, err := sql.Open("postgres", cred.dsn())
	if err != nil {
		return nil, fmt.Errorf("open payment ledger: %w", err)
	}
	db.SetMaxOpenConns(ledgerMaxOpenConns)
	db.SetMaxIdleConns(ledgerMaxIdleConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("payment ledger %s:%d unreachable: %w", cred.Host, cred.Port, err)
	}
	return &PaymentRepository{db: db}, nil
}

// Migrate brings the ledger schema up to the newest migration in dir.
// An already current schema is not an error.
func (r *PaymentRepository) Migrate(dir string) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("ledger migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("load ledger migrations from %s: %w", dir, err)
	}

	switch err := m.Up(); {
	case err == nil, errors.Is(err, migrate.ErrNoChange):
		return nil
	default:
		return fmt.Errorf("apply ledger migrations: %w", err)
	}
}

func (r *PaymentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PaymentRepository) Close() error {
	return r.db.Close()
}
