// Package store persists customer records and shopping carts in Postgres.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/tanpawarit/storebot/bot/contract"
)

type Config struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// customerRow is the customers table model. The cart is a text[] column;
// insertion order is the array order and duplicates are allowed.
type customerRow struct {
	bun.BaseModel `bun:"table:customers"`

	Email        string   `bun:"email,pk"`
	FirstName    string   `bun:"first_name"`
	LastName     string   `bun:"last_name"`
	ShoppingCart []string `bun:"shopping_cart,array"`
}

// PostgresStore implements contract.CustomerStore on bun/pgdriver.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(timeout),
	))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

func MustNewPostgresStore(cfg Config) *PostgresStore {
	s, err := NewPostgresStore(cfg)
	if err != nil {
		panic(err)
	}
	return s
}

// Init makes sure the customers table exists. Safe to run on every start.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*customerRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create customers table: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindCustomer(ctx context.Context, email string) (*contractx.Customer, error) {
	row := new(customerRow)
	err := s.db.NewSelect().
		Model(row).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contractx.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer %s: %w", email, err)
	}
	return row.toCustomer(), nil
}

func (s *PostgresStore) CreateCustomer(ctx context.Context, customer *contractx.Customer) error {
	if customer == nil || strings.TrimSpace(customer.Email) == "" {
		return errors.New("customer email is required")
	}
	row := &customerRow{
		Email:        customer.Email,
		FirstName:    customer.FirstName,
		LastName:     customer.LastName,
		ShoppingCart: customer.ShoppingCart,
	}
	if row.ShoppingCart == nil {
		row.ShoppingCart = []string{}
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("create customer %s: %w", customer.Email, err)
	}
	return nil
}

func (s *PostgresStore) ListCart(ctx context.Context, email string) ([]string, error) {
	row := new(customerRow)
	err := s.db.NewSelect().
		Model(row).
		Column("shopping_cart").
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contractx.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("list cart for %s: %w", email, err)
	}
	return row.ShoppingCart, nil
}

func (s *PostgresStore) AddCartItem(ctx context.Context, email, item string) error {
	if _, err := s.db.NewUpdate().
		Model((*customerRow)(nil)).
		Set("shopping_cart = array_append(shopping_cart, ?)", item).
		Where("email = ?", email).
		Exec(ctx); err != nil {
		return fmt.Errorf("add cart item for %s: %w", email, err)
	}
	return nil
}

// DeleteCartItem removes one occurrence of item from the cart. Duplicates
// are allowed in carts, so only the first match goes.
func (s *PostgresStore) DeleteCartItem(ctx context.Context, email, item string) error {
	cart, err := s.ListCart(ctx, email)
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(cart))
	removed := false
	for _, existing := range cart {
		if !removed && existing == item {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return nil
	}

	if _, err := s.db.NewUpdate().
		Model((*customerRow)(nil)).
		Set("shopping_cart = ?", pgdialect.Array(kept)).
		Where("email = ?", email).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete cart item for %s: %w", email, err)
	}
	return nil
}

func (r *customerRow) toCustomer() *contractx.Customer {
	cart := r.ShoppingCart
	if cart == nil {
		cart = []string{}
	}
	return &contractx.Customer{
		Email:        r.Email,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		ShoppingCart: cart,
	}
}
