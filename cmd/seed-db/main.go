// Command seed-db prepares a database for local development: it runs the
// migrations and loads demo customers, a starter coupon set, and a back-office
// API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/casamueble/checkout/internal/domain/coupon"
	"github.com/casamueble/checkout/internal/domain/customer"
	"github.com/casamueble/checkout/internal/handler"
	"github.com/casamueble/checkout/internal/storage/postgres"
)

type customerJSON struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
}

func main() {
	var (
		databaseURL   string
		customersFile string
		apiKey        string
		apiKeyPepper  string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&customersFile, "customers-file", "", "optional path to customers JSON file")
	flag.StringVar(&apiKey, "api-key", "", "back-office API key to seed (or CHECKOUT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CHECKOUT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CHECKOUT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CHECKOUT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CHECKOUT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, customersFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, customersFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCustomers(ctx, postgres.NewCustomerRepository(pool), customersFile); err != nil {
		return errors.Wrap(err, "seed customers")
	}

	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

// defaultCustomers are the demo accounts used when no customers file is given.
var defaultCustomers = []customerJSON{
	{Name: "Ana Torres", Email: "ana@example.com", Phone: "+34 600 111 222", Address: "Calle Mayor 1", City: "Madrid", PostalCode: "28001"},
	{Name: "Luis Romero", Email: "luis@example.com", Phone: "+34 600 333 444", Address: "Gran Via 45", City: "Madrid", PostalCode: "28013"},
	{Name: "Carmen Vidal", Email: "carmen@example.com", Phone: "+34 600 555 666", Address: "Passeig de Gracia 12", City: "Barcelona", PostalCode: "08007"},
}

func seedCustomers(ctx context.Context, repo *postgres.CustomerRepository, customersFile string) error {
	entries := defaultCustomers
	if customersFile != "" {
		slog.Info("reading customers file", slog.String("path", customersFile))

		data, err := os.ReadFile(customersFile)
		if err != nil {
			return errors.Wrap(err, "read customers file")
		}
		if err := json.Unmarshal(data, &entries); err != nil {
			return errors.Wrap(err, "parse customers JSON")
		}
	}

	slog.Info("upserting customers", slog.Int("count", len(entries)))

	for _, e := range entries {
		c := &customer.Customer{
			Name:       e.Name,
			Email:      e.Email,
			Phone:      e.Phone,
			Address:    e.Address,
			City:       e.City,
			PostalCode: e.PostalCode,
		}
		if err := repo.Create(ctx, c); err != nil {
			return errors.Wrapf(err, "upsert customer %s", e.Email)
		}

		slog.Info("upserted customer", slog.Int64("id", c.ID), slog.String("email", c.Email))
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding starter coupons")

	summerEnd := time.Date(time.Now().Year(), time.September, 1, 0, 0, 0, 0, time.UTC)
	coupons := []coupon.Coupon{
		{
			Code:           "BIENVENIDA",
			Kind:           coupon.KindFixed,
			Value:          decimal.NewFromInt(15),
			PerCustomerCap: 1,
			Description:    "Welcome: 15.00 off your first order",
		},
		{
			Code:           "VERANO10",
			Kind:           coupon.KindPercentage,
			Value:          decimal.NewFromInt(10),
			TotalCap:       500,
			PerCustomerCap: 2,
			ValidUntil:     &summerEnd,
			Description:    "Summer sale: 10% off",
		},
	}

	for i := range coupons {
		if err := repo.Upsert(ctx, &coupons[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", coupons[i].Code)
		}

		slog.Info("upserted coupon", slog.String("code", coupons[i].Code))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding back-office API key")

	hash := handler.HashKey(pepper, apiKey)
	if err := repo.Insert(ctx, hash, "Back-office key"); err != nil {
		return errors.Wrap(err, "insert api key")
	}

	slog.Info("inserted API key", slog.String("name", "Back-office key"))
	return nil
}
