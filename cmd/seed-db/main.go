// Command seed-db creates the schema and loads the embedded demo catalog:
// menu products, add-ons, coupons, a demo account with its welcome cashback,
// and the operational API key.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/uiliambrandao/nammos-checkout/db"
	"github.com/uiliambrandao/nammos-checkout/internal/repository"
)

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, category, image)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price,
			category = EXCLUDED.category, image = EXCLUDED.image`

	upsertAddonSQL = `INSERT INTO addons (id, name, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price`

	upsertCouponSQL = `INSERT INTO coupons (code, value, min_order, description, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (code) DO UPDATE SET
			value = EXCLUDED.value, min_order = EXCLUDED.min_order,
			description = EXCLUDED.description, active = TRUE`

	upsertUserSQL = `INSERT INTO users (id, name, phone)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	// The welcome credit is granted once; re-running the seed against a ledger
	// that already has movements must not inflate the balance.
	seedCreditSQL = `INSERT INTO cashback_ledger (user_id, entry_type, amount, description)
		SELECT $1, 'credit', $2, $3
		WHERE NOT EXISTS (SELECT 1 FROM cashback_ledger WHERE user_id = $1)`

	upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
			scopes = EXCLUDED.scopes, active = TRUE`
)

type seedProduct struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	Image    string
}

type seedAddon struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

type seedCoupon struct {
	Code        string
	Value       decimal.Decimal
	MinOrder    decimal.Decimal
	Description string
}

type seedCashback struct {
	Phone       string
	Name        string
	Amount      decimal.Decimal
	Description string
}

type catalog struct {
	Products []seedProduct
	Addons   []seedAddon
	Coupons  []seedCoupon
	Cashback []seedCashback
}

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "ops API key to seed (or NAMMOS_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or NAMMOS_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("NAMMOS_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or NAMMOS_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("NAMMOS_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string) error {
	cat, err := parseCatalog(db.Catalog)
	if err != nil {
		return errors.Wrap(err, "parse embedded catalog")
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, cat); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, cat *catalog) error {
	slog.Info("upserting products", slog.Int("count", len(cat.Products)))
	for _, p := range cat.Products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Category, p.Image); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	slog.Info("upserting addons", slog.Int("count", len(cat.Addons)))
	for _, a := range cat.Addons {
		if _, err := pool.Exec(ctx, upsertAddonSQL, a.ID, a.Name, a.Price); err != nil {
			return errors.Wrapf(err, "upsert addon %s", a.ID)
		}
	}

	slog.Info("upserting coupons", slog.Int("count", len(cat.Coupons)))
	for _, c := range cat.Coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL, c.Code, c.Value, c.MinOrder, c.Description); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}
	}

	for _, cb := range cat.Cashback {
		var userID string
		err := pool.QueryRow(ctx, upsertUserSQL, uuid.New().String(), cb.Name, cb.Phone).Scan(&userID)
		if err != nil {
			return errors.Wrapf(err, "upsert user %s", cb.Phone)
		}
		if _, err := pool.Exec(ctx, seedCreditSQL, userID, cb.Amount, cb.Description); err != nil {
			return errors.Wrapf(err, "credit cashback for %s", cb.Phone)
		}
		slog.Info("seeded demo account",
			slog.String("phone", cb.Phone),
			slog.String("cashback", cb.Amount.StringFixed(2)),
		)
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiKey))
	keyHash := hex.EncodeToString(mac.Sum(nil))

	_, err := pool.Exec(ctx, upsertAPIKeySQL,
		"ops", keyHash, "Kitchen ops key", []string{"advance_tracking", "confirm_pix"},
	)
	if err != nil {
		return errors.Wrap(err, "upsert ops API key")
	}

	slog.Info("upserted API key", slog.String("id", "ops"))
	return nil
}

// parseCatalog decodes the embedded catalog document.
func parseCatalog(data []byte) (*catalog, error) {
	var cat catalog
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "products":
			return d.Arr(func(d *jx.Decoder) error {
				p, err := decodeProduct(d)
				if err != nil {
					return err
				}
				cat.Products = append(cat.Products, p)
				return nil
			})
		case "addons":
			return d.Arr(func(d *jx.Decoder) error {
				a, err := decodeAddon(d)
				if err != nil {
					return err
				}
				cat.Addons = append(cat.Addons, a)
				return nil
			})
		case "coupons":
			return d.Arr(func(d *jx.Decoder) error {
				c, err := decodeCoupon(d)
				if err != nil {
					return err
				}
				cat.Coupons = append(cat.Coupons, c)
				return nil
			})
		case "cashback":
			return d.Arr(func(d *jx.Decoder) error {
				cb, err := decodeCashback(d)
				if err != nil {
					return err
				}
				cat.Cashback = append(cat.Cashback, cb)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &cat, nil
}

func decodeProduct(d *jx.Decoder) (seedProduct, error) {
	var p seedProduct
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "price":
			p.Price, err = decodeAmount(d)
		case "category":
			p.Category, err = d.Str()
		case "image":
			p.Image, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return p, err
}

func decodeAddon(d *jx.Decoder) (seedAddon, error) {
	var a seedAddon
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			a.ID, err = d.Str()
		case "name":
			a.Name, err = d.Str()
		case "price":
			a.Price, err = decodeAmount(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return a, err
}

func decodeCoupon(d *jx.Decoder) (seedCoupon, error) {
	var c seedCoupon
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "code":
			c.Code, err = d.Str()
		case "value":
			c.Value, err = decodeAmount(d)
		case "min_order":
			c.MinOrder, err = decodeAmount(d)
		case "description":
			c.Description, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, err
}

func decodeCashback(d *jx.Decoder) (seedCashback, error) {
	var cb seedCashback
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "phone":
			cb.Phone, err = d.Str()
		case "name":
			cb.Name, err = d.Str()
		case "amount":
			cb.Amount, err = decodeAmount(d)
		case "description":
			cb.Description, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return cb, err
}

func decodeAmount(d *jx.Decoder) (decimal.Decimal, error) {
	s, err := d.Str()
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(s)
}
