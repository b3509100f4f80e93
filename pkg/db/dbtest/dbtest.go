// Package dbtest opens an in-memory sqlite database carrying the settlement schema.
package dbtest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE services (
  id TEXT PRIMARY KEY,
  provider_id TEXT NOT NULL,
  title TEXT NOT NULL,
  price TEXT NOT NULL,
  commission_rate TEXT,
  status TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE product_orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  buyer_id TEXT NOT NULL,
  total_amount TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  shipping_name TEXT,
  shipping_phone TEXT,
  shipping_street TEXT,
  shipping_city TEXT,
  shipping_province TEXT,
  shipping_postal_code TEXT,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE product_order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  seller_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  line_total TEXT NOT NULL,
  created_at DATETIME
)`,
	`CREATE TABLE service_orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL UNIQUE,
  service_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  provider_id TEXT NOT NULL,
  requirements TEXT NOT NULL DEFAULT '',
  price TEXT NOT NULL,
  commission_rate TEXT NOT NULL,
  commission_amount TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  delivery_date DATETIME,
  delivered_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  review_rating INTEGER,
  review_comment TEXT,
  review_created_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  product_order_id TEXT,
  service_order_id TEXT,
  payer_id TEXT NOT NULL,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  status TEXT NOT NULL,
  gateway_external_order_id TEXT NOT NULL UNIQUE,
  gateway_external_payment_id TEXT,
  gateway_status_code INTEGER,
  gateway_signature TEXT,
  gateway_method TEXT,
  gateway_card_holder_name TEXT,
  gateway_card_no TEXT,
  gateway_card_expiry TEXT,
  escrow_enabled BOOLEAN NOT NULL DEFAULT 0,
  escrow_release_date DATETIME,
  escrow_released_at DATETIME,
  escrow_released_by TEXT,
  refund_amount TEXT,
  refund_reason TEXT,
  refund_issued_at DATETIME,
  refund_issued_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE ledger_events (
  id TEXT PRIMARY KEY,
  payment_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  actor_user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount TEXT NOT NULL,
  currency TEXT NOT NULL,
  metadata TEXT,
  created_at DATETIME
)`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  reference_id TEXT,
  read_at DATETIME,
  created_at DATETIME
)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
}

// Open returns a fresh shared-cache sqlite database with every settlement table.
// The pool is pinned to one connection so concurrent callers serialize like row locks would.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:settle_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

// TxRunner runs callbacks in a gorm transaction on the wrapped database.
type TxRunner struct {
	DB *gorm.DB
}

func (r TxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}
