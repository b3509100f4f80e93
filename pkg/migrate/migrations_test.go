package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hirelanka/marketplace-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}

func TestPaymentsMigrationEnforcesSettlementConstraints(t *testing.T) {
	content := readMigration(t, "create_payments_table")
	for _, sub := range []string{
		"CONSTRAINT chk_payments_single_order CHECK",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_payments_external_order_id ON payments (gateway_external_order_id)",
		"escrow_enabled boolean NOT NULL DEFAULT false",
		"escrow_released_at timestamptz",
		"refund_issued_by uuid",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOrderMigrationsContainUniqueNumbersAndStockGuard(t *testing.T) {
	orders := readMigration(t, "create_order_tables")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_product_orders_order_number",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_service_orders_order_number",
		"commission_amount numeric(12,2) NOT NULL",
		"quantity integer NOT NULL CHECK (quantity > 0)",
	} {
		if !strings.Contains(orders, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
	catalog := readMigration(t, "create_catalog_tables")
	if !strings.Contains(catalog, "stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0)") {
		t.Errorf("products.stock must never go negative")
	}
}

func TestLedgerMigrationIsAppendOnly(t *testing.T) {
	content := readMigration(t, "create_ledger_outbox_notifications")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS ledger_events",
		"BEFORE UPDATE OR DELETE ON ledger_events",
		"CREATE TABLE IF NOT EXISTS outbox_events",
		"CREATE TABLE IF NOT EXISTS notifications",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Payout Accounts!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260302083000_add_payout_accounts.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add payout accounts", now); err == nil {
		t.Fatal("expected existing migration to be rejected")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", now); err == nil {
		t.Fatal("expected empty sanitized name to be rejected")
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}

	dir = t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_no_down.sql"), []byte("-- +goose Up\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected missing down section error")
	}

	dir = t.TempDir()
	unbalanced := "-- +goose Up\n-- +goose StatementBegin\nSELECT 1;\n-- +goose Down\n"
	if err := os.WriteFile(filepath.Join(dir, "20260101000000_unbalanced.sql"), []byte(unbalanced), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := migrate.ValidateDir(dir); err == nil {
		t.Fatal("expected unbalanced statement markers error")
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	if err := migrate.ValidateDir(""); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	embedded, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	onDisk, _ := filepath.Glob(filepath.Join("migrations", "*.sql"))
	entries, err := fs.ReadDir(embedded, ".")
	if err != nil {
		t.Fatalf("read embedded: %v", err)
	}
	if len(entries) != len(onDisk) {
		t.Fatalf("expected %d embedded migrations, got %d", len(onDisk), len(entries))
	}
}
