package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmcampos/minimart-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestProductsMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_products_table.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS products",
		"quantity    INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0)",
		"tags        TEXT[] NOT NULL DEFAULT ARRAY[]::TEXT[]",
		"CREATE INDEX IF NOT EXISTS idx_products_tags",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCartItemsMigrationEnforcesOneRowPerUserProduct(t *testing.T) {
	content := readMigration(t, "*_create_cart_items_table.sql")
	if !strings.Contains(content, "CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product") {
		t.Error("missing unique user/product index")
	}
}

func TestOrdersMigrationContainsSchemas(t *testing.T) {
	content := readMigration(t, "*_create_orders_tables.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE TABLE IF NOT EXISTS order_items",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_order_number",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_reference_id",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_created",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration file matching %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
