package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_tenant_number ON orders (tenant_id, number)",
		"FOREIGN KEY (contact_id) REFERENCES contacts(id)",
		"CHECK (number >= 1000)",
		"subtotal NUMERIC(12,2) NOT NULL",
		"payment_method TEXT",
		"DROP TABLE IF EXISTS orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestContactsMigrationEnforcesTenantEmailUniqueness(t *testing.T) {
	content := readMigration(t, "*_create_contacts.sql")

	checks := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_tenant_email ON contacts (tenant_id, email)",
		"CHECK (email = lower(email))",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCountersMigrationSeedsAtThousand(t *testing.T) {
	content := readMigration(t, "*_create_order_counters.sql")
	if !strings.Contains(content, "next_number BIGINT NOT NULL DEFAULT 1000") {
		t.Error("order counter must default to 1000")
	}
}

func TestReconciliationsMigrationIndexesDueTasks(t *testing.T) {
	content := readMigration(t, "*_create_payment_reconciliations.sql")
	if !strings.Contains(content, "idx_reconciliations_due") {
		t.Error("missing due-task index")
	}
	if !strings.Contains(content, "CHECK (status IN ('pending', 'done', 'exhausted'))") {
		t.Error("missing status check")
	}
}
