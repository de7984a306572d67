package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetconv/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), "  ", "", "")
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sheet-id", "", "")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sa.json")
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Run("inline json wins", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"inline":true}`)
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", path)
		b, err := loadCredentials(context.Background())
		if err != nil || string(b) != `{"inline":true}` {
			t.Fatalf("got %q err=%v", b, err)
		}
	})
	t.Run("application credentials fallback", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
		b, err := loadCredentials(context.Background())
		if err != nil || !strings.Contains(string(b), "service_account") {
			t.Fatalf("got %q err=%v", b, err)
		}
	})
	t.Run("unreadable file", func(t *testing.T) {
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
		t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", filepath.Join(dir, "missing.json"))
		if _, err := loadCredentials(context.Background()); err == nil {
			t.Fatal("expected read error")
		}
	})
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	if _, err := c.ReadRows(context.Background(), "Budget"); err == nil {
		t.Error("expected error from ReadRows without service")
	}
	if _, err := c.Publish(context.Background(), core.Table{}); err == nil {
		t.Error("expected error from Publish without service")
	}
}
