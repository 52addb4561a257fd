package common

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "currencies.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write currencies file: %v", err)
	}
	return path
}

func TestLoadCurrencyCodes(t *testing.T) {
	path := writeFile(t, `currencies:
  - code: USD
    name: US Dollar
  - code: eur
    name: Euro
`)

	codes, err := LoadCurrencyCodes(path)
	if err != nil {
		t.Fatalf("LoadCurrencyCodes failed: %v", err)
	}
	if len(codes) != 2 || codes[0] != "USD" || codes[1] != "eur" {
		t.Errorf("Unexpected codes: %v", codes)
	}
}

func TestLoadCurrencyConfig_Errors(t *testing.T) {
	tests := map[string]string{
		"missing code": "currencies:\n  - name: Nameless\n",
		"empty list":   "currencies: []\n",
		"bad yaml":     "currencies: [\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadCurrencyConfig(writeFile(t, content)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	if _, err := LoadCurrencyConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadCurrencies_Registry(t *testing.T) {
	registry, err := loadCurrencies(writeFile(t, "currencies:\n  - code: chf\n"))
	if err != nil {
		t.Fatalf("loadCurrencies failed: %v", err)
	}
	if !registry.Contains("CHF") || registry.Contains("USD") {
		t.Error("Expected registry to contain only CHF")
	}

	defaults, err := loadCurrencies("")
	if err != nil {
		t.Fatalf("loadCurrencies with no file failed: %v", err)
	}
	if !defaults.Contains("USD") {
		t.Error("Expected default registry to contain USD")
	}
}
