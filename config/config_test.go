package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadReconConfigJSON(t *testing.T) {
	path := writeTemp(t, "recon.json", `{
		"tolerance": {"amountCents": 0, "dateWindowDays": 3},
		"windowedNm": {"maxGroupSize": 8, "maxNodes": 100000, "maxBucketSize": 1000, "allowMixedSign": false, "evidenceFields": ["description"]}
	}`)
	cfg, err := LoadReconConfig(path)
	if err != nil {
		t.Fatalf("LoadReconConfig: %v", err)
	}
	if cfg.Tolerance.DateWindowDays != 3 || cfg.WindowedNm.MaxGroupSize != 8 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadReconConfigTOML(t *testing.T) {
	path := writeTemp(t, "recon.toml", `
[tolerance]
amount_cents = 50
date_window_days = 2

[windowed_nm]
max_group_size = 4
max_nodes = 10000
max_bucket_size = 200
allow_mixed_sign = true
evidence_fields = ["source_id"]
`)
	cfg, err := LoadReconConfig(path)
	if err != nil {
		t.Fatalf("LoadReconConfig: %v", err)
	}
	if cfg.Tolerance.AmountCents != 50 || !cfg.WindowedNm.AllowMixedSign {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadReconConfigRejectsUnknownExtension(t *testing.T) {
	path := writeTemp(t, "recon.yaml", "tolerance: {}")
	if _, err := LoadReconConfig(path); err == nil {
		t.Fatalf("expected unsupported-extension error")
	}
}

func TestLoadReconConfigValidatesBounds(t *testing.T) {
	path := writeTemp(t, "recon.json", `{
		"tolerance": {"amountCents": -1, "dateWindowDays": 3},
		"windowedNm": {"maxGroupSize": 8, "maxNodes": 100, "maxBucketSize": 100}
	}`)
	if _, err := LoadReconConfig(path); err == nil {
		t.Fatalf("expected validation error for negative amountCents")
	}
}

func TestLoadMappingConfig(t *testing.T) {
	path := writeTemp(t, "mapping.json", `{
		"root": "$.items",
		"columns": {
			"effective_date": {"path": "$.date"},
			"amount_minor": {"path": "$.amount", "transform": "dollars_to_cents"}
		}
	}`)
	cfg, err := LoadMappingConfig(path)
	if err != nil {
		t.Fatalf("LoadMappingConfig: %v", err)
	}
	if cfg.Root != "$.items" || len(cfg.Columns) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadMappingConfigRequiresRoot(t *testing.T) {
	path := writeTemp(t, "mapping.json", `{"columns": {"a": {"const": "x"}}}`)
	if _, err := LoadMappingConfig(path); err == nil {
		t.Fatalf("expected missing-root error")
	}
}
