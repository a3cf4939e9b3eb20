// Package config loads the reconciliation config (external interface
// §6.3) from either JSON or TOML, and the HTTP mapping config (§6.2)
// from JSON.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/rawblock/ledgerrecon/pkg/models"
	"github.com/rawblock/ledgerrecon/recoerr"
)

// LoadReconConfig reads a ReconConfig from path, dispatching on file
// extension (.json vs .toml/.tml); any other extension is rejected.
func LoadReconConfig(path string) (models.ReconConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.ReconConfig{}, recoerr.Wrap(recoerr.Io, "cannot read recon config", err)
	}

	var cfg models.ReconConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return models.ReconConfig{}, recoerr.Wrap(recoerr.Parse, "invalid JSON recon config", err)
		}
	case ".toml", ".tml":
		if err := toml.Unmarshal(raw, &cfg); err != nil {
			return models.ReconConfig{}, recoerr.Wrap(recoerr.Parse, "invalid TOML recon config", err)
		}
	default:
		return models.ReconConfig{}, recoerr.New(recoerr.Usage, "recon config must have a .json or .toml extension")
	}

	if err := validateReconConfig(cfg); err != nil {
		return models.ReconConfig{}, err
	}
	return cfg, nil
}

func validateReconConfig(cfg models.ReconConfig) error {
	if cfg.Tolerance.AmountCents < 0 {
		return recoerr.New(recoerr.Usage, "tolerance.amount_cents must be >= 0")
	}
	if cfg.WindowedNm.MaxGroupSize <= 0 {
		return recoerr.New(recoerr.Usage, "windowed_nm.max_group_size must be > 0")
	}
	if cfg.WindowedNm.MaxNodes <= 0 {
		return recoerr.New(recoerr.Usage, "windowed_nm.max_nodes must be > 0")
	}
	if cfg.WindowedNm.MaxBucketSize <= 0 {
		return recoerr.New(recoerr.Usage, "windowed_nm.max_bucket_size must be > 0")
	}
	return nil
}

// LoadMappingConfig reads a generic HTTP mapping config (§6.2) from a
// JSON file.
func LoadMappingConfig(path string) (models.MappingConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return models.MappingConfig{}, recoerr.Wrap(recoerr.Io, "cannot read mapping config", err)
	}
	var cfg models.MappingConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return models.MappingConfig{}, recoerr.Wrap(recoerr.Parse, "invalid JSON mapping config", err)
	}
	if cfg.Root == "" {
		return models.MappingConfig{}, recoerr.New(recoerr.Mapping, "mapping config missing required 'root' field")
	}
	if len(cfg.Columns) == 0 {
		return models.MappingConfig{}, recoerr.New(recoerr.Mapping, "mapping config must declare at least one column")
	}
	return cfg, nil
}
