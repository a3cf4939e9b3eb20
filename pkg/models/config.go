package models

// ToleranceConfig governs how close two amounts/dates must be to match.
type ToleranceConfig struct {
	AmountCents    int64  `json:"amountCents" toml:"amount_cents"`
	DateWindowDays uint32 `json:"dateWindowDays" toml:"date_window_days"`
}

// WindowedNmConfig governs the windowed N:M solver's search bounds.
//
// Rule: if AllowMixedSign is true, MaxGroupSize is further capped at 4
// to bound combinatorial blow-up (see EffectiveMaxGroupSize).
type WindowedNmConfig struct {
	MaxGroupSize   int      `json:"maxGroupSize" toml:"max_group_size"`
	MaxNodes       int      `json:"maxNodes" toml:"max_nodes"`
	MaxBucketSize  int      `json:"maxBucketSize" toml:"max_bucket_size"`
	AllowMixedSign bool     `json:"allowMixedSign" toml:"allow_mixed_sign"`
	EvidenceFields []string `json:"evidenceFields" toml:"evidence_fields"`
}

// EffectiveMaxGroupSize returns MaxGroupSize, capped at 4 when
// AllowMixedSign is set.
func (c WindowedNmConfig) EffectiveMaxGroupSize() int {
	if c.AllowMixedSign && c.MaxGroupSize > 4 {
		return 4
	}
	return c.MaxGroupSize
}

// DefaultWindowedNmConfig returns the resource-ceiling defaults named
// in the concurrency & resource model.
func DefaultWindowedNmConfig() WindowedNmConfig {
	return WindowedNmConfig{
		MaxGroupSize:   8,
		MaxNodes:       100_000,
		MaxBucketSize:  1000,
		AllowMixedSign: false,
		EvidenceFields: nil,
	}
}

// ReconConfig is the top-level JSON/TOML-serializable reconciliation
// configuration (external interface §6.3).
type ReconConfig struct {
	Tolerance  ToleranceConfig  `json:"tolerance" toml:"tolerance"`
	WindowedNm WindowedNmConfig `json:"windowedNm" toml:"windowed_nm"`
}

// MaxTiedSolutions bounds how many tied-best solutions the subset-sum
// DFS collects per bucket search. This is a hard constant, not
// caller-configurable — see DESIGN.md's Open Question decision.
const MaxTiedSolutions = 16
