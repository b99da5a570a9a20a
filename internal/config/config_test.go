package config

import (
	"os"
	"path/filepath"
	"testing"
)

// LoadConfig on a well-formed file must read every section's values
// rather than silently falling back to defaults.
func TestLoadConfigReadsValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kkconv-config.toml")
	toml := `
[lattice]
history_byte_bound = 512
max_candidates_size = 100
nbest_cost_gap = 1500

[dict]
system_dictionary_path = "/tmp/system.bin"

[server]
max_limit = 16
`
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Lattice.HistoryByteBound != 512 {
		t.Errorf("HistoryByteBound = %d, want 512", cfg.Lattice.HistoryByteBound)
	}
	if cfg.Lattice.MaxCandidatesSize != 100 {
		t.Errorf("MaxCandidatesSize = %d, want 100", cfg.Lattice.MaxCandidatesSize)
	}
	if cfg.Dict.SystemDictionaryPath != "/tmp/system.bin" {
		t.Errorf("SystemDictionaryPath = %q, want %q", cfg.Dict.SystemDictionaryPath, "/tmp/system.bin")
	}
	if cfg.Server.MaxLimit != 16 {
		t.Errorf("MaxLimit = %d, want 16", cfg.Server.MaxLimit)
	}
	// a field absent from the file keeps its builtin default.
	if cfg.Lattice.SegmentBoundaryPenalty != DefaultConfig().Lattice.SegmentBoundaryPenalty {
		t.Errorf("SegmentBoundaryPenalty = %d, want the builtin default %d", cfg.Lattice.SegmentBoundaryPenalty, DefaultConfig().Lattice.SegmentBoundaryPenalty)
	}
}

// A file that is syntactically valid TOML but has a field of the wrong
// type for the strict Config struct must still recover every other
// well-typed field via the loose map decode, falling back to the
// builtin default only for the one field that didn't type-check (spec
// §10.3's partial-recovery behaviour).
func TestLoadConfigPartialRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kkconv-config.toml")
	toml := `
[lattice]
history_byte_bound = 999

[dict]
system_dictionary_path = "/tmp/broken.bin"

[server]
max_limit = "sixteen"
`
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig must recover rather than return an error, got: %v", err)
	}
	if cfg.Lattice.HistoryByteBound != 999 {
		t.Errorf("HistoryByteBound = %d, want 999 to survive partial recovery", cfg.Lattice.HistoryByteBound)
	}
	if cfg.Dict.SystemDictionaryPath != "/tmp/broken.bin" {
		t.Errorf("SystemDictionaryPath = %q, want %q to survive partial recovery", cfg.Dict.SystemDictionaryPath, "/tmp/broken.bin")
	}
	if cfg.Server.MaxLimit != DefaultConfig().Server.MaxLimit {
		t.Errorf("MaxLimit = %d, want the builtin default %d since max_limit's type didn't match", cfg.Server.MaxLimit, DefaultConfig().Server.MaxLimit)
	}
}

// A missing file must fall back to builtin defaults without error.
func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("LoadConfig on a missing file returned an error instead of defaults: %v", err)
	}
	want := DefaultConfig()
	if cfg.Lattice.HistoryByteBound != want.Lattice.HistoryByteBound {
		t.Errorf("HistoryByteBound = %d, want the builtin default %d", cfg.Lattice.HistoryByteBound, want.Lattice.HistoryByteBound)
	}
}
