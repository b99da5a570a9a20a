// Package config loads the engine's tunable parameters from a TOML file
// (spec §9's Open Questions (a)-(d): history bound, N-best cost gap,
// POS-group penalties, all data rather than hard-coded constants).
//
// Grounded on the teacher's pkg/config: same
// LoadConfigWithPriority/InitConfig/partial-recovery-parse shape, same
// "never a hard failure, always fall back to a builtin default and
// Warnf" behaviour, same internal/utils helpers.
package config

import (
	"github.com/charmbracelet/log"

	"github.com/kanaconv/kkconv/internal/utils"
)

// Config is the entire engine configuration (spec §10.3).
type Config struct {
	Lattice LatticeConfig `toml:"lattice"`
	Dict    DictConfig    `toml:"dict"`
	Server  ServerConfig  `toml:"server"`
}

// LatticeConfig holds the decoder's tunable thresholds.
type LatticeConfig struct {
	HistoryByteBound            int   `toml:"history_byte_bound"`
	MaxCandidatesSize           int   `toml:"max_candidates_size"`
	MaxPredictionCandidatesSize int   `toml:"max_prediction_candidates_size"`
	NBestCostGap                int32 `toml:"nbest_cost_gap"`
	SegmentBoundaryPenalty      int32 `toml:"segment_boundary_penalty"`
	POSGroupBonus               int32 `toml:"pos_group_bonus"`
	POSGroupPenalty             int32 `toml:"pos_group_penalty"`
}

// DictConfig points at the on-disk dictionary blobs (spec §4.A/§6).
type DictConfig struct {
	SuffixDictionaryPath string `toml:"suffix_dictionary_path"`
	SystemDictionaryPath string `toml:"system_dictionary_path"`
}

// ServerConfig holds the msgpack IPC server's own limits (spec §12/§13).
type ServerConfig struct {
	MaxLimit int `toml:"max_limit"`
}

// DefaultConfig returns the builtin defaults (spec §10.3 example).
func DefaultConfig() *Config {
	return &Config{
		Lattice: LatticeConfig{
			HistoryByteBound:            256,
			MaxCandidatesSize:           200,
			MaxPredictionCandidatesSize: 10,
			NBestCostGap:                3000,
			SegmentBoundaryPenalty:      700,
			POSGroupBonus:               -300,
			POSGroupPenalty:             400,
		},
		Dict: DictConfig{
			SuffixDictionaryPath: "",
			SystemDictionaryPath: "",
		},
		Server: ServerConfig{
			MaxLimit: 64,
		},
	}
}

// LoadConfigWithPriority loads config with priority: a custom path (e.g.
// --config), then the per-user default path, then builtin defaults.
// Mirrors the teacher's pkg/config.LoadConfigWithPriority exactly.
func LoadConfigWithPriority(resolver *utils.PathResolver, customConfigPath string) (*Config, string) {
	if customConfigPath != "" {
		if utils.FileExists(customConfigPath) {
			cfg, err := LoadConfig(customConfigPath)
			if err == nil {
				log.Debugf("config: loaded from custom path %s", customConfigPath)
				return cfg, customConfigPath
			}
			log.Warnf("config: failed to load custom config from %s: %v. trying default path...", customConfigPath, err)
		} else {
			log.Warnf("config: custom config file not found at %s, trying default path...", customConfigPath)
		}
	}

	defaultPath, err := resolver.GetConfigPath("kkconv-config.toml")
	if err != nil {
		log.Warnf("config: failed to determine default config path: %v. using builtin defaults", err)
		return DefaultConfig(), ""
	}

	cfg, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("config: failed to load/create config at %s: %v. using builtin defaults", defaultPath, err)
		return DefaultConfig(), ""
	}
	log.Debugf("config: loaded from default path %s", defaultPath)
	return cfg, defaultPath
}

// InitConfig loads config from file, creating a default one if missing.
func InitConfig(configPath string) (*Config, error) {
	if !utils.FileExists(configPath) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, configPath); err != nil {
			log.Warnf("config: failed to create default config file at %s: %v. using builtin defaults", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("config: created default config file at %s", configPath)
		return cfg, nil
	}
	return LoadConfig(configPath)
}

// LoadConfig loads from a TOML file, falling back to a partial-recovery
// parse (spec §10.3) if the file doesn't fully decode.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	if err := utils.LoadTOMLFile(configPath, cfg); err != nil {
		return tryPartialParse(configPath)
	}
	return cfg, nil
}

// tryPartialParse recovers whatever sections of a malformed TOML file
// still parse, leaving the rest at builtin defaults.
func tryPartialParse(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	raw, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("config: could not parse any valid configuration from %s: %v. using all defaults", configPath, err)
		return cfg, nil
	}

	if section, ok := utils.ExtractSection(raw, "lattice"); ok {
		extractLatticeConfig(section, &cfg.Lattice)
	}
	if section, ok := utils.ExtractSection(raw, "dict"); ok {
		extractDictConfig(section, &cfg.Dict)
	}
	if section, ok := utils.ExtractSection(raw, "server"); ok {
		extractServerConfig(section, &cfg.Server)
	}
	return cfg, nil
}

func extractLatticeConfig(data map[string]any, l *LatticeConfig) {
	if v, ok := utils.ExtractInt64(data, "history_byte_bound"); ok {
		l.HistoryByteBound = v
	}
	if v, ok := utils.ExtractInt64(data, "max_candidates_size"); ok {
		l.MaxCandidatesSize = v
	}
	if v, ok := utils.ExtractInt64(data, "max_prediction_candidates_size"); ok {
		l.MaxPredictionCandidatesSize = v
	}
	if v, ok := utils.ExtractInt64(data, "nbest_cost_gap"); ok {
		l.NBestCostGap = int32(v)
	}
	if v, ok := utils.ExtractInt64(data, "segment_boundary_penalty"); ok {
		l.SegmentBoundaryPenalty = int32(v)
	}
	if v, ok := utils.ExtractInt64(data, "pos_group_bonus"); ok {
		l.POSGroupBonus = int32(v)
	}
	if v, ok := utils.ExtractInt64(data, "pos_group_penalty"); ok {
		l.POSGroupPenalty = int32(v)
	}
}

func extractDictConfig(data map[string]any, d *DictConfig) {
	if v, ok := data["suffix_dictionary_path"].(string); ok {
		d.SuffixDictionaryPath = v
	}
	if v, ok := data["system_dictionary_path"].(string); ok {
		d.SystemDictionaryPath = v
	}
}

func extractServerConfig(data map[string]any, s *ServerConfig) {
	if v, ok := utils.ExtractInt64(data, "max_limit"); ok {
		s.MaxLimit = v
	}
}

// SaveConfig writes config as TOML to configPath.
func SaveConfig(cfg *Config, configPath string) error {
	return utils.SaveTOMLFile(cfg, configPath)
}
