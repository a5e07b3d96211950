// Package settings implements the toolkit's flat, typed key-value store:
// seven maps, one per value type (paths, strings, bools, i32, f32, string
// lists, raw bytes), persisted as settings.json. The path, string, bool
// and i32 maps are reconciled against a fresh set of defaults on every
// load so upgrades never crash on a removed or newly-added key.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

const fileName = "settings.json"

// Settings holds every configurable option of the toolkit, grouped by
// value type the way the original program's Settings struct does.
type Settings struct {
	Paths       map[string]string   `json:"paths"`
	Strings     map[string]string   `json:"settings_string"`
	Bools       map[string]bool     `json:"settings_bool"`
	Ints        map[string]int32    `json:"settings_int"`
	Floats      map[string]float32  `json:"settings_float"`
	VecStrings  map[string][]string `json:"settings_vec_string"`
	VecRaw      map[string][]byte   `json:"settings_vec_raw"`
}

// New returns a Settings populated with default values, as if no
// settings.json had ever been written. gameKeys seeds one empty path
// entry per supported game, mirroring how the original iterates
// SUPPORTED_GAMES while building its default path map.
func New(gameKeys []string) *Settings {
	s := &Settings{
		Paths:   map[string]string{"mymods_base_path": ""},
		Strings: map[string]string{"default_game": "warhammer_2"},
		Bools: map[string]bool{
			"adjust_columns_to_content":         true,
			"extend_last_column_on_tables":      true,
			"disable_combos_on_tables":          false,
			"start_maximized":                   false,
			"use_dark_theme":                    false,
			"allow_editing_of_ca_packfiles":      false,
			"check_updates_on_start":            true,
			"check_schema_updates_on_start":     true,
			"use_pfm_extracting_behavior":       false,
			"use_dependency_checker":            false,
			"use_lazy_loading":                  true,
			"check_for_missing_table_definitions": false,
			"remember_column_sorting":           true,
			"remember_column_visual_order":      true,
			"remember_column_hidden_state":      true,
			"disable_uuid_regeneration_on_db_tables": false,
			"disable_autosaves":                 false,
			"use_autosaves_for_this_pack":        true,
		},
		Ints: map[string]int32{
			"autosave_amount": 10,
		},
		Floats:     map[string]float32{},
		VecStrings: map[string][]string{},
		VecRaw:     map[string][]byte{},
	}
	for _, k := range gameKeys {
		s.Paths[k] = ""
	}
	return s
}

// Load reads settings.json from dir, reconciling its Paths, Strings, Bools
// and Ints against New's default set: keys the defaults no longer carry
// are dropped, keys the defaults introduce but the file predates are
// filled in. Floats, VecStrings and VecRaw are kept as loaded. A missing
// file is not an error; it returns fresh defaults instead.
func Load(dir string, gameKeys []string) (*Settings, error) {
	defaults := New(gameKeys)

	path := filepath.Join(dir, fileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("settings: load: %w", err)
	}

	var loaded Settings
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("settings: load: %w", err)
	}
	if loaded.Paths == nil {
		loaded.Paths = map[string]string{}
	}
	if loaded.Strings == nil {
		loaded.Strings = map[string]string{}
	}
	if loaded.Bools == nil {
		loaded.Bools = map[string]bool{}
	}
	if loaded.Ints == nil {
		loaded.Ints = map[string]int32{}
	}
	if loaded.Floats == nil {
		loaded.Floats = map[string]float32{}
	}
	if loaded.VecStrings == nil {
		loaded.VecStrings = map[string][]string{}
	}
	if loaded.VecRaw == nil {
		loaded.VecRaw = map[string][]byte{}
	}

	reconcile(loaded.Paths, defaults.Paths)
	reconcileStrings(loaded.Strings, defaults.Strings)
	reconcileBools(loaded.Bools, defaults.Bools)
	reconcileInts(loaded.Ints, defaults.Ints)

	return &loaded, nil
}

func reconcile(have, want map[string]string) {
	for k := range have {
		if _, ok := want[k]; !ok {
			delete(have, k)
		}
	}
	for k, v := range want {
		if _, ok := have[k]; !ok {
			have[k] = v
		}
	}
}

func reconcileStrings(have, want map[string]string) { reconcile(have, want) }

func reconcileBools(have, want map[string]bool) {
	for k := range have {
		if _, ok := want[k]; !ok {
			delete(have, k)
		}
	}
	for k, v := range want {
		if _, ok := have[k]; !ok {
			have[k] = v
		}
	}
}

func reconcileInts(have, want map[string]int32) {
	for k := range have {
		if _, ok := want[k]; !ok {
			delete(have, k)
		}
	}
	for k, v := range want {
		if _, ok := have[k]; !ok {
			have[k] = v
		}
	}
}

// Save writes s to settings.json under dir, creating dir if needed.
func (s *Settings) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// GetPath returns the stored filesystem path for key, or "" if unset.
func (s *Settings) GetPath(key string) string { return s.Paths[key] }

// SetPath stores a filesystem path under key.
func (s *Settings) SetPath(key, value string) { s.Paths[key] = value }

// GetString returns the stored string for key, or "" if unset.
func (s *Settings) GetString(key string) string { return s.Strings[key] }

// SetString stores a string under key.
func (s *Settings) SetString(key, value string) { s.Strings[key] = value }

// GetBool returns the stored bool for key, or false if unset.
func (s *Settings) GetBool(key string) bool { return s.Bools[key] }

// SetBool stores a bool under key.
func (s *Settings) SetBool(key string, value bool) { s.Bools[key] = value }

// GetInt returns the stored i32 for key, or 0 if unset.
func (s *Settings) GetInt(key string) int32 { return s.Ints[key] }

// SetInt stores an i32 under key.
func (s *Settings) SetInt(key string, value int32) { s.Ints[key] = value }

// GetFloat returns the stored f32 for key, or 0 if unset.
func (s *Settings) GetFloat(key string) float32 { return s.Floats[key] }

// SetFloat stores an f32 under key.
func (s *Settings) SetFloat(key string, value float32) { s.Floats[key] = value }

// GetVecString returns the stored string list for key, or nil if unset.
func (s *Settings) GetVecString(key string) []string { return s.VecStrings[key] }

// SetVecString stores a string list under key.
func (s *Settings) SetVecString(key string, value []string) { s.VecStrings[key] = value }

// GetVecRaw returns the stored raw byte blob for key, or nil if unset.
func (s *Settings) GetVecRaw(key string) []byte { return s.VecRaw[key] }

// SetVecRaw stores a raw byte blob under key.
func (s *Settings) SetVecRaw(key string, value []byte) { s.VecRaw[key] = value }

// ClearPath removes key from the path map entirely, rather than setting
// it back to "", mirroring SettingsClearPath's distinct "unset" effect.
func (s *Settings) ClearPath(key string) { delete(s.Paths, key) }

// Named path accessors. Each is a thin convenience wrapper over GetPath
// for one of the toolkit's well-known configuration paths.
func (s *Settings) ConfigPath() string             { return s.GetPath("config_path") }
func (s *Settings) AssemblyKitPath() string         { return s.GetPath("assembly_kit_path") }
func (s *Settings) BackupAutosavePath() string      { return s.GetPath("backup_autosave_path") }
func (s *Settings) OldAkDataPath() string           { return s.GetPath("old_ak_data_path") }
func (s *Settings) SchemasPath() string             { return s.GetPath("schemas_path") }
func (s *Settings) TableProfilesPath() string       { return s.GetPath("table_profiles_path") }
func (s *Settings) TranslationsLocalPath() string   { return s.GetPath("translations_local_path") }
func (s *Settings) DependenciesCachePath() string   { return s.GetPath("dependencies_cache_path") }

// OptimizerOptions returns the raw blob stored under "optimizer_options"
// as-is, without interpreting it; the optimizer command itself takes
// typed args directly, so this exists only to let a front-end persist its
// last-used optimizer choices.
func (s *Settings) OptimizerOptions() []byte { return s.GetVecRaw("optimizer_options") }

// Keys returns every key across all seven maps, sorted, for diagnostics
// and settings-editor UIs that want a stable listing.
func (s *Settings) Keys() []string {
	seen := map[string]bool{}
	for k := range s.Paths {
		seen[k] = true
	}
	for k := range s.Strings {
		seen[k] = true
	}
	for k := range s.Bools {
		seen[k] = true
	}
	for k := range s.Ints {
		seen[k] = true
	}
	for k := range s.Floats {
		seen[k] = true
	}
	for k := range s.VecStrings {
		seen[k] = true
	}
	for k := range s.VecRaw {
		seen[k] = true
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
