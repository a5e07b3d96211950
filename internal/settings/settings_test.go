package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewHasExpectedDefaults(t *testing.T) {
	s := New([]string{"warhammer_2", "three_kingdoms"})
	if s.GetString("default_game") != "warhammer_2" {
		t.Errorf("default_game = %q", s.GetString("default_game"))
	}
	if !s.GetBool("use_lazy_loading") {
		t.Error("use_lazy_loading should default true")
	}
	if _, ok := s.Paths["three_kingdoms"]; !ok {
		t.Error("expected a path entry per supplied game key")
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(dir, []string{"warhammer_2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.GetString("default_game") != "warhammer_2" {
		t.Fatalf("expected default settings, got %+v", s)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New([]string{"warhammer_2"})
	s.SetPath("mymods_base_path", "/home/user/mods")
	s.SetBool("use_dark_theme", true)

	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir, []string{"warhammer_2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.GetPath("mymods_base_path") != "/home/user/mods" {
		t.Errorf("mymods_base_path = %q", loaded.GetPath("mymods_base_path"))
	}
	if !loaded.GetBool("use_dark_theme") {
		t.Error("use_dark_theme should have round-tripped true")
	}
}

func TestLoadReconcilesStaleAndMissingKeys(t *testing.T) {
	dir := t.TempDir()
	stale := []byte(`{
		"paths": {"warhammer_2": "", "no_longer_supported_game": "/old/path"},
		"settings_string": {"default_game": "attila"},
		"settings_bool": {"use_lazy_loading": false}
	}`)
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, stale, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	loaded, err := Load(dir, []string{"warhammer_2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := loaded.Paths["no_longer_supported_game"]; ok {
		t.Error("expected stale path key to be dropped")
	}
	if loaded.GetString("default_game") != "attila" {
		t.Errorf("existing setting should survive reconciliation, got %q", loaded.GetString("default_game"))
	}
	if loaded.GetBool("use_lazy_loading") {
		t.Error("existing bool override should survive reconciliation")
	}
	if _, ok := loaded.Bools["check_updates_on_start"]; !ok {
		t.Error("expected a newly-introduced default bool to be filled in")
	}
}

func TestAutosaveAmountDefaultAndOverride(t *testing.T) {
	s := New([]string{"warhammer_2"})
	if s.GetInt("autosave_amount") != 10 {
		t.Fatalf("autosave_amount default = %d, want 10", s.GetInt("autosave_amount"))
	}
	s.SetInt("autosave_amount", 3)
	if s.GetInt("autosave_amount") != 3 {
		t.Fatalf("autosave_amount after SetInt = %d, want 3", s.GetInt("autosave_amount"))
	}
}

func TestFloatVecStringVecRawRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New([]string{"warhammer_2"})
	s.SetFloat("zoom_speed", 1.5)
	s.SetVecString("recent_packs", []string{"a.pack", "b.pack"})
	s.SetVecRaw("optimizer_options", []byte{1, 2, 3})

	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir, []string{"warhammer_2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.GetFloat("zoom_speed") != 1.5 {
		t.Errorf("zoom_speed = %v, want 1.5", loaded.GetFloat("zoom_speed"))
	}
	if got := loaded.GetVecString("recent_packs"); len(got) != 2 || got[0] != "a.pack" {
		t.Errorf("recent_packs = %v", got)
	}
	if got := loaded.OptimizerOptions(); len(got) != 3 || got[2] != 3 {
		t.Errorf("OptimizerOptions = %v", got)
	}
}

func TestLoadDoesNotReconcileOpenEndedMaps(t *testing.T) {
	dir := t.TempDir()
	s := New([]string{"warhammer_2"})
	s.SetVecString("recent_packs", []string{"a.pack"})
	if err := s.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir, []string{"warhammer_2"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.GetVecString("recent_packs"); len(got) != 1 || got[0] != "a.pack" {
		t.Fatalf("expected user-set VecStrings key to survive reconciliation untouched, got %v", got)
	}
}

func TestClearPathRemovesKey(t *testing.T) {
	s := New([]string{"warhammer_2"})
	s.SetPath("mymods_base_path", "/home/user/mods")
	s.ClearPath("mymods_base_path")
	if _, ok := s.Paths["mymods_base_path"]; ok {
		t.Error("expected ClearPath to delete the key entirely, not just blank it")
	}
}

func TestNamedPathAccessors(t *testing.T) {
	s := New([]string{"warhammer_2"})
	s.SetPath("schemas_path", "/opt/schemas")
	if s.SchemasPath() != "/opt/schemas" {
		t.Errorf("SchemasPath() = %q", s.SchemasPath())
	}
}

