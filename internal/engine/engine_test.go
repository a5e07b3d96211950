package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/saferwall/packfile/internal/pack"
	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/table"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{ConfigDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestNewPackFileThenTreeView(t *testing.T) {
	e := newTestEngine(t)
	if resp := e.handleNewPackFile(nil); resp.Err != nil {
		t.Fatalf("NewPackFile: %v", resp.Err)
	}
	resp := e.handleNewPackedFile(NewPackedFileArgs{Path: "db/units_tables/data__"})
	if resp.Err != nil {
		t.Fatalf("NewPackedFile: %v", resp.Err)
	}
	resp = e.handleTreeView()
	if resp.Err != nil {
		t.Fatalf("TreeView: %v", resp.Err)
	}
	paths := resp.Ok.([]string)
	if len(paths) != 1 || paths[0] != "db/units_tables/data__" {
		t.Fatalf("unexpected tree: %+v", paths)
	}
}

func TestNewPackedFileRejectsDuplicatePath(t *testing.T) {
	e := newTestEngine(t)
	e.handleNewPackFile(nil)
	args := NewPackedFileArgs{Path: "text/db/loc/en.loc"}
	if resp := e.handleNewPackedFile(args); resp.Err != nil {
		t.Fatalf("first insert: %v", resp.Err)
	}
	resp := e.handleNewPackedFile(args)
	if resp.Err == nil {
		t.Fatal("expected ErrPathAlreadyExists on duplicate insert")
	}
}

func TestDeleteAndRenamePackedFiles(t *testing.T) {
	e := newTestEngine(t)
	e.handleNewPackFile(nil)
	e.handleNewPackedFile(NewPackedFileArgs{Path: "ui/icons/flag.png"})

	renameResp := e.handleRenamePackedFiles(RenamePackedFilesArgs{
		Renames: map[string]string{"ui/icons/flag.png": "ui/icons/banner.png"},
	})
	if renameResp.Err != nil {
		t.Fatalf("rename: %v", renameResp.Err)
	}
	if !e.openPack.Exists("ui/icons/banner.png") {
		t.Fatal("renamed file missing under new path")
	}

	deleteResp := e.handleDeletePackedFiles([]string{"ui/icons/banner.png"})
	if deleteResp.Err != nil {
		t.Fatalf("delete: %v", deleteResp.Err)
	}
	if e.openPack.Exists("ui/icons/banner.png") {
		t.Fatal("expected file to be gone after delete")
	}
}

func TestSaveRequiresOpenPack(t *testing.T) {
	e := newTestEngine(t)
	resp := e.handleSavePackFile(nil)
	if resp.Err != ErrNoOpenPack {
		t.Fatalf("expected ErrNoOpenPack, got %v", resp.Err)
	}
}

func TestSaveAsRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	e.handleNewPackFile(nil)
	e.handleNewPackedFile(NewPackedFileArgs{Path: "ui/icons/flag.png"})
	e.openPack.Get("ui/icons/flag.png").Bytes = []byte{1, 2, 3, 4}

	dest := filepath.Join(t.TempDir(), "out.pack")
	resp := e.handleSavePackFileAs(dest)
	if resp.Err != nil {
		t.Fatalf("SavePackFileAs: %v", resp.Err)
	}
	if e.openPackPath != dest {
		t.Fatalf("openPackPath = %q, want %q", e.openPackPath, dest)
	}

	openResp := e.handleOpenPackFiles([]string{dest})
	if openResp.Err != nil {
		t.Fatalf("OpenPackFiles: %v", openResp.Err)
	}
	if !e.openPack.Exists("ui/icons/flag.png") {
		t.Fatal("round-tripped pack lost its file")
	}
}

func TestSettingsGetSetBool(t *testing.T) {
	e := newTestEngine(t)
	stop := make(chan struct{})
	defer close(stop)
	go e.Run(stop)
	resp := e.Do(SettingsGetBool, "use_lazy_loading")
	if resp.Ok != true {
		t.Fatalf("expected default true, got %v", resp.Ok)
	}
	if resp := e.Do(SettingsSetBool, [2]any{"use_lazy_loading", false}); resp.Err != nil {
		t.Fatalf("SettingsSetBool: %v", resp.Err)
	}
	if resp := e.Do(SettingsGetBool, "use_lazy_loading"); resp.Ok != false {
		t.Fatalf("expected false after set, got %v", resp.Ok)
	}
}

func TestSettingsIntFloatVecAccessors(t *testing.T) {
	e := newTestEngine(t)
	if resp := e.dispatch(Command{Kind: SettingsGetInt, Args: "autosave_amount"}); resp.Ok != int32(10) {
		t.Fatalf("expected default autosave_amount 10, got %v", resp.Ok)
	}
	e.dispatch(Command{Kind: SettingsSetInt, Args: [2]any{"autosave_amount", int32(3)}})
	if resp := e.dispatch(Command{Kind: SettingsGetInt, Args: "autosave_amount"}); resp.Ok != int32(3) {
		t.Fatalf("expected autosave_amount 3 after SettingsSetInt, got %v", resp.Ok)
	}

	e.dispatch(Command{Kind: SettingsSetFloat, Args: [2]any{"zoom_speed", float32(2.5)}})
	if resp := e.dispatch(Command{Kind: SettingsGetFloat, Args: "zoom_speed"}); resp.Ok != float32(2.5) {
		t.Fatalf("expected zoom_speed 2.5, got %v", resp.Ok)
	}

	e.dispatch(Command{Kind: SettingsSetVecString, Args: [2]any{"recent_packs", []string{"a.pack"}}})
	resp := e.dispatch(Command{Kind: SettingsGetVecString, Args: "recent_packs"})
	got, _ := resp.Ok.([]string)
	if len(got) != 1 || got[0] != "a.pack" {
		t.Fatalf("recent_packs = %v", got)
	}

	e.dispatch(Command{Kind: SettingsSetPath, Args: [2]any{"schemas_path", "/opt/schemas"}})
	e.dispatch(Command{Kind: SettingsClearPath, Args: "schemas_path"})
	if resp := e.dispatch(Command{Kind: SettingsGetPath, Args: "schemas_path"}); resp.Ok != "" {
		t.Fatalf("expected schemas_path cleared, got %v", resp.Ok)
	}
}

func TestRotateAutosavesHonorsSettingsAmount(t *testing.T) {
	e := newTestEngine(t)
	e.opts.AutosaveDir = t.TempDir()
	e.settings.SetInt("autosave_amount", 2)

	for i := 0; i < 4; i++ {
		name := filepath.Join(e.opts.AutosaveDir, autosaveStamp()+".autosave")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("setup: %v", err)
		}
	}
	e.rotateAutosaves()

	entries, err := os.ReadDir(e.opts.AutosaveDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 autosaves to survive rotation to amount=2, got %d", len(entries))
	}
}

func TestSetGameSelectedRejectsUnknownGame(t *testing.T) {
	e := newTestEngine(t)
	resp := e.dispatch(Command{Kind: SetGameSelected, Args: SetGameSelectedArgs{GameKey: "not_a_real_game"}})
	if !errors.Is(resp.Err, ErrGameNotSupported) {
		t.Fatalf("expected ErrGameNotSupported, got %v", resp.Err)
	}
}

func TestRebuildDependenciesRequiresGamePath(t *testing.T) {
	e := newTestEngine(t)
	resp := e.dispatch(Command{Kind: RebuildDependencies})
	if !errors.Is(resp.Err, ErrGamePathNotConfigured) {
		t.Fatalf("expected ErrGamePathNotConfigured, got %v", resp.Err)
	}
}

func TestOpenPackFilesMissingDiskFileIsIOFileNotFound(t *testing.T) {
	e := newTestEngine(t)
	resp := e.handleOpenPackFiles([]string{filepath.Join(t.TempDir(), "missing.pack")})
	if !errors.Is(resp.Err, ErrIOFileNotFound) {
		t.Fatalf("expected ErrIOFileNotFound, got %v", resp.Err)
	}
}

func TestRunProcessesCommandsInOrderAndStopsOnExit(t *testing.T) {
	e := newTestEngine(t)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		e.Run(stop)
		close(done)
	}()

	reply := make(chan Response, 1)
	e.Send(Command{Kind: NewPackFile, Reply: reply})
	if resp := <-reply; resp.Err != nil {
		t.Fatalf("NewPackFile via Run: %v", resp.Err)
	}

	exitReply := make(chan Response, 1)
	e.Send(Command{Kind: Exit, Reply: exitReply})
	<-exitReply
	<-done
}

func TestDispatchUnknownKindReturnsUnimplemented(t *testing.T) {
	e := newTestEngine(t)
	resp := e.dispatch(Command{Kind: GlobalSearch})
	if !errors.Is(resp.Err, ErrUnimplemented) {
		t.Fatal("expected ErrUnimplemented for GlobalSearch")
	}
}

func TestTriggerBackupAutosaveSkipsNonModPacks(t *testing.T) {
	e := newTestEngine(t)
	e.openPack = pack.New(pack.PFH5, pack.Release)
	e.opts.AutosaveDir = t.TempDir()
	resp := e.handleTriggerBackupAutosave()
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if resp.Ok != false {
		t.Fatalf("expected autosave to be skipped for a Release pack, got %v", resp.Ok)
	}
}

func TestGenerateMissingLocDataAddsPlaceholderEntry(t *testing.T) {
	e := newTestEngine(t)
	e.handleNewPackFile(nil)

	dbFile := rfile.NewRFile("db/units_tables/data__", nil)
	dbFile.Decoded = &rfile.Payload{Table: &table.Table{
		TableName: "units_tables",
		Definition: &schema.Definition{
			Version:           1,
			Fields:            []schema.Field{{Name: "key", Type: schema.StringU8, IsKey: true}},
			LocalisedFields:   []schema.Field{{Name: "onscreen"}},
			LocalisedKeyOrder: []int{0},
		},
		Rows: [][]table.Cell{
			{{Type: schema.StringU8, Str: "alpha"}},
		},
	}}
	e.openPack.Insert(dbFile)

	resp := e.handleGenerateMissingLocData(nil)
	if resp.Err != nil {
		t.Fatalf("GenerateMissingLocData: %v", resp.Err)
	}
	if resp.Ok != 1 {
		t.Fatalf("added = %v, want 1", resp.Ok)
	}

	locFile := e.openPack.Get(generatedLocPath)
	if locFile == nil {
		t.Fatal("expected a generated loc file")
	}
	rows := locFile.Decoded.Table.Rows
	if len(rows) != 1 || rows[0][0].Str != "alpha_onscreen" || rows[0][1].Str != "Placeholder" {
		t.Fatalf("unexpected generated row: %+v", rows)
	}
}

func TestGenerateMissingLocDataSkipsExistingKey(t *testing.T) {
	e := newTestEngine(t)
	e.handleNewPackFile(nil)

	locFile := rfile.NewRFile(generatedLocPath, nil)
	locFile.Decoded = &rfile.Payload{Table: table.NewLoc()}
	locFile.Decoded.Table.Rows = [][]table.Cell{
		{{Type: schema.StringU16, Str: "alpha_onscreen"}, {Type: schema.StringU16, Str: "Alpha"}, {Type: schema.Boolean}},
	}
	e.openPack.Insert(locFile)

	dbFile := rfile.NewRFile("db/units_tables/data__", nil)
	dbFile.Decoded = &rfile.Payload{Table: &table.Table{
		TableName: "units_tables",
		Definition: &schema.Definition{
			Version:           1,
			Fields:            []schema.Field{{Name: "key", Type: schema.StringU8, IsKey: true}},
			LocalisedFields:   []schema.Field{{Name: "onscreen"}},
			LocalisedKeyOrder: []int{0},
		},
		Rows: [][]table.Cell{
			{{Type: schema.StringU8, Str: "alpha"}},
		},
	}}
	e.openPack.Insert(dbFile)

	resp := e.handleGenerateMissingLocData(nil)
	if resp.Err != nil {
		t.Fatalf("GenerateMissingLocData: %v", resp.Err)
	}
	if resp.Ok != 0 {
		t.Fatalf("added = %v, want 0 since the key already exists", resp.Ok)
	}
	if len(locFile.Decoded.Table.Rows) != 1 {
		t.Fatalf("expected no new rows, got %d", len(locFile.Decoded.Table.Rows))
	}
}

func TestTableNameFromPath(t *testing.T) {
	tests := []struct{ path, want string }{
		{"db/units_tables/data__", "units_tables"},
		{"text/db/loc.loc", ""},
	}
	for _, tt := range tests {
		if got := tableNameFromPath(tt.path); got != tt.want {
			t.Errorf("tableNameFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
