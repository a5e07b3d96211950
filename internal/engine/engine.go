package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/saferwall/packfile/internal/deps"
	"github.com/saferwall/packfile/internal/pack"
	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/settings"
	"github.com/saferwall/packfile/internal/table"
	"github.com/saferwall/packfile/log"
)

// ErrUnimplemented is returned for a Kind that is named in the command
// alphabet but has no wired handler in this build (the Starpos pipeline,
// the update/distribution family, and the diagnostics/global-search/
// translator interfaces, which this toolkit exposes as named extension
// points rather than concrete features).
var ErrUnimplemented = errors.New("engine: command not implemented")

// Named sentinel errors, one per ErrorKind that actually has a live
// handler in this engine.
var (
	ErrPathNotFound      = errors.New("engine: path not found")
	ErrPathAlreadyExists = errors.New("engine: path already exists")
	ErrNoOpenPack        = errors.New("engine: no pack is currently open")
	ErrSchemaNotFound    = errors.New("engine: no schema loaded")
)

// GameInfo is the subset of per-game configuration the engine needs to
// resolve dependencies and name its autosave/cache folders.
type GameInfo struct {
	Key            string
	DisplayName    string
	PFHVersion     pack.PFHVersion
	GamePath       string
	SecondaryPath  string
	CAPacksPaths   []string
	AssemblyKitDir string
}

// Options configures a new Engine.
type Options struct {
	ConfigDir       string // holds settings.json, deps_cache/, schemas/
	AutosaveDir     string
	AutosaveAmount  int
	Logger          log.Logger
	SupportedGames  map[string]GameInfo
}

// Engine owns every piece of mutable state the command alphabet touches.
// All mutating handlers run on the single goroutine started by Run; only
// read-mostly shared cells (schema, dependencies, game selected) use their
// own lock so a read can proceed without waiting on the command queue.
type Engine struct {
	inbox chan Command

	openPack      *pack.Pack
	openPackPath  string
	extraPacks    map[string]*pack.Pack

	schemaMu sync.RWMutex
	schema   *schema.Schema

	gameMu  sync.RWMutex
	game    GameInfo

	dependencies *deps.Dependencies

	settings       *settings.Settings
	settingsBackup *settings.Settings

	opts   Options
	logger *log.Helper

	workers *workerPool
}

// New builds an Engine with empty state; call Run in its own goroutine to
// start processing commands.
func New(opts Options) (*Engine, error) {
	gameKeys := make([]string, 0, len(opts.SupportedGames))
	for k := range opts.SupportedGames {
		gameKeys = append(gameKeys, k)
	}
	sort.Strings(gameKeys)

	st, err := settings.Load(opts.ConfigDir, gameKeys)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	var logger *log.Helper
	if opts.Logger != nil {
		logger = log.NewHelper(opts.Logger)
	} else {
		logger = log.Nop()
	}

	return &Engine{
		inbox:        make(chan Command),
		extraPacks:   map[string]*pack.Pack{},
		dependencies: deps.New(),
		settings:     st,
		opts:         opts,
		logger:       logger,
		workers:      newWorkerPool(4),
	}, nil
}

// Send hands cmd to the Run loop, blocking until Run receives it; the
// caller reads from cmd.Reply for the result. Commands are processed
// strictly in the order Run receives them.
func (e *Engine) Send(cmd Command) { e.inbox <- cmd }

// Do is a convenience wrapper: it builds a Command with a fresh reply
// channel, sends it, and blocks for the single Response.
func (e *Engine) Do(kind Kind, args any) Response {
	reply := make(chan Response, 1)
	e.Send(Command{Kind: kind, Args: args, Reply: reply})
	return <-reply
}

// Run processes commands from the inbox until an Exit command is
// received or stop is closed. It is meant to run in its own goroutine;
// Engine must not be used from more than one Run call at a time.
func (e *Engine) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case cmd, ok := <-e.inbox:
			if !ok {
				return
			}
			resp := e.dispatch(cmd)
			if cmd.Reply != nil {
				cmd.Reply <- resp
			}
			if cmd.Kind == Exit {
				return
			}
		}
	}
}

func (e *Engine) dispatch(cmd Command) Response {
	handler, ok := handlers[cmd.Kind]
	if !ok {
		return Response{Err: fmt.Errorf("%w: %s", ErrUnimplemented, cmd.Kind)}
	}
	return handler(e, cmd.Args)
}

type handlerFunc func(*Engine, any) Response

// handlers maps every Kind this build actually executes. Kinds with no
// entry fall through dispatch's default ErrUnimplemented response --
// named in command.go's alphabet, wired to nothing yet.
var handlers map[Kind]handlerFunc

func init() {
	handlers = map[Kind]handlerFunc{
		NewPackFile:            func(e *Engine, a any) Response { return e.handleNewPackFile(a) },
		OpenPackFiles:          func(e *Engine, a any) Response { return e.handleOpenPackFiles(a) },
		OpenPackExtra:          func(e *Engine, a any) Response { return e.handleOpenPackExtra(a) },
		SavePackFile:           func(e *Engine, a any) Response { return e.handleSavePackFile(a) },
		SavePackFileAs:         func(e *Engine, a any) Response { return e.handleSavePackFileAs(a) },
		ResetPackFile:          func(e *Engine, a any) Response { return e.handleResetPackFile(a) },
		RemovePackFileExtra:    func(e *Engine, a any) Response { return e.handleRemovePackFileExtra(a) },
		GetPackFilePath:        func(e *Engine, a any) Response { return Response{Ok: e.openPackPath} },
		GetPackFileName:        func(e *Engine, a any) Response { return Response{Ok: filepath.Base(e.openPackPath)} },

		GetPackFileDataForTreeView: func(e *Engine, a any) Response { return e.handleTreeView() },
		GetRFileInfo:               func(e *Engine, a any) Response { return e.handleGetRFileInfo(a) },
		FolderExists:               func(e *Engine, a any) Response { return e.handleFolderExists(a) },
		PackedFileExists:           func(e *Engine, a any) Response { return e.handlePackedFileExists(a) },
		GetPackedFileRawData:       func(e *Engine, a any) Response { return e.handleGetPackedFileRawData(a) },

		NewPackedFile:      func(e *Engine, a any) Response { return e.handleNewPackedFile(a) },
		DeletePackedFiles:  func(e *Engine, a any) Response { return e.handleDeletePackedFiles(a) },
		RenamePackedFiles:  func(e *Engine, a any) Response { return e.handleRenamePackedFiles(a) },
		ExtractPackedFiles: func(e *Engine, a any) Response { return e.handleExtractPackedFiles(a) },

		DecodePackedFile:       func(e *Engine, a any) Response { return e.handleDecodePackedFile(a) },
		SavePackedFileFromView: func(e *Engine, a any) Response { return e.handleSavePackedFileFromView(a) },
		ImportTSV:              func(e *Engine, a any) Response { return e.handleImportTSV(a) },
		ExportTSV:              func(e *Engine, a any) Response { return e.handleExportTSV(a) },

		RebuildDependencies: func(e *Engine, a any) Response { return e.handleRebuildDependencies(a) },
		GetReferenceDataFromDefinition: func(e *Engine, a any) Response { return e.handleGetReferenceDataFromDefinition(a) },
		GenerateMissingLocData:         func(e *Engine, a any) Response { return e.handleGenerateMissingLocData(a) },

		SaveLocalSchemaPatch:             func(e *Engine, a any) Response { return e.handleSaveLocalSchemaPatch(a) },
		RemoveLocalSchemaPatchesForTable: func(e *Engine, a any) Response { return e.handleRemoveLocalSchemaPatchesForTable(a) },
		RemoveLocalSchemaPatchesForTableAndField: func(e *Engine, a any) Response {
			return e.handleRemoveLocalSchemaPatchesForTableAndField(a)
		},
		ImportSchemaPatch: func(e *Engine, a any) Response { return e.handleImportSchemaPatch(a) },

		OptimizePackFile: func(e *Engine, a any) Response { return e.handleOptimizePackFile(a) },

		SetGameSelected:              func(e *Engine, a any) Response { return e.handleSetGameSelected(a) },
		ChangeIndexIncludesTimestamp: func(e *Engine, a any) Response { return e.handleChangeIndexIncludesTimestamp(a) },
		ChangeCompressionFormat:      func(e *Engine, a any) Response { return e.handleChangeCompressionFormat(a) },

		TriggerBackupAutosave: func(e *Engine, a any) Response { return e.handleTriggerBackupAutosave() },
		Exit:                  func(e *Engine, a any) Response { return Response{Ok: true} },

		SettingsGetBool:   func(e *Engine, a any) Response { return Response{Ok: e.settings.GetBool(a.(string))} },
		SettingsSetBool:   func(e *Engine, a any) Response { kv := a.([2]any); e.settings.SetBool(kv[0].(string), kv[1].(bool)); return Response{Ok: true} },
		SettingsGetString: func(e *Engine, a any) Response { return Response{Ok: e.settings.GetString(a.(string))} },
		SettingsSetString: func(e *Engine, a any) Response { kv := a.([2]any); e.settings.SetString(kv[0].(string), kv[1].(string)); return Response{Ok: true} },
		SettingsGetPath:   func(e *Engine, a any) Response { return Response{Ok: e.settings.GetPath(a.(string))} },
		SettingsSetPath:   func(e *Engine, a any) Response { kv := a.([2]any); e.settings.SetPath(kv[0].(string), kv[1].(string)); return Response{Ok: true} },
		SettingsClearPath: func(e *Engine, a any) Response { e.settings.ClearPath(a.(string)); return Response{Ok: true} },
		SettingsGetInt:    func(e *Engine, a any) Response { return Response{Ok: e.settings.GetInt(a.(string))} },
		SettingsSetInt: func(e *Engine, a any) Response {
			kv := a.([2]any)
			e.settings.SetInt(kv[0].(string), kv[1].(int32))
			return Response{Ok: true}
		},
		SettingsGetFloat: func(e *Engine, a any) Response { return Response{Ok: e.settings.GetFloat(a.(string))} },
		SettingsSetFloat: func(e *Engine, a any) Response {
			kv := a.([2]any)
			e.settings.SetFloat(kv[0].(string), kv[1].(float32))
			return Response{Ok: true}
		},
		SettingsGetVecString: func(e *Engine, a any) Response { return Response{Ok: e.settings.GetVecString(a.(string))} },
		SettingsSetVecString: func(e *Engine, a any) Response {
			kv := a.([2]any)
			e.settings.SetVecString(kv[0].(string), kv[1].([]string))
			return Response{Ok: true}
		},
		SettingsGetVecRaw: func(e *Engine, a any) Response { return Response{Ok: e.settings.GetVecRaw(a.(string))} },
		SettingsSetVecRaw: func(e *Engine, a any) Response {
			kv := a.([2]any)
			e.settings.SetVecRaw(kv[0].(string), kv[1].([]byte))
			return Response{Ok: true}
		},
		BackupSettings:    func(e *Engine, a any) Response { return e.handleBackupSettings() },
		RestoreBackupSettings: func(e *Engine, a any) Response { return e.handleRestoreBackupSettings() },
	}
}

// --- Lifecycle -------------------------------------------------------

func (e *Engine) handleNewPackFile(a any) Response {
	e.gameMu.RLock()
	version := e.game.PFHVersion
	e.gameMu.RUnlock()
	if version == "" {
		version = pack.PFH5
	}
	e.openPack = pack.New(version, pack.Mod)
	e.openPack.SetLogger(e.logger)
	e.openPackPath = ""
	return Response{Ok: true}
}

func (e *Engine) handleOpenPackFiles(a any) Response {
	paths, ok := a.([]string)
	if !ok || len(paths) == 0 {
		return Response{Err: fmt.Errorf("engine: OpenPackFiles: expected a non-empty path list")}
	}
	data, err := os.ReadFile(paths[0])
	if err != nil {
		return Response{Err: fmt.Errorf("%w: %v", ErrIOFileNotFound, err)}
	}
	p, err := pack.Decode(data, pack.DecodeOptions{Lazy: e.settings.GetBool("use_lazy_loading"), DiskFilePath: paths[0]})
	if err != nil {
		return Response{Err: err}
	}
	p.SetLogger(e.logger)
	for _, extra := range paths[1:] {
		data, err := os.ReadFile(extra)
		if err != nil {
			return Response{Err: fmt.Errorf("%w: %v", ErrIOFileNotFound, err)}
		}
		more, err := pack.Decode(data, pack.DecodeOptions{Lazy: true, DiskFilePath: extra})
		if err != nil {
			return Response{Err: err}
		}
		for _, f := range more.Files() {
			p.Insert(f)
		}
	}
	e.openPack = p
	e.openPackPath = paths[0]
	return Response{Ok: true}
}

func (e *Engine) handleOpenPackExtra(a any) Response {
	path, ok := a.(string)
	if !ok {
		return Response{Err: fmt.Errorf("engine: OpenPackExtra: expected a path")}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Response{Err: fmt.Errorf("%w: %v", ErrIOFileNotFound, err)}
	}
	p, err := pack.Decode(data, pack.DecodeOptions{Lazy: true, DiskFilePath: path})
	if err != nil {
		return Response{Err: err}
	}
	e.extraPacks[path] = p
	return Response{Ok: true}
}

func (e *Engine) handleRemovePackFileExtra(a any) Response {
	path, _ := a.(string)
	delete(e.extraPacks, path)
	return Response{Ok: true}
}

func (e *Engine) handleSavePackFile(a any) Response {
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	if e.openPackPath == "" {
		return Response{Err: fmt.Errorf("engine: SavePackFile: pack has no disk path, use SavePackFileAs")}
	}
	return e.save(e.openPackPath)
}

func (e *Engine) handleSavePackFileAs(a any) Response {
	path, ok := a.(string)
	if !ok {
		return Response{Err: fmt.Errorf("engine: SavePackFileAs: expected a path")}
	}
	resp := e.save(path)
	if resp.Err == nil {
		e.openPackPath = path
	}
	return resp
}

func (e *Engine) save(path string) Response {
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	encodeFile := func(f *rfile.RFile) ([]byte, error) {
		return f.Encode(rfile.ExtraData{Schema: e.currentSchema()})
	}
	data, err := pack.Encode(e.openPack, pack.EncodeOptions{
		Compress: e.openPack.CompressionFormat == pack.CompressionLZMA1,
	}, encodeFile)
	if err != nil {
		return Response{Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Response{Err: fmt.Errorf("%w: save: %v", ErrIOGeneric, err)}
	}
	return Response{Ok: true}
}

func (e *Engine) handleResetPackFile(a any) Response {
	e.openPack = nil
	e.openPackPath = ""
	return Response{Ok: true}
}

// --- Introspection -----------------------------------------------------

func (e *Engine) handleTreeView() Response {
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	return Response{Ok: e.openPack.PathsSorted()}
}

func (e *Engine) handleGetRFileInfo(a any) Response {
	path, _ := a.(string)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	f := e.openPack.Get(path)
	if f == nil {
		return Response{Err: fmt.Errorf("%w: %s", ErrPathNotFound, path)}
	}
	return Response{Ok: f}
}

func (e *Engine) handleFolderExists(a any) Response {
	path, _ := a.(string)
	if e.openPack == nil {
		return Response{Ok: false}
	}
	return Response{Ok: e.openPack.FolderExists(path)}
}

func (e *Engine) handlePackedFileExists(a any) Response {
	path, _ := a.(string)
	if e.openPack == nil {
		return Response{Ok: false}
	}
	return Response{Ok: e.openPack.Exists(path)}
}

func (e *Engine) handleGetPackedFileRawData(a any) Response {
	path, _ := a.(string)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	f := e.openPack.Get(path)
	if f == nil {
		return Response{Err: fmt.Errorf("%w: %s", ErrPathNotFound, path)}
	}
	return Response{Ok: f.Bytes}
}

// --- File ops -----------------------------------------------------------

// NewPackedFileArgs is the Args payload for NewPackedFile.
type NewPackedFileArgs struct {
	Path string
	Kind rfile.FileType
}

func (e *Engine) handleNewPackedFile(a any) Response {
	args, ok := a.(NewPackedFileArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: NewPackedFile: bad args")}
	}
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	if e.openPack.Exists(args.Path) {
		return Response{Err: fmt.Errorf("%w: %s", ErrPathAlreadyExists, args.Path)}
	}
	f := rfile.NewRFile(args.Path, []byte{})
	if args.Kind != rfile.Unknown {
		f.FileType = args.Kind
	}
	e.openPack.Insert(f)
	return Response{Ok: true}
}

func (e *Engine) handleDeletePackedFiles(a any) Response {
	paths, _ := a.([]string)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	var deleted []string
	for _, p := range paths {
		if e.openPack.Remove(p) {
			deleted = append(deleted, p)
		}
	}
	return Response{Ok: deleted}
}

// RenamePackedFilesArgs is the Args payload for RenamePackedFiles: pairs
// of (old path, new path).
type RenamePackedFilesArgs struct {
	Renames map[string]string
}

func (e *Engine) handleRenamePackedFiles(a any) Response {
	args, ok := a.(RenamePackedFilesArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: RenamePackedFiles: bad args")}
	}
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	var renamed []string
	var firstErr error
	for oldPath, newPath := range args.Renames {
		if err := e.openPack.Rename(oldPath, newPath); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		renamed = append(renamed, newPath)
	}
	if firstErr != nil {
		return Response{Ok: renamed, Err: firstErr}
	}
	return Response{Ok: renamed}
}

// ExtractPackedFilesArgs is the Args payload for ExtractPackedFiles.
type ExtractPackedFilesArgs struct {
	Paths  []string
	Dest   string
	ToTSV  bool
}

func (e *Engine) handleExtractPackedFiles(a any) Response {
	args, ok := a.(ExtractPackedFilesArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: ExtractPackedFiles: bad args")}
	}
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}

	results := e.workers.mapJobs(args.Paths, func(path string) error {
		f := e.openPack.Get(path)
		if f == nil {
			return fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		out := filepath.Join(args.Dest, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return fmt.Errorf("%w: %v", ErrIOGeneric, err)
		}
		data := f.Bytes
		if args.ToTSV && f.Decoded != nil && f.Decoded.Table != nil {
			data = []byte(table.ExportTSV(f.Decoded.Table, table.ColumnOrderCanonical))
			out += ".tsv"
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("%w: %v", ErrIOGeneric, err)
		}
		return nil
	})

	var extracted []string
	var firstErr error
	for i, err := range results {
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		extracted = append(extracted, args.Paths[i])
	}
	if firstErr != nil {
		return Response{Ok: extracted, Err: firstErr}
	}
	return Response{Ok: extracted}
}

// --- Decoding/saving -----------------------------------------------------

func (e *Engine) handleDecodePackedFile(a any) Response {
	path, _ := a.(string)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	f := e.openPack.Get(path)
	if f == nil {
		return Response{Err: fmt.Errorf("%w: %s", ErrPathNotFound, path)}
	}
	extra := rfile.ExtraData{Schema: e.currentSchema(), TableName: tableNameFromPath(path)}
	if err := f.Decode(extra); err != nil {
		return Response{Err: err}
	}
	return Response{Ok: f.Decoded}
}

func (e *Engine) handleSavePackedFileFromView(a any) Response {
	kv, ok := a.([2]any)
	if !ok {
		return Response{Err: fmt.Errorf("engine: SavePackedFileFromView: bad args")}
	}
	path := kv[0].(string)
	payload := kv[1].(*rfile.Payload)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	f := e.openPack.Get(path)
	if f == nil {
		return Response{Err: fmt.Errorf("%w: %s", ErrPathNotFound, path)}
	}
	f.Decoded = payload
	f.MarkDirty()
	return Response{Ok: true}
}

// ImportTSVArgs names the in-pack destination path and the external TSV
// file path to read from.
type ImportTSVArgs struct {
	InternalPath string
	ExternalPath string
}

func (e *Engine) handleImportTSV(a any) Response {
	args, ok := a.(ImportTSVArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: ImportTSV: bad args")}
	}
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	data, err := os.ReadFile(args.ExternalPath)
	if err != nil {
		return Response{Err: fmt.Errorf("%w: %v", ErrIOFileNotFound, err)}
	}
	tableName := tableNameFromPath(args.InternalPath)
	defs := e.currentSchema().DefinitionsByTableName(tableName)
	if len(defs) == 0 {
		return Response{Err: fmt.Errorf("%w: %s", ErrSchemaNotFound, tableName)}
	}
	t, err := table.ImportTSV(string(data), defs[0], tableName)
	if err != nil {
		return Response{Err: err}
	}
	f := e.openPack.Get(args.InternalPath)
	if f == nil {
		f = rfile.NewRFile(args.InternalPath, nil)
		e.openPack.Insert(f)
	}
	f.Decoded = &rfile.Payload{Table: t}
	f.MarkDirty()
	return Response{Ok: true}
}

// ExportTSVArgs names the in-pack source path and the destination file.
// The table is exported from the open pack only; vanilla and parent
// sources are not merged in.
type ExportTSVArgs struct {
	InternalPath string
	ExternalPath string
}

func (e *Engine) handleExportTSV(a any) Response {
	args, ok := a.(ExportTSVArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: ExportTSV: bad args")}
	}
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	f := e.openPack.Get(args.InternalPath)
	if f == nil || f.Decoded == nil || f.Decoded.Table == nil {
		return Response{Err: fmt.Errorf("%w: %s", ErrPathNotFound, args.InternalPath)}
	}
	data := table.ExportTSV(f.Decoded.Table, table.ColumnOrderCanonical)
	if err := os.WriteFile(args.ExternalPath, []byte(data), 0o644); err != nil {
		return Response{Err: fmt.Errorf("%w: ExportTSV: %v", ErrIOGeneric, err)}
	}
	return Response{Ok: true}
}

// --- Dependencies ---------------------------------------------------------

func (e *Engine) handleRebuildDependencies(a any) Response {
	e.gameMu.RLock()
	game := e.game
	e.gameMu.RUnlock()

	if game.GamePath == "" {
		return Response{Err: ErrGamePathNotConfigured}
	}

	var parentNames []string
	if e.openPack != nil {
		for _, d := range e.openPack.Dependencies {
			parentNames = append(parentNames, d.Name)
		}
	}

	inputs := deps.BuildInputs{
		Game:             game.Key,
		GamePath:         game.GamePath,
		SecondaryPath:    game.SecondaryPath,
		VanillaPackPaths: game.CAPacksPaths,
		ParentPackNames:  parentNames,
		AssemblyKitDBDir: game.AssemblyKitDir,
	}
	if err := e.dependencies.Rebuild(inputs, e.currentSchema()); err != nil {
		return Response{Err: err}
	}
	return Response{Ok: e.dependencies.Fingerprint()}
}

// GetReferenceDataFromDefinitionArgs names the table and definition to
// precompute reference data for.
type GetReferenceDataFromDefinitionArgs struct {
	TableName  string
	Definition *schema.Definition
}

func (e *Engine) handleGetReferenceDataFromDefinition(a any) Response {
	args, ok := a.(GetReferenceDataFromDefinitionArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: GetReferenceDataFromDefinition: bad args")}
	}
	refs, err := e.dependencies.DBReferenceData(e.openPack, args.TableName, args.Definition)
	if err != nil {
		return Response{Err: err}
	}
	return Response{Ok: refs}
}

// --- Schema + tables ---------------------------------------------------

// AddPatchArgs is the Args payload for SaveLocalSchemaPatch: one override
// on one field of one table, merged into the schema's in-memory overlay
// and flushed to the local patches file.
type AddPatchArgs struct {
	Table, Field, Attribute, Value string
}

func (e *Engine) handleSaveLocalSchemaPatch(a any) Response {
	args, ok := a.(AddPatchArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: SaveLocalSchemaPatch: bad args")}
	}
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	if e.schema == nil {
		return Response{Err: ErrSchemaNotFound}
	}
	e.schema.AddPatch(args.Table, args.Field, args.Attribute, args.Value)
	if err := schema.SaveLocalPatches(e.schema, e.localPatchesPath()); err != nil {
		return Response{Err: err}
	}
	return Response{Ok: true}
}

func (e *Engine) handleRemoveLocalSchemaPatchesForTable(a any) Response {
	tableName, _ := a.(string)
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	if e.schema == nil {
		return Response{Err: ErrSchemaNotFound}
	}
	e.schema.RemovePatchesForTable(tableName)
	if err := schema.SaveLocalPatches(e.schema, e.localPatchesPath()); err != nil {
		return Response{Err: err}
	}
	return Response{Ok: true}
}

func (e *Engine) handleRemoveLocalSchemaPatchesForTableAndField(a any) Response {
	kv, ok := a.([2]string)
	if !ok {
		return Response{Err: fmt.Errorf("engine: RemoveLocalSchemaPatchesForTableAndField: bad args")}
	}
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	if e.schema == nil {
		return Response{Err: ErrSchemaNotFound}
	}
	e.schema.RemovePatchForField(kv[0], kv[1])
	if err := schema.SaveLocalPatches(e.schema, e.localPatchesPath()); err != nil {
		return Response{Err: err}
	}
	return Response{Ok: true}
}

func (e *Engine) handleImportSchemaPatch(a any) Response {
	path, ok := a.(string)
	if !ok {
		return Response{Err: fmt.Errorf("engine: ImportSchemaPatch: bad args")}
	}
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	if e.schema == nil {
		return Response{Err: ErrSchemaNotFound}
	}
	if err := schema.LoadLocalPatches(e.schema, path); err != nil {
		return Response{Err: err}
	}
	if err := schema.SaveLocalPatches(e.schema, e.localPatchesPath()); err != nil {
		return Response{Err: err}
	}
	return Response{Ok: true}
}

func (e *Engine) localPatchesPath() string {
	return filepath.Join(e.opts.ConfigDir, "local_patches.toml")
}

// --- Bulk transforms -------------------------------------------------------

// OptimizePackFileArgs controls which rows/files an optimize pass removes.
type OptimizePackFileArgs struct {
	RemoveRowsMatchingVanilla bool
	RemoveEmptyFiles          bool
}

func (e *Engine) handleOptimizePackFile(a any) Response {
	args, _ := a.(OptimizePackFileArgs)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	var toDelete []string
	for _, f := range e.openPack.Files() {
		if args.RemoveEmptyFiles && f.Decoded != nil && f.Decoded.Table != nil && len(f.Decoded.Table.Rows) == 0 {
			toDelete = append(toDelete, f.Path)
			continue
		}
		if args.RemoveRowsMatchingVanilla && f.FileType == rfile.DB && f.Decoded != nil && f.Decoded.Table != nil {
			e.pruneVanillaMatchingRows(f)
		}
	}
	for _, p := range toDelete {
		e.openPack.Remove(p)
	}
	return Response{Ok: toDelete}
}

func (e *Engine) pruneVanillaMatchingRows(f *rfile.RFile) {
	tableName := tableNameFromPath(f.Path)
	vanillaRows := e.dependencies.DBData(tableName, true, false)
	if len(vanillaRows) == 0 {
		return
	}
	seen := map[string]bool{}
	for _, vf := range vanillaRows {
		if vf.Decoded == nil || vf.Decoded.Table == nil {
			continue
		}
		for _, row := range vf.Decoded.Table.Rows {
			seen[rowSignature(row)] = true
		}
	}
	kept := f.Decoded.Table.Rows[:0]
	for _, row := range f.Decoded.Table.Rows {
		if !seen[rowSignature(row)] {
			kept = append(kept, row)
		}
	}
	f.Decoded.Table.Rows = kept
	f.MarkDirty()
}

func rowSignature(row []table.Cell) string {
	var b []byte
	for _, c := range row {
		b = append(b, []byte(c.Text())...)
		b = append(b, 0)
	}
	return string(b)
}

// generatedLocPath is where GenerateMissingLocData writes new entries
// when the open pack has no Loc file to append to yet.
const generatedLocPath = "text/db/loc/local_en.loc"

// handleGenerateMissingLocData scans every DB table whose definition
// declares a LocalisedKeyOrder/LocalisedFields pair, derives the loc key
// each localised field implies from the key-order column values, and adds
// a placeholder Loc row for every such key missing from the pack's
// existing Loc tables.
func (e *Engine) handleGenerateMissingLocData(a any) Response {
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	sch := e.currentSchema()

	existing := map[string]bool{}
	var locFile *rfile.RFile
	for _, f := range e.openPack.Files() {
		if f.FileType != rfile.Loc {
			continue
		}
		if f.Decoded == nil {
			if err := f.Decode(rfile.ExtraData{}); err != nil {
				continue
			}
		}
		if locFile == nil {
			locFile = f
		}
		for _, row := range f.Decoded.Table.Rows {
			existing[row[0].Str] = true
		}
	}

	added := 0
	for _, f := range e.openPack.Files() {
		if f.FileType != rfile.DB {
			continue
		}
		if f.Decoded == nil {
			extra := rfile.ExtraData{Schema: sch, TableName: tableNameFromPath(f.Path)}
			if err := f.Decode(extra); err != nil {
				continue
			}
		}
		def := f.Decoded.Table.Definition
		if len(def.LocalisedKeyOrder) == 0 || len(def.LocalisedFields) == 0 {
			continue
		}
		for _, row := range f.Decoded.Table.Rows {
			baseKey := localisedBaseKey(row, def.LocalisedKeyOrder)
			for _, lf := range def.LocalisedFields {
				key := baseKey + "_" + lf.Name
				if existing[key] {
					continue
				}
				existing[key] = true
				if locFile == nil {
					locFile = rfile.NewRFile(generatedLocPath, nil)
					locFile.Decoded = &rfile.Payload{Table: table.NewLoc()}
					e.openPack.Insert(locFile)
				}
				locFile.Decoded.Table.Rows = append(locFile.Decoded.Table.Rows, []table.Cell{
					{Type: schema.StringU16, Str: key},
					{Type: schema.StringU16, Str: "Placeholder"},
					{Type: schema.Boolean, Bool: false},
				})
				added++
			}
		}
	}
	if locFile != nil && added > 0 {
		locFile.MarkDirty()
	}
	return Response{Ok: added}
}

// localisedBaseKey joins the row's key-order column values with "_", the
// same separator GenerateMissingLocData uses between the base key and
// each localised field's suffix.
func localisedBaseKey(row []table.Cell, order []int) string {
	parts := make([]string, 0, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(row) {
			continue
		}
		parts = append(parts, row[idx].Text())
	}
	return strings.Join(parts, "_")
}

// --- Config + pack flags ---------------------------------------------------

// SetGameSelectedArgs names the game key to switch to and whether to
// rebuild the dependencies cache immediately.
type SetGameSelectedArgs struct {
	GameKey       string
	RebuildDeps   bool
}

func (e *Engine) handleSetGameSelected(a any) Response {
	args, ok := a.(SetGameSelectedArgs)
	if !ok {
		return Response{Err: fmt.Errorf("engine: SetGameSelected: bad args")}
	}
	info, ok := e.opts.SupportedGames[args.GameKey]
	if !ok {
		return Response{Err: fmt.Errorf("%w: %q", ErrGameNotSupported, args.GameKey)}
	}
	e.gameMu.Lock()
	e.game = info
	e.gameMu.Unlock()
	e.settings.SetString("default_game", args.GameKey)

	if args.RebuildDeps {
		return e.handleRebuildDependencies(nil)
	}
	return Response{Ok: true}
}

func (e *Engine) handleChangeIndexIncludesTimestamp(a any) Response {
	enabled, _ := a.(bool)
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	if enabled {
		e.openPack.Bitmask |= pack.HasIndexWithTimestamps
	} else {
		e.openPack.Bitmask &^= pack.HasIndexWithTimestamps
	}
	return Response{Ok: true}
}

func (e *Engine) handleChangeCompressionFormat(a any) Response {
	format, ok := a.(pack.CompressionFormat)
	if !ok {
		return Response{Err: fmt.Errorf("engine: ChangeCompressionFormat: bad args")}
	}
	if e.openPack == nil {
		return Response{Err: ErrNoOpenPack}
	}
	e.openPack.CompressionFormat = format
	return Response{Ok: true}
}

// --- Housekeeping -----------------------------------------------------------

func (e *Engine) handleTriggerBackupAutosave() Response {
	if e.openPack == nil {
		return Response{Ok: false}
	}
	if e.openPack.PFHFileType != pack.Mod && e.openPack.PFHFileType != pack.Movie {
		return Response{Ok: false}
	}
	if !e.settings.GetBool("use_autosaves_for_this_pack") && e.settings.GetBool("disable_autosaves") {
		return Response{Ok: false}
	}
	if e.opts.AutosaveDir == "" {
		return Response{Ok: false}
	}

	if err := os.MkdirAll(e.opts.AutosaveDir, 0o755); err != nil {
		return Response{Err: fmt.Errorf("%w: %v", ErrIOGeneric, err)}
	}
	stamp := autosaveStamp()
	name := fmt.Sprintf("%s.%s.autosave", filepath.Base(e.openPackPath), stamp)
	path := filepath.Join(e.opts.AutosaveDir, name)

	resp := e.save(path)
	if resp.Err != nil {
		return resp
	}
	e.rotateAutosaves()
	return Response{Ok: path}
}

// autosaveStamp names each autosave uniquely without a wall-clock read: a
// monotonic counter rather than a timestamp, since rotateAutosaves already
// orders by file mtime for pruning.
var autosaveCounter int64

func autosaveStamp() string {
	autosaveCounter++
	return fmt.Sprintf("%d", autosaveCounter)
}

func (e *Engine) rotateAutosaves() {
	amount := int(e.settings.GetInt("autosave_amount"))
	if amount == 0 {
		amount = e.opts.AutosaveAmount
	}
	if amount <= 0 {
		return
	}
	entries, err := os.ReadDir(e.opts.AutosaveDir)
	if err != nil {
		return
	}
	type fi struct {
		path string
		mod  time.Time
	}
	var files []fi
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, fi{filepath.Join(e.opts.AutosaveDir, entry.Name()), info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].mod.Before(files[j].mod) })
	for len(files) > amount {
		os.Remove(files[0].path)
		files = files[1:]
	}
}

// --- Settings -----------------------------------------------------------

func (e *Engine) handleBackupSettings() Response {
	backup := *e.settings
	backup.Paths = cloneMap(e.settings.Paths)
	backup.Strings = cloneMap(e.settings.Strings)
	backup.Bools = cloneBoolMap(e.settings.Bools)
	backup.Ints = cloneIntMap(e.settings.Ints)
	backup.Floats = cloneFloatMap(e.settings.Floats)
	backup.VecStrings = cloneVecStringMap(e.settings.VecStrings)
	backup.VecRaw = cloneVecRawMap(e.settings.VecRaw)
	e.settingsBackup = &backup
	return Response{Ok: true}
}

func (e *Engine) handleRestoreBackupSettings() Response {
	if e.settingsBackup == nil {
		return Response{Err: fmt.Errorf("engine: RestoreBackupSettings: no backup present")}
	}
	e.settings = e.settingsBackup
	e.settingsBackup = nil
	return Response{Ok: true}
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneIntMap(m map[string]int32) map[string]int32 {
	out := make(map[string]int32, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneFloatMap(m map[string]float32) map[string]float32 {
	out := make(map[string]float32, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneVecStringMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func cloneVecRawMap(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// --- helpers -----------------------------------------------------------

func (e *Engine) currentSchema() *schema.Schema {
	e.schemaMu.RLock()
	defer e.schemaMu.RUnlock()
	return e.schema
}

// SetSchema installs a new schema, taking the schema write lock. It is
// safe to call from outside the engine goroutine (e.g. at startup,
// before Run is ever invoked), matching the process-wide shared-cell
// semantics SCHEMA carries in the original design.
func (e *Engine) SetSchema(s *schema.Schema) {
	e.schemaMu.Lock()
	defer e.schemaMu.Unlock()
	e.schema = s
}

func tableNameFromPath(path string) string {
	const prefix = "db/"
	if len(path) <= len(prefix) || path[:len(prefix)] != prefix {
		return ""
	}
	rest := path[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i]
		}
	}
	return rest
}
