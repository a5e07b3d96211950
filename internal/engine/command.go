// Package engine implements the single long-running task that owns the
// open pack, the dependencies cache, the schema, and settings, executing
// one command at a time from an unbuffered channel (a sender blocks until
// the engine takes its command) and replying on a per-request channel.
package engine

// Kind names every command the engine understands, grouped the way the
// command alphabet is organized. Every name mirrors the original command
// exactly, even where this engine's handler returns ErrUnimplemented for
// it -- `UpdateTable` and `GoToDefinition` are as real a part of the
// alphabet as `SavePackFile`, whether or not this build wires them to a UI.
type Kind string

const (
	// Lifecycle.
	NewPackFile          Kind = "NewPackFile"
	OpenPackFiles        Kind = "OpenPackFiles"
	OpenPackExtra        Kind = "OpenPackExtra"
	LoadAllCAPackFiles   Kind = "LoadAllCAPackFiles"
	SavePackFile         Kind = "SavePackFile"
	SavePackFileAs       Kind = "SavePackFileAs"
	CleanAndSavePackFileAs Kind = "CleanAndSavePackFileAs"
	ResetPackFile        Kind = "ResetPackFile"
	RemovePackFileExtra  Kind = "RemovePackFileExtra"
	GetPackFilePath      Kind = "GetPackFilePath"
	GetPackFileName      Kind = "GetPackFileName"

	// Introspection.
	GetPackFileDataForTreeView      Kind = "GetPackFileDataForTreeView"
	GetPackFileExtraDataForTreeView Kind = "GetPackFileExtraDataForTreeView"
	GetRFileInfo                    Kind = "GetRFileInfo"
	GetPackedFilesInfo              Kind = "GetPackedFilesInfo"
	FolderExists                    Kind = "FolderExists"
	PackedFileExists                Kind = "PackedFileExists"
	GetPackedFileRawData            Kind = "GetPackedFileRawData"

	// File ops.
	NewPackedFile                         Kind = "NewPackedFile"
	AddPackedFiles                         Kind = "AddPackedFiles"
	AddPackedFilesFromPackFile             Kind = "AddPackedFilesFromPackFile"
	AddPackedFilesFromPackFileToAnimpack   Kind = "AddPackedFilesFromPackFileToAnimpack"
	AddPackedFilesFromAnimpack             Kind = "AddPackedFilesFromAnimpack"
	DeleteFromAnimpack                     Kind = "DeleteFromAnimpack"
	DeletePackedFiles                      Kind = "DeletePackedFiles"
	ExtractPackedFiles                     Kind = "ExtractPackedFiles"
	RenamePackedFiles                      Kind = "RenamePackedFiles"
	MergeFiles                             Kind = "MergeFiles"

	// Decoding/saving.
	DecodePackedFile               Kind = "DecodePackedFile"
	SavePackedFileFromView         Kind = "SavePackedFileFromView"
	SavePackedFileFromExternalView Kind = "SavePackedFileFromExternalView"
	CleanCache                     Kind = "CleanCache"
	OpenPackedFileInExternalProgram Kind = "OpenPackedFileInExternalProgram"
	ImportTSV                      Kind = "ImportTSV"
	ExportTSV                      Kind = "ExportTSV"

	// Schema + tables.
	GetTableListFromDependencyPackFile         Kind = "GetTableListFromDependencyPackFile"
	GetCustomTableList                         Kind = "GetCustomTableList"
	GetTableVersionFromDependencyPackFile      Kind = "GetTableVersionFromDependencyPackFile"
	GetTableDefinitionFromDependencyPackFile   Kind = "GetTableDefinitionFromDependencyPackFile"
	UpdateTable                                Kind = "UpdateTable"
	GetTablesByTableName                       Kind = "GetTablesByTableName"
	GetTablesFromDependencies                  Kind = "GetTablesFromDependencies"
	CascadeEdition                             Kind = "CascadeEdition"
	GetReferenceDataFromDefinition              Kind = "GetReferenceDataFromDefinition"
	GoToDefinition                             Kind = "GoToDefinition"
	GoToLoc                                    Kind = "GoToLoc"
	GetSourceDataFromLocKey                    Kind = "GetSourceDataFromLocKey"
	SearchReferences                           Kind = "SearchReferences"
	SaveSchema                                 Kind = "SaveSchema"
	SaveLocalSchemaPatch                       Kind = "SaveLocalSchemaPatch"
	RemoveLocalSchemaPatchesForTable            Kind = "RemoveLocalSchemaPatchesForTable"
	RemoveLocalSchemaPatchesForTableAndField    Kind = "RemoveLocalSchemaPatchesForTableAndField"
	ImportSchemaPatch                          Kind = "ImportSchemaPatch"
	UpdateCurrentSchemaFromAssKit               Kind = "UpdateCurrentSchemaFromAssKit"
	UpdateSchemas                              Kind = "UpdateSchemas"

	// Dependencies.
	GetDependencyPackFilesList                      Kind = "GetDependencyPackFilesList"
	SetDependencyPackFilesList                      Kind = "SetDependencyPackFilesList"
	IsThereADependencyDatabase                      Kind = "IsThereADependencyDatabase"
	RebuildDependencies                             Kind = "RebuildDependencies"
	GenerateDependenciesCache                       Kind = "GenerateDependenciesCache"
	ImportDependenciesToOpenPackFile                Kind = "ImportDependenciesToOpenPackFile"
	GetRFilesFromAllSources                         Kind = "GetRFilesFromAllSources"
	GetAnimPathsBySkeletonName                      Kind = "GetAnimPathsBySkeletonName"
	GetPackedFilesNamesStartingWithPathFromAllSources Kind = "GetPackedFilesNamesStartingWithPathFromAllSources"
	LocalArtSetIds                                  Kind = "LocalArtSetIds"
	DependenciesArtSetIds                           Kind = "DependenciesArtSetIds"
	GenerateMissingLocData                          Kind = "GenerateMissingLocData"

	// Diagnostics + global search (interface only, per the original spec).
	DiagnosticsCheck          Kind = "DiagnosticsCheck"
	DiagnosticsUpdate         Kind = "DiagnosticsUpdate"
	GlobalSearch              Kind = "GlobalSearch"
	GlobalSearchReplaceMatches Kind = "GlobalSearchReplaceMatches"
	GlobalSearchReplaceAll    Kind = "GlobalSearchReplaceAll"

	// Bulk transforms.
	PatchSiegeAI        Kind = "PatchSiegeAI"
	OptimizePackFile    Kind = "OptimizePackFile"
	SetVideoFormat      Kind = "SetVideoFormat"
	UpdateAnimIds       Kind = "UpdateAnimIds"
	ExportRigidToGltf   Kind = "ExportRigidToGltf"
	PackMap             Kind = "PackMap"

	// Config + pack flags.
	SetGameSelected              Kind = "SetGameSelected"
	SetPackFileType              Kind = "SetPackFileType"
	ChangeIndexIncludesTimestamp Kind = "ChangeIndexIncludesTimestamp"
	ChangeCompressionFormat      Kind = "ChangeCompressionFormat"
	GetPackSettings              Kind = "GetPackSettings"
	SetPackSettings              Kind = "SetPackSettings"
	AddLineToPackIgnoredDiagnostics Kind = "AddLineToPackIgnoredDiagnostics"
	NotesForPath                 Kind = "NotesForPath"
	AddNote                      Kind = "AddNote"
	DeleteNote                   Kind = "DeleteNote"

	// Updates + distribution (interface only).
	CheckUpdates                    Kind = "CheckUpdates"
	CheckSchemaUpdates               Kind = "CheckSchemaUpdates"
	CheckLuaAutogenUpdates           Kind = "CheckLuaAutogenUpdates"
	CheckEmpireAndNapoleonAKUpdates  Kind = "CheckEmpireAndNapoleonAKUpdates"
	CheckTranslationsUpdates         Kind = "CheckTranslationsUpdates"
	UpdateMainProgram                Kind = "UpdateMainProgram"
	UpdateLuaAutogen                 Kind = "UpdateLuaAutogen"
	UpdateEmpireAndNapoleonAK         Kind = "UpdateEmpireAndNapoleonAK"
	UpdateTranslations                Kind = "UpdateTranslations"
	GetPackTranslation                Kind = "GetPackTranslation"

	// Starpos pipeline (interface only -- no Starpos-producing game in scope).
	BuildStarposGetCampaingIds         Kind = "BuildStarposGetCampaingIds"
	BuildStarposCheckVictoryConditions Kind = "BuildStarposCheckVictoryConditions"
	BuildStarpos                       Kind = "BuildStarpos"
	BuildStarposPost                   Kind = "BuildStarposPost"
	BuildStarposCleanup                Kind = "BuildStarposCleanup"

	// Housekeeping.
	TriggerBackupAutosave Kind = "TriggerBackupAutosave"
	LiveExport            Kind = "LiveExport"
	GetMissingDefinitions Kind = "GetMissingDefinitions"
	MyModInit             Kind = "MyModInit"
	Exit                  Kind = "Exit"

	// Settings.
	SettingsGetBool    Kind = "SettingsGetBool"
	SettingsSetBool    Kind = "SettingsSetBool"
	SettingsGetString  Kind = "SettingsGetString"
	SettingsSetString  Kind = "SettingsSetString"
	SettingsGetPath    Kind = "SettingsGetPath"
	SettingsSetPath    Kind = "SettingsSetPath"
	SettingsClearPath  Kind = "SettingsClearPath"
	SettingsGetInt       Kind = "SettingsGetInt"
	SettingsSetInt       Kind = "SettingsSetInt"
	SettingsGetFloat     Kind = "SettingsGetFloat"
	SettingsSetFloat     Kind = "SettingsSetFloat"
	SettingsGetVecString Kind = "SettingsGetVecString"
	SettingsSetVecString Kind = "SettingsSetVecString"
	SettingsGetVecRaw    Kind = "SettingsGetVecRaw"
	SettingsSetVecRaw    Kind = "SettingsSetVecRaw"
	BackupSettings     Kind = "BackupSettings"
	ClearSettings      Kind = "ClearSettings"
	RestoreBackupSettings Kind = "RestoreBackupSettings"
)

// Command is one request on the engine's inbound channel: a Kind, an
// untyped Args payload whose shape is documented per-Kind in engine.go's
// handler table, and a Reply channel the engine sends exactly one
// Response on (multi-step commands like AddPackedFiles still resolve to
// one final Response; intermediate progress is not modeled as separate
// messages in this core).
type Command struct {
	Kind  Kind
	Args  any
	Reply chan Response
}

// Response is the result of one Command. Ok carries the handler's return
// value (shape documented per-Kind); Err is non-nil on failure, in which
// case Ok is nil and engine-owned state is left as if the command had
// never run, except where a handler documents partial effects. The bulk
// handlers RenamePackedFiles and ExtractPackedFiles are the exception for
// Ok: on a partial failure they return the paths that succeeded in Ok
// alongside the summary Err.
type Response struct {
	Ok  any
	Err error
}
