// Package deps implements the dependencies resolver: a cached, queryable
// merge of the game's vanilla packs, the open pack's parent chain, and an
// optional Assembly-Kit raw-table snapshot, used to answer reference
// lookups and column-value enumeration while editing.
package deps

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/saferwall/packfile/internal/pack"
	"github.com/saferwall/packfile/internal/rfile"
	"github.com/saferwall/packfile/internal/schema"
	"github.com/saferwall/packfile/internal/table"
)

// BuildInputs is everything rebuild needs to locate and merge sources.
type BuildInputs struct {
	Game            string
	GamePath        string
	SecondaryPath   string
	VanillaPackPaths []string // GameInfo::ca_packs_paths(game_path), in CA load order
	ParentPackNames  []string // the open pack's own dependency list
	AssemblyKitDBDir string   // raw_data/db, empty if no AK configured

	IgnoreGameFilesInAK bool
}

// Dependencies is the merged read-only view built by rebuild. All query
// methods are safe for concurrent use; Rebuild takes the write lock.
type Dependencies struct {
	mu sync.RWMutex

	vanillaPacks        *pack.Pack
	vanillaLooseTables  map[string]*table.Table // path -> decoded DB/Loc
	parentPacks         *pack.Pack
	asskitOnlyDBTables  map[string]*table.DB // table name -> synthesized DB
	localTableReferences map[string]map[string]map[string]bool // table -> column -> values

	fingerprint string
}

// New returns an empty Dependencies, ready for Rebuild.
func New() *Dependencies {
	return &Dependencies{
		vanillaLooseTables: map[string]*table.Table{},
		asskitOnlyDBTables: map[string]*table.DB{},
		localTableReferences: map[string]map[string]map[string]bool{},
	}
}

// readAndMerge opens each pack path in order and merges its files into
// one new Pack, later packs' files overriding earlier ones on path
// collision -- the rule Pack.Insert applies to an existing path.
func readAndMerge(paths []string, lazy bool) (*pack.Pack, error) {
	merged := pack.New(pack.PFH5, pack.Release)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("deps: read %q: %w", p, err)
		}
		decoded, err := pack.Decode(data, pack.DecodeOptions{Lazy: lazy, DiskFilePath: p})
		if err != nil {
			return nil, fmt.Errorf("deps: decode %q: %w", p, err)
		}
		for _, f := range decoded.Files() {
			merged.Insert(f)
		}
		merged.Dependencies = append(merged.Dependencies, decoded.Dependencies...)
	}
	return merged, nil
}

// resolveParentChain expands names transitively: each pack's own
// dependency list is walked until no new names appear, searching
// secondaryPath then gamePath for a matching file.
func resolveParentChain(names []string, gamePath, secondaryPath string) ([]string, error) {
	seen := map[string]bool{}
	var queue []string
	queue = append(queue, names...)
	var resolved []string

	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true

		path, err := locatePack(name, gamePath, secondaryPath)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, path)

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("deps: read %q: %w", path, err)
		}
		decoded, err := pack.Decode(data, pack.DecodeOptions{Lazy: true, DiskFilePath: path})
		if err != nil {
			return nil, fmt.Errorf("deps: decode %q: %w", path, err)
		}
		for _, d := range decoded.Dependencies {
			if !seen[d.Name] {
				queue = append(queue, d.Name)
			}
		}
	}
	return resolved, nil
}

func locatePack(name, gamePath, secondaryPath string) (string, error) {
	for _, base := range []string{secondaryPath, gamePath} {
		if base == "" {
			continue
		}
		candidate := filepath.Join(base, "data", name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("deps: dependency %q not found under game or secondary path", name)
}

// Rebuild re-derives the entire cache from scratch without holding the
// lock, then takes the write lock only to swap the new state in. A
// missing Assembly-Kit directory is not an error: AK tables are simply
// left empty.
func (d *Dependencies) Rebuild(inputs BuildInputs, sch *schema.Schema) error {
	vanilla, err := readAndMerge(inputs.VanillaPackPaths, true)
	if err != nil {
		return err
	}

	parentPaths, err := resolveParentChain(inputs.ParentPackNames, inputs.GamePath, inputs.SecondaryPath)
	if err != nil {
		return err
	}
	parents, err := readAndMerge(parentPaths, true)
	if err != nil {
		return err
	}

	asskit := map[string]*table.DB{}
	if inputs.AssemblyKitDBDir != "" {
		asskit, err = loadAssemblyKitTables(inputs.AssemblyKitDBDir, vanilla, inputs.IgnoreGameFilesInAK, sch)
		if err != nil {
			return err
		}
	}

	fp, err := fingerprint(inputs, sch)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.vanillaPacks = vanilla
	d.parentPacks = parents
	d.asskitOnlyDBTables = asskit
	d.fingerprint = fp
	d.localTableReferences = map[string]map[string]map[string]bool{}
	return nil
}

// Fingerprint returns the hash Rebuild computed its cache under, for
// staleness checks against a persisted cache file.
func (d *Dependencies) Fingerprint() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.fingerprint
}

// fingerprint hashes the build inputs' file sizes and mtimes plus the
// schema version, so a cache on disk can be declared stale without
// re-reading every pack.
func fingerprint(inputs BuildInputs, sch *schema.Schema) (string, error) {
	h := sha256.New()
	if sch != nil {
		fmt.Fprintf(h, "schema:%d\n", sch.DiskVersion)
	}
	paths := append(append([]string{}, inputs.VanillaPackPaths...), inputs.ParentPackNames...)
	sort.Strings(paths)
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			fmt.Fprintf(h, "missing:%s\n", p)
			continue
		}
		fmt.Fprintf(h, "%s:%d:%d\n", p, info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DBVersion returns the highest DB version observed in the vanilla packs
// for table name, or false if the table doesn't appear there.
func (d *Dependencies) DBVersion(name string) (int32, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.vanillaPacks == nil {
		return 0, false
	}
	var best int32
	found := false
	for _, f := range d.vanillaPacks.Files() {
		if f.FileType != rfile.DB {
			continue
		}
		if tableNameFromPath(f.Path) == name && f.Decoded != nil && f.Decoded.Table != nil {
			if v := f.Decoded.Table.Definition.Version; !found || v > best {
				best, found = v, true
			}
		}
	}
	return best, found
}

// DBData returns every RFile holding table name's rows, drawn from
// vanilla and/or parent packs per the include flags.
func (d *Dependencies) DBData(name string, includeVanilla, includeParents bool) []*rfile.RFile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*rfile.RFile
	if includeVanilla && d.vanillaPacks != nil {
		out = append(out, filesForTable(d.vanillaPacks, name)...)
	}
	if includeParents && d.parentPacks != nil {
		out = append(out, filesForTable(d.parentPacks, name)...)
	}
	return out
}

func filesForTable(p *pack.Pack, name string) []*rfile.RFile {
	var out []*rfile.RFile
	for _, f := range p.Files() {
		if f.FileType == rfile.DB && tableNameFromPath(f.Path) == name {
			out = append(out, f)
		}
	}
	return out
}

func tableNameFromPath(path string) string {
	// db/<table_name>_tables/<file>
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

// TableReferences is the set of values (and any lookup text) found in one
// referenced (table, column) pair, keyed by field index in db_reference_data.
type TableReferences struct {
	Values  map[string]bool
	Lookup  map[string]string // referenced value -> lookup display text
}

// DBReferenceData answers db_reference_data: for every field in def that
// declares a schema.Reference, collect the set of values present in the
// referenced column across vanilla+parent+open-pack sources, using the
// local_tables_references cache when present.
func (d *Dependencies) DBReferenceData(openPack *pack.Pack, tableName string, def *schema.Definition) (map[int]*TableReferences, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cached, ok := d.localTableReferences[tableName]; ok {
		return expandCache(def, cached), nil
	}

	cache := map[string]map[string]bool{}
	result := map[int]*TableReferences{}
	for i, field := range def.Fields {
		if field.ReferenceTo == nil {
			continue
		}
		values := d.collectColumnValues(openPack, field.ReferenceTo.Table, field.ReferenceTo.Column, true, true)
		cache[field.ReferenceTo.Table+"."+field.ReferenceTo.Column] = values
		result[i] = &TableReferences{Values: values, Lookup: map[string]string{}}
	}
	d.localTableReferences[tableName] = cache
	return result, nil
}

func expandCache(def *schema.Definition, cache map[string]map[string]bool) map[int]*TableReferences {
	result := map[int]*TableReferences{}
	for i, field := range def.Fields {
		if field.ReferenceTo == nil {
			continue
		}
		key := field.ReferenceTo.Table + "." + field.ReferenceTo.Column
		result[i] = &TableReferences{Values: cache[key], Lookup: map[string]string{}}
	}
	return result
}

// DBValuesFromTableNameAndColumnName answers
// db_values_from_table_name_and_column_name: the set of values seen in
// table/column across the selected sources, optionally including the
// still-open pack.
func (d *Dependencies) DBValuesFromTableNameAndColumnName(openPack *pack.Pack, tableName, column string, includeVanilla, includeParents bool) map[string]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.collectColumnValues(openPack, tableName, column, includeVanilla, includeParents)
}

func (d *Dependencies) collectColumnValues(openPack *pack.Pack, tableName, column string, includeVanilla, includeParents bool) map[string]bool {
	out := map[string]bool{}
	collect := func(p *pack.Pack) {
		if p == nil {
			return
		}
		for _, f := range filesForTable(p, tableName) {
			if f.Decoded == nil || f.Decoded.Table == nil {
				continue
			}
			colIdx := -1
			for i, field := range f.Decoded.Table.Definition.Fields {
				if field.Name == column {
					colIdx = i
					break
				}
			}
			if colIdx < 0 {
				continue
			}
			for _, row := range f.Decoded.Table.Rows {
				if colIdx < len(row) {
					out[row[colIdx].Text()] = true
				}
			}
		}
	}
	if includeVanilla {
		collect(d.vanillaPacks)
	}
	if includeParents {
		collect(d.parentPacks)
	}
	collect(openPack)
	return out
}

// FilesByPath answers files_by_path: resolves every requested path
// against the selected sources, first match wins in vanilla/parents/
// loose-file priority order.
func (d *Dependencies) FilesByPath(paths []string, vanilla, parents, includeLoose bool) map[string]*rfile.RFile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := map[string]*rfile.RFile{}
	for _, p := range paths {
		if vanilla && d.vanillaPacks != nil {
			if f := d.vanillaPacks.Get(p); f != nil {
				out[p] = f
				continue
			}
		}
		if parents && d.parentPacks != nil {
			if f := d.parentPacks.Get(p); f != nil {
				out[p] = f
				continue
			}
		}
		if includeLoose {
			if _, ok := d.vanillaLooseTables[p]; ok {
				out[p] = rfile.NewRFile(p, nil)
			}
		}
	}
	return out
}

// ImportFromAK returns the DB that Rebuild synthesized for tableName from
// the Assembly-Kit snapshot, built with the latest definition the schema
// held at rebuild time; sch is not consulted.
func (d *Dependencies) ImportFromAK(tableName string, sch *schema.Schema) (*table.DB, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	db, ok := d.asskitOnlyDBTables[tableName]
	if !ok {
		return nil, fmt.Errorf("deps: %q not present in the Assembly-Kit snapshot", tableName)
	}
	return db, nil
}
