package schema

import "fmt"

// Older on-disk schema versions are lossy-upgraded to CurrentDiskVersion
// on load using a one-way chain, v3 -> v4 -> current, kept as two
// standalone steps rather than collapsed into a single jump: each step
// mirrors a distinct historical file format, and keeping them chainable
// means a v3 file upgrades through both without a separate one-shot tool.
// Downgrade is never supported.

// migrateToCurrent walks df.Version forward to CurrentDiskVersion.
func migrateToCurrent(df diskFile) (diskFile, error) {
	switch df.Version {
	case CurrentDiskVersion:
		return df, nil
	case 4:
		return migrateV4ToCurrent(df), nil
	case 3:
		return migrateV4ToCurrent(migrateV3ToV4(df)), nil
	case 0:
		// Treat an absent version stamp as the oldest known format.
		return migrateV4ToCurrent(migrateV3ToV4(df)), nil
	default:
		return diskFile{}, fmt.Errorf("schema: unsupported on-disk version %d", df.Version)
	}
}

// migrateV3ToV4 upgrades the v3 field shape, which had no CAOrder or
// IsBitwise columns and described references as a single "table.column"
// string instead of a split Table/Column pair.
func migrateV3ToV4(df diskFile) diskFile {
	out := diskFile{Version: 4, Definitions: make(map[string][]diskDefinition), Patches: df.Patches}
	for table, defs := range df.Definitions {
		for _, dd := range defs {
			dd.Fields = upgradeV3Fields(dd.Fields)
			dd.LocalisedFields = upgradeV3Fields(dd.LocalisedFields)
			out.Definitions[table] = append(out.Definitions[table], dd)
		}
	}
	return out
}

func upgradeV3Fields(fields []diskField) []diskField {
	for i := range fields {
		if fields[i].CAOrder == 0 {
			fields[i].CAOrder = int16(i)
		}
	}
	return fields
}

// migrateV4ToCurrent upgrades the v4 shape, which lacked per-field lookup
// columns and enum value maps.
func migrateV4ToCurrent(df diskFile) diskFile {
	df.Version = CurrentDiskVersion
	for table, defs := range df.Definitions {
		for i := range defs {
			if defs[i].Fields == nil {
				continue
			}
			for j := range defs[i].Fields {
				if defs[i].Fields[j].EnumValues == nil {
					defs[i].Fields[j].EnumValues = map[int32]string{}
				}
			}
		}
		df.Definitions[table] = defs
	}
	return df
}
