package rfile

import "strings"

// FileType is the closed set of payload kinds a path can be guessed to
// hold, used for both dispatch and diagnostics.
type FileType int

const (
	Unknown FileType = iota
	AnimFragmentBattle
	AnimPack
	AnimsTable
	Anim
	Atlas
	Audio
	BMD
	BMDVegetation
	Dat
	DB
	ESF
	Font
	GroupFormations
	HlslCompiled
	Image
	Loc
	MatchedCombat
	Pack
	PortraitSettings
	RigidModel
	SoundBank
	Text
	UIC
	UnitVariant
	Video
	VMD
	WSModel
)

func (t FileType) String() string {
	switch t {
	case AnimFragmentBattle:
		return "AnimFragmentBattle"
	case AnimPack:
		return "AnimPack"
	case AnimsTable:
		return "AnimsTable"
	case Anim:
		return "Anim"
	case Atlas:
		return "Atlas"
	case Audio:
		return "Audio"
	case BMD:
		return "BMD"
	case BMDVegetation:
		return "BMDVegetation"
	case Dat:
		return "Dat"
	case DB:
		return "DB"
	case ESF:
		return "ESF"
	case Font:
		return "Font"
	case GroupFormations:
		return "GroupFormations"
	case HlslCompiled:
		return "HlslCompiled"
	case Image:
		return "Image"
	case Loc:
		return "Loc"
	case MatchedCombat:
		return "MatchedCombat"
	case Pack:
		return "Pack"
	case PortraitSettings:
		return "PortraitSettings"
	case RigidModel:
		return "RigidModel"
	case SoundBank:
		return "SoundBank"
	case Text:
		return "Text"
	case UIC:
		return "UIC"
	case UnitVariant:
		return "UnitVariant"
	case Video:
		return "Video"
	case VMD:
		return "VMD"
	case WSModel:
		return "WSModel"
	default:
		return "Unknown"
	}
}

// opaqueTypes are passed through as raw byte blobs by Decode and Encode:
// their content is never interpreted, only carried.
var opaqueTypes = map[FileType]bool{
	Anim: true, BMD: true, BMDVegetation: true, Dat: true, Font: true,
	HlslCompiled: true, Pack: true, Unknown: true,
}

// IsOpaque reports whether t is in the passthrough set.
func (t FileType) IsOpaque() bool { return opaqueTypes[t] }

// suffixTypes maps a lowercase path suffix to the FileType it implies.
// It is checked in list order, and only after GuessFileType's prefix and
// substring rules (which is where "db/" paths are recognized as DB).
var suffixTypes = []struct {
	suffix string
	kind   FileType
}{
	{".loc", Loc},
	{".rigid_model_v2", RigidModel},
	{".esf", ESF},
	{".esf.gz", ESF},
	{".atlas", Atlas},
	{".variantmeshdefinition", UnitVariant},
	{".bnk", SoundBank},
	{".wsmodel", WSModel},
	{".vmd", VMD},
	{".bmd", BMD},
	{".bmd.vegetation", BMDVegetation},
	{".dat", Dat},
	{".png", Image},
	{".jpg", Image},
	{".tga", Image},
	{".dds", Image},
	{".bik", Video},
	{".mp4", Video},
	{".wav", Audio},
	{".ogg", Audio},
	{".ttf", Font},
	{".otf", Font},
	{".xml", Text},
	{".txt", Text},
	{".lua", Text},
	{".csv", Text},
	{".json", Text},
	{".hlsl", HlslCompiled},
	{".animpack", AnimPack},
	{".anim", Anim},
	{".frg", AnimFragmentBattle},
}

// GuessFileType derives a FileType from a ContainerPath, the way the
// container codec guesses at index-parse time, deferring the real decode.
func GuessFileType(path string) FileType {
	lower := strings.ToLower(path)

	switch {
	case strings.HasPrefix(lower, "db/"):
		return DB
	case strings.Contains(lower, "/portrait_settings") || strings.HasSuffix(lower, "portrait_settings.bin"):
		return PortraitSettings
	case strings.Contains(lower, "battle_animations_table") || strings.Contains(lower, "anims_table"):
		return AnimsTable
	case strings.Contains(lower, "group_formations"):
		return GroupFormations
	case strings.Contains(lower, "matched_combat"):
		return MatchedCombat
	case strings.HasSuffix(lower, ".uic"):
		return UIC
	}

	for _, st := range suffixTypes {
		if strings.HasSuffix(lower, st.suffix) {
			return st.kind
		}
	}
	return Unknown
}
