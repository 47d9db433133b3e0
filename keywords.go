package ldforge

// JSON-LD keywords.
const (
	KeywordAlways    = "@always"
	KeywordBase      = "@base"
	KeywordContainer = "@container"
	KeywordContext   = "@context"
	KeywordDirection = "@direction"
	KeywordEmbed     = "@embed"
	KeywordExplicit  = "@explicit"
	KeywordGraph     = "@graph"
	KeywordID        = "@id"
	KeywordImport    = "@import"
	KeywordIncluded  = "@included"
	KeywordIndex     = "@index"
	KeywordJSON      = "@json"
	KeywordLanguage  = "@language"
	KeywordList      = "@list"
	KeywordNest      = "@nest"
	KeywordNever     = "@never"
	KeywordNone      = "@none"
	KeywordNull      = "@null"
	KeywordOnce      = "@once"
	KeywordPrefix    = "@prefix"
	KeywordPropagate = "@propagate"
	KeywordProtected = "@protected"
	KeywordReverse   = "@reverse"
	KeywordSet       = "@set"
	KeywordType      = "@type"
	KeywordValue     = "@value"
	KeywordVersion   = "@version"
	KeywordVocab     = "@vocab"
)

// isKeyword returns if the string matches a known JSON-LD keyword.
func isKeyword(s string) bool {
	switch s {
	case KeywordBase,
		KeywordContainer,
		KeywordContext,
		KeywordDirection,
		KeywordGraph,
		KeywordID,
		KeywordImport,
		KeywordIncluded,
		KeywordIndex,
		KeywordJSON,
		KeywordLanguage,
		KeywordList,
		KeywordNest,
		KeywordNone,
		KeywordPrefix,
		KeywordPropagate,
		KeywordProtected,
		KeywordReverse,
		KeywordSet,
		KeywordType,
		KeywordValue,
		KeywordVersion,
		KeywordVocab:
		return true
	default:
		return false
	}
}

// looksLikeKeyword determines if a string has the general shape of a JSON-LD
// keyword: an @ followed by one or more ASCII letters.
func looksLikeKeyword(s string) bool {
	if len(s) < 2 || s[0] != '@' {
		return false
	}

	for _, char := range s[1:] {
		if (char < 'a' || char > 'z') &&
			(char < 'A' || char > 'Z') {
			return false
		}
	}

	return true
}
