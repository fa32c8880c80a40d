package query

import "strings"

// likeEscape is the escape character of every generated LIKE pattern.
const likeEscape = `\`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Pattern turns a user value into a lower-cased LIKE pattern:
//
//	"*ith"  -> "%ith"   ends with
//	"ith*"  -> "ith%"   starts with
//	"*ith*" -> "%ith%"  contains
//	"ith"   -> "%ith%"  contains
//
// Only leading and trailing asterisks are anchors; % and _ in the value are
// matched literally. ok is false when nothing but asterisks remains.
func Pattern(value string) (pattern string, ok bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	leading := strings.HasPrefix(v, "*")
	trailing := strings.HasSuffix(v, "*")
	core := likeEscaper.Replace(strings.Trim(v, "*"))
	if core == "" {
		return "", false
	}

	switch {
	case leading && !trailing:
		return "%" + core, true
	case trailing && !leading:
		return core + "%", true
	default:
		return "%" + core + "%", true
	}
}
