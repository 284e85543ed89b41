// Package normalize canonicalizes the free-form strings users attach to
// snippets: category tags, fragment languages and code line endings.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxCategories is the most tags a snippet may carry.
const MaxCategories = 20

// languageAliases maps common shorthands and file extensions to the
// canonical language identifier stored on fragments.
//
//nolint:gochecknoglobals // Static lookup table for language normalization
var languageAliases = map[string]string{
	"js":         "javascript",
	"jsx":        "javascript",
	"mjs":        "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"tsx":        "typescript",
	"py":         "python",
	"python3":    "python",
	"rb":         "ruby",
	"golang":     "go",
	"rs":         "rust",
	"kt":         "kotlin",
	"kts":        "kotlin",
	"cs":         "csharp",
	"c#":         "csharp",
	"cpp":        "cpp",
	"c++":        "cpp",
	"cc":         "cpp",
	"cxx":        "cpp",
	"hpp":        "cpp",
	"h":          "c",
	"sh":         "shell",
	"bash":       "shell",
	"zsh":        "shell",
	"ps1":        "powershell",
	"yml":        "yaml",
	"md":         "markdown",
	"htm":        "html",
	"plaintext":  "text",
	"txt":        "text",
	"plain":      "text",
	"dockerfile": "docker",
	"tf":         "hcl",
}

// Fold returns the caseless form of s used for case-insensitive text
// matching and ordering: NFC-normalized, then Unicode case-folded.
// A fresh Caser is built per call; a cases.Caser is not safe for
// concurrent use.
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Category returns the canonical form of a category tag: NFC-normalized,
// trimmed, case-folded and with inner whitespace collapsed to single spaces.
func Category(raw string) string {
	s := norm.NFC.String(sanitizeString(raw))
	s = strings.Join(strings.Fields(s), " ")
	return Fold(s)
}

// Categories canonicalizes each tag, drops empties and removes duplicates
// while keeping first-seen order.
func Categories(raw []string) []string {
	if len(raw) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		c := Category(r)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// SplitCategories parses the comma-separated form used in query strings.
func SplitCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	return Categories(strings.Split(raw, ","))
}

// Language returns the canonical fragment language for raw.
// "JS" -> "javascript", " Go " -> "go", "golang" -> "go".
// Unknown names are lower-cased and passed through.
func Language(raw string) string {
	s := strings.ToLower(strings.TrimSpace(sanitizeString(raw)))
	if s == "" {
		return ""
	}
	s = strings.TrimPrefix(s, ".")
	if canonical, ok := languageAliases[s]; ok {
		return canonical
	}
	return s
}

// Title trims surrounding whitespace and NFC-normalizes a snippet title so
// alphabetical sorting compares like with like.
func Title(raw string) string {
	return norm.NFC.String(strings.TrimSpace(sanitizeString(raw)))
}

// FileName trims a fragment file name.
func FileName(raw string) string {
	return strings.TrimSpace(sanitizeString(raw))
}

// LineEndings converts CRLF and lone CR line breaks to LF.
func LineEndings(code string) string {
	if !strings.ContainsRune(code, '\r') {
		return code
	}
	code = strings.ReplaceAll(code, "\r\n", "\n")
	return strings.ReplaceAll(code, "\r", "\n")
}

// sanitizeString removes null bytes, which SQLite text comparison and JSON
// encoding both handle poorly.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
}
