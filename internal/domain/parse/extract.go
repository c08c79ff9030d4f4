package parse

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Extractor pulls individual fields out of a normalized line. Implementations must be safe for
// concurrent use; each method looks at the whole input independently.
type Extractor interface {
	// ExtractIdentifier returns the first bracketed employee code, compacted and upper-cased.
	ExtractIdentifier(text string) (string, bool)
	// ExtractAmount returns the integer part of the first $ amount, or 0 when there is none.
	ExtractAmount(text string) int64
	// ExtractName returns the text between a bracketed code and the next name verb.
	ExtractName(text string) (string, bool)
}

// Verb phrases that end the name span and mark a name-bearing line.
var nameVerbs = []string{"ha retirado", "ha guardado", "ha enviado"} //nolint:gochecknoglobals // fixed grammar

var (
	identifierPattern = regexp.MustCompile(`(?i)\[\s*((?:[a-z]\s*){3}(?:\d\s*){4}\d)\s*\]`)
	amountPattern     = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})+|\d+)`)
	namePattern       = regexp.MustCompile(`(?i)\[\s*(?:[a-z]\s*){3}(?:\d\s*){4}\d\s*\]\s*(.+?)\s*(?:` +
		strings.Join(nameVerbs, "|") + `)`)
)

// RegexExtractor is the Extractor backed by the fixed log grammar.
type RegexExtractor struct{}

// NewRegexExtractor returns the default Extractor.
func NewRegexExtractor() RegexExtractor { return RegexExtractor{} }

// ExtractIdentifier implements Extractor.
func (RegexExtractor) ExtractIdentifier(text string) (string, bool) {
	m := identifierPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(stripSpace(m[1])), true
}

// ExtractAmount implements Extractor. The fraction is dropped, never rounded: "$1,234.99" is 1234.
func (RegexExtractor) ExtractAmount(text string) int64 {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ExtractName implements Extractor.
func (RegexExtractor) ExtractName(text string) (string, bool) {
	m := namePattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	name := strings.TrimSpace(m[1])
	if name == "" {
		return "", false
	}
	return name, true
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
