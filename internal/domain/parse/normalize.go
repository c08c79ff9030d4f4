// Package parse turns raw chat log lines into classified sale and name events.
//
// Pipeline: Normalize -> Classify (which calls the Extractor). Everything here is pure.
package parse

import (
	"regexp"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// chainPool holds transformer chains; a chain is stateful and must not be shared concurrently.
var chainPool = sync.Pool{ //nolint:gochecknoglobals // pooled transformers
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			runes.Remove(runes.In(unicode.Cf)), // zero-width joiners, BOM, direction marks
			width.Fold,
		)
	},
}

var (
	// Longest delimiters first so "***" is not left as a stray "*".
	markupReplacer = strings.NewReplacer( //nolint:gochecknoglobals // immutable replacer
		"```", "",
		"***", "",
		"**", "",
		"__", "",
		"~~", "",
		"`", "",
		"*", "",
	)

	// _italic_ only when the underscores flank the span, so snake_case names survive.
	italicUnderscore = regexp.MustCompile(`(^|[^\p{L}\p{N}_])_([^_\s](?:[^_]*[^_\s])?)_($|[^\p{L}\p{N}_])`)
)

// Normalize strips inline markup (bold, italic, underline, strikethrough, inline code) and
// surrounding whitespace. Unmatched markers are removed the same way; there is no failure mode.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToValidUTF8(raw, "")

	tr := chainPool.Get().(transform.Transformer)
	if out, _, err := transform.String(tr, s); err == nil {
		s = out
	}
	tr.Reset()
	chainPool.Put(tr)

	s = markupReplacer.Replace(s)
	// Adjacent spans share a boundary rune, so a second pass catches the ones the first skipped.
	for range 2 {
		s = italicUnderscore.ReplaceAllString(s, "$1$2$3")
	}
	return strings.TrimSpace(s)
}
