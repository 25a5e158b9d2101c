// Package slug turns category names into URL-safe slugs and keeps them unique.
package slug

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Separator joins the words of a slug.
const Separator = "-"

// Fallback is used when a name normalizes to nothing.
const Fallback = "category"

// zwnj is the zero-width non-joiner used inside Persian words.
const zwnj = "‌"

var (
	persianDisallowed = regexp.MustCompile(`[^a-z0-9_\s\-اآؤئبپتثجچحخدذرزژسشصضطظعغفقكکگلمنوةيإأۀءهی۰۱۲۳۴۵۶۷۸۹٠١٢٣٤٥٦٧٨٩]`)
	asciiDisallowed   = regexp.MustCompile(`[^a-z0-9_\s\-]`)
	runsOfSpace       = regexp.MustCompile(`[\s\-_]+`)
)

// Normalizer maps a source string to a non-unique slug.
type Normalizer func(string) string

// Persian keeps ASCII letters and digits plus Persian and Arabic letters and
// digits. Accented Latin letters are folded to their base letter first.
func Persian(s string) string {
	return normalize(s, persianDisallowed)
}

// ASCII keeps only ASCII letters and digits after accent folding.
func ASCII(s string) string {
	return normalize(s, asciiDisallowed)
}

// ForLocale returns the normalizer for a configured locale name. Unknown
// names get Persian.
func ForLocale(locale string) Normalizer {
	if locale == "ascii" {
		return ASCII
	}
	return Persian
}

func normalize(s string, disallowed *regexp.Regexp) string {
	s = strings.TrimSpace(s)
	s = cases.Lower(language.Und).String(s)
	s = strings.ReplaceAll(s, zwnj, Separator)
	s = foldMarks(s)
	s = disallowed.ReplaceAllString(s, "")
	s = runsOfSpace.ReplaceAllString(s, Separator)
	return strings.Trim(s, Separator)
}

// foldMarks strips combining marks from Latin letters only. Arabic-script
// letters such as آ decompose under NFD and must be kept whole.
func foldMarks(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII || !unicode.Is(unicode.Latin, r) {
			b.WriteRune(r)
			continue
		}
		folded, _, err := transform.String(
			transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
			string(r))
		if err != nil {
			b.WriteRune(r)
			continue
		}
		b.WriteString(folded)
	}
	return b.String()
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Generator produces unique slugs with one normalizer.
type Generator struct {
	normalize Normalizer
}

// New returns a Generator. A nil normalizer selects Persian.
func New(n Normalizer) *Generator {
	if n == nil {
		n = Persian
	}
	return &Generator{normalize: n}
}

// Make returns the non-unique slug for source.
func (g *Generator) Make(source string) string {
	s := g.normalize(source)
	if s == "" {
		return Fallback
	}
	return s
}

// Unique returns custom, if set, or the slug of source, suffixed with -1, -2
// and so on until exists reports it free.
func (g *Generator) Unique(ctx context.Context, source, custom string, exists ExistsFunc) (string, error) {
	base := custom
	if base == "" {
		base = g.Make(source)
	}

	candidate := base
	for i := 1; ; i++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", errors.Wrapf(err, "checking slug %q", candidate)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + Separator + strconv.Itoa(i)
	}
}
