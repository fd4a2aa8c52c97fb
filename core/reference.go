package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// SurahCount is the number of surahs; references outside 1..SurahCount are rejected.
const SurahCount = 114

// Reference is a parsed "surah:ayah" or "surah:start-end" verse reference.
type Reference struct {
	Surah     int
	StartAyah int
	// EndAyah equals StartAyah for single-ayah references.
	EndAyah int
	Raw     string
}

// IsRange reports whether the reference spans more than one ayah.
func (r Reference) IsRange() bool {
	return r.EndAyah > r.StartAyah
}

// StartKey is the "surah:ayah" key of the first ayah, as used by content providers.
func (r Reference) StartKey() string {
	return strconv.Itoa(r.Surah) + ":" + strconv.Itoa(r.StartAyah)
}

func (r Reference) String() string {
	if r.IsRange() {
		return fmt.Sprintf("%d:%d-%d", r.Surah, r.StartAyah, r.EndAyah)
	}
	return r.StartKey()
}

// Examples: "2:286", "103:1-3", "62:9-10"
//
//nolint:govet // participle grammar tags are not standard struct tags
type referenceGrammar struct {
	Surah int  `@Int ":"`
	Start int  `@Int`
	End   *int `( "-" @Int )?`
}

var referenceLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var referenceParser = participle.MustBuild[referenceGrammar](
	participle.Lexer(referenceLexer),
	participle.Elide("Whitespace"),
)

// ParseReference parses a verse reference. Every failure wraps ErrInvalidReference.
func ParseReference(s string) (Reference, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Reference{}, &ReferenceError{Raw: s, Reason: "empty reference"}
	}

	parsed, err := referenceParser.ParseString("", raw)
	if err != nil {
		return Reference{}, &ReferenceError{Raw: s, Reason: err.Error()}
	}

	ref := Reference{
		Surah:     parsed.Surah,
		StartAyah: parsed.Start,
		EndAyah:   parsed.Start,
		Raw:       raw,
	}
	if parsed.End != nil {
		ref.EndAyah = *parsed.End
	}

	switch {
	case ref.Surah < 1 || ref.Surah > SurahCount:
		return Reference{}, &ReferenceError{Raw: s, Reason: fmt.Sprintf("surah %d out of range 1-%d", ref.Surah, SurahCount)}
	case ref.StartAyah < 1:
		return Reference{}, &ReferenceError{Raw: s, Reason: "ayah numbers start at 1"}
	case ref.EndAyah < ref.StartAyah:
		return Reference{}, &ReferenceError{Raw: s, Reason: fmt.Sprintf("range end %d before start %d", ref.EndAyah, ref.StartAyah)}
	}

	return ref, nil
}
