package classifier

import (
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Chord and progression patterns carried over from the deterministic matcher
// that predates the LLM backend. Progressions may appear as roman numerals or
// plain numbers; chord names cover the common quality suffixes.
var (
	progressionPattern = regexp.MustCompile(
		`(\s|^)(I IV V|I V vi IV|ii V I|vi IV I V|I vi IV V|iii vi IV V|I IV vi V|I vi ii V|IV V I|I iii IV V|1 4 5|1 5 6 4|2 5 1|6 4 1 5|1 6 4 5|3 6 4 5|1 4 6 5|1 6 2 5|4 5 1|1 3 4 5)(\?+|!+|\.+|,+)?(\s|$)`)
	chordNamePattern = regexp.MustCompile(
		`(\s|^)(C|C#|D|D#|E|F|F#|G|G#|A|A#|B|Cb|Db|Eb|Fb|Gb|Ab|Bb)(m|7|m7|dim|aug|sus[24]|6|9|11|13|#9|b5|b9|#5|maj|maj7|maj9|7b5|m7b5)?(\?+|!+|\.+|,+)?(\s|$)`)
)

// Prefilter is a cheap deterministic gate run before the backend call. It
// exists to save classifier cost and latency on text that cannot possibly
// mention a chord; the authoritative verdict still comes from the backend.
type Prefilter struct{}

// NewPrefilter returns the chord/progression pattern gate.
func NewPrefilter() *Prefilter {
	return &Prefilter{}
}

// Match reports whether the text contains anything resembling a chord name or
// progression. Text is NFKC-normalized first so fullwidth and compatibility
// forms of note letters still match.
func (p *Prefilter) Match(text string) bool {
	normalized := norm.NFKC.String(text)
	return chordNamePattern.MatchString(normalized) || progressionPattern.MatchString(normalized)
}
