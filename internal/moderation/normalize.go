package moderation

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// leet folds common character substitutions back to letters. It is applied
// to a second copy of the text only, so digits in the plain copy survive.
var leet = strings.NewReplacer(
	"0", "o", "1", "i", "3", "e", "4", "a", "5", "s", "7", "t", "@", "a", "$", "s",
)

// normalize lowercases s, folds diacritics, and replaces every run of
// non-alphanumeric characters with a single space.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return collapse(strings.ToLower(folded))
}

func collapse(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}

// joinSingles glues runs of two or more single-character tokens into one
// word, so "a m m o" becomes "ammo".
func joinSingles(s string) string {
	fields := strings.Fields(s)
	out := make([]string, 0, len(fields))
	var run strings.Builder
	for _, f := range fields {
		if utf8.RuneCountInString(f) == 1 {
			run.WriteString(f)
			continue
		}
		if run.Len() > 0 {
			out = append(out, run.String())
			run.Reset()
		}
		out = append(out, f)
	}
	if run.Len() > 0 {
		out = append(out, run.String())
	}
	return strings.Join(out, " ")
}

// stripInner drops punctuation sandwiched between letters or digits, so
// "g.u.n" and "c-o-c-a-i-n-e" read as single words.
func stripInner(s string) string {
	rs := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(rs); i++ {
		if !isPunct(rs[i]) || i == 0 || !isWordRune(rs[i-1]) {
			b.WriteRune(rs[i])
			continue
		}
		j := i
		for j < len(rs) && isPunct(rs[j]) {
			j++
		}
		if j < len(rs) && isWordRune(rs[j]) {
			i = j - 1
			continue
		}
		b.WriteString(string(rs[i:j]))
		i = j - 1
	}
	return b.String()
}

func isWordRune(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

func isPunct(r rune) bool { return !isWordRune(r) && !unicode.IsSpace(r) }

// variants returns the distinct forms a rule is matched against: the
// normalized text and its leet-decoded form, each also with in-word
// punctuation removed and with spelled-out letters joined back together.
func variants(raw string) []string {
	lower := strings.ToLower(raw)
	decoded := leet.Replace(lower)

	out := make([]string, 0, 6)
	add := func(v string) {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	for _, text := range []string{lower, decoded} {
		n := normalize(text)
		add(n)
		add(normalize(stripInner(text)))
		add(joinSingles(n))
	}
	return out
}
