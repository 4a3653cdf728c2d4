package trigger

import (
	"strings"
	"unicode"

	"github.com/elliotchance/pie/v2"
)

func normalizePhrases(phrases []string) []string {
	normalized := pie.Map(phrases, func(p string) string {
		return strings.ToLower(strings.TrimSpace(p))
	})

	return pie.Filter(normalized, func(p string) bool {
		return p != ""
	})
}

func containsAny(text string, phrases []string) bool {
	return pie.FindFirstUsing(phrases, func(p string) bool {
		return strings.Contains(text, p)
	}) >= 0
}

func endsWithAny(text string, phrases []string) bool {
	return pie.FindFirstUsing(phrases, func(p string) bool {
		return strings.HasSuffix(text, p)
	}) >= 0
}

// trailingText returns what follows the last delimiter occurrence, empty if there is none.
func trailingText(text, delimiter string) string {
	if delimiter == "" {
		return ""
	}

	i := strings.LastIndex(text, delimiter)
	if i < 0 {
		return ""
	}

	return strings.TrimSpace(text[i+len(delimiter):])
}

// halfWords reduces configured halves such as "hey," to bare words.
func halfWords(phrases []string) []string {
	words := pie.Map(normalizePhrases(phrases), func(p string) string {
		return strings.Join(strings.FieldsFunc(p, isWordSeparator), " ")
	})

	return pie.Filter(words, func(w string) bool {
		return w != ""
	})
}

func isWordSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

func normalizeSegment(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func buildQuestion(fragments []string) string {
	question := strings.TrimSpace(strings.Join(fragments, " "))
	if !strings.HasSuffix(question, "?") {
		question += "?"
	}

	return question
}
