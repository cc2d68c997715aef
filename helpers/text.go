// Package helpers provides shared text utilities for pinmap.
package helpers

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonWordRegex    = regexp.MustCompile(`[^\w\s]`)
	slugWordRegex   = regexp.MustCompile(`[a-z0-9]+`)
)

// NormalizeSpaces collapses runs of whitespace to single spaces and trims.
func NormalizeSpaces(s string) string {
	return strings.TrimSpace(multiSpaceRegex.ReplaceAllString(s, " "))
}

// StripBraces removes every curly brace from a string.
func StripBraces(s string) string {
	s = strings.ReplaceAll(s, "{", "")
	return strings.ReplaceAll(s, "}", "")
}

// NormalizeTitle reduces a title to a canonical matching key: braces removed,
// lowercased, punctuation replaced with spaces, whitespace collapsed.
func NormalizeTitle(s string) string {
	s = StripBraces(s)
	s = strings.ToLower(s)
	s = nonWordRegex.ReplaceAllString(s, " ")
	return NormalizeSpaces(s)
}

// Slugify builds a short URL-safe slug from a title: ASCII-folded, lowercased,
// at most maxWords words joined by hyphens, truncated to maxLen.
func Slugify(text string, maxWords, maxLen int) string {
	text = asciiFold(text)
	words := slugWordRegex.FindAllString(strings.ToLower(text), -1)
	if len(words) > maxWords {
		words = words[:maxWords]
	}
	s := strings.Join(words, "-")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		return "item"
	}
	return s
}

// asciiFold drops diacritics and non-ASCII runes. It handles the common
// Latin-1 range explicitly; anything else non-ASCII is discarded.
func asciiFold(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII {
			b.WriteRune(r)
			continue
		}
		if folded, ok := latinFold[r]; ok {
			b.WriteString(folded)
		}
	}
	return b.String()
}

var latinFold = map[rune]string{
	'á': "a", 'à': "a", 'â': "a", 'ä': "a", 'ã': "a", 'å': "a", 'æ': "ae",
	'ç': "c", 'é': "e", 'è': "e", 'ê': "e", 'ë': "e", 'í': "i", 'ì': "i",
	'î': "i", 'ï': "i", 'ñ': "n", 'ó': "o", 'ò': "o", 'ô': "o", 'ö': "o",
	'õ': "o", 'ø': "o", 'ú': "u", 'ù': "u", 'û': "u", 'ü': "u", 'ý': "y",
	'ÿ': "y", 'ß': "ss",
	'Á': "A", 'À': "A", 'Â': "A", 'Ä': "A", 'Ã': "A", 'Å': "A", 'Æ': "AE",
	'Ç': "C", 'É': "E", 'È': "E", 'Ê': "E", 'Ë': "E", 'Í': "I", 'Ì': "I",
	'Î': "I", 'Ï': "I", 'Ñ': "N", 'Ó': "O", 'Ò': "O", 'Ô': "O", 'Ö': "O",
	'Õ': "O", 'Ø': "O", 'Ú': "U", 'Ù': "U", 'Û': "U", 'Ü': "U", 'Ý': "Y",
}
