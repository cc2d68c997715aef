package bibtex

import (
	"regexp"
	"strings"

	"github.com/scholarly-tools/pinmap/helpers"
)

var (
	inlineMathRegex = regexp.MustCompile(`\$[^$]*\$`)
	// \cmd[opts]{arg} with a non-nested argument.
	macroArgRegex = regexp.MustCompile(`\\[A-Za-z]+(?:\s*\[[^\]]*\])?\s*\{([^{}]*)\}`)
	// Any remaining \cmd or \cmd* without a braced argument.
	bareMacroRegex = regexp.MustCompile(`\\[a-zA-Z]+\*?(?:\[[^\]]*\])?`)
)

// unwrapDelims strips repeated full-string wrappers: outer quote pairs, then
// outer brace pairs where the final brace closes the first one.
func unwrapDelims(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	for strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
		depth := 0
		closesAtEnd := false
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					closesAtEnd = i == len(s)-1
					i = len(s)
				}
			}
		}
		if !closesAtEnd {
			break
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// FlattenValue normalizes a field value to its plain-text content: wrapping
// delimiters removed, inline math dropped, macro wrappers like \emph{…}
// reduced to their argument, and every remaining brace deleted.
func FlattenValue(value string) string {
	s := unwrapDelims(value)
	s = inlineMathRegex.ReplaceAllString(s, "")
	for i := 0; i < 10; i++ {
		next := macroArgRegex.ReplaceAllString(s, "$1")
		if next == s {
			break
		}
		s = next
	}
	s = helpers.StripBraces(s)
	return helpers.NormalizeSpaces(s)
}

// CleanLaTeX strips LaTeX markup from running prose (abstracts): inline
// math, \cmd{arg} wrappers, stray macros, braces, and escaped characters.
func CleanLaTeX(text string) string {
	if text == "" {
		return ""
	}
	t := inlineMathRegex.ReplaceAllString(text, "")
	for i := 0; i < 10; i++ {
		next := macroArgRegex.ReplaceAllString(t, "$1")
		if next == t {
			break
		}
		t = next
	}
	t = bareMacroRegex.ReplaceAllString(t, "")
	t = helpers.StripBraces(t)
	t = strings.ReplaceAll(t, "~", " ")
	t = strings.ReplaceAll(t, `\%`, "%")
	t = strings.ReplaceAll(t, `\_`, "_")
	t = strings.ReplaceAll(t, `\&`, "&")
	return helpers.NormalizeSpaces(t)
}
