package planning

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe    = regexp.MustCompile(`\s+`)
	commaRe         = regexp.MustCompile(`\s*(,)\s*`)
	sentenceEndRe   = regexp.MustCompile(`\s*([.!?]+)\s*`)
	// danglingCommaRe matches a comma left before closing punctuation by
	// one or more removed objects.
	danglingCommaRe = regexp.MustCompile(`,[\s\x{E000}]*\x{E000}[\s\x{E000}]*([.!?])`)
)

// removedMark stands in for a removed object until spacing is normalized.
const removedMark = "\uE000"

// Clean returns the display form of a model reply: every embedded object
// with a "type" key and every ```json block is removed, whether or not it
// parsed, and spacing around punctuation is normalized. Text without
// embedded objects only has its spacing normalized, so Clean is idempotent.
func Clean(text string) string {
	out := fencedJSONRe.ReplaceAllString(text, removedMark)
	out = removeTypedObjects(out)
	if out != text {
		out = danglingCommaRe.ReplaceAllString(out, "$1")
		out = strings.ReplaceAll(out, removedMark, " ")
	}
	out = whitespaceRe.ReplaceAllString(out, " ")
	out = normalizePunct(out, commaRe)
	out = normalizePunct(out, sentenceEndRe)
	return strings.TrimSpace(out)
}

func removeTypedObjects(text string) string {
	spans := scanObjects(text)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, sp := range spans {
		if !typeKeyRe.MatchString(text[sp.start:sp.end]) {
			continue
		}
		b.WriteString(text[last:sp.start])
		b.WriteString(removedMark)
		last = sp.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// normalizePunct rewrites each match of re to its captured punctuation
// followed by one space. A lone "." or "," directly between two digits is
// part of a number and left alone.
func normalizePunct(s string, re *regexp.Regexp) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		punct := s[m[2]:m[3]]
		b.WriteString(s[last:start])
		if inNumber(s, start, end, punct) {
			b.WriteString(punct)
		} else {
			b.WriteString(punct)
			b.WriteByte(' ')
		}
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

func inNumber(s string, start, end int, punct string) bool {
	if punct != "." && punct != "," {
		return false
	}
	if end-start != 1 || start == 0 || end >= len(s) {
		return false
	}
	return isDigit(s[start-1]) && isDigit(s[end])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
