package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// nameLabelRe matches explicit "Name: ..." style labels at a line start.
var nameLabelRe = regexp.MustCompile(`(?im)^[ \t]*(?:full[ \t]+name|name|candidate)[ \t]*[:\-][ \t]*(\S[^\r\n]{0,79})$`)

// CandidateLabel derives a display label for a résumé chunk. Best effort
// only: an explicit name label wins, then a first line that looks like a
// personal name, then a numeric placeholder. The label is presentation
// sugar and must never be used as an index key.
func CandidateLabel(text string, ordinal int) string {
	if m := nameLabelRe.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if looksLikeName(line) {
			return line
		}
		break
	}

	return fmt.Sprintf("Candidate %d", ordinal)
}

// looksLikeName reports whether a line is 2-4 capitalized words of letters,
// the usual shape of a résumé header line.
func looksLikeName(line string) bool {
	if len(line) > 60 {
		return false
	}
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		runes := []rune(w)
		if !unicode.IsUpper(runes[0]) {
			return false
		}
		for _, r := range runes {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return false
			}
		}
	}
	return true
}
