// Package moderation masks censored words in chat text before it is
// recorded or delivered. Matching is case-insensitive and backed by an
// Aho-Corasick automaton, so one pass covers the whole word list.
package moderation

import (
	"strings"
	"unicode"

	"chat-server/errors"
	goahocorasick "github.com/anknown/ahocorasick"
)

type Moderator struct {
	matcher  *goahocorasick.Machine
	maskRune rune
}

// NewModerator builds the automaton from the provided word list. Words
// are lowered and trimmed; blanks are skipped. An effectively empty
// list is rejected so callers can distinguish "disabled" from
// "misconfigured".
func NewModerator(censoredWords []string, maskRune rune) (*Moderator, error) {
	patterns := make([][]rune, 0, len(censoredWords))
	for _, word := range censoredWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		patterns = append(patterns, []rune(word))
	}
	if len(patterns) == 0 {
		return nil, errors.ErrEmptyWords
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: m, maskRune: maskRune}, nil
}

// Censor replaces every character of each matched word with the mask
// rune. Unmatched text is returned unchanged.
func (m *Moderator) Censor(text string) string {
	original := []rune(text)
	lowered := make([]rune, len(original))
	for i, r := range original {
		lowered[i] = unicode.ToLower(r)
	}

	spans := m.matcher.MultiPatternSearch(lowered, false)
	if len(spans) == 0 {
		return text
	}

	for _, span := range spans {
		end := span.Pos + len(span.Word)
		if span.Pos < 0 || end > len(original) {
			continue
		}
		for i := span.Pos; i < end; i++ {
			original[i] = m.maskRune
		}
	}
	return string(original)
}
