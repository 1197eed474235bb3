// Package moderation censors forbidden words in customer-facing message
// content before it reaches the store or any subscriber.
package moderation

import (
	"bufio"
	"embed"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

//go:embed censored/*.txt
var censoredFiles embed.FS

// Moderator masks forbidden patterns with a replacement rune. Matching is
// resilient to case, punctuation noise, and common leet-speak spellings.
type Moderator struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// mapping links the normalized search text back to rune positions in the
// original input, so masking preserves the original spacing.
type mapping struct {
	normalized []rune
	originIdx  []int
}

// NewModerator builds the Aho-Corasick automaton from a normalized copy
// of the forbidden word list.
func NewModerator(words []string, replacement rune) (*Moderator, error) {
	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize([]rune(word)).normalized
	}

	machine := new(goahocorasick.Machine)
	if err := machine.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{matcher: machine, replacement: replacement}, nil
}

// LoadEmbeddedWords returns the built-in forbidden word list, one word per
// line, blank lines and #-comments skipped.
func LoadEmbeddedWords() ([]string, error) {
	entries, err := censoredFiles.ReadDir("censored")
	if err != nil {
		return nil, err
	}
	var words []string
	for _, entry := range entries {
		file, err := censoredFiles.Open("censored/" + entry.Name())
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			words = append(words, line)
		}
		if err := scanner.Err(); err != nil {
			_ = file.Close()
			return nil, err
		}
		_ = file.Close()
	}
	return words, nil
}

// Censor masks every forbidden pattern found in the input, replacing the
// original characters while preserving spacing and untouched text.
func (m *Moderator) Censor(original string) string {
	text := normalize([]rune(original))
	if len(text.normalized) == 0 {
		return original
	}

	spans := m.matcher.MultiPatternSearch(text.normalized, false)
	if len(spans) == 0 {
		return original
	}

	runes := []rune(original)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(text.originIdx) {
			continue
		}
		from := text.originIdx[start]
		to := text.originIdx[end-1] + 1
		for i := from; i < to; i++ {
			runes[i] = m.replacement
		}
	}
	return string(runes)
}

// normalize lowercases, undoes leet-speak substitutions, and drops noise
// characters, keeping a position map back to the original runes.
func normalize(input []rune) mapping {
	out := mapping{
		normalized: make([]rune, 0, len(input)),
		originIdx:  make([]int, 0, len(input)),
	}
	for i, r := range input {
		plain := unleet(r)
		if isNoise(plain) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(plain))
		out.originIdx = append(out.originIdx, i)
	}
	return out
}

// unleet maps common leet-speak characters back to their standard
// alphabet counterparts.
func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during pattern matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
